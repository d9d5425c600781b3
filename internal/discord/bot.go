package discord

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/cenkalti/backoff/v4"

	"chatstats/internal/database"
	"chatstats/internal/metrics"
	"chatstats/internal/models"
	"chatstats/internal/stats"
	"chatstats/internal/tracker"
	"chatstats/pkg/utils"
)

// closeRetries bounds the backoff retry of a transient store failure when
// closing a voice session.
const closeRetries = 3

// Store is the record store surface the bot writes and reads through.
// *database.Repository satisfies it.
type Store interface {
	UpsertUser(userID, displayName string, seenAt time.Time) error
	InsertVoiceSession(s models.VoiceSession) error
	InsertMessage(m models.MessageRecord) error
	InsertReaction(r models.ReactionRecord) error
	stats.Store
}

// Bot owns the gateway session and routes normalized events to the tracker
// and the record store.
type Bot struct {
	session    *discordgo.Session
	store      Store
	tracker    *tracker.Tracker
	aggregator *stats.Aggregator
}

// New creates the bot and registers its event handlers.
func New(token string, store Store) (*Bot, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildVoiceStates |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMessageReactions |
		discordgo.IntentMessageContent

	bot := &Bot{
		session:    session,
		store:      store,
		tracker:    tracker.New(store),
		aggregator: stats.New(store),
	}

	session.AddHandler(bot.voiceStateUpdate)
	session.AddHandler(bot.messageCreate)
	session.AddHandler(bot.reactionAdd)
	session.AddHandler(bot.reactionRemove)

	return bot, nil
}

// Start opens the gateway connection.
func (b *Bot) Start() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open Discord connection: %w", err)
	}

	log.Println("✅ Bot is running...")
	return nil
}

// Stop closes the gateway connection and discards open voice sessions.
func (b *Bot) Stop() error {
	err := b.session.Close()
	b.tracker.Close()
	return err
}

// voiceStateUpdate handles voice joins, leaves and channel switches.
func (b *Bot) voiceStateUpdate(s *discordgo.Session, vs *discordgo.VoiceStateUpdate) {
	evt, ok, err := NormalizeVoice(vs, time.Now().UTC())
	if err != nil {
		metrics.EventsDropped.WithLabelValues("malformed").Inc()
		log.Printf("dropping malformed voice event: %v", err)
		return
	}
	if !ok {
		metrics.EventsDropped.WithLabelValues("out_of_scope").Inc()
		return
	}
	metrics.EventsTotal.WithLabelValues(string(evt.Kind)).Inc()

	b.upsertUserAsync(evt.UserID, b.memberName(s, evt.GuildID, evt.UserID), evt.Timestamp)

	switch evt.Kind {
	case KindJoin:
		b.tracker.Join(evt.UserID, evt.GuildID, evt.ChannelID, b.channelName(s, evt.ChannelID), evt.Timestamp)
		log.Printf("voice join: user=%s guild=%s channel=%s", evt.UserID, evt.GuildID, evt.ChannelID)

	case KindSwitch:
		name := b.channelName(s, evt.ChannelID)
		var closed *models.VoiceSession
		err := withRetry(func() error {
			var err error
			closed, err = b.tracker.Switch(evt.UserID, evt.GuildID, evt.ChannelID, name, evt.Timestamp)
			return err
		})
		if err != nil {
			log.Printf("Error closing voice session on switch: %v", err)
			return
		}
		if closed != nil {
			metrics.RecordsWritten.WithLabelValues("voice_session").Inc()
			log.Printf("voice switch: user=%s guild=%s %s->%s +%ds", evt.UserID, evt.GuildID, closed.ChannelID, evt.ChannelID, closed.DurationSeconds)
		}

	case KindLeave:
		var closed *models.VoiceSession
		err := withRetry(func() error {
			var err error
			closed, err = b.tracker.Leave(evt.UserID, evt.GuildID, evt.Timestamp)
			return err
		})
		if err != nil {
			log.Printf("Error closing voice session on leave: %v", err)
			return
		}
		if closed != nil {
			metrics.RecordsWritten.WithLabelValues("voice_session").Inc()
			log.Printf("voice leave: user=%s guild=%s channel=%s +%ds", evt.UserID, evt.GuildID, closed.ChannelID, closed.DurationSeconds)
		}
	}
}

// messageCreate records guild messages and serves the stat commands.
func (b *Bot) messageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	evt, ok, err := NormalizeMessage(m)
	if err != nil {
		metrics.EventsDropped.WithLabelValues("malformed").Inc()
		log.Printf("dropping malformed message event: %v", err)
		return
	}
	if !ok {
		metrics.EventsDropped.WithLabelValues("out_of_scope").Inc()
		return
	}
	metrics.EventsTotal.WithLabelValues(string(evt.Kind)).Inc()

	b.upsertUserAsync(evt.UserID, messageAuthorName(m), evt.Timestamp)

	if err := b.store.InsertMessage(NewMessageRecord(evt)); err != nil {
		metrics.StoreFailures.Inc()
		log.Printf("Error recording message: %v", err)
	} else {
		metrics.RecordsWritten.WithLabelValues("message").Inc()
	}

	content := strings.TrimSpace(m.Content)
	switch {
	case strings.HasPrefix(content, "!stats"):
		b.handleStatsCommand(s, m, content)
	case strings.HasPrefix(content, "!leaderboard"):
		b.handleLeaderboardCommand(s, m, content)
	}
}

// reactionAdd records reaction-add events.
func (b *Bot) reactionAdd(s *discordgo.Session, r *discordgo.MessageReactionAdd) {
	evt, ok, err := NormalizeReactionAdd(r, time.Now().UTC())
	if err != nil {
		metrics.EventsDropped.WithLabelValues("malformed").Inc()
		log.Printf("dropping malformed reaction event: %v", err)
		return
	}
	if !ok {
		metrics.EventsDropped.WithLabelValues("out_of_scope").Inc()
		return
	}
	metrics.EventsTotal.WithLabelValues(string(evt.Kind)).Inc()

	// raw reaction payloads routinely omit member data; the upsert keeps the
	// stored display name when given an empty one
	name := ""
	if r.Member != nil {
		name = memberDisplayName(r.Member)
	}
	b.upsertUserAsync(evt.UserID, name, evt.Timestamp)
	b.insertReaction(evt)
}

// reactionRemove records reaction-remove events.
func (b *Bot) reactionRemove(s *discordgo.Session, r *discordgo.MessageReactionRemove) {
	evt, ok, err := NormalizeReactionRemove(r, time.Now().UTC())
	if err != nil {
		metrics.EventsDropped.WithLabelValues("malformed").Inc()
		log.Printf("dropping malformed reaction event: %v", err)
		return
	}
	if !ok {
		metrics.EventsDropped.WithLabelValues("out_of_scope").Inc()
		return
	}
	metrics.EventsTotal.WithLabelValues(string(evt.Kind)).Inc()

	b.upsertUserAsync(evt.UserID, "", evt.Timestamp)
	b.insertReaction(evt)
}

func (b *Bot) insertReaction(evt Event) {
	if err := b.store.InsertReaction(NewReactionRecord(evt)); err != nil {
		metrics.StoreFailures.Inc()
		log.Printf("Error recording reaction: %v", err)
		return
	}
	metrics.RecordsWritten.WithLabelValues("reaction").Inc()
}

// handleStatsCommand handles "!stats [@user]".
func (b *Bot) handleStatsCommand(s *discordgo.Session, m *discordgo.MessageCreate, content string) {
	target := m.Author.ID
	fields := strings.Fields(content)
	if len(fields) > 1 && utils.IsUserMention(fields[1]) {
		target = utils.ExtractUserIDFromMention(fields[1])
	}

	summary, err := b.aggregator.UserStats(target, m.GuildID)
	if err != nil {
		log.Printf("Error getting user stats: %v", err)
		s.ChannelMessageSend(m.ChannelID, "Could not load stats, try again later.")
		return
	}

	lines := []string{
		fmt.Sprintf("📊 Stats for %s", utils.FormatUserMention(target)),
		fmt.Sprintf("🎤 Voice: %s across %d sessions", utils.FormatDuration(summary.VoiceSeconds), summary.VoiceSessions),
	}
	if summary.FavoriteChannel != "" {
		lines = append(lines, fmt.Sprintf("    Favorite channel: %s", utils.TruncateString(summary.FavoriteChannel, 40)))
	}
	lines = append(lines, fmt.Sprintf("💬 Messages: %d (%d emojis used)", summary.MessageCount, summary.EmojiCount))
	if summary.TopEmoji != "" {
		lines = append(lines, fmt.Sprintf("    Top emoji: %s (%dx)", summary.TopEmoji, summary.TopEmojiCount))
	}
	lines = append(lines, fmt.Sprintf("⭐ Reactions: %d given, %d removed", summary.ReactionsAdded, summary.ReactionsRemoved))
	if summary.TopReaction != "" {
		lines = append(lines, fmt.Sprintf("    Favorite: %s (%dx)", summary.TopReaction, summary.TopReactionCount))
	}
	if summary.FirstActivity != nil {
		lines = append(lines, fmt.Sprintf("Tracking since %s", summary.FirstActivity.Format("Jan 02, 2006")))
	}

	s.ChannelMessageSend(m.ChannelID, strings.Join(lines, "\n"))
}

// handleLeaderboardCommand handles "!leaderboard [1d|7d|30d|all]".
func (b *Bot) handleLeaderboardCommand(s *discordgo.Session, m *discordgo.MessageCreate, content string) {
	var since *time.Time
	period := "7d"
	if fields := strings.Fields(content); len(fields) > 1 {
		period = fields[1]
	}
	switch period {
	case "1d":
		t := time.Now().UTC().Add(-24 * time.Hour)
		since = &t
	case "7d":
		t := time.Now().UTC().Add(-7 * 24 * time.Hour)
		since = &t
	case "30d":
		t := time.Now().UTC().Add(-30 * 24 * time.Hour)
		since = &t
	case "all":
		// no lower bound
	default:
		s.ChannelMessageSend(m.ChannelID, "Format: !leaderboard [1d|7d|30d|all]")
		return
	}

	lb, err := b.aggregator.GuildLeaderboard(m.GuildID, since, nil)
	if err != nil {
		log.Printf("Error getting guild leaderboard: %v", err)
		s.ChannelMessageSend(m.ChannelID, "Could not load the leaderboard, try again later.")
		return
	}

	var sections []string
	if len(lb.VoiceTime) > 0 {
		sections = append(sections, leaderboardSection("🎤 Voice Time", lb.VoiceTime, func(total int64) string {
			return utils.FormatDuration(total)
		}))
	}
	if len(lb.Messages) > 0 {
		sections = append(sections, leaderboardSection("💬 Messages", lb.Messages, plainCount))
	}
	if len(lb.Emojis) > 0 {
		sections = append(sections, leaderboardSection("😀 Emojis Used", lb.Emojis, plainCount))
	}
	if len(lb.Reactions) > 0 {
		sections = append(sections, leaderboardSection("⭐ Reactions Given", lb.Reactions, plainCount))
	}

	if len(sections) == 0 {
		s.ChannelMessageSend(m.ChannelID, "No activity recorded for this period.")
		return
	}

	s.ChannelMessageSend(m.ChannelID, strings.Join(sections, "\n\n"))
}

func leaderboardSection(title string, entries []models.LeaderboardEntry, format func(int64) string) string {
	lines := []string{title}
	for i, e := range entries {
		lines = append(lines, utils.FormatLeaderboardEntry(i+1, utils.FormatUserMention(e.UserID), format(e.Total)))
	}
	return strings.Join(lines, "\n")
}

func plainCount(total int64) string {
	return fmt.Sprintf("%d", total)
}

// upsertUserAsync refreshes the user's identity document. Best-effort: a
// failure is logged and never blocks or fails the primary record write.
func (b *Bot) upsertUserAsync(userID, displayName string, seenAt time.Time) {
	go func() {
		if err := b.store.UpsertUser(userID, displayName, seenAt); err != nil {
			log.Printf("Error upserting user %s: %v", userID, err)
		}
	}()
}

// withRetry retries transient store failures with capped exponential backoff.
// Permanent failures abort immediately.
func withRetry(op func() error) error {
	bo := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), closeRetries)
	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		metrics.StoreFailures.Inc()
		if !database.IsTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}, bo)
}

func (b *Bot) channelName(s *discordgo.Session, channelID string) string {
	if channelID == "" {
		return ""
	}
	if ch, err := s.State.Channel(channelID); err == nil {
		return ch.Name
	}
	if ch, err := s.Channel(channelID); err == nil {
		return ch.Name
	}
	return ""
}

func (b *Bot) memberName(s *discordgo.Session, guildID, userID string) string {
	member, err := s.State.Member(guildID, userID)
	if err != nil || member == nil {
		return ""
	}
	return memberDisplayName(member)
}

func memberDisplayName(member *discordgo.Member) string {
	if member.Nick != "" {
		return member.Nick
	}
	if member.User != nil {
		return member.User.Username
	}
	return ""
}

func messageAuthorName(m *discordgo.MessageCreate) string {
	if m.Member != nil && m.Member.Nick != "" {
		return m.Member.Nick
	}
	return m.Author.Username
}
