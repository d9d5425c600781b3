// Package stats computes per-user summaries and guild leaderboards from
// stored activity records. All operations are read-only.
package stats

import (
	"fmt"
	"time"

	"chatstats/internal/models"
)

// leaderboardLimit caps each leaderboard section.
const leaderboardLimit = 10

// Store is the read side of the record store.
type Store interface {
	VoiceSessionsByUser(userID, guildID string) ([]models.VoiceSession, error)
	MessagesByUser(userID, guildID string) ([]models.MessageRecord, error)
	ReactionsByUser(userID, guildID string) ([]models.ReactionRecord, error)
	TopVoice(guildID string, since, until *time.Time, limit int) ([]models.LeaderboardEntry, error)
	TopMessages(guildID string, since, until *time.Time, limit int) ([]models.LeaderboardEntry, error)
	TopEmojis(guildID string, since, until *time.Time, limit int) ([]models.LeaderboardEntry, error)
	TopReactions(guildID string, since, until *time.Time, limit int) ([]models.LeaderboardEntry, error)
}

// Summary is a user's aggregate activity in one guild. A user with no
// recorded activity yields the zero value, not an error.
type Summary struct {
	VoiceSeconds     int64
	VoiceSessions    int
	FavoriteChannel  string // channel name; empty when no sessions
	MessageCount     int
	EmojiCount       int
	TopEmoji         string
	TopEmojiCount    int
	ReactionsAdded   int
	ReactionsRemoved int
	TopReaction      string
	TopReactionCount int
	FirstActivity    *time.Time
}

// Leaderboard holds the guild leaderboard sections, each sorted descending.
type Leaderboard struct {
	VoiceTime []models.LeaderboardEntry
	Messages  []models.LeaderboardEntry
	Emojis    []models.LeaderboardEntry
	Reactions []models.LeaderboardEntry
}

// Aggregator answers stats queries against a Store.
type Aggregator struct {
	store Store
}

// New creates an aggregator backed by store.
func New(store Store) *Aggregator {
	return &Aggregator{store: store}
}

// UserStats returns the activity summary for a user in a guild.
func (a *Aggregator) UserStats(userID, guildID string) (Summary, error) {
	sessions, err := a.store.VoiceSessionsByUser(userID, guildID)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to load voice sessions: %w", err)
	}
	messages, err := a.store.MessagesByUser(userID, guildID)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to load messages: %w", err)
	}
	reactions, err := a.store.ReactionsByUser(userID, guildID)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to load reactions: %w", err)
	}

	var s Summary
	s.VoiceSessions = len(sessions)
	s.MessageCount = len(messages)

	// favourite channel: most summed duration, ties broken by most recent
	// session in that channel
	type channelAgg struct {
		name     string
		duration int64
		lastLeft time.Time
	}
	channels := make(map[string]*channelAgg)
	for _, v := range sessions {
		s.VoiceSeconds += v.DurationSeconds
		agg, ok := channels[v.ChannelID]
		if !ok {
			agg = &channelAgg{name: v.ChannelName}
			channels[v.ChannelID] = agg
		}
		agg.duration += v.DurationSeconds
		if v.LeftAt.After(agg.lastLeft) {
			agg.lastLeft = v.LeftAt
			agg.name = v.ChannelName
		}
	}
	var best *channelAgg
	for _, agg := range channels {
		if best == nil || agg.duration > best.duration ||
			(agg.duration == best.duration && agg.lastLeft.After(best.lastLeft)) {
			best = agg
		}
	}
	if best != nil {
		s.FavoriteChannel = best.name
	}

	// emoji usage across message bodies and reaction adds; records arrive
	// oldest first so first-seen order is deterministic for tie-breaks
	usage := newEmojiTally()
	for _, m := range messages {
		s.EmojiCount += len(m.Emojis)
		for _, e := range m.Emojis {
			usage.add(e)
		}
	}
	given := newEmojiTally()
	for _, r := range reactions {
		switch r.Action {
		case models.ReactionAdd:
			s.ReactionsAdded++
			usage.add(r.Emoji)
			given.add(r.Emoji)
		case models.ReactionRemove:
			s.ReactionsRemoved++
		}
	}
	s.TopEmoji, s.TopEmojiCount = usage.top()
	s.TopReaction, s.TopReactionCount = given.top()

	s.FirstActivity = firstActivity(sessions, messages, reactions)
	return s, nil
}

// GuildLeaderboard returns the guild's top users by voice time, messages,
// emoji usage, and reactions given. A nil since or until leaves that bound
// open.
func (a *Aggregator) GuildLeaderboard(guildID string, since, until *time.Time) (Leaderboard, error) {
	var lb Leaderboard
	var err error

	if lb.VoiceTime, err = a.store.TopVoice(guildID, since, until, leaderboardLimit); err != nil {
		return Leaderboard{}, fmt.Errorf("failed to load voice leaderboard: %w", err)
	}
	if lb.Messages, err = a.store.TopMessages(guildID, since, until, leaderboardLimit); err != nil {
		return Leaderboard{}, fmt.Errorf("failed to load message leaderboard: %w", err)
	}
	if lb.Emojis, err = a.store.TopEmojis(guildID, since, until, leaderboardLimit); err != nil {
		return Leaderboard{}, fmt.Errorf("failed to load emoji leaderboard: %w", err)
	}
	if lb.Reactions, err = a.store.TopReactions(guildID, since, until, leaderboardLimit); err != nil {
		return Leaderboard{}, fmt.Errorf("failed to load reaction leaderboard: %w", err)
	}
	return lb, nil
}

// emojiTally counts emoji occurrences and remembers first-seen order.
type emojiTally struct {
	counts map[string]int
	first  map[string]int
	next   int
}

func newEmojiTally() *emojiTally {
	return &emojiTally{counts: make(map[string]int), first: make(map[string]int)}
}

func (t *emojiTally) add(emoji string) {
	if _, ok := t.first[emoji]; !ok {
		t.first[emoji] = t.next
		t.next++
	}
	t.counts[emoji]++
}

// top returns the most-counted emoji, ties broken by first-seen order.
func (t *emojiTally) top() (string, int) {
	var bestEmoji string
	bestCount := 0
	bestFirst := 0
	for emoji, count := range t.counts {
		if count > bestCount || (count == bestCount && t.first[emoji] < bestFirst) {
			bestEmoji = emoji
			bestCount = count
			bestFirst = t.first[emoji]
		}
	}
	return bestEmoji, bestCount
}

func firstActivity(sessions []models.VoiceSession, messages []models.MessageRecord, reactions []models.ReactionRecord) *time.Time {
	var first *time.Time
	consider := func(ts time.Time) {
		if first == nil || ts.Before(*first) {
			t := ts
			first = &t
		}
	}
	if len(sessions) > 0 {
		consider(sessions[0].JoinedAt)
	}
	if len(messages) > 0 {
		consider(messages[0].CreatedAt)
	}
	if len(reactions) > 0 {
		consider(reactions[0].CreatedAt)
	}
	return first
}
