package discord

import (
	"errors"
	"time"

	"github.com/bwmarrin/discordgo"

	"chatstats/internal/emoji"
	"chatstats/internal/models"
)

// ErrMalformed marks a gateway payload missing a required field. The caller
// drops the event and logs; nothing is recorded.
var ErrMalformed = errors.New("malformed event")

// EventKind tags a normalized gateway event.
type EventKind string

const (
	KindJoin           EventKind = "join"
	KindLeave          EventKind = "leave"
	KindSwitch         EventKind = "switch"
	KindMessage        EventKind = "message"
	KindReactionAdd    EventKind = "reaction_add"
	KindReactionRemove EventKind = "reaction_remove"
)

// Event is a normalized gateway event. Fields beyond Kind, UserID, GuildID
// and Timestamp are filled per kind: ChannelID for voice and messages,
// MessageID/Body for messages, MessageID/Emoji for reactions.
type Event struct {
	Kind      EventKind
	UserID    string
	GuildID   string
	ChannelID string
	MessageID string
	Body      string
	Emoji     string
	Timestamp time.Time
}

// NormalizeVoice maps a raw voice-state update to a Join, Leave or Switch
// event, classified from the before/after channel. ok is false for events
// outside tracking scope: non-guild states and same-channel updates
// (mute/deafen toggles). Voice states carry no gateway timestamp, so the
// caller supplies the event time.
func NormalizeVoice(vs *discordgo.VoiceStateUpdate, now time.Time) (Event, bool, error) {
	if vs == nil || vs.VoiceState == nil || vs.UserID == "" {
		return Event{}, false, ErrMalformed
	}
	if vs.GuildID == "" {
		return Event{}, false, nil
	}

	before := ""
	if vs.BeforeUpdate != nil {
		before = vs.BeforeUpdate.ChannelID
	}
	after := vs.ChannelID

	var kind EventKind
	switch {
	case before == after:
		return Event{}, false, nil
	case before == "":
		kind = KindJoin
	case after == "":
		kind = KindLeave
	default:
		kind = KindSwitch
	}

	return Event{
		Kind:      kind,
		UserID:    vs.UserID,
		GuildID:   vs.GuildID,
		ChannelID: after,
		Timestamp: now,
	}, true, nil
}

// NormalizeMessage maps a raw message-create event. ok is false for messages
// outside tracking scope: bot authors and direct messages.
func NormalizeMessage(m *discordgo.MessageCreate) (Event, bool, error) {
	if m == nil || m.Message == nil || m.Author == nil || m.ID == "" {
		return Event{}, false, ErrMalformed
	}
	if m.Author.Bot || m.GuildID == "" {
		return Event{}, false, nil
	}
	if m.Timestamp.IsZero() {
		return Event{}, false, ErrMalformed
	}

	return Event{
		Kind:      KindMessage,
		UserID:    m.Author.ID,
		GuildID:   m.GuildID,
		ChannelID: m.ChannelID,
		MessageID: m.ID,
		Body:      m.Content,
		Timestamp: m.Timestamp,
	}, true, nil
}

// NormalizeReactionAdd maps a raw reaction-add event. Reaction payloads carry
// no gateway timestamp, so the caller supplies the event time.
func NormalizeReactionAdd(r *discordgo.MessageReactionAdd, now time.Time) (Event, bool, error) {
	if r == nil {
		return Event{}, false, ErrMalformed
	}
	return normalizeReaction(r.MessageReaction, KindReactionAdd, now)
}

// NormalizeReactionRemove maps a raw reaction-remove event.
func NormalizeReactionRemove(r *discordgo.MessageReactionRemove, now time.Time) (Event, bool, error) {
	if r == nil {
		return Event{}, false, ErrMalformed
	}
	return normalizeReaction(r.MessageReaction, KindReactionRemove, now)
}

func normalizeReaction(mr *discordgo.MessageReaction, kind EventKind, now time.Time) (Event, bool, error) {
	if mr == nil || mr.UserID == "" || mr.MessageID == "" {
		return Event{}, false, ErrMalformed
	}
	if mr.GuildID == "" {
		return Event{}, false, nil
	}
	emojiStr := mr.Emoji.MessageFormat()
	if emojiStr == "" {
		return Event{}, false, ErrMalformed
	}

	return Event{
		Kind:      kind,
		UserID:    mr.UserID,
		GuildID:   mr.GuildID,
		ChannelID: mr.ChannelID,
		MessageID: mr.MessageID,
		Emoji:     emojiStr,
		Timestamp: now,
	}, true, nil
}

// NewMessageRecord builds the stored record for a normalized message event,
// extracting the emoji tokens from the body. The body itself is not stored.
func NewMessageRecord(evt Event) models.MessageRecord {
	return models.MessageRecord{
		UserID:    evt.UserID,
		GuildID:   evt.GuildID,
		ChannelID: evt.ChannelID,
		MessageID: evt.MessageID,
		Emojis:    emoji.Extract(evt.Body),
		CreatedAt: evt.Timestamp,
	}
}

// NewReactionRecord builds the stored record for a normalized reaction event.
func NewReactionRecord(evt Event) models.ReactionRecord {
	action := models.ReactionAdd
	if evt.Kind == KindReactionRemove {
		action = models.ReactionRemove
	}
	return models.ReactionRecord{
		UserID:    evt.UserID,
		GuildID:   evt.GuildID,
		ChannelID: evt.ChannelID,
		MessageID: evt.MessageID,
		Emoji:     evt.Emoji,
		Action:    action,
		CreatedAt: evt.Timestamp,
	}
}
