package models

import "time"

// UserIdentity is the per-user document, refreshed on every observed event.
type UserIdentity struct {
	UserID      string
	DisplayName string
	LastSeenAt  time.Time
}

// OpenSession is the in-memory voice presence for a user in a guild. It is
// never persisted; closing it produces a VoiceSession.
type OpenSession struct {
	ChannelID   string
	ChannelName string
	JoinedAt    time.Time
}

// VoiceSession is a closed voice session. Only closed sessions reach the
// store, so LeftAt is always set and DurationSeconds = LeftAt - JoinedAt.
type VoiceSession struct {
	UserID          string
	GuildID         string
	ChannelID       string
	ChannelName     string
	JoinedAt        time.Time
	LeftAt          time.Time
	DurationSeconds int64
}

// MessageRecord stores one observed message. The message text itself is never
// stored, only the emoji tokens extracted from it in order of appearance.
type MessageRecord struct {
	UserID    string
	GuildID   string
	ChannelID string
	MessageID string
	Emojis    []string
	CreatedAt time.Time
}

// ReactionAction distinguishes reaction adds from removes.
type ReactionAction string

const (
	ReactionAdd    ReactionAction = "add"
	ReactionRemove ReactionAction = "remove"
)

// ReactionRecord stores one reaction event. Adds and removes are independent
// records; a remove never cancels a stored add.
type ReactionRecord struct {
	UserID    string
	GuildID   string
	ChannelID string
	MessageID string
	Emoji     string
	Action    ReactionAction
	CreatedAt time.Time
}

// LeaderboardEntry is one row of a guild leaderboard.
type LeaderboardEntry struct {
	UserID      string
	DisplayName string
	Total       int64
}
