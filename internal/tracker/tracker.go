// Package tracker pairs voice join events with later leave or switch events
// and turns each pair into a closed, persisted voice session.
package tracker

import (
	"fmt"
	"log"
	"sync"
	"time"

	"chatstats/internal/metrics"
	"chatstats/internal/models"
)

// SessionStore persists closed voice sessions. The insert must be idempotent
// under (userID, guildID, joinedAt) so a failed close can be retried.
type SessionStore interface {
	InsertVoiceSession(s models.VoiceSession) error
}

// Tracker holds the open-session state per (user, guild). Absence of a key
// means the user is not in voice for that guild. Sessions never span guilds;
// a user may be tracked in several guilds at once.
type Tracker struct {
	store SessionStore

	mu    sync.Mutex
	open  map[string]models.OpenSession // key: guildID:userID
	locks map[string]*sync.Mutex
}

// New creates a tracker with an empty open-session map.
func New(store SessionStore) *Tracker {
	return &Tracker{
		store: store,
		open:  make(map[string]models.OpenSession),
		locks: make(map[string]*sync.Mutex),
	}
}

func sessionKey(guildID, userID string) string {
	return guildID + ":" + userID
}

// lockKey serializes transitions per (user, guild) key. The store write for a
// close happens under the key lock, never under t.mu, so one user's slow
// close does not stall other users.
func (t *Tracker) lockKey(key string) *sync.Mutex {
	t.mu.Lock()
	l, ok := t.locks[key]
	if !ok {
		l = &sync.Mutex{}
		t.locks[key] = l
	}
	t.mu.Unlock()
	l.Lock()
	return l
}

func (t *Tracker) getOpen(key string) (models.OpenSession, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.open[key]
	return s, ok
}

func (t *Tracker) setOpen(key string, s models.OpenSession) {
	t.mu.Lock()
	t.open[key] = s
	metrics.OpenVoiceSessions.Set(float64(len(t.open)))
	t.mu.Unlock()
}

func (t *Tracker) deleteOpen(key string) {
	t.mu.Lock()
	delete(t.open, key)
	metrics.OpenVoiceSessions.Set(float64(len(t.open)))
	t.mu.Unlock()
}

// Join records a user entering a voice channel. Nothing is persisted: the
// session stays open in memory until a leave or switch closes it. A join for
// a user already marked open overwrites the stale entry instead of emitting a
// spurious short session.
func (t *Tracker) Join(userID, guildID, channelID, channelName string, at time.Time) {
	key := sessionKey(guildID, userID)
	l := t.lockKey(key)
	defer l.Unlock()

	if _, ok := t.getOpen(key); ok {
		metrics.DuplicateJoins.Inc()
		log.Printf("voice join correction: user=%s guild=%s channel=%s (stale open entry overwritten)", userID, guildID, channelID)
	}
	t.setOpen(key, models.OpenSession{
		ChannelID:   channelID,
		ChannelName: channelName,
		JoinedAt:    at,
	})
}

// Leave closes and persists the user's open session in the guild. A leave
// with no open entry is a no-op. On a store failure the open entry is kept so
// a redelivered leave can retry the close.
func (t *Tracker) Leave(userID, guildID string, at time.Time) (*models.VoiceSession, error) {
	key := sessionKey(guildID, userID)
	l := t.lockKey(key)
	defer l.Unlock()

	cur, ok := t.getOpen(key)
	if !ok {
		return nil, nil
	}

	closed := closeSession(userID, guildID, cur, at)
	if err := t.store.InsertVoiceSession(closed); err != nil {
		return nil, fmt.Errorf("failed to persist voice session: %w", err)
	}
	t.deleteOpen(key)
	return &closed, nil
}

// Switch closes the user's open session and opens a new one for the target
// channel, both at the event time. Exactly one session is persisted and
// exactly one open entry remains. A switch with no open entry degrades to a
// join. On a store failure the old entry is kept unchanged for retry.
func (t *Tracker) Switch(userID, guildID, channelID, channelName string, at time.Time) (*models.VoiceSession, error) {
	key := sessionKey(guildID, userID)
	l := t.lockKey(key)
	defer l.Unlock()

	next := models.OpenSession{
		ChannelID:   channelID,
		ChannelName: channelName,
		JoinedAt:    at,
	}

	cur, ok := t.getOpen(key)
	if !ok {
		log.Printf("voice switch without open entry: user=%s guild=%s channel=%s (treated as join)", userID, guildID, channelID)
		t.setOpen(key, next)
		return nil, nil
	}
	if cur.ChannelID == channelID {
		// same channel: keep the open entry so accrued time is not lost
		return nil, nil
	}

	closed := closeSession(userID, guildID, cur, at)
	if err := t.store.InsertVoiceSession(closed); err != nil {
		return nil, fmt.Errorf("failed to persist voice session: %w", err)
	}
	t.setOpen(key, next)
	return &closed, nil
}

// Open returns the open session for a user in a guild, if any.
func (t *Tracker) Open(userID, guildID string) (models.OpenSession, bool) {
	return t.getOpen(sessionKey(guildID, userID))
}

// OpenCount returns the number of open sessions across all guilds.
func (t *Tracker) OpenCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.open)
}

// Close discards any remaining open entries. The real-world sessions behind
// them are lost: no leave event will arrive for them after a restart.
func (t *Tracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for key, s := range t.open {
		log.Printf("discarding open voice session: key=%s channel=%s joined=%s", key, s.ChannelID, s.JoinedAt.UTC().Format(time.RFC3339))
	}
	t.open = make(map[string]models.OpenSession)
	metrics.OpenVoiceSessions.Set(0)
}

func closeSession(userID, guildID string, open models.OpenSession, at time.Time) models.VoiceSession {
	if at.Before(open.JoinedAt) {
		// never negative
		at = open.JoinedAt
	}
	return models.VoiceSession{
		UserID:          userID,
		GuildID:         guildID,
		ChannelID:       open.ChannelID,
		ChannelName:     open.ChannelName,
		JoinedAt:        open.JoinedAt,
		LeftAt:          at,
		DurationSeconds: int64(at.Sub(open.JoinedAt) / time.Second),
	}
}
