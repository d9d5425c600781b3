package database

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/lib/pq"

	"chatstats/internal/models"
)

// Repository handles database operations
type Repository struct {
	db *DB
}

// NewRepository creates a new repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// UpsertUser inserts or refreshes a user's display name and last-seen time.
// An empty display name keeps the stored one (some gateway payloads omit
// member info).
func (r *Repository) UpsertUser(userID, displayName string, seenAt time.Time) error {
	_, err := r.db.conn.Exec(`
		INSERT INTO users (user_id, display_name, last_seen_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET
			display_name = CASE WHEN EXCLUDED.display_name = '' THEN users.display_name ELSE EXCLUDED.display_name END,
			last_seen_at = EXCLUDED.last_seen_at`,
		userID, displayName, seenAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

// InsertVoiceSession persists a closed voice session. The insert is
// idempotent under the natural key (user_id, guild_id, joined_at) so a
// redelivered close event cannot produce a second row.
func (r *Repository) InsertVoiceSession(s models.VoiceSession) error {
	_, err := r.db.conn.Exec(`
		INSERT INTO voice_sessions (user_id, guild_id, channel_id, channel_name, joined_at, left_at, duration_seconds)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, guild_id, joined_at) DO NOTHING`,
		s.UserID, s.GuildID, s.ChannelID, s.ChannelName, s.JoinedAt.UTC(), s.LeftAt.UTC(), s.DurationSeconds)
	if err != nil {
		return fmt.Errorf("failed to insert voice session: %w", err)
	}
	return nil
}

// InsertMessage persists a message record, idempotent on message_id.
func (r *Repository) InsertMessage(m models.MessageRecord) error {
	emojis := m.Emojis
	if emojis == nil {
		emojis = []string{}
	}
	_, err := r.db.conn.Exec(`
		INSERT INTO messages (user_id, guild_id, channel_id, message_id, emojis, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (message_id) DO NOTHING`,
		m.UserID, m.GuildID, m.ChannelID, m.MessageID, pq.Array(emojis), m.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

// InsertReaction persists one reaction add or remove event.
func (r *Repository) InsertReaction(rec models.ReactionRecord) error {
	_, err := r.db.conn.Exec(`
		INSERT INTO reactions (user_id, guild_id, channel_id, message_id, emoji, action, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.UserID, rec.GuildID, rec.ChannelID, rec.MessageID, rec.Emoji, string(rec.Action), rec.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert reaction: %w", err)
	}
	return nil
}

// VoiceSessionsByUser returns a user's closed sessions in a guild, oldest first.
func (r *Repository) VoiceSessionsByUser(userID, guildID string) ([]models.VoiceSession, error) {
	rows, err := r.db.conn.Query(`
		SELECT user_id, guild_id, channel_id, channel_name, joined_at, left_at, duration_seconds
		FROM voice_sessions WHERE user_id = $1 AND guild_id = $2
		ORDER BY joined_at ASC`,
		userID, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to query voice sessions: %w", err)
	}
	defer rows.Close()

	var sessions []models.VoiceSession
	for rows.Next() {
		var s models.VoiceSession
		if err := rows.Scan(&s.UserID, &s.GuildID, &s.ChannelID, &s.ChannelName, &s.JoinedAt, &s.LeftAt, &s.DurationSeconds); err != nil {
			log.Printf("Error scanning voice session row: %v", err)
			continue
		}
		sessions = append(sessions, s)
	}

	return sessions, rows.Err()
}

// MessagesByUser returns a user's message records in a guild, oldest first.
func (r *Repository) MessagesByUser(userID, guildID string) ([]models.MessageRecord, error) {
	rows, err := r.db.conn.Query(`
		SELECT user_id, guild_id, channel_id, message_id, emojis, created_at
		FROM messages WHERE user_id = $1 AND guild_id = $2
		ORDER BY created_at ASC`,
		userID, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var records []models.MessageRecord
	for rows.Next() {
		var m models.MessageRecord
		if err := rows.Scan(&m.UserID, &m.GuildID, &m.ChannelID, &m.MessageID, pq.Array(&m.Emojis), &m.CreatedAt); err != nil {
			log.Printf("Error scanning message row: %v", err)
			continue
		}
		records = append(records, m)
	}

	return records, rows.Err()
}

// ReactionsByUser returns a user's reaction records in a guild, oldest first.
func (r *Repository) ReactionsByUser(userID, guildID string) ([]models.ReactionRecord, error) {
	rows, err := r.db.conn.Query(`
		SELECT user_id, guild_id, channel_id, message_id, emoji, action, created_at
		FROM reactions WHERE user_id = $1 AND guild_id = $2
		ORDER BY created_at ASC`,
		userID, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to query reactions: %w", err)
	}
	defer rows.Close()

	var records []models.ReactionRecord
	for rows.Next() {
		var rec models.ReactionRecord
		var action string
		if err := rows.Scan(&rec.UserID, &rec.GuildID, &rec.ChannelID, &rec.MessageID, &rec.Emoji, &action, &rec.CreatedAt); err != nil {
			log.Printf("Error scanning reaction row: %v", err)
			continue
		}
		rec.Action = models.ReactionAction(action)
		records = append(records, rec)
	}

	return records, rows.Err()
}

// TopVoice returns the guild's top users by summed voice seconds. A nil since
// or until leaves that bound open.
func (r *Repository) TopVoice(guildID string, since, until *time.Time, limit int) ([]models.LeaderboardEntry, error) {
	rows, err := r.db.conn.Query(`
		SELECT v.user_id, COALESCE(u.display_name, ''), SUM(v.duration_seconds) AS total
		FROM voice_sessions v
		LEFT JOIN users u ON u.user_id = v.user_id
		WHERE v.guild_id = $1
		  AND ($2::timestamptz IS NULL OR v.left_at >= $2)
		  AND ($3::timestamptz IS NULL OR v.left_at <= $3)
		GROUP BY v.user_id, u.display_name
		ORDER BY total DESC
		LIMIT $4`,
		guildID, since, until, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query voice leaderboard: %w", err)
	}
	return scanLeaderboard(rows)
}

// TopMessages returns the guild's top users by message count.
func (r *Repository) TopMessages(guildID string, since, until *time.Time, limit int) ([]models.LeaderboardEntry, error) {
	rows, err := r.db.conn.Query(`
		SELECT m.user_id, COALESCE(u.display_name, ''), COUNT(*) AS total
		FROM messages m
		LEFT JOIN users u ON u.user_id = m.user_id
		WHERE m.guild_id = $1
		  AND ($2::timestamptz IS NULL OR m.created_at >= $2)
		  AND ($3::timestamptz IS NULL OR m.created_at <= $3)
		GROUP BY m.user_id, u.display_name
		ORDER BY total DESC
		LIMIT $4`,
		guildID, since, until, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query message leaderboard: %w", err)
	}
	return scanLeaderboard(rows)
}

// TopEmojis returns the guild's top users by emoji occurrences in messages.
func (r *Repository) TopEmojis(guildID string, since, until *time.Time, limit int) ([]models.LeaderboardEntry, error) {
	rows, err := r.db.conn.Query(`
		SELECT m.user_id, COALESCE(u.display_name, ''), COUNT(e.emoji) AS total
		FROM messages m
		CROSS JOIN LATERAL unnest(m.emojis) AS e(emoji)
		LEFT JOIN users u ON u.user_id = m.user_id
		WHERE m.guild_id = $1
		  AND ($2::timestamptz IS NULL OR m.created_at >= $2)
		  AND ($3::timestamptz IS NULL OR m.created_at <= $3)
		GROUP BY m.user_id, u.display_name
		ORDER BY total DESC
		LIMIT $4`,
		guildID, since, until, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query emoji leaderboard: %w", err)
	}
	return scanLeaderboard(rows)
}

// TopReactions returns the guild's top users by reactions given (adds only).
func (r *Repository) TopReactions(guildID string, since, until *time.Time, limit int) ([]models.LeaderboardEntry, error) {
	rows, err := r.db.conn.Query(`
		SELECT re.user_id, COALESCE(u.display_name, ''), COUNT(*) AS total
		FROM reactions re
		LEFT JOIN users u ON u.user_id = re.user_id
		WHERE re.guild_id = $1 AND re.action = 'add'
		  AND ($2::timestamptz IS NULL OR re.created_at >= $2)
		  AND ($3::timestamptz IS NULL OR re.created_at <= $3)
		GROUP BY re.user_id, u.display_name
		ORDER BY total DESC
		LIMIT $4`,
		guildID, since, until, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query reaction leaderboard: %w", err)
	}
	return scanLeaderboard(rows)
}

func scanLeaderboard(rows *sql.Rows) ([]models.LeaderboardEntry, error) {
	defer rows.Close()

	var entries []models.LeaderboardEntry
	for rows.Next() {
		var e models.LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.DisplayName, &e.Total); err != nil {
			log.Printf("Error scanning leaderboard row: %v", err)
			continue
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}
