package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatstats/internal/models"
)

type fakeStore struct {
	sessions  []models.VoiceSession
	messages  []models.MessageRecord
	reactions []models.ReactionRecord

	topVoice     []models.LeaderboardEntry
	topMessages  []models.LeaderboardEntry
	topEmojis    []models.LeaderboardEntry
	topReactions []models.LeaderboardEntry
}

func (f *fakeStore) VoiceSessionsByUser(userID, guildID string) ([]models.VoiceSession, error) {
	return f.sessions, nil
}

func (f *fakeStore) MessagesByUser(userID, guildID string) ([]models.MessageRecord, error) {
	return f.messages, nil
}

func (f *fakeStore) ReactionsByUser(userID, guildID string) ([]models.ReactionRecord, error) {
	return f.reactions, nil
}

func (f *fakeStore) TopVoice(guildID string, since, until *time.Time, limit int) ([]models.LeaderboardEntry, error) {
	return f.topVoice, nil
}

func (f *fakeStore) TopMessages(guildID string, since, until *time.Time, limit int) ([]models.LeaderboardEntry, error) {
	return f.topMessages, nil
}

func (f *fakeStore) TopEmojis(guildID string, since, until *time.Time, limit int) ([]models.LeaderboardEntry, error) {
	return f.topEmojis, nil
}

func (f *fakeStore) TopReactions(guildID string, since, until *time.Time, limit int) ([]models.LeaderboardEntry, error) {
	return f.topReactions, nil
}

var base = time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

func session(channelID, channelName string, joinOffset, seconds int64) models.VoiceSession {
	joined := base.Add(time.Duration(joinOffset) * time.Second)
	return models.VoiceSession{
		UserID:          "user1",
		GuildID:         "guild1",
		ChannelID:       channelID,
		ChannelName:     channelName,
		JoinedAt:        joined,
		LeftAt:          joined.Add(time.Duration(seconds) * time.Second),
		DurationSeconds: seconds,
	}
}

func message(offset int64, emojis ...string) models.MessageRecord {
	return models.MessageRecord{
		UserID:    "user1",
		GuildID:   "guild1",
		ChannelID: "ch1",
		MessageID: "msg",
		Emojis:    emojis,
		CreatedAt: base.Add(time.Duration(offset) * time.Second),
	}
}

func reaction(offset int64, emoji string, action models.ReactionAction) models.ReactionRecord {
	return models.ReactionRecord{
		UserID:    "user1",
		GuildID:   "guild1",
		ChannelID: "ch1",
		MessageID: "msg",
		Emoji:     emoji,
		Action:    action,
		CreatedAt: base.Add(time.Duration(offset) * time.Second),
	}
}

func TestUserStatsEmpty(t *testing.T) {
	agg := New(&fakeStore{})

	summary, err := agg.UserStats("user1", "guild1")
	require.NoError(t, err)
	assert.Equal(t, Summary{}, summary)
	assert.Zero(t, summary.VoiceSeconds)
	assert.Empty(t, summary.FavoriteChannel)
	assert.Empty(t, summary.TopEmoji)
	assert.Nil(t, summary.FirstActivity)
}

func TestUserStatsVoiceTotals(t *testing.T) {
	agg := New(&fakeStore{sessions: []models.VoiceSession{
		session("chA", "General", 0, 3600),
		session("chB", "Gaming", 4000, 1800),
		session("chA", "General", 6000, 100),
	}})

	summary, err := agg.UserStats("user1", "guild1")
	require.NoError(t, err)
	assert.Equal(t, int64(5500), summary.VoiceSeconds)
	assert.Equal(t, 3, summary.VoiceSessions)
	assert.Equal(t, "General", summary.FavoriteChannel)
}

func TestFavoriteChannelTieBrokenByRecency(t *testing.T) {
	agg := New(&fakeStore{sessions: []models.VoiceSession{
		session("chA", "General", 0, 600),
		session("chB", "Gaming", 1000, 600),
	}})

	summary, err := agg.UserStats("user1", "guild1")
	require.NoError(t, err)
	assert.Equal(t, "Gaming", summary.FavoriteChannel)
}

func TestUserStatsMessageAndEmojiCounts(t *testing.T) {
	agg := New(&fakeStore{messages: []models.MessageRecord{
		message(0, "😀", "😀", "<:pog:123>"),
		message(10),
		message(20, "👍"),
	}})

	summary, err := agg.UserStats("user1", "guild1")
	require.NoError(t, err)
	assert.Equal(t, 3, summary.MessageCount)
	assert.Equal(t, 4, summary.EmojiCount)
	assert.Equal(t, "😀", summary.TopEmoji)
	assert.Equal(t, 2, summary.TopEmojiCount)
}

func TestTopEmojiCombinesMessagesAndReactionAdds(t *testing.T) {
	agg := New(&fakeStore{
		messages: []models.MessageRecord{
			message(0, "😀"),
		},
		reactions: []models.ReactionRecord{
			reaction(5, "👍", models.ReactionAdd),
			reaction(6, "👍", models.ReactionAdd),
			reaction(7, "👍", models.ReactionRemove), // removes are not usage
		},
	})

	summary, err := agg.UserStats("user1", "guild1")
	require.NoError(t, err)
	assert.Equal(t, "👍", summary.TopEmoji)
	assert.Equal(t, 2, summary.TopEmojiCount)
	assert.Equal(t, 2, summary.ReactionsAdded)
	assert.Equal(t, 1, summary.ReactionsRemoved)
	assert.Equal(t, "👍", summary.TopReaction)
	assert.Equal(t, 2, summary.TopReactionCount)
}

func TestTopEmojiTieBrokenByFirstSeen(t *testing.T) {
	agg := New(&fakeStore{messages: []models.MessageRecord{
		message(0, "😀", "👍"),
		message(10, "👍", "😀"),
	}})

	summary, err := agg.UserStats("user1", "guild1")
	require.NoError(t, err)
	assert.Equal(t, "😀", summary.TopEmoji)
	assert.Equal(t, 2, summary.TopEmojiCount)
}

func TestFirstActivityPicksEarliestRecord(t *testing.T) {
	agg := New(&fakeStore{
		sessions:  []models.VoiceSession{session("chA", "General", 100, 60)},
		messages:  []models.MessageRecord{message(50, "😀")},
		reactions: []models.ReactionRecord{reaction(200, "👍", models.ReactionAdd)},
	})

	summary, err := agg.UserStats("user1", "guild1")
	require.NoError(t, err)
	require.NotNil(t, summary.FirstActivity)
	assert.Equal(t, base.Add(50*time.Second), *summary.FirstActivity)
}

func TestGuildLeaderboardSections(t *testing.T) {
	store := &fakeStore{
		topVoice: []models.LeaderboardEntry{
			{UserID: "user2", DisplayName: "Bob", Total: 7200},
			{UserID: "user1", DisplayName: "Alice", Total: 5400},
		},
		topMessages: []models.LeaderboardEntry{
			{UserID: "user1", DisplayName: "Alice", Total: 10},
		},
	}
	agg := New(store)

	lb, err := agg.GuildLeaderboard("guild1", nil, nil)
	require.NoError(t, err)
	require.Len(t, lb.VoiceTime, 2)
	assert.Equal(t, "user2", lb.VoiceTime[0].UserID)
	assert.Equal(t, int64(7200), lb.VoiceTime[0].Total)
	require.Len(t, lb.Messages, 1)
	assert.Empty(t, lb.Emojis)
	assert.Empty(t, lb.Reactions)
}
