package discord

import (
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

func voiceUpdate(userID, guildID, before, after string) *discordgo.VoiceStateUpdate {
	vs := &discordgo.VoiceStateUpdate{
		VoiceState: &discordgo.VoiceState{
			UserID:    userID,
			GuildID:   guildID,
			ChannelID: after,
		},
	}
	if before != "" {
		vs.BeforeUpdate = &discordgo.VoiceState{
			UserID:    userID,
			GuildID:   guildID,
			ChannelID: before,
		}
	}
	return vs
}

func TestNormalizeVoiceJoin(t *testing.T) {
	evt, ok, err := NormalizeVoice(voiceUpdate("user1", "guild1", "", "chA"), now)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, KindJoin, evt.Kind)
	assert.Equal(t, "chA", evt.ChannelID)
	assert.Equal(t, now, evt.Timestamp)
}

func TestNormalizeVoiceLeave(t *testing.T) {
	evt, ok, err := NormalizeVoice(voiceUpdate("user1", "guild1", "chA", ""), now)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, KindLeave, evt.Kind)
	assert.Empty(t, evt.ChannelID)
}

func TestNormalizeVoiceSwitch(t *testing.T) {
	evt, ok, err := NormalizeVoice(voiceUpdate("user1", "guild1", "chA", "chB"), now)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, KindSwitch, evt.Kind)
	assert.Equal(t, "chB", evt.ChannelID)
}

func TestNormalizeVoiceSameChannelDropped(t *testing.T) {
	// mute/deafen toggles update voice state without changing channel
	_, ok, err := NormalizeVoice(voiceUpdate("user1", "guild1", "chA", "chA"), now)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNormalizeVoiceOutsideGuildDropped(t *testing.T) {
	_, ok, err := NormalizeVoice(voiceUpdate("user1", "", "", "chA"), now)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNormalizeVoiceMissingUserMalformed(t *testing.T) {
	_, _, err := NormalizeVoice(voiceUpdate("", "guild1", "", "chA"), now)
	assert.ErrorIs(t, err, ErrMalformed)
}

func messageCreate(authorID, guildID, body string, bot bool) *discordgo.MessageCreate {
	return &discordgo.MessageCreate{
		Message: &discordgo.Message{
			ID:        "msg1",
			ChannelID: "ch1",
			GuildID:   guildID,
			Content:   body,
			Timestamp: now,
			Author:    &discordgo.User{ID: authorID, Username: "alice", Bot: bot},
		},
	}
}

func TestNormalizeMessage(t *testing.T) {
	evt, ok, err := NormalizeMessage(messageCreate("user1", "guild1", "hi 😀", false))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, KindMessage, evt.Kind)
	assert.Equal(t, "user1", evt.UserID)
	assert.Equal(t, "msg1", evt.MessageID)
	assert.Equal(t, "hi 😀", evt.Body)
	assert.Equal(t, now, evt.Timestamp)
}

func TestNormalizeMessageDirectMessageDropped(t *testing.T) {
	_, ok, err := NormalizeMessage(messageCreate("user1", "", "hi", false))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNormalizeMessageBotAuthorDropped(t *testing.T) {
	_, ok, err := NormalizeMessage(messageCreate("bot1", "guild1", "hi", true))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNormalizeMessageMissingAuthorMalformed(t *testing.T) {
	m := messageCreate("user1", "guild1", "hi", false)
	m.Author = nil
	_, _, err := NormalizeMessage(m)
	assert.ErrorIs(t, err, ErrMalformed)
}

func reactionAdd(userID, guildID string, e discordgo.Emoji) *discordgo.MessageReactionAdd {
	return &discordgo.MessageReactionAdd{
		MessageReaction: &discordgo.MessageReaction{
			UserID:    userID,
			GuildID:   guildID,
			ChannelID: "ch1",
			MessageID: "msg1",
			Emoji:     e,
		},
	}
}

func TestNormalizeReactionAddUnicodeEmoji(t *testing.T) {
	evt, ok, err := NormalizeReactionAdd(reactionAdd("user1", "guild1", discordgo.Emoji{Name: "👍"}), now)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, KindReactionAdd, evt.Kind)
	assert.Equal(t, "👍", evt.Emoji)
}

func TestNormalizeReactionAddCustomEmoji(t *testing.T) {
	evt, ok, err := NormalizeReactionAdd(reactionAdd("user1", "guild1", discordgo.Emoji{Name: "pog", ID: "123"}), now)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "<:pog:123>", evt.Emoji)
}

func TestNormalizeReactionOutsideGuildDropped(t *testing.T) {
	_, ok, err := NormalizeReactionAdd(reactionAdd("user1", "", discordgo.Emoji{Name: "👍"}), now)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNormalizeReactionRemove(t *testing.T) {
	r := &discordgo.MessageReactionRemove{
		MessageReaction: &discordgo.MessageReaction{
			UserID:    "user1",
			GuildID:   "guild1",
			ChannelID: "ch1",
			MessageID: "msg1",
			Emoji:     discordgo.Emoji{Name: "👍"},
		},
	}
	evt, ok, err := NormalizeReactionRemove(r, now)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, KindReactionRemove, evt.Kind)
}

func TestNewMessageRecordExtractsEmojis(t *testing.T) {
	evt, ok, err := NormalizeMessage(messageCreate("user1", "guild1", "😀 hi 😀 <:pog:123>", false))
	require.NoError(t, err)
	require.True(t, ok)

	rec := NewMessageRecord(evt)
	assert.Equal(t, []string{"😀", "😀", "<:pog:123>"}, rec.Emojis)
	assert.Equal(t, "user1", rec.UserID)
	assert.Equal(t, now, rec.CreatedAt)
}

func TestNewReactionRecordActions(t *testing.T) {
	add := NewReactionRecord(Event{Kind: KindReactionAdd, Emoji: "👍", Timestamp: now})
	assert.Equal(t, "add", string(add.Action))

	remove := NewReactionRecord(Event{Kind: KindReactionRemove, Emoji: "👍", Timestamp: now})
	assert.Equal(t, "remove", string(remove.Action))
}
