package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMentionRoundTrip(t *testing.T) {
	assert.Equal(t, "<@123>", FormatUserMention("123"))
	assert.Equal(t, "123", ExtractUserIDFromMention("<@123>"))
	assert.Equal(t, "123", ExtractUserIDFromMention("<@!123>"))
}

func TestIsUserMention(t *testing.T) {
	assert.True(t, IsUserMention("<@123>"))
	assert.False(t, IsUserMention("123"))
	assert.False(t, IsUserMention("<#123>"))
}

func TestFormatLeaderboardEntry(t *testing.T) {
	assert.Equal(t, "🥇 <@1> - 2h", FormatLeaderboardEntry(1, "<@1>", "2h"))
	assert.Equal(t, "4. <@4> - 10", FormatLeaderboardEntry(4, "<@4>", "10"))
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", TruncateString("short", 10))
	assert.Equal(t, "lon...", TruncateString("longer text", 6))
}
