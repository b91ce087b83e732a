package qa

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/member-qa/internal/model"
)

func sampleFeed() []model.Message {
	return []model.Message{
		{ID: "1", UserID: "u1", UserName: "Layla Kawaguchi", Timestamp: "2025-03-01T10:00:00Z", Message: "Planning a trip to London in March."},
		{ID: "2", UserID: "u2", UserName: "Vikram Desai", Timestamp: "2025-01-01T09:00:00Z", Message: "I own 3 cars including a Tesla."},
		{ID: "3", UserID: "u3", UserName: "Amira Khan", Timestamp: "2024-12-20T18:30:00Z", Message: "My favorite restaurants are Nobu and Zuma."},
		{ID: "4", UserID: "u4", UserName: "Hans Müller", Timestamp: "2024-11-05T08:00:00Z", Message: "Please renew my gym membership."},
	}
}

func TestBuildContext_NameMatch(t *testing.T) {
	got := BuildContext("When is Layla planning her trip?", sampleFeed(), ContextOptions{})
	assert.Equal(t, "Layla Kawaguchi: Planning a trip to London in March. (Date: 2025-03-01)", got)
}

func TestBuildContext_KeywordMatch(t *testing.T) {
	got := BuildContext("which restaurants are favorite", sampleFeed(), ContextOptions{})
	assert.Equal(t, "Amira Khan: My favorite restaurants are Nobu and Zuma. (Date: 2024-12-20)", got)
}

func TestBuildContext_NoMatchUsesWholeFeed(t *testing.T) {
	got := BuildContext("zzz qqq", sampleFeed(), ContextOptions{})
	lines := strings.Split(got, "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "Layla Kawaguchi: "))
	assert.True(t, strings.HasPrefix(lines[3], "Hans Müller: "))
}

func TestBuildContext_FeedOrderPreserved(t *testing.T) {
	// "my" matches Amira and Hans by keyword; "Vikram" matches by name.
	got := BuildContext("Vikram my", sampleFeed(), ContextOptions{})
	lines := strings.Split(got, "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "Vikram Desai"))
	assert.True(t, strings.HasPrefix(lines[1], "Amira Khan"))
	assert.True(t, strings.HasPrefix(lines[2], "Hans Müller"))
}

func TestBuildContext_ShortNameTokenOverMatches(t *testing.T) {
	// "I" is contained in "layla kawaguchi", "vikram desai" and "amira khan".
	got := BuildContext("I", sampleFeed(), ContextOptions{})
	assert.Len(t, strings.Split(got, "\n"), 3)
}

func TestBuildContext_MaxMessages(t *testing.T) {
	var msgs []model.Message
	for i := range 120 {
		msgs = append(msgs, model.Message{UserName: "Sam", Message: fmt.Sprintf("note %d", i), Timestamp: "2025-01-01"})
	}
	got := BuildContext("Sam", msgs, ContextOptions{MaxLength: 100000})
	assert.Len(t, strings.Split(got, "\n"), DefaultMaxMessages)

	got = BuildContext("Sam", msgs, ContextOptions{MaxLength: 100000, MaxMessages: 5})
	assert.Len(t, strings.Split(got, "\n"), 5)
}

func TestBuildContext_LengthBound(t *testing.T) {
	var msgs []model.Message
	for i := range 40 {
		msgs = append(msgs, model.Message{UserName: "Amira Khan", Message: strings.Repeat("é", 30+i), Timestamp: "2025-01-01T00:00:00Z"})
	}

	for _, maxLen := range []int{1, 50, 120, 500, 4000} {
		got := BuildContext("Amira", msgs, ContextOptions{MaxLength: maxLen})
		assert.LessOrEqual(t, utf8.RuneCountInString(got), maxLen, "max %d", maxLen)
		for _, line := range strings.Split(got, "\n") {
			if line == "" {
				continue
			}
			l := model.ParseLine(line)
			assert.Equal(t, "2025-01-01", l.Date, "lines are never cut")
		}
	}
}

func TestBuildContext_StopsAtFirstOverflow(t *testing.T) {
	msgs := []model.Message{
		{UserName: "A", Message: "short", Timestamp: "2025-01-01"},
		{UserName: "A", Message: strings.Repeat("x", 200), Timestamp: "2025-01-01"},
		{UserName: "A", Message: "short again", Timestamp: "2025-01-01"},
	}
	got := BuildContext("zzz", msgs, ContextOptions{MaxLength: 100})
	assert.Equal(t, "A: short (Date: 2025-01-01)", got)
}

func TestBuildContext_EmptyFeed(t *testing.T) {
	assert.Empty(t, BuildContext("anything", nil, ContextOptions{}))
}

func TestBuildContext_NonEmptyFeedGivesNonEmptyContext(t *testing.T) {
	for _, q := range []string{"", "?", "When is Layla going?", "how many", "ZZZ"} {
		assert.NotEmpty(t, BuildContext(q, sampleFeed(), ContextOptions{}), q)
	}
}

func TestRelevantMessages(t *testing.T) {
	got := RelevantMessages("Does Amira like Nobu?", sampleFeed())
	require.Len(t, got, 1)
	assert.Equal(t, "3", got[0].ID)

	assert.Empty(t, RelevantMessages("zzz", sampleFeed()))
}
