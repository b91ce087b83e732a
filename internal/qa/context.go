// Package qa answers questions about the member message feed: it selects the
// messages relevant to a question, renders them into a bounded context, and
// runs an ordered chain of answering strategies over that context.
package qa

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/sells-group/member-qa/internal/model"
)

// Context builder defaults.
const (
	DefaultMaxContextLength = 4000
	DefaultMaxMessages      = 50
)

// ContextOptions bounds the context handed to the answering strategies.
type ContextOptions struct {
	// MaxLength is the maximum context length in characters, separators included.
	MaxLength int
	// MaxMessages caps how many relevant messages are rendered.
	MaxMessages int
}

func (o ContextOptions) withDefaults() ContextOptions {
	if o.MaxLength <= 0 {
		o.MaxLength = DefaultMaxContextLength
	}
	if o.MaxMessages <= 0 {
		o.MaxMessages = DefaultMaxMessages
	}
	return o
}

// BuildContext selects the messages relevant to question and renders them,
// in feed order, as newline-separated lines no longer than opts.MaxLength in
// total. When no message is relevant the whole feed is used. A line that
// would overflow the budget ends the context; lines are never cut.
func BuildContext(question string, messages []model.Message, opts ContextOptions) string {
	opts = opts.withDefaults()

	relevant := RelevantMessages(question, messages)
	if len(relevant) == 0 {
		relevant = messages
	}
	if len(relevant) > opts.MaxMessages {
		relevant = relevant[:opts.MaxMessages]
	}

	var b strings.Builder
	length := 0
	for _, m := range relevant {
		line := model.RenderLine(m)
		n := utf8.RuneCountInString(line)
		if length > 0 {
			n++ // separator
		}
		if length+n > opts.MaxLength {
			break
		}
		if length > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
		length += n
	}
	return b.String()
}

// RelevantMessages returns the messages whose author name contains one of the
// question's capitalised words, or whose text shares a word with the question.
// Name matching is substring containment of the question token inside the
// author name, so very short tokens such as "I" match many authors.
func RelevantMessages(question string, messages []model.Message) []model.Message {
	questionWords := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(question)) {
		questionWords[w] = struct{}{}
	}
	names := potentialNames(question)

	var out []model.Message
	for _, m := range messages {
		if authorMatches(m.UserName, names) || sharesWord(m.Message, questionWords) {
			out = append(out, m)
		}
	}
	return out
}

func potentialNames(question string) []string {
	var names []string
	for _, w := range strings.Fields(question) {
		r, _ := utf8.DecodeRuneInString(w)
		if unicode.IsUpper(r) {
			names = append(names, strings.ToLower(w))
		}
	}
	return names
}

func authorMatches(userName string, names []string) bool {
	if len(names) == 0 {
		return false
	}
	author := strings.ToLower(userName)
	for _, n := range names {
		if strings.Contains(author, n) {
			return true
		}
	}
	return false
}

func sharesWord(text string, words map[string]struct{}) bool {
	for _, w := range strings.Fields(strings.ToLower(text)) {
		if _, ok := words[w]; ok {
			return true
		}
	}
	return false
}
