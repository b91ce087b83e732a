package qa

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/sells-group/member-qa/internal/model"
)

// FallbackAnswer is returned when the rule-based strategy finds nothing specific.
const FallbackAnswer = "I found relevant information in the messages, but couldn't extract a specific answer. Please check the member messages for details."

// fallbackLines is how many leading context lines are used when no line
// matches the question.
const fallbackLines = 10

// nameStopwords are capitalised question words that are never member names.
var nameStopwords = toSet(
	// question words and auxiliaries
	"when", "what", "who", "whom", "whose", "where", "which", "why", "how",
	"does", "did", "do", "is", "are", "was", "were", "can", "could", "has", "have",
	"had", "will", "would", "should", "the", "tell", "list", "name", "show", "give",
	// places
	"london", "paris", "tokyo", "new", "york", "dubai", "rome", "milan", "monaco",
	"barcelona", "madrid", "berlin", "vienna", "sydney", "singapore", "bali",
	"santorini", "maldives", "geneva", "zurich", "miami", "vegas", "los", "angeles",
	"san", "francisco", "chicago", "boston", "seattle", "hong", "kong", "lisbon",
	"amsterdam", "prague", "istanbul", "cairo", "bangkok", "seoul", "mumbai", "delhi",
	"aspen", "ibiza", "mykonos", "capri", "kyoto", "marrakech", "cannes", "nice",
	// calendar
	"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
	"january", "february", "march", "april", "may", "june", "july", "august",
	"september", "october", "november", "december",
)

// temporalKeywords mark a message as talking about a time.
var temporalKeywords = []string{
	"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
	"january", "february", "march", "april", "may", "june", "july", "august",
	"september", "october", "november", "december",
	"today", "tonight", "tomorrow", "yesterday", "weekend",
	"next week", "next month", "next year", "this week", "this month",
}

// SimpleStrategy is the deterministic keyword strategy. It always answers.
type SimpleStrategy struct{}

// Name implements Strategy.
func (SimpleStrategy) Name() string { return "rule-based" }

// TryAnswer implements Strategy.
func (SimpleStrategy) TryAnswer(_ context.Context, question, qaContext string) (string, bool) {
	return AnswerSimple(question, qaContext), true
}

// AnswerSimple extracts an answer from the context by classifying the
// question ("when", "how many", "what/which/where", "who") and reading the
// matching lines. It never fails: lines without an author or date are
// skipped by the branches that need them.
func AnswerSimple(question, qaContext string) string {
	lines := contextLines(qaContext)
	relevant := relevantLines(question, lines)

	q := strings.ToLower(question)
	qWords := toSet(normalizedWords(q)...)

	if hasAny(qWords, "when", "date", "time") {
		if ans, ok := answerWhen(relevant); ok {
			return ans
		}
	}

	if strings.Contains(strings.Join(strings.Fields(q), " "), "how many") {
		if ans, ok := answerHowMany(relevant); ok {
			return ans
		}
	}

	if hasAny(qWords, "what", "which", "where") {
		for _, l := range relevant {
			if utf8.RuneCountInString(l.Message) > 10 {
				return l.Message
			}
		}
	}

	if hasAny(qWords, "who") {
		for _, l := range relevant {
			if l.HasAuthor() && l.Message != "" {
				return fmt.Sprintf("According to the messages, %s said: \"%s\"", l.Author, l.Message)
			}
		}
	}

	for _, l := range relevant {
		if l.Message != "" {
			return l.Message
		}
	}

	return FallbackAnswer
}

func answerWhen(lines []model.Line) (string, bool) {
	for _, l := range lines {
		if l.HasDate() && l.Message != "" {
			return fmt.Sprintf("Based on the messages: \"%s\" (Date: %s).", l.Message, l.Date), true
		}
	}
	for _, l := range lines {
		text := messageOrRaw(l)
		if mentionsTime(text) {
			return text, true
		}
	}
	return "", false
}

func answerHowMany(lines []model.Line) (string, bool) {
	for _, l := range lines {
		words := strings.Fields(messageOrRaw(l))
		for i, w := range words {
			tok := trimPunct(w)
			if !isPositiveInt(tok) {
				continue
			}
			lo, hi := max(0, i-3), min(len(words), i+4)
			window := strings.Join(words[lo:hi], " ")
			return fmt.Sprintf("Based on the messages, the answer appears to be %s (\"%s\").", tok, window), true
		}
	}
	return "", false
}

// candidateName returns the first capitalised question word that looks like
// a member name, or "" if there is none.
func candidateName(question string) string {
	for _, w := range strings.Fields(question) {
		w = trimPossessive(trimPunct(w))
		if utf8.RuneCountInString(w) <= 2 {
			continue
		}
		r, _ := utf8.DecodeRuneInString(w)
		if !unicode.IsUpper(r) {
			continue
		}
		if _, stop := nameStopwords[strings.ToLower(w)]; stop {
			continue
		}
		return w
	}
	return ""
}

// relevantLines keeps the lines mentioning the candidate name or sharing a
// question word longer than three characters. With no match, the first
// lines of the context are used.
func relevantLines(question string, lines []model.Line) []model.Line {
	name := strings.ToLower(candidateName(question))

	var keywords []string
	for _, w := range normalizedWords(strings.ToLower(question)) {
		if utf8.RuneCountInString(w) > 3 {
			keywords = append(keywords, w)
		}
	}

	var out []model.Line
	for _, l := range lines {
		lower := strings.ToLower(l.Raw)
		if name != "" && strings.Contains(lower, name) {
			out = append(out, l)
			continue
		}
		words := toSet(normalizedWords(lower)...)
		if hasAny(words, keywords...) {
			out = append(out, l)
		}
	}

	if len(out) == 0 {
		out = lines[:min(len(lines), fallbackLines)]
	}
	return out
}

func contextLines(qaContext string) []model.Line {
	var lines []model.Line
	for _, raw := range strings.Split(qaContext, "\n") {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		lines = append(lines, model.ParseLine(raw))
	}
	return lines
}

func messageOrRaw(l model.Line) string {
	if l.HasAuthor() {
		return l.Message
	}
	return strings.TrimSpace(l.Raw)
}

func mentionsTime(text string) bool {
	padded := " " + strings.Join(normalizedWords(strings.ToLower(text)), " ") + " "
	for _, kw := range temporalKeywords {
		if strings.Contains(padded, " "+kw+" ") {
			return true
		}
	}
	return false
}

func isPositiveInt(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	n, err := strconv.Atoi(s)
	return err == nil && n > 0
}

func normalizedWords(s string) []string {
	fields := strings.Fields(s)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if w := trimPunct(f); w != "" {
			out = append(out, w)
		}
	}
	return out
}

func trimPunct(w string) string {
	return strings.TrimFunc(w, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func trimPossessive(w string) string {
	for _, suffix := range []string{"'s", "’s"} {
		if strings.HasSuffix(w, suffix) {
			return strings.TrimSuffix(w, suffix)
		}
	}
	return w
}

func hasAny(set map[string]struct{}, words ...string) bool {
	for _, w := range words {
		if _, ok := set[w]; ok {
			return true
		}
	}
	return false
}

func toSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
