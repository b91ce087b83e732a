// Package analyze reports data-quality anomalies in the member message feed.
package analyze

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/member-qa/internal/model"
)

// Kind classifies a finding.
type Kind string

const (
	KindOK      Kind = "ok"
	KindWarning Kind = "warning"
	KindInfo    Kind = "info"
)

// Finding is one line of the report.
type Finding struct {
	Kind Kind   `json:"kind" yaml:"kind"`
	Text string `json:"text" yaml:"text"`
}

// Mapping is a user id seen with a second, different user name.
type Mapping struct {
	UserID   string `json:"user_id" yaml:"user_id"`
	Expected string `json:"expected" yaml:"expected"`
	Found    string `json:"found" yaml:"found"`
}

// Activity summarises messages per user.
type Activity struct {
	Users        int     `json:"users" yaml:"users"`
	Min          int     `json:"min" yaml:"min"`
	Max          int     `json:"max" yaml:"max"`
	Avg          float64 `json:"avg" yaml:"avg"`
	HighActivity bool    `json:"high_activity" yaml:"high_activity"`
}

// Report is the result of Run.
type Report struct {
	GeneratedAt         time.Time      `json:"generated_at" yaml:"generated_at"`
	Total               int            `json:"total" yaml:"total"`
	DuplicateIDs        []string       `json:"duplicate_ids" yaml:"duplicate_ids"`
	MissingFields       map[string]int `json:"missing_fields" yaml:"missing_fields"`
	InvalidTimestamps   int            `json:"invalid_timestamps" yaml:"invalid_timestamps"`
	FutureTimestamps    int            `json:"future_timestamps" yaml:"future_timestamps"`
	OldTimestamps       int            `json:"old_timestamps" yaml:"old_timestamps"`
	InconsistentUsers   []Mapping      `json:"inconsistent_users" yaml:"inconsistent_users"`
	ShortMessages       int            `json:"short_messages" yaml:"short_messages"`
	PlaceholderMessages []string       `json:"placeholder_messages" yaml:"placeholder_messages"`
	DuplicateContent    int            `json:"duplicate_content" yaml:"duplicate_content"`
	Activity            Activity       `json:"activity" yaml:"activity"`
	UsersWithTimestamps int            `json:"users_with_timestamps" yaml:"users_with_timestamps"`
	Findings            []Finding      `json:"findings" yaml:"findings"`
}

// Anomalies counts the warning findings.
func (r *Report) Anomalies() int {
	n := 0
	for _, f := range r.Findings {
		if f.Kind == KindWarning {
			n++
		}
	}
	return n
}

// Thresholds used by the checks.
const (
	minMessageLen     = 3
	oldestYear        = 2000
	highActivityRatio = 3
)

var placeholderPatterns = []string{"test", "placeholder", "lorem ipsum", "example", "dummy"}

// fieldOrder is the report order of the required message fields.
var fieldOrder = []string{"id", "user_id", "user_name", "timestamp", "message"}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	time.DateOnly,
}

// Run analyses messages. now anchors the future-timestamp check.
func Run(messages []model.Message, now time.Time) *Report {
	p := message.NewPrinter(language.English)
	r := &Report{
		GeneratedAt:   now,
		Total:         len(messages),
		MissingFields: map[string]int{},
	}

	r.checkDuplicateIDs(messages, p)
	r.checkMissingFields(messages, p)
	r.checkTimestamps(messages, now, p)
	r.checkUserMappings(messages, p)
	r.checkShortMessages(messages, p)
	r.checkPlaceholders(messages, p)
	r.checkDuplicateContent(messages, p)
	r.checkActivity(messages, p)
	r.checkTemporal(messages, p)

	return r
}

func (r *Report) add(kind Kind, text string) {
	r.Findings = append(r.Findings, Finding{Kind: kind, Text: text})
}

func (r *Report) checkDuplicateIDs(messages []model.Message, p *message.Printer) {
	counts := map[string]int{}
	for _, m := range messages {
		counts[m.ID]++
	}
	for id, n := range counts {
		if n > 1 {
			r.DuplicateIDs = append(r.DuplicateIDs, id)
		}
	}
	sort.Strings(r.DuplicateIDs)

	if len(r.DuplicateIDs) > 0 {
		r.add(KindWarning, p.Sprintf("Found %d duplicate message IDs", len(r.DuplicateIDs)))
		return
	}
	r.add(KindOK, "All message IDs are unique")
}

func (r *Report) checkMissingFields(messages []model.Message, p *message.Printer) {
	for _, m := range messages {
		for name, v := range map[string]string{
			"id":        m.ID,
			"user_id":   m.UserID,
			"user_name": m.UserName,
			"timestamp": m.Timestamp,
			"message":   m.Message,
		} {
			if v == "" {
				r.MissingFields[name]++
			}
		}
	}

	if len(r.MissingFields) == 0 {
		r.add(KindOK, "All required fields are present")
		return
	}
	var parts []string
	for _, name := range fieldOrder {
		if n, ok := r.MissingFields[name]; ok {
			parts = append(parts, p.Sprintf("%s=%d", name, n))
		}
	}
	r.add(KindWarning, "Missing fields: "+strings.Join(parts, ", "))
}

func (r *Report) checkTimestamps(messages []model.Message, now time.Time, p *message.Printer) {
	for _, m := range messages {
		if m.Timestamp == "" {
			continue
		}
		t, ok := parseTimestamp(m.Timestamp)
		switch {
		case !ok:
			r.InvalidTimestamps++
		case t.Year() > now.Year()+1:
			r.FutureTimestamps++
		case t.Year() < oldestYear:
			r.OldTimestamps++
		}
	}

	if r.InvalidTimestamps > 0 {
		r.add(KindWarning, p.Sprintf("Found %d invalid timestamps", r.InvalidTimestamps))
	}
	if r.FutureTimestamps > 0 {
		r.add(KindWarning, p.Sprintf("Found %d timestamps in the future (beyond %s)", r.FutureTimestamps, strconv.Itoa(now.Year()+1)))
	}
	if r.OldTimestamps > 0 {
		r.add(KindWarning, p.Sprintf("Found %d very old timestamps (before %s)", r.OldTimestamps, strconv.Itoa(oldestYear)))
	}
	if r.InvalidTimestamps+r.FutureTimestamps+r.OldTimestamps == 0 {
		r.add(KindOK, "All timestamps are valid")
	}
}

func (r *Report) checkUserMappings(messages []model.Message, p *message.Printer) {
	names := map[string]string{}
	for _, m := range messages {
		if m.UserID == "" || m.UserName == "" {
			continue
		}
		first, seen := names[m.UserID]
		if !seen {
			names[m.UserID] = m.UserName
			continue
		}
		if first != m.UserName {
			r.InconsistentUsers = append(r.InconsistentUsers, Mapping{UserID: m.UserID, Expected: first, Found: m.UserName})
		}
	}

	if len(r.InconsistentUsers) == 0 {
		r.add(KindOK, "All user_id to user_name mappings are consistent")
		return
	}
	ex := r.InconsistentUsers[0]
	r.add(KindWarning, p.Sprintf("Found %d inconsistent user_id to user_name mappings", len(r.InconsistentUsers)))
	r.add(KindInfo, p.Sprintf("Example: user_id=%s expected=%q found=%q", ex.UserID, ex.Expected, ex.Found))
}

func (r *Report) checkShortMessages(messages []model.Message, p *message.Printer) {
	for _, m := range messages {
		if len([]rune(strings.TrimSpace(m.Message))) < minMessageLen {
			r.ShortMessages++
		}
	}

	if r.ShortMessages > 0 {
		r.add(KindWarning, p.Sprintf("Found %d empty or very short messages", r.ShortMessages))
		return
	}
	r.add(KindOK, "All messages have meaningful content")
}

func (r *Report) checkPlaceholders(messages []model.Message, p *message.Printer) {
	for _, m := range messages {
		text := strings.ToLower(m.Message)
		for _, pat := range placeholderPatterns {
			if strings.Contains(text, pat) {
				r.PlaceholderMessages = append(r.PlaceholderMessages, m.ID)
				break
			}
		}
	}

	if len(r.PlaceholderMessages) > 0 {
		r.add(KindWarning, p.Sprintf("Found %d messages with suspicious patterns", len(r.PlaceholderMessages)))
		return
	}
	r.add(KindOK, "No suspicious test/placeholder messages detected")
}

func (r *Report) checkDuplicateContent(messages []model.Message, p *message.Printer) {
	counts := map[string]int{}
	for _, m := range messages {
		if text := strings.ToLower(strings.TrimSpace(m.Message)); text != "" {
			counts[text]++
		}
	}
	for _, n := range counts {
		if n > 1 {
			r.DuplicateContent++
		}
	}

	if r.DuplicateContent > 0 {
		r.add(KindWarning, p.Sprintf("Found %d sets of duplicate message content", r.DuplicateContent))
		return
	}
	r.add(KindOK, "No duplicate message content detected")
}

func (r *Report) checkActivity(messages []model.Message, p *message.Printer) {
	counts := map[string]int{}
	for _, m := range messages {
		counts[m.UserID]++
	}
	if len(counts) == 0 {
		return
	}

	a := Activity{Users: len(counts), Min: len(messages)}
	for _, n := range counts {
		a.Min = min(a.Min, n)
		a.Max = max(a.Max, n)
	}
	a.Avg = float64(len(messages)) / float64(len(counts))
	a.HighActivity = float64(a.Max) > a.Avg*highActivityRatio
	r.Activity = a

	r.add(KindInfo, p.Sprintf("User activity: %d unique users", a.Users))
	r.add(KindInfo, p.Sprintf("Messages per user: min=%d, max=%d, avg=%.1f", a.Min, a.Max, a.Avg))
	if a.HighActivity {
		r.add(KindWarning, p.Sprintf("Some users have unusually high message counts (max: %d vs avg: %.1f)", a.Max, a.Avg))
	}
}

func (r *Report) checkTemporal(messages []model.Message, p *message.Printer) {
	users := map[string]struct{}{}
	for _, m := range messages {
		if m.UserID == "" || m.Timestamp == "" {
			continue
		}
		if _, ok := parseTimestamp(m.Timestamp); ok {
			users[m.UserID] = struct{}{}
		}
	}
	r.UsersWithTimestamps = len(users)
	r.add(KindInfo, p.Sprintf("Analyzed temporal patterns for %d users", r.UsersWithTimestamps))
}

func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
