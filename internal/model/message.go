package model

// Message is a single member-authored message as served by the messages API.
type Message struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	UserName  string `json:"user_name"`
	Timestamp string `json:"timestamp"`
	Message   string `json:"message"`
}

// Author returns the display name used when rendering the message.
func (m Message) Author() string {
	if m.UserName == "" {
		return "Unknown"
	}
	return m.UserName
}

// Day returns the first ten characters of the timestamp (the ISO-8601 date).
func (m Message) Day() string {
	return truncateRunes(m.Timestamp, dateLen)
}

// MessagePage is the messages API list response.
type MessagePage struct {
	Total int       `json:"total"`
	Items []Message `json:"items"`
}

func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
