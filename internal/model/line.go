package model

import (
	"fmt"
	"strings"
)

const (
	// DateMarker introduces the date suffix of a rendered line.
	DateMarker = "Date:"
	// dateSuffixMarker is the opening of the date suffix, including the parenthesis.
	dateSuffixMarker = "(" + DateMarker
	dateLen          = 10
)

// Line is a parsed context line of the form "<author>: <message> (Date: <yyyy-mm-dd>)".
// Fields are empty when the corresponding part of the line is missing.
type Line struct {
	Raw     string
	Author  string
	Message string
	Date    string
}

// HasAuthor reports whether the line carried an "<author>:" prefix.
func (l Line) HasAuthor() bool { return l.Author != "" }

// HasDate reports whether the line carried a non-empty "Date:" marker.
func (l Line) HasDate() bool { return l.Date != "" }

// RenderLine formats a message as a single context line.
func RenderLine(m Message) string {
	return fmt.Sprintf("%s: %s %s %s)", m.Author(), m.Message, dateSuffixMarker, m.Day())
}

// ParseLine splits a rendered context line back into its parts. It never
// fails: a line without a colon has no author or message, and a line without
// a date marker has no date.
func ParseLine(raw string) Line {
	l := Line{Raw: raw}

	if i := strings.LastIndex(raw, DateMarker); i >= 0 {
		date := strings.TrimSpace(raw[i+len(DateMarker):])
		date = strings.TrimSuffix(date, ")")
		l.Date = strings.TrimSpace(truncateRunes(date, dateLen))
	}

	author, rest, ok := strings.Cut(raw, ":")
	if !ok {
		return l
	}
	// A line whose only colon is the date marker has no author.
	if strings.HasSuffix(author, "("+strings.TrimSuffix(DateMarker, ":")) {
		return l
	}
	if i := strings.Index(rest, dateSuffixMarker); i >= 0 {
		rest = rest[:i]
	}
	l.Author = strings.TrimSpace(author)
	l.Message = strings.TrimSpace(rest)
	return l
}
