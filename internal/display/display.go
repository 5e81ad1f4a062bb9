// Package display derives the title/body view of a stored note.
//
// A stored note keeps title and body in a single content blob: the title is
// the text before the first line break, the body everything after it.
package display

import (
	"strings"
	"time"

	"notesync/internal/document/model"
)

// TimeLayout matches JavaScript's Date.prototype.toISOString.
const TimeLayout = "2006-01-02T15:04:05.000Z"

// Note is the display view of a model.Note. It is never persisted.
type Note struct {
	ID        string `json:"id" yaml:"id"`
	Title     string `json:"title" yaml:"title"`
	Content   string `json:"content" yaml:"content"`
	CreatedAt string `json:"createdAt" yaml:"createdAt"`
	UpdatedAt string `json:"updatedAt" yaml:"updatedAt"`
}

// Project splits n.Content at the first line break and formats its
// timestamps. Without a line break the whole content is the title.
func Project(n model.Note) Note {
	title, body, _ := strings.Cut(n.Content, "\n")
	return Note{
		ID:        n.ID,
		Title:     title,
		Content:   body,
		CreatedAt: FormatTime(n.Created),
		UpdatedAt: FormatTime(n.Modified),
	}
}

// Pack is the inverse of Project for writes: an empty title stores the body
// verbatim.
func Pack(title, body string) string {
	if title == "" {
		return body
	}
	return title + "\n" + body
}

// FormatTime renders epoch seconds as an ISO-8601 UTC string.
func FormatTime(epoch int64) string {
	return time.Unix(epoch, 0).UTC().Format(TimeLayout)
}
