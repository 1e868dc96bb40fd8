// Package notes stores notes in a DynamoDB table.
package notes

import (
	"fmt"
	"time"
	"unicode/utf8"
)

const (
	MaxTitleLength   = 200
	MaxContentLength = 5000
)

// Note is a stored note.
type Note struct {
	ID        string    `json:"id" dynamodbav:"id"`
	Title     string    `json:"title" dynamodbav:"title"`
	Content   string    `json:"content" dynamodbav:"content"`
	Tags      []string  `json:"tags" dynamodbav:"tags"`
	Completed bool      `json:"completed" dynamodbav:"completed"`
	CreatedAt time.Time `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt time.Time `json:"updated_at" dynamodbav:"updated_at"`
}

// NoteCreate carries the fields of a new note.
type NoteCreate struct {
	Title     string   `json:"title" yaml:"title"`
	Content   string   `json:"content" yaml:"content"`
	Tags      []string `json:"tags" yaml:"tags"`
	Completed bool     `json:"completed" yaml:"completed"`
}

// NoteUpdate carries the fields to change. Nil fields are left untouched.
type NoteUpdate struct {
	Title     *string   `json:"title"`
	Content   *string   `json:"content"`
	Tags      *[]string `json:"tags"`
	Completed *bool     `json:"completed"`
}

// Empty reports whether the update changes nothing.
func (u NoteUpdate) Empty() bool {
	return u.Title == nil && u.Content == nil && u.Tags == nil && u.Completed == nil
}

// ValidationError describes a field that does not satisfy its constraints.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (c NoteCreate) Validate() error {
	if err := checkLength("title", c.Title, MaxTitleLength); err != nil {
		return err
	}
	return checkLength("content", c.Content, MaxContentLength)
}

func (u NoteUpdate) Validate() error {
	if u.Title != nil {
		if err := checkLength("title", *u.Title, MaxTitleLength); err != nil {
			return err
		}
	}
	if u.Content != nil {
		return checkLength("content", *u.Content, MaxContentLength)
	}
	return nil
}

func checkLength(field, value string, max int) error {
	n := utf8.RuneCountInString(value)
	if n == 0 {
		return &ValidationError{Field: field, Message: "must not be empty"}
	}
	if n > max {
		return &ValidationError{Field: field, Message: fmt.Sprintf("must be at most %d characters", max)}
	}
	return nil
}

func normalize(n *Note) {
	if n.Tags == nil {
		n.Tags = []string{}
	}
}
