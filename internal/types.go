package internal

import (
	"errors"
	"fmt"
	"time"
)

// UpdateRequest is one inbound subtitle fragment. Pointer fields are optional
// overrides; nil leaves the current value in place.
type UpdateRequest struct {
	Text        *string  `json:"text"`
	TargetText  *string  `json:"target_text,omitempty"`
	YPosition   *int     `json:"y_position,omitempty"`
	TopColor    *string  `json:"top_color,omitempty"`
	BottomColor *string  `json:"bottom_color,omitempty"`
	Timeout     *float64 `json:"timeout,omitempty"`
	Height      *int     `json:"height,omitempty"`
}

// MaxTimeout caps the per-request visibility.
const MaxTimeout = 24 * time.Hour

// NewUpdate builds a request carrying only source text.
func NewUpdate(text string) UpdateRequest {
	return UpdateRequest{Text: &text}
}

func (r UpdateRequest) Validate() error {
	if r.Text == nil {
		return errors.New("text is required")
	}
	if r.Timeout != nil {
		if !(*r.Timeout > 0) {
			return errors.New("timeout must be positive")
		}
		if *r.Timeout > MaxTimeout.Seconds() {
			return fmt.Errorf("timeout must not exceed %.0f seconds", MaxTimeout.Seconds())
		}
	}
	if r.Height != nil && *r.Height <= 0 {
		return errors.New("height must be positive")
	}
	return nil
}

// SourceText returns the fragment text, or "" when absent.
func (r UpdateRequest) SourceText() string {
	if r.Text == nil {
		return ""
	}
	return *r.Text
}

// ShowFor returns the per-request visibility, or def when none was given.
// Non-positive values yield def and values above MaxTimeout are capped.
func (r UpdateRequest) ShowFor(def time.Duration) time.Duration {
	if r.Timeout == nil {
		return def
	}
	if *r.Timeout >= MaxTimeout.Seconds() {
		return MaxTimeout
	}
	if !(*r.Timeout > 0) {
		return def
	}
	return time.Duration(*r.Timeout * float64(time.Second))
}

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Response is returned to the submitter of an UpdateRequest.
type Response struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func Success(message string) Response {
	return Response{Status: StatusSuccess, Message: message}
}

func Failure(err error) Response {
	return Response{Status: StatusError, Message: err.Error()}
}
