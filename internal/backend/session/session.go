// Package session keeps the per-browser working state: the last uploaded
// image and the last analysis produced for it.
package session

import (
	"context"
	"errors"
	"time"
)

var ErrSessionNotFound = errors.New("session not found")

type Session struct {
	ID           string            `json:"id"`
	Filename     string            `json:"filename,omitempty"`
	DisplayImage []byte            `json:"displayImage,omitempty"` // PNG sent to the model and embedded in exports
	Metadata     map[string]string `json:"metadata,omitempty"`
	Analysis     string            `json:"analysis,omitempty"`
	PromptID     string            `json:"promptId,omitempty"`
	UpdatedAt    time.Time         `json:"updatedAt"`
}

func (s *Session) HasImage() bool {
	return len(s.DisplayImage) > 0
}

func (s *Session) HasAnalysis() bool {
	return s.Analysis != ""
}

// SetImage replaces the image; a previous analysis belongs to the old image and is dropped
func (s *Session) SetImage(filename string, displayImage []byte, metadata map[string]string) {
	s.Filename = filename
	s.DisplayImage = displayImage
	s.Metadata = metadata
	s.Analysis = ""
	s.PromptID = ""
}

// SetAnalysis overwrites any earlier result
func (s *Session) SetAnalysis(analysis, promptID string) {
	s.Analysis = analysis
	s.PromptID = promptID
}

type Store interface {
	// Get returns ErrSessionNotFound for unknown or expired IDs
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, session *Session) error
	Delete(ctx context.Context, id string) error
	Close() error
}
