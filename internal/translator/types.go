package translator

import (
	"context"
	"time"

	"github.com/valpere/subtran/internal/detector"
)

// DefaultTimeout bounds a single remote call when a service is built without
// an explicit timeout.
const DefaultTimeout = 10 * time.Second

type TranslateRequest struct {
	Text       string        `json:"text"`
	SourceLang detector.Lang `json:"source_lang"`
	TargetLang detector.Lang `json:"target_lang"`
}

type ServiceResult struct {
	ServiceName    string            `json:"service_name"`
	TranslatedText string            `json:"translated_text"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	Latency        time.Duration     `json:"latency"`
	Error          string            `json:"error,omitempty"`
}

// TranslationService is the remote translation capability. Translate returns
// a non-nil result even on failure so callers can log latency and the error
// text; the returned error is one of the types in errors.go.
type TranslationService interface {
	Name() string
	Translate(ctx context.Context, req TranslateRequest) (*ServiceResult, error)
	IsAvailable(ctx context.Context) error
}
