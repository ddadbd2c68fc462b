package translator

import (
	"context"
	"fmt"
	"strings"
	"time"

	translate "cloud.google.com/go/translate"
	"golang.org/x/text/language"
	"google.golang.org/api/option"
)

// GoogleConfig selects the credentials for the Cloud Translation API. An empty
// Credentials path uses application default credentials.
type GoogleConfig struct {
	Credentials string        `mapstructure:"credentials" json:"credentials"`
	ProjectID   string        `mapstructure:"project_id" json:"project_id"`
	Timeout     time.Duration `mapstructure:"timeout" json:"timeout"`
}

type GoogleService struct {
	cfg GoogleConfig
}

func NewGoogleService(cfg GoogleConfig) *GoogleService {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &GoogleService{cfg: cfg}
}

func (s *GoogleService) Name() string {
	return "google"
}

func (s *GoogleService) clientOptions() []option.ClientOption {
	var opts []option.ClientOption
	if s.cfg.Credentials != "" {
		opts = append(opts, option.WithCredentialsFile(s.cfg.Credentials))
	}
	if s.cfg.ProjectID != "" {
		opts = append(opts, option.WithQuotaProject(s.cfg.ProjectID))
	}
	return opts
}

func (s *GoogleService) Translate(ctx context.Context, req TranslateRequest) (*ServiceResult, error) {
	result := &ServiceResult{ServiceName: s.Name()}
	start := time.Now()
	defer func() { result.Latency = time.Since(start) }()

	target := req.TargetLang.Tag()
	if target == language.Und {
		result.Error = fmt.Sprintf("unsupported target language %q", req.TargetLang)
		return result, &APIError{Service: s.Name(), Code: -1, Message: result.Error}
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	client, err := translate.NewClient(ctx, s.clientOptions()...)
	if err != nil {
		result.Error = fmt.Sprintf("failed to create client: %v", err)
		return result, fmt.Errorf("%s: %w: %v", s.Name(), ErrNotConfigured, err)
	}
	defer client.Close()

	var opts *translate.Options
	if source := req.SourceLang.Tag(); source != language.Und {
		opts = &translate.Options{Source: source, Format: translate.Text}
	}

	translations, err := client.Translate(ctx, []string{req.Text}, target, opts)
	if err != nil {
		result.Error = fmt.Sprintf("translation failed: %v", err)
		return result, &TransportError{Service: s.Name(), Err: err}
	}

	if len(translations) == 0 || strings.TrimSpace(translations[0].Text) == "" {
		result.Error = "no translation returned"
		return result, fmt.Errorf("%s: %w", s.Name(), ErrEmptyResult)
	}

	result.TranslatedText = translations[0].Text
	return result, nil
}

func (s *GoogleService) IsAvailable(ctx context.Context) error {
	return nil
}
