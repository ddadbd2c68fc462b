package translator

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/valpere/subtran/internal/detector"
)

const mymemoryURL = "https://api.mymemory.translated.net/get"

type MyMemoryService struct {
	email   string
	baseURL string
	client  *http.Client
}

func NewMyMemoryService(email string, timeout time.Duration) *MyMemoryService {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &MyMemoryService{
		email:   email,
		baseURL: mymemoryURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (s *MyMemoryService) Name() string {
	return "mymemory"
}

// mymemoryLang maps a deployment code to the tag MyMemory expects.
func mymemoryLang(l detector.Lang) string {
	if l == detector.Chinese {
		return "zh-CN"
	}
	return l.ISO()
}

func (s *MyMemoryService) Translate(ctx context.Context, req TranslateRequest) (*ServiceResult, error) {
	result := &ServiceResult{ServiceName: s.Name()}
	start := time.Now()
	defer func() { result.Latency = time.Since(start) }()

	q := url.Values{}
	q.Set("q", req.Text)
	q.Set("langpair", fmt.Sprintf("%s|%s", mymemoryLang(req.SourceLang), mymemoryLang(req.TargetLang)))
	if s.email != "" {
		q.Set("de", s.email)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		result.Error = fmt.Sprintf("failed to create request: %v", err)
		return result, &TransportError{Service: s.Name(), Err: err}
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		result.Error = fmt.Sprintf("request failed: %v", err)
		return result, &TransportError{Service: s.Name(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		result.Error = fmt.Sprintf("API returned status %d", resp.StatusCode)
		return result, &TransportError{Service: s.Name(), StatusCode: resp.StatusCode, Err: fmt.Errorf("unexpected status")}
	}

	var mymemResp struct {
		ResponseData struct {
			TranslatedText string  `json:"translatedText"`
			Match          float64 `json:"match"`
		} `json:"responseData"`
		ResponseStatus  int    `json:"responseStatus"`
		ResponseDetails string `json:"responseDetails"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&mymemResp); err != nil {
		result.Error = fmt.Sprintf("failed to decode response: %v", err)
		return result, &TransportError{Service: s.Name(), Err: err}
	}

	if mymemResp.ResponseStatus != http.StatusOK {
		apiErr := &APIError{Service: s.Name(), Code: mymemResp.ResponseStatus, Message: mymemResp.ResponseDetails}
		result.Error = apiErr.Error()
		return result, apiErr
	}

	if strings.TrimSpace(mymemResp.ResponseData.TranslatedText) == "" {
		result.Error = "empty translation response"
		return result, fmt.Errorf("%s: %w", s.Name(), ErrEmptyResult)
	}

	result.TranslatedText = mymemResp.ResponseData.TranslatedText
	result.Metadata = map[string]string{"match": fmt.Sprintf("%.2f", mymemResp.ResponseData.Match)}
	return result, nil
}

func (s *MyMemoryService) IsAvailable(ctx context.Context) error {
	return nil
}
