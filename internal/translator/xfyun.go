package translator

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	xfyunDefaultHost = "itrans.xfyun.cn"
	xfyunRequestURI  = "/v2/its"
)

// XfyunConfig holds the iFlytek machine translation credentials.
type XfyunConfig struct {
	Host    string        `mapstructure:"host" json:"host"`
	AppID   string        `mapstructure:"app_id" json:"app_id"`
	APIKey  string        `mapstructure:"api_key" json:"api_key"`
	Secret  string        `mapstructure:"secret" json:"secret"`
	Timeout time.Duration `mapstructure:"timeout" json:"timeout"`
}

// XfyunService calls the iFlytek itrans v2 API, signing each request with
// HMAC-SHA256 over host, date, request line and body digest.
type XfyunService struct {
	cfg     XfyunConfig
	baseURL string
	client  *http.Client
	now     func() time.Time
}

func NewXfyunService(cfg XfyunConfig) *XfyunService {
	if cfg.Host == "" {
		cfg.Host = xfyunDefaultHost
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &XfyunService{
		cfg:     cfg,
		baseURL: "https://" + cfg.Host,
		client:  &http.Client{Timeout: cfg.Timeout},
		now:     time.Now,
	}
}

func (s *XfyunService) Name() string {
	return "xfyun"
}

type xfyunRequest struct {
	Common struct {
		AppID string `json:"app_id"`
	} `json:"common"`
	Business struct {
		From string `json:"from"`
		To   string `json:"to"`
	} `json:"business"`
	Data struct {
		Text string `json:"text"`
	} `json:"data"`
}

type xfyunResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	SID     string `json:"sid"`
	Data    struct {
		Result struct {
			From        string `json:"from"`
			To          string `json:"to"`
			TransResult struct {
				Src string `json:"src"`
				Dst string `json:"dst"`
			} `json:"trans_result"`
		} `json:"result"`
	} `json:"data"`
}

func (s *XfyunService) Translate(ctx context.Context, req TranslateRequest) (*ServiceResult, error) {
	result := &ServiceResult{ServiceName: s.Name()}
	start := time.Now()
	defer func() { result.Latency = time.Since(start) }()

	if s.cfg.AppID == "" || s.cfg.APIKey == "" || s.cfg.Secret == "" {
		result.Error = "app_id, api_key and secret are required"
		return result, fmt.Errorf("%s: %w", s.Name(), ErrNotConfigured)
	}

	var body xfyunRequest
	body.Common.AppID = s.cfg.AppID
	body.Business.From = string(req.SourceLang)
	body.Business.To = string(req.TargetLang)
	body.Data.Text = base64.StdEncoding.EncodeToString([]byte(req.Text))

	payload, err := json.Marshal(body)
	if err != nil {
		result.Error = fmt.Sprintf("failed to marshal request: %v", err)
		return result, &TransportError{Service: s.Name(), Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+xfyunRequestURI, bytes.NewReader(payload))
	if err != nil {
		result.Error = fmt.Sprintf("failed to create request: %v", err)
		return result, &TransportError{Service: s.Name(), Err: err}
	}
	s.sign(httpReq, payload)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		result.Error = fmt.Sprintf("request failed: %v", err)
		return result, &TransportError{Service: s.Name(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		result.Error = fmt.Sprintf("API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
		return result, &TransportError{Service: s.Name(), StatusCode: resp.StatusCode, Err: fmt.Errorf("%s", strings.TrimSpace(string(msg)))}
	}

	var xr xfyunResponse
	if err := json.NewDecoder(resp.Body).Decode(&xr); err != nil {
		result.Error = fmt.Sprintf("failed to decode response: %v", err)
		return result, &TransportError{Service: s.Name(), Err: err}
	}

	if xr.Code != 0 {
		apiErr := &APIError{Service: s.Name(), Code: xr.Code, Message: xr.Message}
		result.Error = apiErr.Error()
		return result, apiErr
	}

	dst := xr.Data.Result.TransResult.Dst
	if strings.TrimSpace(dst) == "" {
		result.Error = "empty translation response"
		return result, fmt.Errorf("%s: %w", s.Name(), ErrEmptyResult)
	}

	result.TranslatedText = dst
	result.Metadata = map[string]string{"sid": xr.SID}
	return result, nil
}

func (s *XfyunService) sign(req *http.Request, payload []byte) {
	date := s.now().UTC().Format(http.TimeFormat)
	digest := Digest(payload)
	requestLine := fmt.Sprintf("%s %s HTTP/1.1", http.MethodPost, xfyunRequestURI)
	signature := Sign(s.cfg.Secret, s.cfg.Host, date, requestLine, digest)

	req.Host = s.cfg.Host
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Date", date)
	req.Header.Set("Digest", digest)
	req.Header.Set("Authorization", fmt.Sprintf(
		`api_key="%s", algorithm="hmac-sha256", headers="host date request-line digest", signature="%s"`,
		s.cfg.APIKey, signature))
}

// Digest returns the "SHA-256=<base64>" body digest header value.
func Digest(body []byte) string {
	sum := sha256.Sum256(body)
	return "SHA-256=" + base64.StdEncoding.EncodeToString(sum[:])
}

// Sign computes the base64 HMAC-SHA256 signature over the signed headers.
func Sign(secret, host, date, requestLine, digest string) string {
	var b strings.Builder
	b.WriteString("host: " + host + "\n")
	b.WriteString("date: " + date + "\n")
	b.WriteString(requestLine + "\n")
	b.WriteString("digest: " + digest)

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(b.String()))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func (s *XfyunService) IsAvailable(ctx context.Context) error {
	if s.cfg.AppID == "" || s.cfg.APIKey == "" || s.cfg.Secret == "" {
		return fmt.Errorf("%s: %w", s.Name(), ErrNotConfigured)
	}
	return nil
}
