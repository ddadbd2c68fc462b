package translator

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/valpere/subtran/internal/detector"
)

func newTestXfyun(t *testing.T, handler http.HandlerFunc) *XfyunService {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	svc := NewXfyunService(XfyunConfig{AppID: "app", APIKey: "key", Secret: "secret"})
	svc.baseURL = server.URL
	svc.client = server.Client()
	svc.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func xfyunReply(w http.ResponseWriter, code int, message, dst string) {
	resp := map[string]interface{}{
		"code":    code,
		"message": message,
		"sid":     "its000",
		"data": map[string]interface{}{
			"result": map[string]interface{}{
				"from":         "cn",
				"to":           "en",
				"trans_result": map[string]string{"src": "", "dst": dst},
			},
		},
	}
	json.NewEncoder(w).Encode(resp)
}

func TestXfyunService_Translate_Success(t *testing.T) {
	svc := newTestXfyun(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/its" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.Host != "itrans.xfyun.cn" {
			t.Errorf("unexpected host %q", r.Host)
		}

		body, _ := io.ReadAll(r.Body)
		var req xfyunRequest
		if err := json.Unmarshal(body, &req); err != nil {
			t.Fatalf("bad body: %v", err)
		}
		if req.Common.AppID != "app" || req.Business.From != "cn" || req.Business.To != "en" {
			t.Errorf("unexpected request %+v", req)
		}
		text, _ := base64.StdEncoding.DecodeString(req.Data.Text)
		if string(text) != "你好" {
			t.Errorf("expected base64 text, got %q", text)
		}

		if got := r.Header.Get("Digest"); got != Digest(body) {
			t.Errorf("digest mismatch: %q", got)
		}
		date := r.Header.Get("Date")
		if date != "Wed, 01 May 2024 12:00:00 GMT" {
			t.Errorf("unexpected date %q", date)
		}
		sig := Sign("secret", "itrans.xfyun.cn", date, "POST /v2/its HTTP/1.1", Digest(body))
		auth := r.Header.Get("Authorization")
		if !strings.Contains(auth, `signature="`+sig+`"`) || !strings.Contains(auth, `api_key="key"`) {
			t.Errorf("unexpected authorization %q", auth)
		}

		xfyunReply(w, 0, "success", "Hello")
	})

	result, err := svc.Translate(context.Background(), TranslateRequest{
		Text:       "你好",
		SourceLang: detector.Chinese,
		TargetLang: detector.English,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TranslatedText != "Hello" {
		t.Errorf("expected 'Hello', got %q", result.TranslatedText)
	}
	if result.Metadata["sid"] != "its000" {
		t.Errorf("expected sid in metadata, got %v", result.Metadata)
	}
}

func TestXfyunService_Translate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		class   string
	}{
		{
			name: "http status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
			class: "transport",
		},
		{
			name: "bad json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("{"))
			},
			class: "transport",
		},
		{
			name: "api code",
			handler: func(w http.ResponseWriter, r *http.Request) {
				xfyunReply(w, 10163, "invalid param", "")
			},
			class: "api",
		},
		{
			name: "auth code",
			handler: func(w http.ResponseWriter, r *http.Request) {
				xfyunReply(w, 11200, "licc failed", "")
			},
			class: "auth",
		},
		{
			name: "empty dst",
			handler: func(w http.ResponseWriter, r *http.Request) {
				xfyunReply(w, 0, "success", "  ")
			},
			class: "empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestXfyun(t, tt.handler)
			result, err := svc.Translate(context.Background(), TranslateRequest{
				Text:       "你好",
				SourceLang: detector.Chinese,
				TargetLang: detector.English,
			})
			if err == nil {
				t.Fatal("expected error")
			}
			if result == nil || result.Error == "" {
				t.Fatal("expected error message in result")
			}
			if got := Class(err); got != tt.class {
				t.Errorf("expected class %q, got %q (%v)", tt.class, got, err)
			}
		})
	}
}

func TestXfyunService_NotConfigured(t *testing.T) {
	svc := NewXfyunService(XfyunConfig{})

	if err := svc.IsAvailable(context.Background()); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}

	_, err := svc.Translate(context.Background(), TranslateRequest{Text: "hi", SourceLang: detector.English, TargetLang: detector.Chinese})
	if !IsAuth(err) {
		t.Errorf("expected auth class, got %v", err)
	}
}

func TestXfyunService_Timeout(t *testing.T) {
	svc := newTestXfyun(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := svc.Translate(ctx, TranslateRequest{Text: "hi", SourceLang: detector.English, TargetLang: detector.Chinese})
	var te *TransportError
	if !errors.As(err, &te) {
		t.Errorf("expected TransportError, got %v", err)
	}
}

func TestSign_Deterministic(t *testing.T) {
	a := Sign("s", "h", "d", "POST /v2/its HTTP/1.1", "SHA-256=x")
	b := Sign("s", "h", "d", "POST /v2/its HTTP/1.1", "SHA-256=x")
	c := Sign("other", "h", "d", "POST /v2/its HTTP/1.1", "SHA-256=x")
	if a != b {
		t.Error("expected identical signatures for identical input")
	}
	if a == c {
		t.Error("expected secret to change the signature")
	}
	if !strings.HasPrefix(Digest([]byte("{}")), "SHA-256=") {
		t.Error("expected SHA-256 digest prefix")
	}
}

func TestMyMemoryService_Translate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		if got := r.URL.Query().Get("langpair"); got != "zh-CN|en" {
			t.Errorf("unexpected langpair %q", got)
		}
		if got := r.URL.Query().Get("de"); got != "ops@example.com" {
			t.Errorf("unexpected email %q", got)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"responseData":   map[string]interface{}{"translatedText": "Hello", "match": 0.85},
			"responseStatus": 200,
		})
	}))
	defer server.Close()

	svc := NewMyMemoryService("ops@example.com", time.Second)
	svc.baseURL = server.URL
	svc.client = server.Client()

	result, err := svc.Translate(context.Background(), TranslateRequest{
		Text:       "你好",
		SourceLang: detector.Chinese,
		TargetLang: detector.English,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TranslatedText != "Hello" {
		t.Errorf("expected 'Hello', got %q", result.TranslatedText)
	}
	if result.Metadata["match"] != "0.85" {
		t.Errorf("expected match metadata, got %v", result.Metadata)
	}
}

func TestMyMemoryService_Translate_QuotaExceeded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"responseData":    map[string]interface{}{"translatedText": ""},
			"responseStatus":  429,
			"responseDetails": "MYMEMORY WARNING: YOU USED ALL AVAILABLE FREE TRANSLATIONS",
		})
	}))
	defer server.Close()

	svc := NewMyMemoryService("", time.Second)
	svc.baseURL = server.URL
	svc.client = server.Client()

	result, err := svc.Translate(context.Background(), TranslateRequest{Text: "hi", SourceLang: detector.English, TargetLang: detector.Chinese})
	if Class(err) != "api" {
		t.Errorf("expected api class, got %v", err)
	}
	if result == nil || result.Error == "" {
		t.Error("expected error message in result")
	}
}

func TestMyMemoryService_Name(t *testing.T) {
	svc := NewMyMemoryService("", 0)

	if svc.Name() != "mymemory" {
		t.Errorf("expected 'mymemory', got %q", svc.Name())
	}
	if err := svc.IsAvailable(context.Background()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestGoogleService_UnsupportedTarget(t *testing.T) {
	svc := NewGoogleService(GoogleConfig{})

	result, err := svc.Translate(context.Background(), TranslateRequest{Text: "hi", SourceLang: detector.English, TargetLang: detector.Unknown})
	if err == nil {
		t.Fatal("expected error for unknown target")
	}
	if result == nil || result.Error == "" {
		t.Error("expected error message in result")
	}
	if svc.Name() != "google" {
		t.Errorf("expected 'google', got %q", svc.Name())
	}
}

func TestClass(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{ErrNotConfigured, "auth"},
		{&APIError{Service: "x", Code: 10014}, "auth"},
		{&APIError{Service: "x", Code: 10700}, "api"},
		{ErrEmptyResult, "empty"},
		{&TransportError{Service: "x", Err: errors.New("reset")}, "transport"},
		{context.DeadlineExceeded, "transport"},
	}

	for _, tt := range tests {
		if got := Class(tt.err); got != tt.want {
			t.Errorf("Class(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}

	hint := (&APIError{Code: 10013}).Hint()
	if !strings.Contains(hint, "app_id") {
		t.Errorf("unexpected hint %q", hint)
	}
}
