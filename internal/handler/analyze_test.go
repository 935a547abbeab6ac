package handler

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/sirupsen/logrus"

	"github.com/kdduha/property-inspector/backend/internal/apperror"
	"github.com/kdduha/property-inspector/backend/internal/config"
	"github.com/kdduha/property-inspector/backend/internal/imageproc"
	"github.com/kdduha/property-inspector/backend/internal/models"
)

type fakeService struct {
	inputs []imageproc.Input
	resp   *models.AnalyzeResponse
	chunks []models.StreamChunk
	err    error
}

func (f *fakeService) Analyze(_ context.Context, inputs []imageproc.Input) (*models.AnalyzeResponse, error) {
	f.inputs = inputs
	return f.resp, f.err
}

func (f *fakeService) AnalyzeStream(_ context.Context, inputs []imageproc.Input) (<-chan models.StreamChunk, error) {
	f.inputs = inputs
	if f.err != nil {
		return nil, f.err
	}
	ch := make(chan models.StreamChunk, len(f.chunks))
	for _, c := range f.chunks {
		ch <- c
	}
	close(ch)
	return ch, nil
}

func newTestRouter(t *testing.T, svc *fakeService, staticDir string) http.Handler {
	t.Helper()
	l := logrus.New()
	l.SetOutput(io.Discard)

	cfg := config.ServerConfig{
		Timeout:        time.Minute,
		ThrottleLimit:  10,
		StaticDir:      staticDir,
		AllowedOrigins: []string{"http://localhost:3000", "https://*.vercel.app"},
	}
	return NewRouter(cfg, l, NewAnalyzeHandler(svc, l, 1<<20))
}

func uploadRequest(t *testing.T, path string, names ...string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, name := range names {
		fw, err := mw.CreateFormFile(imageproc.FieldImage, name)
		if err != nil {
			t.Fatal(err)
		}
		_, _ = fw.Write([]byte("data"))
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var out map[string]string
	if err := sonic.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(t, &fakeService{}, t.TempDir()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if len(body) != 1 || body["message"] != "Backend is working!" {
		t.Fatalf("body = %v", body)
	}
}

func TestAnalyzeNoImage(t *testing.T) {
	svc := &fakeService{}
	req := uploadRequest(t, "/analyze")

	rec := httptest.NewRecorder()
	newTestRouter(t, svc, t.TempDir()).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["error"] != "No image provided." {
		t.Fatalf("body = %v", body)
	}
	if svc.inputs != nil {
		t.Fatal("service must not be called")
	}
}

func TestAnalyzeSuccess(t *testing.T) {
	svc := &fakeService{resp: &models.AnalyzeResponse{Result: "ok<br>done"}}
	req := uploadRequest(t, "/analyze", "a.png", "b.jpg")

	rec := httptest.NewRecorder()
	newTestRouter(t, svc, t.TempDir()).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	if body := decodeBody(t, rec); body["result"] != "ok<br>done" {
		t.Fatalf("body = %v", body)
	}
	if len(svc.inputs) != 2 || svc.inputs[0].Filename != "a.png" || svc.inputs[1].Filename != "b.jpg" {
		t.Fatalf("inputs = %+v", svc.inputs)
	}
}

func TestAnalyzeErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"unsupported", apperror.UnsupportedFormat("Allowed formats: png"), http.StatusBadRequest},
		{"too large", apperror.PayloadTooLarge("too big"), http.StatusBadRequest},
		{"inference", apperror.InferenceFailure(errors.New("quota")), http.StatusInternalServerError},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{err: tt.err}
			rec := httptest.NewRecorder()
			newTestRouter(t, svc, t.TempDir()).ServeHTTP(rec, uploadRequest(t, "/analyze", "a.png"))

			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if body := decodeBody(t, rec); body["error"] == "" {
				t.Fatalf("missing error message: %v", body)
			}
		})
	}
}

func TestAnalyzeStream(t *testing.T) {
	svc := &fakeService{chunks: []models.StreamChunk{
		{Delta: "Wall "},
		{Delta: "cracked"},
		{Done: true},
	}}

	rec := httptest.NewRecorder()
	newTestRouter(t, svc, t.TempDir()).ServeHTTP(rec, uploadRequest(t, "/analyze/stream", "a.png"))

	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}

	var events []string
	sc := bufio.NewScanner(rec.Body)
	for sc.Scan() {
		if line := sc.Text(); strings.HasPrefix(line, "event: ") {
			events = append(events, strings.TrimPrefix(line, "event: "))
		}
	}
	if strings.Join(events, ",") != "message,message,done" {
		t.Fatalf("events = %v", events)
	}
}

func TestAnalyzeStreamError(t *testing.T) {
	svc := &fakeService{chunks: []models.StreamChunk{
		{Delta: "partial"},
		{Err: apperror.InferenceFailure(errors.New("connection reset"))},
	}}

	rec := httptest.NewRecorder()
	newTestRouter(t, svc, t.TempDir()).ServeHTTP(rec, uploadRequest(t, "/analyze/stream", "a.png"))

	out := rec.Body.String()
	if !strings.Contains(out, "event: error") || !strings.Contains(out, "connection reset") {
		t.Fatalf("body = %s", out)
	}
}

func TestCORSPreflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/analyze", nil)
	req.Header.Set("Origin", "https://preview-123.vercel.app")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	rec := httptest.NewRecorder()
	newTestRouter(t, &fakeService{}, t.TempDir()).ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://preview-123.vercel.app" {
		t.Fatalf("allow origin = %q", got)
	}
}

func TestStaticFallback(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>app</html>"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "app.js"), []byte("console.log(1)"), 0o644); err != nil {
		t.Fatal(err)
	}
	router := newTestRouter(t, &fakeService{}, dir)

	tests := []struct {
		path string
		want string
	}{
		{"/app.js", "console.log(1)"},
		{"/reports/42", "<html>app</html>"},
		{"/", "<html>app</html>"},
		{"/../../etc/passwd", "<html>app</html>"},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
		if rec.Code != http.StatusOK || rec.Body.String() != tt.want {
			t.Errorf("GET %s = %d %q, want %q", tt.path, rec.Code, rec.Body.String(), tt.want)
		}
	}
}
