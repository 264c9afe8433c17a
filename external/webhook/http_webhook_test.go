package webhook

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

type receivedUpload struct {
	content  string
	filename string
	body     string
}

func newUploadServer(t *testing.T, status int, got *receivedUpload) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("failed to parse multipart form: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		got.content = r.FormValue("content")
		f, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("missing file part: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer f.Close()
		b, _ := io.ReadAll(f)
		got.filename = header.Filename
		got.body = string(b)
		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestSendTranscript_SkippedWithoutURL(t *testing.T) {
	if err := NewHTTPSender("").SendTranscript(context.Background(), "transcript-1.zip", []byte("zip")); err != nil {
		t.Fatalf("expected no-op, got %v", err)
	}
}

func TestSendTranscript(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{name: "accepted", status: http.StatusOK},
		{name: "no content", status: http.StatusNoContent},
		{name: "rejected", status: http.StatusBadRequest, wantErr: true},
		{name: "server error", status: http.StatusBadGateway, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got receivedUpload
			server := newUploadServer(t, tt.status, &got)

			err := NewHTTPSender(server.URL).SendTranscript(context.Background(), "transcript-7-cannot-log-in.zip", []byte("PK-archive"))
			if (err != nil) != tt.wantErr {
				t.Fatalf("unexpected error state: %v", err)
			}
			if got.filename != "transcript-7-cannot-log-in.zip" || got.body != "PK-archive" {
				t.Fatalf("unexpected upload: %+v", got)
			}
			if got.content != "Ticket transcript: transcript-7-cannot-log-in.zip" {
				t.Fatalf("unexpected content field: %q", got.content)
			}
		})
	}
}

func TestSendTranscript_CanceledContext(t *testing.T) {
	var got receivedUpload
	server := newUploadServer(t, http.StatusOK, &got)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := NewHTTPSender(server.URL).SendTranscript(ctx, "transcript-1.zip", []byte("zip")); err == nil {
		t.Fatal("expected error for canceled context")
	}
}
