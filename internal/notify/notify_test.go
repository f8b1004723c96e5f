package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/obentoo/nugetwatch/internal/common/httpclient"
)

func TestNewReleaseMessage(t *testing.T) {
	msg := NewReleaseMessage("Newtonsoft.Json", "13.0.4")
	want := "New version of Newtonsoft.Json has been published to NuGet. Version 13.0.4"
	if msg.Message != want {
		t.Errorf("got %q, want %q", msg.Message, want)
	}
}

func TestMessageJSONShape(t *testing.T) {
	data, err := json.Marshal(NewReleaseMessage("Polly", "8.0.0"))
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	want := `{"message":"New version of Polly has been published to NuGet. Version 8.0.0"}`
	if string(data) != want {
		t.Errorf("got %s, want %s", data, want)
	}
}

func TestWebhookPostsOnce(t *testing.T) {
	var (
		calls int32
		body  []byte
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	hc := httpclient.New()
	hc.SetHTTPClient(server.Client())
	hook := NewWebhook(server.URL, hc)

	if err := hook.Notify(context.Background(), NewReleaseMessage("Serilog", "4.1.0")); err != nil {
		t.Fatalf("Notify failed: %v", err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("expected one POST, got %d", calls)
	}

	var got Message
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if got.Message != "New version of Serilog has been published to NuGet. Version 4.1.0" {
		t.Errorf("unexpected message %q", got.Message)
	}
}

func TestWebhookFailureIsNotRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	hc := httpclient.New()
	hc.SetHTTPClient(server.Client())
	hook := NewWebhook(server.URL, hc)

	err := hook.Notify(context.Background(), NewReleaseMessage("Serilog", "4.1.0"))
	if !errors.Is(err, httpclient.ErrUnexpectedStatus) {
		t.Errorf("expected ErrUnexpectedStatus, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("expected a single attempt, got %d", calls)
	}
}

func TestWebhookWithoutEndpoint(t *testing.T) {
	hook := NewWebhook("  ", nil)
	if err := hook.Notify(context.Background(), Message{}); !errors.Is(err, ErrNoEndpoint) {
		t.Errorf("expected ErrNoEndpoint, got %v", err)
	}
}
