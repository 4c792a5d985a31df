package offline

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPSenderPostsJSON(t *testing.T) {
	var gotMethod, gotPath, gotType, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath, gotType = r.Method, r.URL.Path, r.Header.Get("Content-Type")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	err := NewHTTPSender(server.URL+"/", server.Client()).Send(context.Background(), QueuedRequest{
		Endpoint: "/api/chat",
		Method:   "POST",
		Body:     []byte(`{"message":"hi"}`),
	})
	if err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	if gotMethod != http.MethodPost || gotPath != "/api/chat" || gotType != "application/json" || gotBody != `{"message":"hi"}` {
		t.Fatalf("unexpected request %s %s %s %s", gotMethod, gotPath, gotType, gotBody)
	}
}

func TestHTTPSenderTreatsNon2xxAsFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	err := NewHTTPSender(server.URL, server.Client()).Send(context.Background(), QueuedRequest{Endpoint: "/api/chat"})
	if !errors.Is(err, ErrDeliveryFailed) {
		t.Fatalf("expected ErrDeliveryFailed, got %v", err)
	}
}

func TestHTTPSenderTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	err := NewHTTPSender(url, nil).Send(context.Background(), QueuedRequest{Endpoint: "/api/chat"})
	if !errors.Is(err, ErrDeliveryFailed) {
		t.Fatalf("expected ErrDeliveryFailed for unreachable server, got %v", err)
	}
}
