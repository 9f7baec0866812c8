package controller

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"com.aiac.relay/pkg/config"
)

func TestClient_SendMove_Success(t *testing.T) {
	var received moveRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true,"applied":"forward"}`))
	}))
	defer server.Close()

	client := NewClient(config.ControllerConfig{URL: server.URL + "/move", Timeout: time.Second})
	body, err := client.SendMove(context.Background(), "forward", 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if received.Direction != "forward" || received.Speed != 50 {
		t.Errorf("controller received %+v", received)
	}

	decoded, ok := body.(map[string]interface{})
	if !ok {
		t.Fatalf("expected object body, got %T", body)
	}
	if decoded["ok"] != true || decoded["applied"] != "forward" {
		t.Errorf("unexpected body %v", decoded)
	}
}

func TestClient_SendMove_Rejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("bad speed"))
	}))
	defer server.Close()

	client := NewClient(config.ControllerConfig{URL: server.URL, Timeout: time.Second})
	_, err := client.SendMove(context.Background(), "forward", 999)

	if !errors.Is(err, ErrControllerRejected) {
		t.Fatalf("expected ErrControllerRejected, got %v", err)
	}
	var rejected *RejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("expected RejectedError, got %T", err)
	}
	if rejected.StatusCode != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rejected.StatusCode)
	}
}

func TestClient_SendMove_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	}))
	defer server.Close()

	client := NewClient(config.ControllerConfig{URL: server.URL, Timeout: time.Second})
	_, err := client.SendMove(context.Background(), "stop", 0)
	if !errors.Is(err, ErrControllerRejected) {
		t.Errorf("expected ErrControllerRejected, got %v", err)
	}
}

func TestClient_SendMove_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewClient(config.ControllerConfig{URL: url, Timeout: time.Second})
	_, err := client.SendMove(context.Background(), "forward", 50)
	if !errors.Is(err, ErrControllerUnreachable) {
		t.Errorf("expected ErrControllerUnreachable, got %v", err)
	}
}

func TestClient_SendMove_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	client := NewClient(config.ControllerConfig{URL: server.URL, Timeout: 50 * time.Millisecond})

	start := time.Now()
	_, err := client.SendMove(context.Background(), "forward", 50)
	if !errors.Is(err, ErrControllerUnreachable) {
		t.Errorf("expected ErrControllerUnreachable, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("timeout not enforced, took %v", elapsed)
	}
}
