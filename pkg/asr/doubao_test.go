package asr

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"context"
)

func TestDoubaoTranscribeSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Api-App-Key") != "app123" {
			t.Errorf("expected app key header")
		}
		if r.Header.Get("X-Api-Request-Id") == "" {
			t.Errorf("expected a generated request id")
		}
		w.Header().Set("X-Api-Status-Code", doubaoStatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"result": map[string]string{"text": "hello there!"},
		})
	}))
	defer srv.Close()

	c := NewDoubaoClient("app123", "access456", nil)
	c.url = srv.URL

	text, err := c.TranscribeBytes(context.Background(), []byte("pcm"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "hello there" {
		t.Fatalf("expected trailing punctuation stripped, got %q", text)
	}
}

func TestDoubaoNonOKStatusCodeFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Api-Status-Code", "45000001")
		w.Header().Set("X-Api-Message", "invalid audio")
		json.NewEncoder(w).Encode(map[string]any{})
	}))
	defer srv.Close()

	c := NewDoubaoClient("app123", "access456", nil)
	c.url = srv.URL

	_, err := c.TranscribeBytes(context.Background(), []byte("pcm"))
	if err == nil {
		t.Fatal("expected non-OK status code to surface as an error")
	}
}
