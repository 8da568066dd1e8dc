package asr

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestQwenTranscribeSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("expected bearer token header, got %q", r.Header.Get("Authorization"))
		}
		json.NewEncoder(w).Encode(map[string]any{
			"output": map[string]string{"text": "hello world."},
		})
	}))
	defer srv.Close()

	c := NewQwenClient("secret", "", nil)
	c.url = srv.URL

	text, err := c.TranscribeBytes(context.Background(), []byte("pcm"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "hello world" {
		t.Fatalf("expected trailing punctuation stripped, got %q", text)
	}
}

func TestQwenDictionaryEchoHeuristic(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"output": map[string]string{"text": "苹果、香蕉、橙子"},
		})
	}))
	defer srv.Close()

	c := NewQwenClient("secret", "", nil)
	c.url = srv.URL
	c.SetDictionary([]string{"苹果", "香蕉", "橙子"})

	_, err := c.TranscribeBytes(context.Background(), []byte("pcm"))
	if err == nil {
		t.Fatal("expected dictionary-echo heuristic to reject the response")
	}
}

func TestQwenRetriesOnFailure(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"output": map[string]string{"text": "recovered"},
		})
	}))
	defer srv.Close()

	c := NewQwenClient("secret", "", nil)
	c.url = srv.URL

	text, err := c.TranscribeBytes(context.Background(), []byte("pcm"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "recovered" {
		t.Fatalf("expected eventual success, got %q", text)
	}
	if attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", attempts)
	}
}
