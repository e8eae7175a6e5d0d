package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

func vectorOf(dim int) []float32 {
	v := make([]float32, dim)
	for i := range v {
		v[i] = float32(i) * 0.1
	}
	return v
}

func TestNewClient_Validation(t *testing.T) {
	if _, err := NewClient("", 384, zerolog.Nop()); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	if _, err := NewClient("http://example.com", 0, zerolog.Nop()); err == nil {
		t.Fatal("expected error for zero dimension")
	}
}

func TestEncode_WarmsUpOnce(t *testing.T) {
	var texts []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embed" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var req map[string]string
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode: %v", err)
		}
		texts = append(texts, req["text"])
		json.NewEncoder(w).Encode(map[string]interface{}{"embedding": vectorOf(384)})
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, 384, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	if _, err := c.Encode(context.Background(), "hemoglobin results"); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if _, err := c.Encode(context.Background(), "glucose results"); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	want := []string{"warmup", "hemoglobin results", "glucose results"}
	if len(texts) != len(want) {
		t.Fatalf("requests = %v, want %v", texts, want)
	}
	for i := range want {
		if texts[i] != want[i] {
			t.Errorf("request %d = %q, want %q", i, texts[i], want[i])
		}
	}
}

func TestEncode_DimensionMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"embedding": vectorOf(10)})
	}))
	defer srv.Close()

	c, _ := NewClient(srv.URL, 384, zerolog.Nop())
	if _, err := c.Encode(context.Background(), "text"); err == nil {
		t.Fatal("expected dimension mismatch error")
	}
}

func TestEncode_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model loading", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c, _ := NewClient(srv.URL, 384, zerolog.Nop())
	if _, err := c.Encode(context.Background(), "text"); err == nil {
		t.Fatal("expected error for 503 response")
	}
}
