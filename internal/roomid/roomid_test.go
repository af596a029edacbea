package roomid

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewShape(t *testing.T) {
	for i := 0; i < 100; i++ {
		id := New()
		parts := strings.Split(id, "-")
		if len(parts) != 4 {
			t.Fatalf("New() = %q, want four hyphenated words", id)
		}
		for _, p := range parts {
			if p == "" {
				t.Fatalf("New() = %q contains an empty segment", id)
			}
		}
	}
}

func TestNewVariety(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		seen[New()] = true
	}
	// 50 draws from a space in the hundreds of thousands; a handful of
	// repeats would already indicate a broken generator.
	if len(seen) < 45 {
		t.Fatalf("got %d distinct ids out of 50", len(seen))
	}
}

func TestHandlerAndFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(Handler))
	defer srv.Close()

	id, err := Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(strings.Split(id, "-")) != 4 {
		t.Fatalf("fetched id %q has unexpected shape", id)
	}
}

func TestHandlerRejectsPost(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(Handler))
	defer srv.Close()

	resp, err := http.Post(srv.URL, "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("POST status = %d, want %d", resp.StatusCode, http.StatusMethodNotAllowed)
	}
}
