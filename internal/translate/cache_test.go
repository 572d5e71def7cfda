package translate

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCache_SetGet(t *testing.T) {
	cache := NewCache(filepath.Join(t.TempDir(), "cache.json"))

	if _, ok := cache.Get("hello", "ko", "gpt-4o"); ok {
		t.Error("Expected miss on empty cache")
	}

	cache.Set("hello", "ko", "gpt-4o", "안녕")
	got, ok := cache.Get("hello", "ko", "gpt-4o")
	if !ok {
		t.Fatal("Expected hit after Set")
	}
	if got != "안녕" {
		t.Errorf("Expected cached translation, got %q", got)
	}
	if cache.Size() != 1 {
		t.Errorf("Expected size 1, got %d", cache.Size())
	}
}

// TestCache_KeyIncludesLanguageAndModel verifies the same source text
// cached for different languages or models does not collide.
func TestCache_KeyIncludesLanguageAndModel(t *testing.T) {
	cache := NewCache(filepath.Join(t.TempDir(), "cache.json"))

	cache.Set("hello", "ko", "gpt-4o", "korean")
	cache.Set("hello", "ja", "gpt-4o", "japanese")
	cache.Set("hello", "ko", "gpt-4o-mini", "korean-mini")

	if got, _ := cache.Get("hello", "ko", "gpt-4o"); got != "korean" {
		t.Errorf("ko/gpt-4o: got %q", got)
	}
	if got, _ := cache.Get("hello", "ja", "gpt-4o"); got != "japanese" {
		t.Errorf("ja/gpt-4o: got %q", got)
	}
	if got, _ := cache.Get("hello", "ko", "gpt-4o-mini"); got != "korean-mini" {
		t.Errorf("ko/gpt-4o-mini: got %q", got)
	}
	if cache.Size() != 3 {
		t.Errorf("Expected 3 distinct entries, got %d", cache.Size())
	}
}

func TestCache_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "cache.json")

	cache := NewCache(path)
	cache.Set("hello", "ko", "gpt-4o", "안녕")
	cache.Set("world", "ko", "gpt-4o", "세계")
	if err := cache.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	reloaded := NewCache(path)
	if err := reloaded.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if reloaded.Size() != 2 {
		t.Errorf("Expected 2 entries after reload, got %d", reloaded.Size())
	}
	if got, ok := reloaded.Get("hello", "ko", "gpt-4o"); !ok || got != "안녕" {
		t.Errorf("Expected reloaded entry, got %q (hit=%v)", got, ok)
	}
}

func TestCache_LoadMissingFile(t *testing.T) {
	cache := NewCache(filepath.Join(t.TempDir(), "does-not-exist.json"))
	if err := cache.Load(); err != nil {
		t.Errorf("Expected missing cache file to be tolerated, got %v", err)
	}
	if cache.Size() != 0 {
		t.Errorf("Expected empty cache, got %d entries", cache.Size())
	}
}

func TestCache_LoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatalf("Failed to write corrupt file: %v", err)
	}

	cache := NewCache(path)
	if err := cache.Load(); err == nil {
		t.Error("Expected error for corrupt cache file")
	}
}

func TestCache_Clear(t *testing.T) {
	cache := NewCache(filepath.Join(t.TempDir(), "cache.json"))
	cache.Set("hello", "ko", "gpt-4o", "안녕")
	cache.Clear()
	if cache.Size() != 0 {
		t.Errorf("Expected empty cache after Clear, got %d", cache.Size())
	}
}

func TestComputeHash(t *testing.T) {
	a := computeHash("text", "ko", "gpt-4o")
	b := computeHash("text", "ko", "gpt-4o")
	if a != b {
		t.Error("Expected stable hash for identical input")
	}
	if len(a) != 64 {
		t.Errorf("Expected 64 hex chars, got %d", len(a))
	}

	// Field boundaries matter: moving a character between fields must
	// change the key.
	if computeHash("ab", "c", "m") == computeHash("a", "bc", "m") {
		t.Error("Expected field separation in the hash")
	}
}
