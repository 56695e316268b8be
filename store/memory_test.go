package store

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestMemoryStore_GetSetRemove(t *testing.T) {
	s := NewMemoryStore(0)
	ctx := context.Background()

	// Get on empty store
	val, ok := s.Get(ctx, "nonexistent")
	if ok {
		t.Error("Get on empty store should return ok=false")
	}
	if val != "" {
		t.Error("Get on empty store should return empty value")
	}

	// Set then Get
	s.Set(ctx, "k", "v", 0)
	got, ok := s.Get(ctx, "k")
	if !ok {
		t.Error("Get after Set should return ok=true")
	}
	if got != "v" {
		t.Errorf("Get returned %q, want %q", got, "v")
	}

	// Set overwrites
	s.Set(ctx, "k", "v2", 0)
	got, _ = s.Get(ctx, "k")
	if got != "v2" {
		t.Errorf("Get after overwrite returned %q, want %q", got, "v2")
	}
	if s.Len() != 1 {
		t.Errorf("Len after overwrite = %d, want 1", s.Len())
	}

	// Remove
	s.Remove(ctx, "k")
	if _, ok := s.Get(ctx, "k"); ok {
		t.Error("Get after Remove should return ok=false")
	}

	// Remove is idempotent
	s.Remove(ctx, "k")
}

func TestMemoryStore_ExpirationIgnored(t *testing.T) {
	s := NewMemoryStore(4)
	ctx := context.Background()

	s.Set(ctx, "k", "v", 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)

	// No expiration logic: the entry is still there.
	if _, ok := s.Get(ctx, "k"); !ok {
		t.Error("entry should survive its advisory expiration")
	}
}

func TestMemoryStore_EvictsLeastRecentlyUsed(t *testing.T) {
	s := NewMemoryStore(3)
	ctx := context.Background()

	s.Set(ctx, "a", "1", 0)
	s.Set(ctx, "b", "2", 0)
	s.Set(ctx, "c", "3", 0)

	// Touch "a" so "b" becomes the least recently used.
	if _, ok := s.Get(ctx, "a"); !ok {
		t.Fatal("expected hit for a")
	}

	s.Set(ctx, "d", "4", 0)

	if _, ok := s.Get(ctx, "b"); ok {
		t.Error("b should have been evicted")
	}
	for _, key := range []string{"a", "c", "d"} {
		if _, ok := s.Get(ctx, key); !ok {
			t.Errorf("%s should still be present", key)
		}
	}
	if s.Len() != 3 {
		t.Errorf("Len = %d, want 3", s.Len())
	}
}

func TestMemoryStore_CapacityBound(t *testing.T) {
	s := NewMemoryStore(8)
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		s.Set(ctx, fmt.Sprintf("key-%d", i), "v", 0)
	}
	if s.Len() != 8 {
		t.Errorf("Len = %d, want 8", s.Len())
	}

	// The most recent entries survive.
	for i := 92; i < 100; i++ {
		if _, ok := s.Get(ctx, fmt.Sprintf("key-%d", i)); !ok {
			t.Errorf("key-%d should still be present", i)
		}
	}
}

func TestMemoryStore_InvalidKeyIgnored(t *testing.T) {
	s := NewMemoryStore(4)
	ctx := context.Background()

	s.Set(ctx, "", "v", 0)
	s.Set(ctx, "bad\nkey", "v", 0)
	if s.Len() != 0 {
		t.Errorf("invalid keys should not be stored, Len = %d", s.Len())
	}
}

func TestMemoryStore_Shutdown(t *testing.T) {
	s := NewMemoryStore(4)
	ctx := context.Background()

	if err := s.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	// Idempotent
	if err := s.Shutdown(ctx); err != nil {
		t.Fatalf("second Shutdown failed: %v", err)
	}
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	s := NewMemoryStore(32)
	ctx := context.Background()

	const numGoroutines = 50
	const opsPerGoroutine = 500

	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			defer wg.Done()
			for j := 0; j < opsPerGoroutine; j++ {
				key := fmt.Sprintf("key-%d", j%64)
				switch j % 3 {
				case 0:
					s.Set(ctx, key, "v", 0)
				case 1:
					s.Get(ctx, key)
				case 2:
					s.Remove(ctx, key)
				}
			}
		}(i)
	}

	wg.Wait()
}

func TestValidateKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr error
	}{
		{"valid", "compile:v1:source:abc", nil},
		{"empty", "", ErrInvalidKey},
		{"whitespace", "   ", ErrInvalidKey},
		{"newline", "a\nb", ErrInvalidKey},
		{"carriage return", "a\rb", ErrInvalidKey},
		{"too long", strings.Repeat("k", MaxKeyLength+1), ErrKeyTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateKey(tt.key)
			if err != tt.wantErr {
				t.Errorf("ValidateKey(%q) = %v, want %v", tt.key, err, tt.wantErr)
			}
		})
	}
}
