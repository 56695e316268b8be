package store_test

import (
	"context"
	"fmt"

	"github.com/jonwraymond/engineops/store"
)

func ExampleNewMemoryStore() {
	s := store.NewMemoryStore(0) // default capacity
	ctx := context.Background()

	// Store a value
	s.Set(ctx, "compile:abc", "compiled output", 0)

	// Retrieve the value
	value, ok := s.Get(ctx, "compile:abc")
	if ok {
		fmt.Println("Value:", value)
	}
	// Output:
	// Value: compiled output
}

func ExampleMemoryStore_Get() {
	s := store.NewMemoryStore(0)
	ctx := context.Background()

	// Miss - key doesn't exist
	_, ok := s.Get(ctx, "missing")
	fmt.Println("Missing key found:", ok)

	s.Set(ctx, "exists", "data", 0)
	value, ok := s.Get(ctx, "exists")
	fmt.Println("Existing key found:", ok)
	fmt.Println("Value:", value)
	// Output:
	// Missing key found: false
	// Existing key found: true
	// Value: data
}

func ExampleNewRedisStore() {
	s, err := store.NewRedisStore(store.RedisConfig{
		Addr:          "localhost:6379",
		ServerVersion: "1.4.2",
	})
	if err != nil {
		fmt.Println("config error:", err)
		return
	}
	ctx := context.Background()

	// Operations soft-fail while the connection is down: a Get simply
	// misses, and a Set is dropped after logging.
	_, ok := s.Get(ctx, "compile:abc")
	fmt.Println("Hit while disconnected:", ok)

	_ = s.Shutdown(ctx)
	// Output:
	// Hit while disconnected: false
}
