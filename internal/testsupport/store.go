package testsupport

import (
	"context"
	"testing"

	"caster/internal/config"
	"caster/internal/library"
)

// MustOpenStore opens the catalog store backing cfg and closes it when the
// test finishes.
func MustOpenStore(tb testing.TB, cfg *config.Config) *library.Store {
	tb.Helper()

	store, err := library.Open(cfg)
	if err != nil {
		tb.Fatalf("open catalog store: %v", err)
	}
	tb.Cleanup(func() { _ = store.Close() })
	return store
}

// AddMedia inserts a catalog entry and fails the test on error.
func AddMedia(tb testing.TB, store *library.Store, title, url string) *library.Media {
	tb.Helper()

	media, err := store.AddMedia(context.Background(), &library.Media{Title: title, URL: url})
	if err != nil {
		tb.Fatalf("add media %q: %v", title, err)
	}
	return media
}
