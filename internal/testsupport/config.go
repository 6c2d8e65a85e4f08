package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"caster/internal/config"
)

// ConfigOption customizes the generated test configuration.
type ConfigOption func(tb testing.TB, base string, cfg *config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(tb testing.TB, opts ...ConfigOption) *config.Config {
	tb.Helper()

	base := tb.TempDir()
	cfg := config.Default()
	cfg.Paths.LiveDir = filepath.Join(base, "live")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.Database = filepath.Join(base, "library.db")
	cfg.Paths.APIBind = "127.0.0.1:0"

	for _, opt := range opts {
		opt(tb, base, &cfg)
	}
	return &cfg
}

// WithAPIToken sets the HTTP API bearer token on the test config.
func WithAPIToken(token string) ConfigOption {
	return func(_ testing.TB, _ string, cfg *config.Config) {
		cfg.Paths.APIToken = token
	}
}

// WithStubbedBinaries drops always-succeeding stub executables on PATH for
// the given names. With no names, the external binaries caster shells out to
// are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(tb testing.TB, base string, _ *config.Config) {
		if len(names) == 0 {
			names = []string{"ffmpeg", "ffprobe"}
		}
		binDir := filepath.Join(base, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			tb.Fatalf("mkdir bin dir: %v", err)
		}
		for _, name := range names {
			stub := filepath.Join(binDir, name)
			if err := os.WriteFile(stub, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
				tb.Fatalf("write stub %s: %v", name, err)
			}
		}
		tb.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
}
