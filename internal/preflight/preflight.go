package preflight

import (
	"context"

	"caster/internal/config"
)

// Result is one preflight check outcome shown to the operator.
type Result struct {
	Name   string
	Passed bool
	// Detail carries the probed path, version found, or failure reason.
	Detail string
}

// RunAll executes the startup checks for the given config: the directories
// the daemon writes into, the catalog database, and the transcoder binary.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	return []Result{
		CheckDirectoryAccess("Live directory", cfg.Paths.LiveDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckDatabase(ctx, cfg.Paths.Database),
		CheckTranscoder(ctx, cfg),
	}
}

// Passed reports whether every mandatory check in results succeeded.
func Passed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return true
}
