package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"caster/internal/config"
)

// Requirement names one external binary caster shells out to.
type Requirement struct {
	Name        string
	Description string
	Command     string
	Optional    bool
}

// Status is the probe outcome for a single Requirement.
type Status struct {
	Requirement

	Available bool
	Version   string
	Detail    string
}

// Requirements lists the external binaries the streaming engine shells out
// to, resolved against the provided configuration.
func Requirements(cfg *config.Config) []Requirement {
	if cfg == nil {
		return nil
	}
	return []Requirement{
		{
			Name:        "FFmpeg",
			Description: "Required for HLS transcoding",
			Command:     cfg.FFmpegBinary(),
		},
		{
			Name:        "FFprobe",
			Description: "Inspects stream sources",
			Command:     cfg.FFprobeBinary(),
			Optional:    true,
		},
	}
}

// CheckBinaries runs a PATH lookup for every requirement.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		results = append(results, checkBinary(req))
	}
	return results
}

func checkBinary(req Requirement) Status {
	req.Command = strings.TrimSpace(req.Command)
	req.Description = strings.TrimSpace(req.Description)

	status := Status{Requirement: req}
	if req.Command == "" {
		status.Detail = "command not configured"
		return status
	}
	if _, err := exec.LookPath(req.Command); err != nil {
		status.Detail = fmt.Sprintf("binary %q not found", req.Command)
		return status
	}
	status.Available = true
	return status
}
