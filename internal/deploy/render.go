package deploy

import (
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"
)

const renderHeader = "# Build recipe for the caster streaming daemon.\n# Regenerate with \"caster deploy render\"; internal/deploy owns this file.\n"

// Render produces the Dockerfile text for the descriptor. Equal descriptors
// render equal bytes. A descriptor that fails Verify does not render.
func (d *Descriptor) Render() (string, error) {
	if violations := d.Verify(); len(violations) > 0 {
		return "", fmt.Errorf("descriptor fails conformance: %s", violations[0])
	}

	var b strings.Builder
	b.WriteString(renderHeader)
	b.WriteString("\n")

	fmt.Fprintf(&b, "FROM %s AS builder\n", d.BuilderImage)
	b.WriteString("WORKDIR /src\n")
	manifest := d.Manifest
	if d.Lockfile != "" {
		manifest += " " + d.Lockfile
	}
	fmt.Fprintf(&b, "COPY %s ./\n", manifest)
	if d.NoDependencyCache {
		b.WriteString("RUN go mod download\n")
	} else {
		b.WriteString("RUN --mount=type=cache,target=/go/pkg/mod go mod download\n")
	}
	b.WriteString("COPY . .\n")
	for _, bin := range d.Binaries {
		fmt.Fprintf(&b, "RUN CGO_ENABLED=0 go build -trimpath -o /out/%s ./cmd/%s\n", bin, bin)
	}

	b.WriteString("\n")
	fmt.Fprintf(&b, "FROM %s\n", d.BaseImage)
	if packages := dedupe(d.Packages); len(packages) > 0 {
		if d.PurgePackageCache {
			fmt.Fprintf(&b, "RUN apk add --no-cache %s\n", strings.Join(packages, " "))
		} else {
			fmt.Fprintf(&b, "RUN apk add %s\n", strings.Join(packages, " "))
		}
	}
	fmt.Fprintf(&b, "WORKDIR %s\n", d.WorkDir)
	for _, bin := range d.Binaries {
		fmt.Fprintf(&b, "COPY --from=builder /out/%s /usr/local/bin/%s\n", bin, bin)
	}
	fmt.Fprintf(&b, "EXPOSE %d\n", d.Port)
	fmt.Fprintf(&b, "CMD %s\n", execForm(d.Command))

	return b.String(), nil
}

// execForm renders a command slice as a Dockerfile exec-form array.
func execForm(cmd []string) string {
	quoted := make([]string, len(cmd))
	for i, c := range cmd {
		quoted[i] = strconv.Quote(c)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

// Parse reads a rendered recipe back into a Descriptor. It understands the
// shape Render emits, not arbitrary Dockerfiles; it exists so "caster deploy
// check" can verify a checked-in Dockerfile against the conformance rules.
func Parse(src string) (*Descriptor, error) {
	d := &Descriptor{}
	stage := 0
	sawManifestCopy := false

	for _, raw := range strings.Split(src, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		switch strings.ToUpper(fields[0]) {
		case "FROM":
			stage++
			if len(fields) >= 4 && strings.EqualFold(fields[2], "AS") {
				d.BuilderImage = fields[1]
			} else if len(fields) >= 2 {
				d.BaseImage = fields[1]
			}
		case "WORKDIR":
			if stage > 1 && len(fields) >= 2 {
				d.WorkDir = fields[1]
			}
		case "COPY":
			if stage == 1 && !sawManifestCopy && len(fields) >= 3 && fields[1] != "." && !strings.HasPrefix(fields[1], "--") {
				sawManifestCopy = true
				d.Manifest = fields[1]
				if len(fields) >= 4 {
					d.Lockfile = fields[2]
				}
			}
		case "RUN":
			rest := strings.TrimSpace(strings.TrimPrefix(line, fields[0]))
			switch {
			case strings.Contains(rest, "go mod download"):
				d.NoDependencyCache = !strings.Contains(rest, "--mount=type=cache")
			case strings.Contains(rest, "go build"):
				if name := buildOutputName(fields); name != "" {
					d.Binaries = append(d.Binaries, name)
				}
			case strings.Contains(rest, "apk add"):
				parseAPKAdd(fields, d)
			}
		case "EXPOSE":
			if len(fields) < 2 {
				return nil, errors.New("EXPOSE without a port")
			}
			port, err := strconv.Atoi(fields[1])
			if err != nil {
				return nil, fmt.Errorf("parse EXPOSE %q: %w", fields[1], err)
			}
			d.Port = port
		case "CMD":
			payload := strings.TrimSpace(strings.TrimPrefix(line, fields[0]))
			if err := json.Unmarshal([]byte(payload), &d.Command); err != nil {
				return nil, fmt.Errorf("parse CMD %s: %w", payload, err)
			}
		}
	}

	if stage == 0 {
		return nil, errors.New("no FROM instruction found")
	}
	return d, nil
}

// buildOutputName recovers the binary name from a "go build -o /out/name"
// instruction.
func buildOutputName(fields []string) string {
	for i, f := range fields {
		if f == "-o" && i+1 < len(fields) {
			return path.Base(fields[i+1])
		}
	}
	return ""
}

// parseAPKAdd collects package names and the cache flag from an apk add line.
func parseAPKAdd(fields []string, d *Descriptor) {
	start := 0
	for i, f := range fields {
		if f == "add" {
			start = i + 1
			break
		}
	}
	if start == 0 {
		return
	}
	for _, f := range fields[start:] {
		if f == "--no-cache" {
			d.PurgePackageCache = true
			continue
		}
		if strings.HasPrefix(f, "-") {
			continue
		}
		d.Packages = append(d.Packages, f)
	}
}
