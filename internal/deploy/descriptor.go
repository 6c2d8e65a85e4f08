package deploy

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Descriptor is the declarative build and launch recipe for the daemon
// image. Every field is a build-time literal; nothing here is read at
// container runtime.
type Descriptor struct {
	// BuilderImage compiles the binaries in the first stage.
	BuilderImage string `yaml:"builder_image"`
	// BaseImage is the minimal runtime image the final stage starts from.
	BaseImage string `yaml:"base_image"`
	// Binaries names the cmd/ programs compiled into the image.
	Binaries []string `yaml:"binaries"`
	// Packages is the OS package set installed into the runtime stage.
	Packages []string `yaml:"packages"`
	// PurgePackageCache drops the package manager's cache and index data
	// after installation to keep the image small.
	PurgePackageCache bool `yaml:"purge_package_cache"`
	// Manifest is the dependency manifest copied and resolved before any
	// source is staged, so a missing manifest fails the build early.
	Manifest string `yaml:"manifest"`
	// Lockfile accompanies the manifest when the toolchain uses one.
	Lockfile string `yaml:"lockfile,omitempty"`
	// NoDependencyCache resolves dependencies without a shared build cache,
	// trading build speed for a clean set per build.
	NoDependencyCache bool `yaml:"no_dependency_cache"`
	// WorkDir is the working directory of the runtime stage.
	WorkDir string `yaml:"workdir"`
	// Port is the declared (informational) port; it must match the port
	// flag in Command.
	Port int `yaml:"port"`
	// Command is the exec-form startup invocation. Its exit ends the
	// container.
	Command []string `yaml:"command"`
}

// Default returns the repository's shipped recipe. Rendering it reproduces
// the checked-in root Dockerfile.
func Default() *Descriptor {
	return &Descriptor{
		BuilderImage:      "golang:1.26-alpine",
		BaseImage:         "alpine:3.22",
		Binaries:          []string{"casterd", "caster"},
		Packages:          []string{"ffmpeg", "procps"},
		PurgePackageCache: true,
		Manifest:          "go.mod",
		Lockfile:          "go.sum",
		NoDependencyCache: true,
		WorkDir:           "/app",
		Port:              10000,
		Command:           []string{"casterd", "--host", "0.0.0.0", "--port", "10000", "--workers", "1"},
	}
}

// Violation describes one conformance defect in a descriptor.
type Violation struct {
	Field  string
	Detail string
}

func (v Violation) String() string {
	return v.Field + ": " + v.Detail
}

// Verify statically checks the descriptor's literal values. It returns one
// violation per defect and nil for a conforming descriptor.
func (d *Descriptor) Verify() []Violation {
	var violations []Violation
	add := func(field, detail string) {
		violations = append(violations, Violation{Field: field, Detail: detail})
	}

	if strings.TrimSpace(d.BuilderImage) == "" {
		add("builder_image", "builder image not declared")
	}
	if strings.TrimSpace(d.BaseImage) == "" {
		add("base_image", "base image not declared")
	}
	if len(d.Binaries) == 0 {
		add("binaries", "no binaries to build")
	}
	if strings.TrimSpace(d.Manifest) == "" {
		add("manifest", "dependency manifest not declared")
	}
	if strings.TrimSpace(d.WorkDir) == "" {
		add("workdir", "working directory not declared")
	}
	if d.Port < 1 || d.Port > 65535 {
		add("port", fmt.Sprintf("port %d outside 1-65535", d.Port))
	}
	if len(d.Command) == 0 {
		add("command", "startup command is empty")
	} else if port, ok := commandFlag(d.Command, "--port"); !ok {
		add("command", "startup command declares no --port flag")
	} else if port != strconv.Itoa(d.Port) {
		add("command", fmt.Sprintf("startup command binds port %s but the image exposes %d", port, d.Port))
	}
	return violations
}

// commandFlag extracts the value of a flag from an exec-form command,
// accepting both "--flag value" and "--flag=value".
func commandFlag(cmd []string, name string) (string, bool) {
	for i, arg := range cmd {
		if arg == name && i+1 < len(cmd) {
			return cmd[i+1], true
		}
		if value, ok := strings.CutPrefix(arg, name+"="); ok {
			return value, true
		}
	}
	return "", false
}

// Load reads a YAML descriptor file.
func Load(path string) (*Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read descriptor: %w", err)
	}
	var d Descriptor
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parse descriptor %s: %w", path, err)
	}
	return &d, nil
}

// Save writes the descriptor as YAML.
func (d *Descriptor) Save(path string) error {
	data, err := yaml.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode descriptor: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write descriptor: %w", err)
	}
	return nil
}

// FromFile loads a descriptor from either a YAML descriptor file or a
// rendered Dockerfile, keyed off the file extension.
func FromFile(path string) (*Descriptor, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return Load(path)
	default:
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read recipe: %w", err)
		}
		return Parse(string(data))
	}
}

// dedupe drops blank and repeated entries, keeping first-occurrence order.
func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
