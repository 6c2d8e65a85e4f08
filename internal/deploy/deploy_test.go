package deploy

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestRenderIsDeterministic(t *testing.T) {
	first, err := Default().Render()
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	second, err := Default().Render()
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if first != second {
		t.Fatal("equal descriptors must render equal bytes")
	}
}

func TestRenderMatchesCheckedInDockerfile(t *testing.T) {
	rendered, err := Default().Render()
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	shipped, err := os.ReadFile(filepath.Join("..", "..", "Dockerfile"))
	if err != nil {
		t.Fatalf("read shipped Dockerfile: %v", err)
	}
	if rendered != string(shipped) {
		t.Fatal("the checked-in Dockerfile drifted from Default(); run \"caster deploy render\"")
	}
}

func TestRenderStagesManifestBeforeSource(t *testing.T) {
	rendered, err := Default().Render()
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	manifestCopy := strings.Index(rendered, "COPY go.mod go.sum ./")
	download := strings.Index(rendered, "RUN go mod download")
	sourceCopy := strings.Index(rendered, "COPY . .")
	if manifestCopy < 0 || download < 0 || sourceCopy < 0 {
		t.Fatalf("rendered recipe missing expected steps:\n%s", rendered)
	}
	if !(manifestCopy < download && download < sourceCopy) {
		t.Fatal("manifest must be copied and resolved before source is staged")
	}
}

func TestRenderPurgesPackageCache(t *testing.T) {
	rendered, err := Default().Render()
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(rendered, "RUN apk add --no-cache ffmpeg procps") {
		t.Fatalf("expected a cache-free package install, got:\n%s", rendered)
	}

	d := Default()
	d.PurgePackageCache = false
	rendered, err = d.Render()
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(rendered, "--no-cache") {
		t.Fatal("cache purge rendered despite being disabled")
	}
}

func TestRenderDeduplicatesPackages(t *testing.T) {
	d := Default()
	d.Packages = []string{"ffmpeg", "procps", "ffmpeg", " ", "procps"}
	rendered, err := d.Render()
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(rendered, "RUN apk add --no-cache ffmpeg procps\n") {
		t.Fatalf("expected duplicates collapsed, got:\n%s", rendered)
	}
}

func TestRenderRejectsNonConformingDescriptor(t *testing.T) {
	d := Default()
	d.Manifest = ""
	if _, err := d.Render(); err == nil {
		t.Fatal("expected render to refuse a descriptor without a manifest")
	}
}

func TestParseRoundTripsDefault(t *testing.T) {
	rendered, err := Default().Render()
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	parsed, err := Parse(rendered)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !reflect.DeepEqual(parsed, Default()) {
		t.Fatalf("round trip drifted:\n got %#v\nwant %#v", parsed, Default())
	}
}

func TestParseRejectsEmptyRecipe(t *testing.T) {
	if _, err := Parse("# nothing here\n"); err == nil {
		t.Fatal("expected an error for a recipe without FROM")
	}
}

func TestParseRejectsMalformedCMD(t *testing.T) {
	src := "FROM alpine:3.22\nCMD [\"unterminated\n"
	if _, err := Parse(src); err == nil {
		t.Fatal("expected an error for malformed exec-form CMD")
	}
}

func TestVerifyAcceptsDefault(t *testing.T) {
	if violations := Default().Verify(); len(violations) != 0 {
		t.Fatalf("default descriptor must conform, got %v", violations)
	}
}

func TestVerifyFlagsPortDivergence(t *testing.T) {
	d := Default()
	d.Port = 9000
	violations := d.Verify()
	if len(violations) != 1 {
		t.Fatalf("expected exactly one violation, got %v", violations)
	}
	if violations[0].Field != "command" || !strings.Contains(violations[0].Detail, "9000") {
		t.Fatalf("unexpected violation: %v", violations[0])
	}
}

func TestVerifyFlagsMissingPortFlag(t *testing.T) {
	d := Default()
	d.Command = []string{"casterd"}
	violations := d.Verify()
	if len(violations) == 0 {
		t.Fatal("expected a violation for a command without a port flag")
	}
}

func TestVerifyAcceptsEqualsFormPortFlag(t *testing.T) {
	d := Default()
	d.Command = []string{"casterd", "--host=0.0.0.0", "--port=10000", "--workers=1"}
	if violations := d.Verify(); len(violations) != 0 {
		t.Fatalf("expected --port=10000 to satisfy the port invariant, got %v", violations)
	}
}

func TestVerifyFlagsMissingManifest(t *testing.T) {
	d := Default()
	d.Manifest = "   "
	violations := d.Verify()
	if len(violations) == 0 {
		t.Fatal("expected a violation for a missing manifest")
	}
	if violations[0].Field != "manifest" {
		t.Fatalf("unexpected violation: %v", violations[0])
	}
}

func TestVerifyCollectsMultipleViolations(t *testing.T) {
	d := &Descriptor{}
	violations := d.Verify()
	if len(violations) < 5 {
		t.Fatalf("expected the empty descriptor to fail broadly, got %v", violations)
	}
}

func TestYAMLRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deploy.yaml")
	if err := Default().Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(loaded, Default()) {
		t.Fatalf("yaml round trip drifted:\n got %#v\nwant %#v", loaded, Default())
	}
}

func TestFromFileSelectsFormat(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "deploy.yaml")
	if err := Default().Save(yamlPath); err != nil {
		t.Fatalf("save: %v", err)
	}
	fromYAML, err := FromFile(yamlPath)
	if err != nil {
		t.Fatalf("from yaml: %v", err)
	}
	if fromYAML.BaseImage != Default().BaseImage {
		t.Fatalf("unexpected yaml descriptor: %#v", fromYAML)
	}

	rendered, err := Default().Render()
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	dockerfilePath := filepath.Join(dir, "Dockerfile")
	if err := os.WriteFile(dockerfilePath, []byte(rendered), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	fromDockerfile, err := FromFile(dockerfilePath)
	if err != nil {
		t.Fatalf("from dockerfile: %v", err)
	}
	if !reflect.DeepEqual(fromDockerfile, Default()) {
		t.Fatalf("dockerfile descriptor drifted: %#v", fromDockerfile)
	}
}
