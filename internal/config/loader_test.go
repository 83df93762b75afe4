package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Semphriss/SDL/internal/process"
)

func writeManifest(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "proc.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return path
}

func TestLoadFullManifest(t *testing.T) {
	t.Setenv("CONFIG_TEST_VALUE", "expanded")

	path := writeManifest(t, `
process:
  command: ["/bin/cat", "-"]
  env:
    MARKER: ${CONFIG_TEST_VALUE}
  inheritEnv: false
  stdio:
    stdin: pipe
    stdout: pipe
    stderr: stdout
`)

	spec, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if len(spec.Command) != 2 || spec.Command[0] != "/bin/cat" {
		t.Fatalf("unexpected command %v", spec.Command)
	}
	if spec.Env["MARKER"] != "expanded" {
		t.Fatalf("env value not expanded: %q", spec.Env["MARKER"])
	}

	flags := spec.Flags()
	want := process.Stdin | process.Stdout | process.Stderr | process.StderrToStdout
	if flags != want {
		t.Fatalf("flags = %b, want %b", flags, want)
	}

	env := spec.Environ()
	if len(env) != 1 || env[0] != "MARKER=expanded" {
		t.Fatalf("environ with inheritEnv=false: %v", env)
	}
}

func TestLoadDefaults(t *testing.T) {
	path := writeManifest(t, `
process:
  command: ["/bin/true"]
`)

	spec, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if spec.Stdio.Stdin != StdioInherit || spec.Stdio.Stdout != StdioInherit || spec.Stdio.Stderr != StdioInherit {
		t.Fatalf("stdio defaults not applied: %+v", spec.Stdio)
	}
	if spec.Flags() != 0 {
		t.Fatalf("expected no redirection flags, got %b", spec.Flags())
	}
	if env := spec.Environ(); env != nil {
		t.Fatalf("expected nil environ (inherit unmodified), got %v", env)
	}
}

func TestEnvironMergesParentAndManifest(t *testing.T) {
	t.Setenv("CONFIG_TEST_PARENT", "from-parent")

	spec := &Spec{
		Command: []string{"/bin/true"},
		Env:     map[string]string{"CONFIG_TEST_PARENT": "overridden", "EXTRA": "1"},
	}
	spec.ApplyDefaults()

	env := spec.Environ()
	var sawOverride, sawExtra bool
	for _, entry := range env {
		switch entry {
		case "CONFIG_TEST_PARENT=overridden":
			sawOverride = true
		case "EXTRA=1":
			sawExtra = true
		case "CONFIG_TEST_PARENT=from-parent":
			t.Fatal("manifest entry did not override parent value")
		}
	}
	if !sawOverride || !sawExtra {
		t.Fatalf("merged environ missing entries: %v", env)
	}
}

func TestLoadRejectsInvalidManifests(t *testing.T) {
	cases := []struct {
		name     string
		contents string
		fragment string
	}{
		{
			name:     "missing command",
			contents: "process: {}\n",
			fragment: "schema validation failed",
		},
		{
			name:     "empty command",
			contents: "process:\n  command: []\n",
			fragment: "schema validation failed",
		},
		{
			name:     "unknown field",
			contents: "process:\n  command: [\"/bin/true\"]\n  restart: always\n",
			fragment: "schema validation failed",
		},
		{
			name:     "bad stdio disposition",
			contents: "process:\n  command: [\"/bin/true\"]\n  stdio:\n    stdout: tee\n",
			fragment: "schema validation failed",
		},
		{
			name:     "stderr merge without stdout pipe",
			contents: "process:\n  command: [\"/bin/true\"]\n  stdio:\n    stderr: stdout\n",
			fragment: `requires stdout to be "pipe"`,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeManifest(t, tc.contents)
			_, err := Load(path)
			if err == nil {
				t.Fatal("expected load to fail")
			}
			if !strings.Contains(err.Error(), tc.fragment) {
				t.Fatalf("error %q does not mention %q", err, tc.fragment)
			}
		})
	}
}
