package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/Semphriss/SDL/internal/process"
)

// Stdio dispositions accepted by the manifest.
const (
	StdioInherit = "inherit"
	StdioPipe    = "pipe"
	StdioStdout  = "stdout"
)

// Document is the root of a process manifest.
type Document struct {
	Process Spec `yaml:"process"`
}

// Spec describes one child process launch.
type Spec struct {
	// Command is the argv to execute. Command[0] must be a directly
	// resolvable path; no PATH search is performed.
	Command []string `yaml:"command"`

	// Env holds extra NAME=VALUE pairs. Values are expanded against the
	// parent environment at load time.
	Env map[string]string `yaml:"env"`

	// InheritEnv controls whether the parent's environment is passed
	// through. Defaults to true.
	InheritEnv *bool `yaml:"inheritEnv"`

	// Stdio selects the disposition of each standard stream.
	Stdio Stdio `yaml:"stdio"`
}

// Stdio selects per-stream dispositions: "pipe" routes the stream through a
// pipe, "inherit" leaves it on the parent's descriptor, and "stdout" (stderr
// only) merges stderr into the stdout pipe.
type Stdio struct {
	Stdin  string `yaml:"stdin"`
	Stdout string `yaml:"stdout"`
	Stderr string `yaml:"stderr"`
}

// ApplyDefaults fills unset fields with their documented defaults.
func (s *Spec) ApplyDefaults() {
	if s.Stdio.Stdin == "" {
		s.Stdio.Stdin = StdioInherit
	}
	if s.Stdio.Stdout == "" {
		s.Stdio.Stdout = StdioInherit
	}
	if s.Stdio.Stderr == "" {
		s.Stdio.Stderr = StdioInherit
	}
	if s.InheritEnv == nil {
		inherit := true
		s.InheritEnv = &inherit
	}
}

// Validate checks constraints the JSON schema cannot express.
func (s *Spec) Validate() error {
	if len(s.Command) == 0 {
		return fmt.Errorf("process.command must not be empty")
	}
	if s.Command[0] == "" {
		return fmt.Errorf("process.command[0] must name an executable")
	}
	switch s.Stdio.Stdin {
	case StdioInherit, StdioPipe:
	default:
		return fmt.Errorf("process.stdio.stdin: unknown disposition %q", s.Stdio.Stdin)
	}
	switch s.Stdio.Stdout {
	case StdioInherit, StdioPipe:
	default:
		return fmt.Errorf("process.stdio.stdout: unknown disposition %q", s.Stdio.Stdout)
	}
	switch s.Stdio.Stderr {
	case StdioInherit, StdioPipe:
	case StdioStdout:
		if s.Stdio.Stdout != StdioPipe {
			return fmt.Errorf("process.stdio.stderr: %q requires stdout to be %q", StdioStdout, StdioPipe)
		}
	default:
		return fmt.Errorf("process.stdio.stderr: unknown disposition %q", s.Stdio.Stderr)
	}
	return nil
}

// Flags translates the stdio dispositions into redirection flags.
func (s *Spec) Flags() process.Flags {
	var flags process.Flags
	if s.Stdio.Stdin == StdioPipe {
		flags |= process.Stdin
	}
	if s.Stdio.Stdout == StdioPipe {
		flags |= process.Stdout
	}
	switch s.Stdio.Stderr {
	case StdioPipe:
		flags |= process.Stderr
	case StdioStdout:
		flags |= process.Stderr | process.StderrToStdout
	}
	return flags
}

// Environ builds the NAME=VALUE list handed to the spawn call. A nil result
// means the child inherits the parent's environment unmodified.
func (s *Spec) Environ() []string {
	inherit := s.InheritEnv == nil || *s.InheritEnv
	if inherit && len(s.Env) == 0 {
		return nil
	}

	merged := make(map[string]string)
	if inherit {
		for _, entry := range os.Environ() {
			if name, value, ok := strings.Cut(entry, "="); ok {
				merged[name] = value
			}
		}
	}
	for name, value := range s.Env {
		merged[name] = value
	}

	entries := make([]string, 0, len(merged))
	for name, value := range merged {
		entries = append(entries, name+"="+value)
	}
	sort.Strings(entries)
	return entries
}
