package process

import (
	"fmt"
	"os"
	"strings"

	"github.com/Semphriss/SDL/internal/metrics"
	"github.com/Semphriss/SDL/internal/props"
)

// Flags selects which of the child's standard streams are routed through
// pipes instead of being inherited from the parent.
type Flags uint32

const (
	// Stdin creates a pipe to the child's standard input.
	Stdin Flags = 1 << iota
	// Stdout creates a pipe from the child's standard output.
	Stdout
	// Stderr creates a pipe from the child's standard error.
	Stderr
	// StderrToStdout routes the child's standard error into the stdout
	// pipe. It takes precedence over Stderr and requires Stdout; no
	// independent stderr pipe or stream is created.
	StderrToStdout
	// ErrorsToStderr additionally reports launch failures on the parent's
	// standard error.
	ErrorsToStderr
)

// Property keys under which stream adapters are registered in a handle's bag.
const (
	PropStdin  = "process.stdin"
	PropStdout = "process.stdout"
	PropStderr = "process.stderr"
)

// Status describes the observed state of a child process.
type Status struct {
	// Exited reports whether the child has terminated.
	Exited bool
	// Code is the child's exit code. Valid only when Exited is true and
	// Signaled is false.
	Code int
	// Signaled reports that the child was terminated by a signal. Always
	// false on Windows.
	Signaled bool
	// Signal is the terminating signal number when Signaled is true.
	Signal int
}

// Handle references exactly one spawned child process and owns its lifetime
// accounting. Handles are not safe for concurrent use.
type Handle struct {
	flags     Flags
	bag       *props.Bag
	sys       sysProcess
	waited    bool
	status    Status
	destroyed bool
}

// Spawn creates a child process running args with the provided environment.
// args[0] is the path to the executable and must be directly resolvable; no
// PATH search is performed. A nil env means the child inherits the parent's
// environment unmodified; a non-nil env replaces it entirely. For each
// redirection requested in flags, a stream adapter is registered in the
// handle's property bag under the corresponding Prop key.
func Spawn(args []string, env []string, flags Flags) (*Handle, error) {
	if err := validateSpawn(args, env, flags); err != nil {
		return nil, err
	}

	// Allocate the handle and bag before any pipe or process creation so
	// a failure here cannot orphan a running child.
	h := &Handle{flags: flags, bag: props.New()}

	pipes, err := newPipeSet(flags)
	if err != nil {
		metrics.SpawnFailed()
		return nil, err
	}

	if err := h.spawn(args, env, pipes); err != nil {
		pipes.closeAll()
		metrics.SpawnFailed()
		h.reportLaunchError(err)
		return nil, err
	}

	// The child owns its ends now; closing them in the parent lets EOF
	// propagate once the child exits.
	pipes.closeChildEnds()
	h.attachStreams(pipes)
	metrics.ProcessSpawned()
	return h, nil
}

// reportLaunchError honors ErrorsToStderr by echoing launch failures on the
// parent's standard error, where the child's own diagnostics would have gone.
func (h *Handle) reportLaunchError(err error) {
	if h.flags&ErrorsToStderr != 0 {
		fmt.Fprintf(os.Stderr, "spawn: %v\n", err)
	}
}

func validateSpawn(args []string, env []string, flags Flags) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: empty argument list", ErrInvalidArgument)
	}
	if args[0] == "" {
		return fmt.Errorf("%w: empty executable path", ErrInvalidArgument)
	}
	for _, arg := range args {
		if strings.IndexByte(arg, 0) >= 0 {
			return fmt.Errorf("%w: argument contains NUL byte", ErrInvalidArgument)
		}
	}
	for _, entry := range env {
		if strings.IndexByte(entry, 0) >= 0 {
			return fmt.Errorf("%w: environment entry contains NUL byte", ErrInvalidArgument)
		}
		if !strings.Contains(entry, "=") {
			return fmt.Errorf("%w: environment entry %q is not NAME=VALUE", ErrInvalidArgument, entry)
		}
	}
	if flags&StderrToStdout != 0 && flags&Stdout == 0 {
		return fmt.Errorf("%w: merging stderr into stdout requires a stdout pipe", ErrInvalidArgument)
	}
	return nil
}

func (h *Handle) attachStreams(p *pipeSet) {
	if f := p.stdinFile(); f != nil {
		h.bag.Set(PropStdin, newStream(h, PropStdin, WriteOnly, f))
		metrics.StreamOpened()
	}
	if f := p.stdoutFile(); f != nil {
		h.bag.Set(PropStdout, newStream(h, PropStdout, ReadOnly, f))
		metrics.StreamOpened()
	}
	if f := p.stderrFile(); f != nil {
		h.bag.Set(PropStderr, newStream(h, PropStderr, ReadOnly, f))
		metrics.StreamOpened()
	}
}

// Pid returns the operating system process id of the child.
func (h *Handle) Pid() int {
	if h == nil {
		return -1
	}
	return h.sys.pid
}

// Flags returns the redirection flags the handle was created with.
func (h *Handle) Flags() Flags {
	return h.flags
}

// Properties exposes the handle's property bag. Stream adapters are
// registered under the Prop keys for each requested redirection.
func (h *Handle) Properties() *props.Bag {
	return h.bag
}

// Stdin returns the write-only stream connected to the child's standard
// input.
func (h *Handle) Stdin() (*Stream, error) {
	return h.stream(PropStdin, Stdin)
}

// Stdout returns the read-only stream connected to the child's standard
// output.
func (h *Handle) Stdout() (*Stream, error) {
	return h.stream(PropStdout, Stdout)
}

// Stderr returns the read-only stream connected to the child's standard
// error. When stderr is merged into stdout there is no separate stderr
// stream.
func (h *Handle) Stderr() (*Stream, error) {
	if h != nil && !h.destroyed && h.flags&StderrToStdout != 0 {
		return nil, fmt.Errorf("%w: stderr is merged into stdout", ErrCapabilityDenied)
	}
	return h.stream(PropStderr, Stderr)
}

func (h *Handle) stream(key string, flag Flags) (*Stream, error) {
	if err := h.valid(); err != nil {
		return nil, err
	}
	if h.flags&flag == 0 {
		return nil, fmt.Errorf("%w: %s was not redirected", ErrCapabilityDenied, key)
	}
	value, ok := h.bag.Get(key)
	if !ok {
		return nil, fmt.Errorf("%w: no such stream %s", ErrAlreadyClosed, key)
	}
	return value.(*Stream), nil
}

// Kill requests termination of the child. With force=false a graceful
// termination is requested (SIGTERM on Unix; Windows terminates immediately
// in both modes). With force=true the child is terminated immediately. A
// failure, such as the child having already exited, surfaces the OS error.
func (h *Handle) Kill(force bool) error {
	if err := h.valid(); err != nil {
		return err
	}
	return h.kill(force)
}

// Wait reports whether the child has exited, reaping it if so. With
// block=true the call does not return until the child terminates. With
// block=false a still-running child is reported as Status{Exited: false}
// without blocking. Once an exit has been observed the terminal status is
// retained and subsequent calls return it without error.
func (h *Handle) Wait(block bool) (Status, error) {
	if err := h.valid(); err != nil {
		return Status{}, err
	}
	if h.waited {
		return h.status, nil
	}
	st, err := h.wait(block)
	if err != nil {
		return Status{}, err
	}
	if st.Exited {
		h.waited = true
		h.status = st
		metrics.ProcessExited(st.Signaled)
	}
	return st, nil
}

// Destroy closes every still-open stream owned by the handle and releases
// the underlying OS resources. The child must have been waited on first;
// destroying an unwaited child leaves a zombie entry on Unix. Streams the
// caller closed already are tolerated. After Destroy the handle is invalid.
func (h *Handle) Destroy() error {
	if err := h.valid(); err != nil {
		return err
	}
	for _, key := range h.bag.Keys() {
		value, ok := h.bag.Get(key)
		if !ok {
			continue
		}
		if s, ok := value.(*Stream); ok {
			// Best-effort teardown; a stream closed by the caller
			// is already absent or reports ErrAlreadyClosed.
			_ = s.Close()
		}
	}
	h.release()
	h.destroyed = true
	return nil
}

func (h *Handle) valid() error {
	if h == nil {
		return fmt.Errorf("%w: nil handle", ErrInvalidHandle)
	}
	if h.destroyed {
		return fmt.Errorf("%w: handle was destroyed", ErrInvalidHandle)
	}
	return nil
}
