package process

import (
	"bytes"
	"errors"
	"io"
	stdruntime "runtime"
	"syscall"
	"testing"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if stdruntime.GOOS == "windows" {
		t.Skip("process tests use unix shell fixtures")
	}
}

func mustSpawn(t *testing.T, args []string, env []string, flags Flags) *Handle {
	t.Helper()
	h, err := Spawn(args, env, flags)
	if err != nil {
		t.Fatalf("spawn %v: %v", args, err)
	}
	return h
}

func reapAndDestroy(t *testing.T, h *Handle) {
	t.Helper()
	if _, err := h.Wait(true); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if err := h.Destroy(); err != nil {
		t.Fatalf("destroy: %v", err)
	}
}

func TestSpawnNoRedirectionsReportsExitCode(t *testing.T) {
	skipOnWindows(t)

	h := mustSpawn(t, []string{"/bin/sh", "-c", "exit 7"}, nil, 0)

	if got := h.Properties().Len(); got != 0 {
		t.Fatalf("expected empty property bag, got %d entries", got)
	}

	st, err := h.Wait(true)
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if !st.Exited || st.Signaled {
		t.Fatalf("expected normal exit, got %+v", st)
	}
	if st.Code != 7 {
		t.Fatalf("expected exit code 7, got %d", st.Code)
	}
	if err := h.Destroy(); err != nil {
		t.Fatalf("destroy: %v", err)
	}
}

func TestStdinToStdoutEcho(t *testing.T) {
	skipOnWindows(t)

	h := mustSpawn(t, []string{"/bin/cat"}, nil, Stdin|Stdout)

	stdin, err := h.Stdin()
	if err != nil {
		t.Fatalf("stdin stream: %v", err)
	}
	stdout, err := h.Stdout()
	if err != nil {
		t.Fatalf("stdout stream: %v", err)
	}

	input := []byte("tests whether bytes cross the child verbatim\nsecond line\n")
	n, err := stdin.Write(input)
	if err != nil {
		t.Fatalf("write stdin: %v", err)
	}
	if n != len(input) {
		t.Fatalf("short write: %d of %d bytes", n, len(input))
	}
	if err := stdin.Close(); err != nil {
		t.Fatalf("close stdin: %v", err)
	}

	output, err := io.ReadAll(stdout)
	if err != nil {
		t.Fatalf("read stdout: %v", err)
	}
	if !bytes.Equal(output, input) {
		t.Fatalf("stdout mismatch:\n got %q\nwant %q", output, input)
	}

	// Closing stdin drove cat to EOF; the child must exit cleanly.
	st, err := h.Wait(true)
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if !st.Exited || st.Code != 0 || st.Signaled {
		t.Fatalf("expected clean exit, got %+v", st)
	}
	if err := h.Destroy(); err != nil {
		t.Fatalf("destroy: %v", err)
	}
}

func TestNonBlockingWaitOnRunningChild(t *testing.T) {
	skipOnWindows(t)

	h := mustSpawn(t, []string{"/bin/sleep", "30"}, nil, 0)

	st, err := h.Wait(false)
	if err != nil {
		t.Fatalf("non-blocking wait: %v", err)
	}
	if st.Exited {
		t.Fatalf("child reported exited while sleeping: %+v", st)
	}

	if err := h.Kill(true); err != nil {
		t.Fatalf("kill: %v", err)
	}
	st, err = h.Wait(true)
	if err != nil {
		t.Fatalf("wait after kill: %v", err)
	}
	if !st.Exited || !st.Signaled {
		t.Fatalf("expected signal termination, got %+v", st)
	}
	if st.Signal != int(syscall.SIGKILL) {
		t.Fatalf("expected SIGKILL, got signal %d", st.Signal)
	}
	if err := h.Destroy(); err != nil {
		t.Fatalf("destroy: %v", err)
	}
}

func TestGracefulKillDeliversSIGTERM(t *testing.T) {
	skipOnWindows(t)

	h := mustSpawn(t, []string{"/bin/sleep", "30"}, nil, 0)

	if err := h.Kill(false); err != nil {
		t.Fatalf("kill: %v", err)
	}
	st, err := h.Wait(true)
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if !st.Signaled || st.Signal != int(syscall.SIGTERM) {
		t.Fatalf("expected SIGTERM termination, got %+v", st)
	}
	if err := h.Destroy(); err != nil {
		t.Fatalf("destroy: %v", err)
	}
}

func TestWaitAfterExitIsIdempotent(t *testing.T) {
	skipOnWindows(t)

	h := mustSpawn(t, []string{"/bin/sh", "-c", "exit 3"}, nil, 0)
	defer func() {
		if err := h.Destroy(); err != nil {
			t.Fatalf("destroy: %v", err)
		}
	}()

	first, err := h.Wait(true)
	if err != nil {
		t.Fatalf("first wait: %v", err)
	}
	for i := 0; i < 3; i++ {
		st, err := h.Wait(i%2 == 0)
		if err != nil {
			t.Fatalf("re-wait %d: %v", i, err)
		}
		if st != first {
			t.Fatalf("re-wait %d returned %+v, want %+v", i, st, first)
		}
	}
}

func TestDoubleCloseStream(t *testing.T) {
	skipOnWindows(t)

	h := mustSpawn(t, []string{"/bin/cat"}, nil, Stdin|Stdout)

	stdout, err := h.Stdout()
	if err != nil {
		t.Fatalf("stdout stream: %v", err)
	}
	if err := stdout.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if err := stdout.Close(); !errors.Is(err, ErrAlreadyClosed) {
		t.Fatalf("second close: got %v, want ErrAlreadyClosed", err)
	}
	if _, err := h.Stdout(); !errors.Is(err, ErrAlreadyClosed) {
		t.Fatalf("lookup of closed stream: got %v, want ErrAlreadyClosed", err)
	}

	// The stdin stream must be unaffected by the stdout close.
	stdin, err := h.Stdin()
	if err != nil {
		t.Fatalf("stdin stream after stdout close: %v", err)
	}
	if err := stdin.Close(); err != nil {
		t.Fatalf("close stdin: %v", err)
	}

	reapAndDestroy(t, h)
}

func TestCapabilityGating(t *testing.T) {
	skipOnWindows(t)

	h := mustSpawn(t, []string{"/bin/cat"}, nil, Stdin|Stdout)

	stdin, err := h.Stdin()
	if err != nil {
		t.Fatalf("stdin stream: %v", err)
	}
	stdout, err := h.Stdout()
	if err != nil {
		t.Fatalf("stdout stream: %v", err)
	}

	if _, err := stdin.Read(make([]byte, 8)); !errors.Is(err, ErrCapabilityDenied) {
		t.Fatalf("read from stdin adapter: got %v, want ErrCapabilityDenied", err)
	}
	if _, err := stdout.Write([]byte("x")); !errors.Is(err, ErrCapabilityDenied) {
		t.Fatalf("write to stdout adapter: got %v, want ErrCapabilityDenied", err)
	}
	if _, err := h.Stderr(); !errors.Is(err, ErrCapabilityDenied) {
		t.Fatalf("lookup of unrequested stderr: got %v, want ErrCapabilityDenied", err)
	}

	if err := stdin.Close(); err != nil {
		t.Fatalf("close stdin: %v", err)
	}
	reapAndDestroy(t, h)
}

func TestCustomEnvironmentReplacesParent(t *testing.T) {
	skipOnWindows(t)

	env := []string{"PROCRUN_MARKER=from-custom-env"}
	h := mustSpawn(t, []string{"/bin/sh", "-c", `printf "%s:%s" "$PROCRUN_MARKER" "$HOME"`}, env, Stdout)

	stdout, err := h.Stdout()
	if err != nil {
		t.Fatalf("stdout stream: %v", err)
	}
	output, err := io.ReadAll(stdout)
	if err != nil {
		t.Fatalf("read stdout: %v", err)
	}
	// HOME is absent because a custom environment replaces the parent's.
	if got, want := string(output), "from-custom-env:"; got != want {
		t.Fatalf("child environment: got %q, want %q", got, want)
	}
	reapAndDestroy(t, h)
}

func TestNilEnvironmentInheritsParent(t *testing.T) {
	skipOnWindows(t)

	t.Setenv("PROCRUN_INHERIT_MARKER", "inherited-value")

	h := mustSpawn(t, []string{"/bin/sh", "-c", `printf "%s" "$PROCRUN_INHERIT_MARKER"`}, nil, Stdout)

	stdout, err := h.Stdout()
	if err != nil {
		t.Fatalf("stdout stream: %v", err)
	}
	output, err := io.ReadAll(stdout)
	if err != nil {
		t.Fatalf("read stdout: %v", err)
	}
	if got := string(output); got != "inherited-value" {
		t.Fatalf("inherited environment: got %q", got)
	}
	reapAndDestroy(t, h)
}

func TestStderrToStdoutMergesStreams(t *testing.T) {
	skipOnWindows(t)

	h := mustSpawn(t, []string{"/bin/sh", "-c", `printf out; printf err 1>&2`}, nil, Stdout|Stderr|StderrToStdout)

	if _, err := h.Stderr(); !errors.Is(err, ErrCapabilityDenied) {
		t.Fatalf("stderr lookup with merge: got %v, want ErrCapabilityDenied", err)
	}

	stdout, err := h.Stdout()
	if err != nil {
		t.Fatalf("stdout stream: %v", err)
	}
	output, err := io.ReadAll(stdout)
	if err != nil {
		t.Fatalf("read stdout: %v", err)
	}
	if !bytes.Contains(output, []byte("out")) || !bytes.Contains(output, []byte("err")) {
		t.Fatalf("merged output missing data: %q", output)
	}
	reapAndDestroy(t, h)
}

func TestSeparateStderrStream(t *testing.T) {
	skipOnWindows(t)

	h := mustSpawn(t, []string{"/bin/sh", "-c", `printf out; printf err 1>&2`}, nil, Stdout|Stderr)

	stdout, err := h.Stdout()
	if err != nil {
		t.Fatalf("stdout stream: %v", err)
	}
	stderr, err := h.Stderr()
	if err != nil {
		t.Fatalf("stderr stream: %v", err)
	}

	outData, err := io.ReadAll(stdout)
	if err != nil {
		t.Fatalf("read stdout: %v", err)
	}
	errData, err := io.ReadAll(stderr)
	if err != nil {
		t.Fatalf("read stderr: %v", err)
	}
	if string(outData) != "out" {
		t.Fatalf("stdout: got %q, want %q", outData, "out")
	}
	if string(errData) != "err" {
		t.Fatalf("stderr: got %q, want %q", errData, "err")
	}
	reapAndDestroy(t, h)
}

func TestSpawnMissingExecutableLeaksNothing(t *testing.T) {
	skipOnWindows(t)

	// Each iteration would hold six descriptors if rollback missed any;
	// enough repetitions exhaust a default descriptor budget and start
	// failing with ErrResourceExhausted instead.
	for i := 0; i < 300; i++ {
		_, err := Spawn([]string{"/nonexistent/procrun-no-such-binary"}, nil, Stdin|Stdout|Stderr)
		if err == nil {
			t.Fatal("spawn of missing executable succeeded")
		}
		if !errors.Is(err, ErrSpawnFailed) {
			t.Fatalf("iteration %d: got %v, want ErrSpawnFailed", i, err)
		}
	}
}

func TestSpawnValidation(t *testing.T) {
	cases := []struct {
		name  string
		args  []string
		env   []string
		flags Flags
	}{
		{name: "empty args", args: nil},
		{name: "empty executable", args: []string{""}},
		{name: "nul in argument", args: []string{"/bin/true", "a\x00b"}},
		{name: "nul in environment", args: []string{"/bin/true"}, env: []string{"A=\x00"}},
		{name: "malformed environment", args: []string{"/bin/true"}, env: []string{"NOEQUALS"}},
		{name: "stderr merge without stdout", args: []string{"/bin/true"}, flags: StderrToStdout},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Spawn(tc.args, tc.env, tc.flags)
			if !errors.Is(err, ErrInvalidArgument) {
				t.Fatalf("got %v, want ErrInvalidArgument", err)
			}
		})
	}
}

func TestDestroyClosesRemainingStreams(t *testing.T) {
	skipOnWindows(t)

	h := mustSpawn(t, []string{"/bin/cat"}, nil, Stdin|Stdout)

	stdin, err := h.Stdin()
	if err != nil {
		t.Fatalf("stdin stream: %v", err)
	}
	stdout, err := h.Stdout()
	if err != nil {
		t.Fatalf("stdout stream: %v", err)
	}
	if err := stdin.Close(); err != nil {
		t.Fatalf("close stdin: %v", err)
	}
	if _, err := h.Wait(true); err != nil {
		t.Fatalf("wait: %v", err)
	}

	// Destroy must tolerate the stream the caller already closed and
	// close the one still open.
	if err := h.Destroy(); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	if _, err := stdout.Read(make([]byte, 4)); !errors.Is(err, ErrAlreadyClosed) {
		t.Fatalf("read after destroy: got %v, want ErrAlreadyClosed", err)
	}
}

func TestOperationsOnDestroyedHandle(t *testing.T) {
	skipOnWindows(t)

	h := mustSpawn(t, []string{"/bin/true"}, nil, 0)
	reapAndDestroy(t, h)

	if _, err := h.Wait(false); !errors.Is(err, ErrInvalidHandle) {
		t.Fatalf("wait on destroyed handle: got %v, want ErrInvalidHandle", err)
	}
	if err := h.Kill(true); !errors.Is(err, ErrInvalidHandle) {
		t.Fatalf("kill on destroyed handle: got %v, want ErrInvalidHandle", err)
	}
	if err := h.Destroy(); !errors.Is(err, ErrInvalidHandle) {
		t.Fatalf("second destroy: got %v, want ErrInvalidHandle", err)
	}
	if _, err := h.Stdout(); !errors.Is(err, ErrInvalidHandle) {
		t.Fatalf("stream lookup on destroyed handle: got %v, want ErrInvalidHandle", err)
	}
}

func TestKillAfterExitSurfacesOSError(t *testing.T) {
	skipOnWindows(t)

	h := mustSpawn(t, []string{"/bin/true"}, nil, 0)
	if _, err := h.Wait(true); err != nil {
		t.Fatalf("wait: %v", err)
	}

	// The child is reaped; signalling its pid must fail and the OS error
	// must reach the caller.
	if err := h.Kill(true); !errors.Is(err, ErrIO) {
		t.Fatalf("kill of reaped child: got %v, want ErrIO", err)
	}
	if err := h.Destroy(); err != nil {
		t.Fatalf("destroy: %v", err)
	}
}
