//go:build !windows

package process

import (
	"fmt"

	"golang.org/x/sys/unix"
)

func (h *Handle) kill(force bool) error {
	sig := unix.SIGTERM
	if force {
		sig = unix.SIGKILL
	}
	if err := unix.Kill(h.sys.pid, sig); err != nil {
		return fmt.Errorf("%w: kill pid %d: %v", ErrIO, h.sys.pid, err)
	}
	return nil
}

func (h *Handle) wait(block bool) (Status, error) {
	options := 0
	if !block {
		options = unix.WNOHANG
	}

	var ws unix.WaitStatus
	for {
		pid, err := unix.Wait4(h.sys.pid, &ws, options, nil)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return Status{}, fmt.Errorf("%w: waitpid %d: %v", ErrIO, h.sys.pid, err)
		}
		if pid == 0 {
			// Non-blocking wait, child still running.
			return Status{}, nil
		}
		break
	}

	st := Status{Exited: true}
	switch {
	case ws.Exited():
		st.Code = ws.ExitStatus()
	case ws.Signaled():
		st.Signaled = true
		st.Signal = int(ws.Signal())
	}
	return st, nil
}

func (h *Handle) release() {
	// The pid needs no explicit release once the child has been reaped.
}
