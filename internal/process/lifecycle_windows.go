//go:build windows

package process

import (
	"fmt"

	"golang.org/x/sys/windows"
)

// kill terminates the child. Windows has no graceful termination equivalent
// in this design, so both modes terminate immediately.
func (h *Handle) kill(force bool) error {
	if err := windows.TerminateProcess(h.sys.process, 1); err != nil {
		return fmt.Errorf("%w: TerminateProcess pid %d: %v", ErrIO, h.sys.pid, err)
	}
	return nil
}

func (h *Handle) wait(block bool) (Status, error) {
	timeout := uint32(0)
	if block {
		timeout = windows.INFINITE
	}

	event, err := windows.WaitForSingleObject(h.sys.process, timeout)
	switch event {
	case windows.WAIT_OBJECT_0:
		var code uint32
		if err := windows.GetExitCodeProcess(h.sys.process, &code); err != nil {
			return Status{}, fmt.Errorf("%w: GetExitCodeProcess pid %d: %v", ErrIO, h.sys.pid, err)
		}
		return Status{Exited: true, Code: int(code)}, nil
	case windows.WAIT_TIMEOUT:
		return Status{}, nil
	default:
		return Status{}, fmt.Errorf("%w: WaitForSingleObject pid %d: %v", ErrIO, h.sys.pid, err)
	}
}

func (h *Handle) release() {
	if h.sys.thread != 0 {
		windows.CloseHandle(h.sys.thread)
		h.sys.thread = 0
	}
	if h.sys.process != 0 {
		windows.CloseHandle(h.sys.process)
		h.sys.process = 0
	}
}
