//go:build windows

package process

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/windows"
)

const (
	readEnd  = 0
	writeEnd = 1
)

// pipeSet holds the pipes allocated for one launch. Anonymous pipe handles
// are created inheritable, then the inherit flag is cleared on the end the
// parent retains; a parent end left inheritable would leak into every child
// created later by this process.
type pipeSet struct {
	flags  Flags
	stdin  [2]windows.Handle
	stdout [2]windows.Handle
	stderr [2]windows.Handle
}

func newPipeSet(flags Flags) (*pipeSet, error) {
	p := &pipeSet{flags: flags}

	sa := &windows.SecurityAttributes{InheritHandle: 1}
	sa.Length = uint32(unsafe.Sizeof(*sa))

	allocate := func(pair *[2]windows.Handle, parentEnd int) error {
		if err := windows.CreatePipe(&pair[readEnd], &pair[writeEnd], sa, 0); err != nil {
			p.closeAll()
			return fmt.Errorf("%w: CreatePipe: %v", ErrResourceExhausted, err)
		}
		if err := windows.SetHandleInformation(pair[parentEnd], windows.HANDLE_FLAG_INHERIT, 0); err != nil {
			p.closeAll()
			return fmt.Errorf("%w: SetHandleInformation: %v", ErrResourceExhausted, err)
		}
		return nil
	}

	if flags&Stdin != 0 {
		if err := allocate(&p.stdin, writeEnd); err != nil {
			return nil, err
		}
	}
	if flags&Stdout != 0 {
		if err := allocate(&p.stdout, readEnd); err != nil {
			return nil, err
		}
	}
	if flags&Stderr != 0 && flags&StderrToStdout == 0 {
		if err := allocate(&p.stderr, readEnd); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// childStdin returns the handle the child receives as its standard input:
// the pipe's read end when redirected, the parent's console handle otherwise.
func (p *pipeSet) childStdin() windows.Handle {
	if p.stdin[readEnd] != 0 {
		return p.stdin[readEnd]
	}
	h, _ := windows.GetStdHandle(windows.STD_INPUT_HANDLE)
	return h
}

func (p *pipeSet) childStdout() windows.Handle {
	if p.stdout[writeEnd] != 0 {
		return p.stdout[writeEnd]
	}
	h, _ := windows.GetStdHandle(windows.STD_OUTPUT_HANDLE)
	return h
}

func (p *pipeSet) childStderr() windows.Handle {
	if p.flags&StderrToStdout != 0 {
		return p.stdout[writeEnd]
	}
	if p.stderr[writeEnd] != 0 {
		return p.stderr[writeEnd]
	}
	h, _ := windows.GetStdHandle(windows.STD_ERROR_HANDLE)
	return h
}

func (p *pipeSet) closeChildEnds() {
	closeHandle(&p.stdin[readEnd])
	closeHandle(&p.stdout[writeEnd])
	closeHandle(&p.stderr[writeEnd])
}

func (p *pipeSet) closeAll() {
	closeHandle(&p.stdin[readEnd])
	closeHandle(&p.stdin[writeEnd])
	closeHandle(&p.stdout[readEnd])
	closeHandle(&p.stdout[writeEnd])
	closeHandle(&p.stderr[readEnd])
	closeHandle(&p.stderr[writeEnd])
}

func (p *pipeSet) stdinFile() *os.File {
	return takeHandle(&p.stdin[writeEnd], PropStdin)
}

func (p *pipeSet) stdoutFile() *os.File {
	return takeHandle(&p.stdout[readEnd], PropStdout)
}

func (p *pipeSet) stderrFile() *os.File {
	return takeHandle(&p.stderr[readEnd], PropStderr)
}

func closeHandle(h *windows.Handle) {
	if *h != 0 {
		windows.CloseHandle(*h)
		*h = 0
	}
}

// takeHandle transfers ownership of a handle out of the set, wrapping it for
// stream use. Returns nil when the slot was never allocated.
func takeHandle(h *windows.Handle, name string) *os.File {
	if *h == 0 {
		return nil
	}
	f := os.NewFile(uintptr(*h), name)
	*h = 0
	return f
}
