//go:build !windows

package process

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

const (
	readEnd  = 0
	writeEnd = 1
)

// pipeSet holds the pipes allocated for one launch. Ends remain raw
// descriptors until the redirection handshake completes; parent ends are then
// handed off to stream adapters as *os.File.
type pipeSet struct {
	flags  Flags
	stdin  [2]int
	stdout [2]int
	stderr [2]int
}

// newPipeSet allocates one pipe per requested redirection. Pipes are created
// close-on-exec so neither end leaks into concurrently spawned children; the
// ends wired onto fds 0/1/2 are duplicated without the flag during exec. Any
// failure closes every pipe created so far.
func newPipeSet(flags Flags) (*pipeSet, error) {
	p := &pipeSet{
		flags:  flags,
		stdin:  [2]int{-1, -1},
		stdout: [2]int{-1, -1},
		stderr: [2]int{-1, -1},
	}

	allocate := func(pair *[2]int) error {
		if err := unix.Pipe2(pair[:], unix.O_CLOEXEC); err != nil {
			pair[readEnd], pair[writeEnd] = -1, -1
			p.closeAll()
			return fmt.Errorf("%w: pipe: %v", ErrResourceExhausted, err)
		}
		return nil
	}

	if flags&Stdin != 0 {
		if err := allocate(&p.stdin); err != nil {
			return nil, err
		}
	}
	if flags&Stdout != 0 {
		if err := allocate(&p.stdout); err != nil {
			return nil, err
		}
	}
	if flags&Stderr != 0 && flags&StderrToStdout == 0 {
		if err := allocate(&p.stderr); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// childFiles returns the descriptor mapping for the child's fds 0/1/2.
// Streams without a pipe inherit the parent's descriptor.
func (p *pipeSet) childFiles() []uintptr {
	files := []uintptr{0, 1, 2}
	if p.stdin[readEnd] >= 0 {
		files[0] = uintptr(p.stdin[readEnd])
	}
	if p.stdout[writeEnd] >= 0 {
		files[1] = uintptr(p.stdout[writeEnd])
	}
	if p.flags&StderrToStdout != 0 {
		files[2] = uintptr(p.stdout[writeEnd])
	} else if p.stderr[writeEnd] >= 0 {
		files[2] = uintptr(p.stderr[writeEnd])
	}
	return files
}

// closeChildEnds closes the ends now owned solely by the child so that EOF
// propagates to the parent-side ends when the child exits.
func (p *pipeSet) closeChildEnds() {
	closeFD(&p.stdin[readEnd])
	closeFD(&p.stdout[writeEnd])
	closeFD(&p.stderr[writeEnd])
}

// closeAll closes both ends of every pipe still held by the set.
func (p *pipeSet) closeAll() {
	closeFD(&p.stdin[readEnd])
	closeFD(&p.stdin[writeEnd])
	closeFD(&p.stdout[readEnd])
	closeFD(&p.stdout[writeEnd])
	closeFD(&p.stderr[readEnd])
	closeFD(&p.stderr[writeEnd])
}

func (p *pipeSet) stdinFile() *os.File {
	return takeFD(&p.stdin[writeEnd], PropStdin)
}

func (p *pipeSet) stdoutFile() *os.File {
	return takeFD(&p.stdout[readEnd], PropStdout)
}

func (p *pipeSet) stderrFile() *os.File {
	return takeFD(&p.stderr[readEnd], PropStderr)
}

func closeFD(fd *int) {
	if *fd >= 0 {
		unix.Close(*fd)
		*fd = -1
	}
}

// takeFD transfers ownership of a descriptor out of the set, wrapping it for
// stream use. Returns nil when the slot was never allocated.
func takeFD(fd *int, name string) *os.File {
	if *fd < 0 {
		return nil
	}
	f := os.NewFile(uintptr(*fd), name)
	*fd = -1
	return f
}
