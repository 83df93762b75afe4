//go:build !windows

package process

import (
	"fmt"
	"syscall"
)

type sysProcess struct {
	pid int
}

// spawn forks and execs args with the pipe ends from pipes installed on the
// child's fds 0/1/2. Exec failure in the child, such as a missing or
// non-executable path, is reported back synchronously; no partial child is
// left running.
func (h *Handle) spawn(args []string, env []string, pipes *pipeSet) error {
	argv, envv := marshalPosix(args, env)

	pid, err := syscall.ForkExec(argv[0], argv, &syscall.ProcAttr{
		Env:   envv,
		Files: pipes.childFiles(),
	})
	if err != nil {
		return fmt.Errorf("%w: fork/exec %s: %v", ErrSpawnFailed, argv[0], err)
	}
	h.sys.pid = pid
	return nil
}
