//go:build windows

package process

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

type sysProcess struct {
	pid     int
	process windows.Handle
	thread  windows.Handle
}

// spawn creates the child with CreateProcess, substituting redirected pipe
// ends for the standard handles. Handle inheritance is enabled for the call;
// only the child-side pipe ends are still inheritable at this point, so
// nothing else propagates.
func (h *Handle) spawn(args []string, env []string, pipes *pipeSet) error {
	appName, err := windows.UTF16PtrFromString(args[0])
	if err != nil {
		return fmt.Errorf("%w: executable path: %v", ErrInvalidArgument, err)
	}
	cmdLine, err := windows.UTF16PtrFromString(joinCommandLine(args))
	if err != nil {
		return fmt.Errorf("%w: command line: %v", ErrInvalidArgument, err)
	}

	var envBlock *uint16
	var creationFlags uint32
	if block := buildEnvBlock(env); block != nil {
		envBlock = &block[0]
		creationFlags |= windows.CREATE_UNICODE_ENVIRONMENT
	}

	si := new(windows.StartupInfo)
	si.Cb = uint32(unsafe.Sizeof(*si))
	if h.flags&(Stdin|Stdout|Stderr|StderrToStdout) != 0 {
		si.Flags |= windows.STARTF_USESTDHANDLES
		si.StdInput = pipes.childStdin()
		si.StdOutput = pipes.childStdout()
		si.StdErr = pipes.childStderr()
	}

	pi := new(windows.ProcessInformation)
	if err := windows.CreateProcess(appName, cmdLine, nil, nil, true, creationFlags, envBlock, nil, si, pi); err != nil {
		return fmt.Errorf("%w: CreateProcess %s: %v", ErrSpawnFailed, args[0], err)
	}

	h.sys.pid = int(pi.ProcessId)
	h.sys.process = pi.Process
	h.sys.thread = pi.Thread
	return nil
}
