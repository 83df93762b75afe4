//go:build !windows

package process

import "syscall"

// marshalPosix duplicates the argument and environment lists into memory
// owned by this launch, so later mutation of the caller's slices cannot
// corrupt the exec'd image. A nil environment inherits the parent's.
func marshalPosix(args []string, env []string) (argv []string, envv []string) {
	argv = append([]string(nil), args...)
	if env == nil {
		envv = syscall.Environ()
	} else {
		envv = append([]string(nil), env...)
	}
	return argv, envv
}
