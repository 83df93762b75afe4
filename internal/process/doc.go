// Package process spawns child processes, optionally wiring their standard
// streams to pipes the parent can read and write, and tracks their lifetime
// through kill, wait and destroy.
//
// The package presents one contract over two divergent OS process models. On
// Unix it forks and execs with pipe descriptors installed on fds 0/1/2; pipes
// are created close-on-exec so descriptors never leak into concurrently
// spawned children. On Windows it calls CreateProcess with inheritable pipe
// ends substituted for the standard handles, clearing the inherit flag on the
// ends the parent retains so they cannot leak into unrelated children.
//
// Termination semantics differ per platform. Kill with force=false sends
// SIGTERM on Unix; Windows has no graceful equivalent, so both modes
// terminate the process immediately. Wait preserves the raw exit status: a
// signal-terminated child on Unix is reported with Signaled set and the
// signal number in Signal, distinct from a normal exit with the same integer
// code.
//
// A handle and its streams assume a single owner. Callers invoking lifecycle
// operations or stream I/O from more than one goroutine must provide their
// own serialization. Every child must be waited on before its handle is
// destroyed; an exited child that is never waited on remains a zombie entry
// in the OS process table on Unix.
package process
