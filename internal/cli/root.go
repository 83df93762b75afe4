package cli

import (
	stdcontext "context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// NewRootCmd builds the procrun command tree.
func NewRootCmd() *cobra.Command {
	var manifest string

	root := &cobra.Command{
		Use:   "procrun",
		Short: "Spawn and manage child processes with piped standard streams",
	}

	root.PersistentFlags().
		StringVarP(&manifest, "file", "f", "proc.yaml", "Path to process manifest")

	ctx := &context{manifest: &manifest}
	root.AddCommand(newRunCmd(ctx))
	root.AddCommand(newRelayCmd())

	root.SilenceUsage = true
	root.SilenceErrors = true

	return root
}

// Execute runs the CLI entrypoint.
func Execute() {
	ctx, stop := signal.NotifyContext(stdcontext.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := NewRootCmd()

	if err := root.ExecuteContext(ctx); err != nil {
		stop()
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			// The child's streams were already relayed; only its
			// exit code is left to propagate.
			os.Exit(exitErr.code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type context struct {
	manifest *string
}

// exitError carries a child's exit code to the process boundary without
// printing an error message of its own.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}
