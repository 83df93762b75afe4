package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// newRelayCmd builds the helper subcommand used to exercise the process
// manager end-to-end: it emits fixed text, echoes its stdin and exits with a
// chosen code, all observable through the parent's pipes.
func newRelayCmd() *cobra.Command {
	var (
		stdinToStdout bool
		stdinToStderr bool
		stdoutText    string
		stderrText    string
		printEnv      string
		exitCode      int
	)

	cmd := &cobra.Command{
		Use:   "relay",
		Short: "Copy stdin to stdout/stderr and exit with a chosen code",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			errOut := cmd.ErrOrStderr()

			if stdoutText != "" {
				fmt.Fprint(out, stdoutText)
			}
			if stderrText != "" {
				fmt.Fprint(errOut, stderrText)
			}
			if printEnv != "" {
				fmt.Fprint(out, os.Getenv(printEnv))
			}

			if stdinToStdout || stdinToStderr {
				buf := make([]byte, 4096)
				in := cmd.InOrStdin()
				for {
					n, err := in.Read(buf)
					if n > 0 {
						if stdinToStdout {
							if _, werr := out.Write(buf[:n]); werr != nil {
								return werr
							}
						}
						if stdinToStderr {
							if _, werr := errOut.Write(buf[:n]); werr != nil {
								return werr
							}
						}
					}
					if err == io.EOF {
						break
					}
					if err != nil {
						return err
					}
				}
			}

			if exitCode != 0 {
				return &exitError{code: exitCode}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&stdinToStdout, "stdin-to-stdout", false, "Copy stdin to stdout until EOF")
	cmd.Flags().BoolVar(&stdinToStderr, "stdin-to-stderr", false, "Copy stdin to stderr until EOF")
	cmd.Flags().StringVar(&stdoutText, "stdout", "", "Text to write to stdout before relaying")
	cmd.Flags().StringVar(&stderrText, "stderr", "", "Text to write to stderr before relaying")
	cmd.Flags().StringVar(&printEnv, "print-env", "", "Write the named environment variable's value to stdout")
	cmd.Flags().IntVar(&exitCode, "exit-code", 0, "Exit code to terminate with")
	return cmd
}
