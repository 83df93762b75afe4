package cli

import (
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Semphriss/SDL/internal/config"
	"github.com/Semphriss/SDL/internal/metrics"
	"github.com/Semphriss/SDL/internal/process"
)

// killGracePeriod is how long a cancelled run waits after the graceful
// termination request before forcing the child down.
const killGracePeriod = 2 * time.Second

func newRunCmd(ctx *context) *cobra.Command {
	var metricsListen string

	cmd := &cobra.Command{
		Use:   "run [-- command [args...]]",
		Short: "Spawn a child process and relay its redirected streams",
		Long: `Run spawns the process described by the manifest, or by the argv following
--, relays its redirected stdout/stderr to this process and feeds this
process' stdin to the child when its stdin is piped. The child's exit code
becomes procrun's exit code; a signal death exits 128+signal.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := ctx.resolveSpec(args)
			if err != nil {
				return err
			}
			return runProcess(cmd, spec, metricsListen)
		},
	}

	cmd.Flags().StringVar(&metricsListen, "metrics-listen", "", "Address to expose Prometheus metrics on while the child runs")
	return cmd
}

// resolveSpec prefers an explicit argv over the manifest file. A direct argv
// pipes stdout and stderr; stdin is piped only when the parent's stdin is not
// an interactive terminal, which stays attached to the child instead.
func (c *context) resolveSpec(args []string) (*config.Spec, error) {
	if len(args) == 0 {
		return config.Load(*c.manifest)
	}

	stdin := config.StdioPipe
	if term.IsTerminal(int(os.Stdin.Fd())) {
		stdin = config.StdioInherit
	}
	spec := &config.Spec{
		Command: args,
		Stdio: config.Stdio{
			Stdin:  stdin,
			Stdout: config.StdioPipe,
			Stderr: config.StdioPipe,
		},
	}
	spec.ApplyDefaults()
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return spec, nil
}

func runProcess(cmd *cobra.Command, spec *config.Spec, metricsListen string) error {
	if metricsListen != "" {
		srv := &http.Server{
			Addr:    metricsListen,
			Handler: promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{}),
		}
		go func() { _ = srv.ListenAndServe() }()
		defer srv.Close()
	}

	h, err := process.Spawn(spec.Command, spec.Environ(), spec.Flags())
	if err != nil {
		return err
	}

	var pumps sync.WaitGroup
	if stream, err := h.Stdout(); err == nil {
		pumps.Add(1)
		go func() {
			defer pumps.Done()
			_, _ = io.Copy(cmd.OutOrStdout(), stream)
		}()
	}
	if stream, err := h.Stderr(); err == nil {
		pumps.Add(1)
		go func() {
			defer pumps.Done()
			_, _ = io.Copy(cmd.ErrOrStderr(), stream)
		}()
	}
	if stream, err := h.Stdin(); err == nil {
		// Not part of the pump group: a child that ignores stdin would
		// otherwise block shutdown on our own stdin read.
		go func() {
			_, _ = io.Copy(stream, cmd.InOrStdin())
			_ = stream.Close()
		}()
	}

	waited := make(chan struct{})
	go func() {
		select {
		case <-cmd.Context().Done():
			_ = h.Kill(false)
			select {
			case <-waited:
			case <-time.After(killGracePeriod):
				_ = h.Kill(true)
			}
		case <-waited:
		}
	}()

	st, waitErr := h.Wait(true)
	close(waited)
	pumps.Wait()
	destroyErr := h.Destroy()

	if waitErr != nil {
		return waitErr
	}
	if destroyErr != nil {
		return destroyErr
	}
	if st.Signaled {
		return &exitError{code: 128 + st.Signal}
	}
	if st.Code != 0 {
		return &exitError{code: st.Code}
	}
	return nil
}
