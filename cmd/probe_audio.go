package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/smazurov/dcam/internal/audio"
	"github.com/smazurov/dcam/internal/logging"
	"github.com/smazurov/dcam/internal/process"
	"github.com/spf13/cobra"
)

// CreateProbeAudioCmd creates the probe-audio command.
func CreateProbeAudioCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "probe-audio",
		Short: "Show the detected sound server and echo-cancel support",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := opts.load(cmd); err != nil {
				return err
			}
			opts.initLogging(nil)
			runner := process.NewExec(logging.GetLogger("process"))
			return probeAudio(cmd.Context(), cmd.OutOrStdout(), runner, opts.PactlPath)
		},
	}
}

func probeAudio(ctx context.Context, w io.Writer, runner process.Runner, pactlPath string) error {
	info, err := audio.QueryServerInfo(ctx, runner, pactlPath)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "server:         %s\n", info.ServerName)
	if info.ServerVersion != "" {
		fmt.Fprintf(w, "server version: %s\n", info.ServerVersion)
	}

	backend, ok := audio.ProbeBackend(info)
	if !ok {
		fmt.Fprintln(w, "backend:        unknown")
		fmt.Fprintln(w, "echo cancel:    unavailable (unrecognised server)")
	} else {
		fmt.Fprintf(w, "backend:        %s\n", backend)
		if backend.SupportsEchoCancel() {
			fmt.Fprintln(w, "echo cancel:    supported")
		} else {
			fmt.Fprintln(w, "echo cancel:    unavailable (version too old)")
		}
	}

	fmt.Fprintf(w, "default sink:   %s\n", info.DefaultSink)
	fmt.Fprintf(w, "default source: %s\n", info.DefaultSource)
	return nil
}
