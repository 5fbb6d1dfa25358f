package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/smazurov/dcam/internal/bridge"
	"github.com/smazurov/dcam/internal/camera"
	"github.com/smazurov/dcam/internal/logging"
	"github.com/smazurov/dcam/internal/process"
	"github.com/spf13/cobra"
)

// CreateStatusCmd creates the status command.
func CreateStatusCmd(opts *Options) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print the phone camera's current settings",
		Long:  `Forwards the camera port, queries the camera app once, prints its settings and removes the forward again.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := opts.load(cmd); err != nil {
				return err
			}
			opts.initLogging(nil)
			runner := process.NewExec(logging.GetLogger("process"))
			baseURL := "http://127.0.0.1:" + strconv.Itoa(int(opts.Port))
			return printStatus(cmd.Context(), cmd.OutOrStdout(), runner, opts, baseURL, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw status as JSON")
	return cmd
}

type statusReport struct {
	Zoom        uint32   `json:"zoom"`
	ZoomPercent *int     `json:"zoom_percent,omitempty"`
	ZoomSteps   []string `json:"zoom_steps,omitempty"`
	CropX       uint32   `json:"crop_x"`
	CropY       uint32   `json:"crop_y"`
	Quality     uint32   `json:"quality"`
	VideoSize   string   `json:"video_size"`
}

func printStatus(ctx context.Context, w io.Writer, runner process.Runner, opts *Options, baseURL string, asJSON bool) (err error) {
	adb := bridge.New(runner,
		bridge.WithPath(opts.AdbPath),
		bridge.WithSerial(opts.AdbSerial),
		bridge.WithLogger(logging.GetLogger("bridge")))

	if err := adb.StartServer(ctx); err != nil {
		return err
	}
	forward, err := adb.Forward(ctx, opts.Port)
	if err != nil {
		return err
	}
	defer func() {
		if releaseErr := forward.Release(context.WithoutCancel(ctx)); err == nil {
			err = releaseErr
		}
	}()

	remote := camera.NewRemote(camera.NewClient(baseURL, camera.WithLogger(logging.GetLogger("camera"))))
	if err := remote.Fetch(ctx, true); err != nil {
		return err
	}
	values, _ := remote.Current()

	report := statusReport{
		Zoom:      uint32(values.Zoom),
		ZoomSteps: remote.ZoomSteps(),
		CropX:     uint32(values.CropX),
		CropY:     uint32(values.CropY),
		Quality:   uint32(values.Quality),
		VideoSize: values.VideoSize,
	}
	if pct, ok := remote.ZoomPercent(); ok {
		report.ZoomPercent = &pct
	}

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	zoom := strconv.FormatUint(uint64(report.Zoom), 10)
	if report.ZoomPercent != nil {
		zoom += fmt.Sprintf(" (%d%% of range)", *report.ZoomPercent)
	}
	fmt.Fprintf(w, "zoom:       %s\n", zoom)
	fmt.Fprintf(w, "crop:       %d,%d\n", report.CropX, report.CropY)
	fmt.Fprintf(w, "quality:    %d\n", report.Quality)
	fmt.Fprintf(w, "video size: %s\n", report.VideoSize)
	return nil
}
