package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/o0olele/breadcrumbs-go/route"
)

var replayQuiet bool

var replayCmd = &cobra.Command{
	Use:   "replay <file.jsonl>",
	Short: "Feed recorded observations through a controller",
	Long: `Reads one JSON observation per line, for example

  {"position":{"x":0,"y":64,"z":0},"tick":0,"context":"minecraft:overworld","alive":true}

and prints the controller state and waypoints after every tick, followed
by the final status.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open replay: %w", err)
		}
		defer f.Close()

		status, err := replay(f, cmd.OutOrStdout(), cfg.RouteOptions(), logger, replayQuiet)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	},
}

func init() {
	replayCmd.Flags().BoolVarP(&replayQuiet, "quiet", "q", false, "only print the final status")
}

// replay ticks a fresh controller once per line of r.
func replay(r io.Reader, w io.Writer, opts route.Options, logger *zap.Logger, quiet bool) (route.Status, error) {
	ctrl := route.NewController(opts, route.WithLogger(logger))

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}

		var obs route.Observation
		if err := json.Unmarshal(scanner.Bytes(), &obs); err != nil {
			return route.Status{}, fmt.Errorf("line %d: %w", line, err)
		}

		waypoints := ctrl.Tick(obs)
		if quiet {
			continue
		}
		fmt.Fprintf(w, "tick=%d state=%s waypoints=%d", obs.Tick, ctrl.State(), len(waypoints))
		if len(waypoints) > 0 {
			fmt.Fprintf(w, " next=%s", waypoints[0].Pos)
		}
		fmt.Fprintln(w)
	}
	if err := scanner.Err(); err != nil {
		return route.Status{}, fmt.Errorf("read replay: %w", err)
	}
	return ctrl.Status(), nil
}
