package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/you/subway-path/internal/gtfs"
	"github.com/you/subway-path/internal/seed"
)

func seedCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <file.yaml>",
		Short: "Create the lines listed in a YAML seed file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := seed.Load(args[0])
			if err != nil {
				return err
			}

			svc, _, closeFn, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			reports, err := seed.Apply(cmd.Context(), svc, f)
			out := cmd.OutOrStdout()
			for _, r := range reports {
				fmt.Fprintf(out, "line %q: %d segments added\n", r.Name, r.Applied)
				for _, s := range r.Ignored {
					fmt.Fprintf(out, "  ignored %s-%s (%d): not connected to the line\n", s.Left, s.Right, s.Distance)
				}
			}
			return err
		},
	}
}

func importGTFSCmd(a *app) *cobra.Command {
	var route, lineName, cacheDir string
	var direction int

	c := &cobra.Command{
		Use:   "import-gtfs <feed.zip|url>",
		Short: "Build a line from one route of a GTFS feed",
		Long:  `Takes the trip with the most stops for --route and --direction and adds its station-to-station hops to a new line.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, logger, closeFn, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			path := args[0]
			if gtfs.IsRemote(path) {
				logger.Info("downloading gtfs feed", "url", path)
				if path, err = gtfs.Download(cmd.Context(), path, cacheDir); err != nil {
					return err
				}
			}

			data, err := gtfs.Parse(path, logger)
			if err != nil {
				return err
			}
			segments, err := gtfs.BuildSegments(data, route, direction)
			if err != nil {
				return err
			}

			if lineName == "" {
				lineName = route
			}
			line, err := svc.CreateLine(cmd.Context(), lineName)
			if err != nil {
				return err
			}

			for _, s := range segments {
				res, err := svc.AddSegment(cmd.Context(), line.ID(), s.Left, s.Right, s.Distance)
				if err != nil {
					return fmt.Errorf("segment %s-%s: %w", s.Left, s.Right, err)
				}
				line = res.Line
			}
			printRoute(cmd, line)
			return nil
		},
	}

	c.Flags().StringVar(&route, "route", "", "route_short_name or route_id to import")
	c.Flags().IntVar(&direction, "direction", 0, "direction_id of the trips to use")
	c.Flags().StringVar(&lineName, "line", "", "name of the line to create (default: the route)")
	c.Flags().StringVar(&cacheDir, "cache-dir", os.TempDir(), "where downloaded feeds are kept")
	_ = c.MarkFlagRequired("route")
	return c
}
