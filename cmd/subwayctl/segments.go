package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func routeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "route <line>",
		Short: "Print the stations of a line in order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, closeFn, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			line, err := findLine(cmd.Context(), svc, args[0])
			if err != nil {
				return err
			}
			printRoute(cmd, line)
			return nil
		},
	}
}

func addSegmentCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add-segment <line> <left> <right> <distance>",
		Short: "Add a segment between two stations",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			distance, err := strconv.Atoi(args[3])
			if err != nil {
				return fmt.Errorf("distance must be an integer: %w", err)
			}

			svc, _, closeFn, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			line, err := findLine(cmd.Context(), svc, args[0])
			if err != nil {
				return err
			}
			res, err := svc.AddSegment(cmd.Context(), line.ID(), args[1], args[2], distance)
			if err != nil {
				return err
			}
			if !res.Applied {
				fmt.Fprintf(cmd.OutOrStdout(), "segment %s-%s does not connect to %q; line unchanged\n", args[1], args[2], line.Name())
			}
			printRoute(cmd, res.Line)
			return nil
		},
	}
}

func deleteStationCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-station <line> <station>",
		Short: "Remove a station from a line, joining its neighbours",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, closeFn, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			line, err := findLine(cmd.Context(), svc, args[0])
			if err != nil {
				return err
			}
			updated, err := svc.DeleteStation(cmd.Context(), line.ID(), args[1])
			if err != nil {
				return err
			}
			printRoute(cmd, updated)
			return nil
		},
	}
}
