package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func lineCmd(a *app) *cobra.Command {
	c := &cobra.Command{
		Use:   "line",
		Short: "Create, list and delete lines",
	}
	c.AddCommand(lineCreateCmd(a), lineListCmd(a), lineDeleteCmd(a))
	return c
}

func lineCreateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "create <name>",
		Short: "Create an empty line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, closeFn, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			line, err := svc.CreateLine(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created line %q (id %d)\n", line.Name(), line.ID())
			return nil
		},
	}
}

func lineListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List lines with their size",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, _, closeFn, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			lines, err := svc.ListLines(cmd.Context())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tSTATIONS\tDISTANCE")
			for _, l := range lines {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\n", strconv.FormatInt(l.ID(), 10), l.Name(), len(l.Route()), l.TotalDistance())
			}
			return tw.Flush()
		},
	}
}

func lineDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <line>",
		Short: "Delete a line and all its segments",
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
			if err := svc.DeleteLine(cmd.Context(), line.ID()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted line %q\n", line.Name())
			return nil
		},
	}
}
