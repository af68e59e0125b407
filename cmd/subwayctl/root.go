package main

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/you/subway-path/internal/config"
	"github.com/you/subway-path/internal/db"
	"github.com/you/subway-path/internal/logging"
	"github.com/you/subway-path/models"
	"github.com/you/subway-path/service"
)

// app carries the persistent flags down to the subcommands
type app struct {
	dbPath   string
	logLevel string
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:          "subwayctl",
		Short:        "Manage subway lines from the command line",
		Long:         `subwayctl edits lines in the same store the API uses, including bulk loads from YAML seeds or GTFS feeds.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&a.dbPath, "db", "", "SQLite database path (default from SQLITE_DATABASE)")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "warn", "log level: debug, info, warn, error")

	cmd.AddCommand(
		lineCmd(a),
		routeCmd(a),
		addSegmentCmd(a),
		deleteStationCmd(a),
		seedCmd(a),
		importGTFSCmd(a),
	)
	return cmd
}

func (a *app) logger(cmd *cobra.Command) *slog.Logger {
	return logging.NewWithWriter(cmd.ErrOrStderr(), logging.ParseLevel(a.logLevel), "text")
}

// open connects to the configured store. Mutations from the CLI use the
// in-process locker; the store's revision check still catches a
// concurrent writer in the API.
func (a *app) open(cmd *cobra.Command) (*service.LineService, *slog.Logger, func(), error) {
	cfg := config.Load()
	if a.dbPath != "" {
		cfg.SQLitePath = a.dbPath
		cfg.DatabaseURL = ""
	}
	logger := a.logger(cmd)

	store, closeFn, err := db.Connect(cmd.Context(), cfg, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	svc := service.NewLineService(store, service.WithLogger(logger), service.WithLockTTL(cfg.LockTTL))
	return svc, logger, closeFn, nil
}

// findLine resolves a line by name, or by id when ref is numeric and no
// line carries that name
func findLine(ctx context.Context, svc *service.LineService, ref string) (*models.Line, error) {
	lines, err := svc.ListLines(ctx)
	if err != nil {
		return nil, err
	}
	for _, l := range lines {
		if l.Name() == ref {
			return l, nil
		}
	}
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		return svc.GetLine(ctx, id)
	}
	return nil, models.NewNotFoundError(models.CodeLineNotFound, "line %q not found", ref)
}

func printRoute(cmd *cobra.Command, line *models.Line) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s (%d stations, total %d)\n", line.Name(), len(line.Route()), line.TotalDistance())
	for i, s := range line.Segments() {
		if i == 0 {
			fmt.Fprintf(out, "  %s\n", s.Left.Name)
		}
		fmt.Fprintf(out, "  | %d\n  %s\n", s.Distance, s.Right.Name)
	}
}
