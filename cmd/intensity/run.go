package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/seismic-intensity/internal/domain"
	"github.com/couchcryptid/seismic-intensity/internal/observability"
	"github.com/couchcryptid/seismic-intensity/internal/pipeline"
)

func newRunCommand(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "run <file-or-dir>...",
		Short: "Process decoded-record files once and print the results",
		Long: "Decodes every file given (directories contribute their *.json files), groups\n" +
			"records into station events, computes intensity and writes the report to\n" +
			"the output directory. Stations that fail are listed with the reason.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inputs, err := expandInputs(args)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			// Results go to stdout, so logs go to stderr.
			a.logger = observability.NewConsoleLogger(a.cfg, cmd.ErrOrStderr())

			svc, err := newService(ctx, a.cfg, a.logger, processMetrics())
			if err != nil {
				return err
			}
			defer svc.Close()

			batch, loadErr := svc.orchestrator.RunBatch(ctx, pipeline.BatchRequest{
				Inputs:    inputs,
				OutputDir: a.cfg.OutputDir,
				Progress: func(key domain.StationKey, stage domain.Stage) {
					a.logger.Debug("station progress", "station_id", key.StationID, "event_id", key.EventID, "stage", stage)
				},
			})
			if batch == nil {
				return loadErr
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(batch); err != nil {
					return err
				}
			} else {
				fmt.Fprintln(out, renderResults(batch, shouldColorize(out)))
				fmt.Fprintln(out, summaryLine(batch.Summary))
			}

			if loadErr != nil {
				return fmt.Errorf("batch %s computed but not fully saved: %w", batch.ID, loadErr)
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full result set as JSON instead of a table")
	return cmd
}

// expandInputs replaces directories by the *.json files they contain. Files
// are kept as given, so a misspelt path is reported as a failed input.
func expandInputs(args []string) ([]string, error) {
	var out []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil || !info.IsDir() {
			out = append(out, arg)
			continue
		}
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", arg, err)
		}
		var found []string
		for _, e := range entries {
			if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".json") && !strings.HasPrefix(e.Name(), ".") {
				found = append(found, filepath.Join(arg, e.Name()))
			}
		}
		sort.Strings(found)
		out = append(out, found...)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no input files found")
	}
	return out, nil
}
