package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/movielake/movielake/engine/evidence"
	"github.com/movielake/movielake/engine/query"
	"github.com/movielake/movielake/pkg/natsutil"
)

func newQueryCmd(logger *slog.Logger) *cobra.Command {
	var (
		k         int
		route     string
		preferLLM bool
		noSave    bool
	)

	cmd := &cobra.Command{
		Use:   "query <question>",
		Short: "Answer one question against the lake",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.Join(args, " ")

			a, err := buildApp(logger)
			if err != nil {
				return err
			}
			defer a.close()

			res, err := a.svc.Query(cmd.Context(), question, query.Opts{
				K:         k,
				Route:     evidence.Route(route),
				PreferLLM: preferLLM,
			})
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(res, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))

			if !noSave {
				path, err := saveResult(res)
				if err != nil {
					return err
				}
				logger.Info("answer saved", "path", path)
			}

			publishAudit(cmd.Context(), a, res)
			return nil
		},
	}

	cmd.Flags().IntVar(&k, "k", query.DefaultK, "per-modality hit cap")
	cmd.Flags().StringVar(&route, "route", "", "force a route: structured, unstructured, or both")
	cmd.Flags().BoolVar(&preferLLM, "llm", false, "prefer LLM synthesis over the extractive fallback")
	cmd.Flags().BoolVar(&noSave, "no-save", false, "skip writing the answer file")
	return cmd
}

// saveResult writes the full result JSON into the outputs directory.
func saveResult(res *query.Result) (string, error) {
	lake, err := loadLake()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(lake.OutputsDir, 0o755); err != nil {
		return "", fmt.Errorf("create outputs dir: %w", err)
	}

	path := filepath.Join(lake.OutputsDir, fmt.Sprintf("answer_%s.json", time.Now().Format("20060102_150405")))
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write answer file: %w", err)
	}
	return path, nil
}

// publishAudit sends the audit event when NATS is configured. Audit
// failures are logged, never fatal.
func publishAudit(ctx context.Context, a *app, res *query.Result) {
	if a.nc == nil {
		return
	}
	ev := natsutil.AuditEvent{
		Query:          res.Query,
		Route:          string(res.Route.Route),
		Confidence:     res.Route.Confidence,
		UsedModalities: res.Answer.UsedModalities,
		DurationMS:     res.DurationMS,
		At:             time.Now().UTC(),
	}
	if err := natsutil.Publish(ctx, a.nc, natsutil.SubjectQueryAudit, ev); err != nil {
		a.logger.Warn("audit publish failed", "err", err)
	}
}
