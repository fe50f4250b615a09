package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"eventscan/internal/metrics"
	"eventscan/internal/scan"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newRunCmd(configPath *string) *cobra.Command {
	var (
		date    string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one scan and print the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := parseReference(date)
			if err != nil {
				return err
			}

			cfg, logger, logCloser, err := loadConfigAndLogger(*configPath)
			if err != nil {
				return err
			}
			defer logCloser.Close()

			ctx := cmd.Context()
			a := buildApp(ctx, cfg, logger)
			defer a.Close()

			inv := scan.Invocation{RequestID: uuid.NewString()}
			if timeout > 0 {
				inv.Deadline = time.Now().Add(timeout)
			}
			resp := a.handler.Handle(ctx, scan.Trigger{ReferenceTime: ref}, inv)

			if cfg.Monitoring.PushgatewayURL != "" {
				pushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				if err := metrics.Push(pushCtx, cfg.Monitoring.PushgatewayURL, cfg.Monitoring.PushJob); err != nil {
					logger.Warn().Err(err).Msg("Failed to push run metrics")
				}
				cancel()
			}

			out, err := json.Marshal(resp)
			if err != nil {
				return fmt.Errorf("encode response: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("run failed with status %d", resp.StatusCode)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "reference date (YYYY-MM-DD or RFC3339), defaults to now")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "abort the run after this duration")
	return cmd
}

// parseReference accepts a bare date, taken as noon UTC, or a full timestamp.
func parseReference(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	if day, err := time.Parse(time.DateOnly, value); err == nil {
		ref := day.Add(12 * time.Hour)
		return &ref, nil
	}
	ref, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, fmt.Errorf("invalid --date %q: want YYYY-MM-DD or RFC3339", value)
	}
	return &ref, nil
}
