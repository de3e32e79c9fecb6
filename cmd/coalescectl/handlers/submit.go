package handlers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/concave-dev/coalesce/cmd/coalescectl/client"
	"github.com/concave-dev/coalesce/cmd/coalescectl/config"
	"github.com/concave-dev/coalesce/cmd/coalescectl/display"
	"github.com/concave-dev/coalesce/cmd/coalescectl/utils"
	"github.com/concave-dev/coalesce/internal/batching"
	"github.com/concave-dev/coalesce/internal/logging"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// submitShutdownTimeout bounds the final drain of the coordinator.
const submitShutdownTimeout = 30 * time.Second

// backend is both halves the coordinator needs: single requests and combined
// batches. *transport.Client satisfies it.
type backend interface {
	batching.Handler
	batching.Transport
}

// HandleSubmit handles the submit command: every request in the file is sent
// concurrently through a batch coordinator, so tagged writes that arrive
// within one window share a single batch call.
func HandleSubmit(cmd *cobra.Command, args []string) error {
	utils.SetupLogging()

	if err := config.ValidateSubmitFlags(); err != nil {
		return err
	}

	requests, err := utils.LoadRequests(args[0], config.Submit.Group)
	if err != nil {
		return err
	}

	apiClient, err := client.CreateAPIClient()
	if err != nil {
		return err
	}

	logging.Info("Submitting %d requests to %s (max batch %d, window %v)",
		len(requests), config.Global.APIAddr, config.Submit.MaxBatchSize, config.Submit.Window)

	results, metrics, err := submitRequests(cmd.Context(), apiClient, requests)
	if err != nil {
		return err
	}

	display.DisplaySubmitResults(results)
	if config.Global.Verbose {
		display.DisplayMetrics(metrics)
	}

	failed := 0
	for _, r := range results {
		if r.Error != "" || r.Status < 200 || r.Status >= 300 {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d requests did not succeed", failed, len(results))
	}

	logging.Success("Submitted %d requests in %d batches", len(results), metrics["flushes_total"])
	return nil
}

// submitRequests sends requests through a coordinator in front of b and
// returns one result per request, in submission order, plus the coordinator
// metrics after it has drained.
func submitRequests(ctx context.Context, b backend, requests []*batching.Request) ([]display.SubmitResult, map[string]int64, error) {
	cfg := batching.DefaultConfig()
	cfg.MaxBatchSize = config.Submit.MaxBatchSize
	cfg.WindowMs = int(config.Submit.Window / time.Millisecond)

	coord, err := batching.NewCoordinator(b, b, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create batch coordinator: %w", err)
	}

	if config.Submit.FlushAfter > 0 {
		timer := time.AfterFunc(config.Submit.FlushAfter, func() {
			if n := coord.FlushPending(); n > 0 {
				logging.Info("Flushed %d pending batches after %v", n, config.Submit.FlushAfter)
			}
		})
		defer timer.Stop()
	}

	results := make([]display.SubmitResult, len(requests))
	var tipOnce sync.Once

	g, gctx := errgroup.WithContext(ctx)
	if config.Submit.Concurrency > 0 {
		g.SetLimit(config.Submit.Concurrency)
	}
	for i, req := range requests {
		g.Go(func() error {
			start := time.Now()
			resp, err := coord.Do(gctx, req)

			result := display.SubmitResult{
				Index:    i,
				Method:   req.Method,
				Path:     req.Path,
				Group:    req.BatchAs,
				Duration: time.Since(start),
			}
			if err != nil {
				// Per-request failures are reported, not fatal to the run
				result.Error = err.Error()
				logging.Warn("Request %d (%s %s) failed: %v", i, req.Method, req.Path, err)
				tipOnce.Do(func() { connectionTip(err) })
			} else {
				result.Status = resp.Status
				result.Body = resp.Body
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), submitShutdownTimeout)
	defer cancel()
	if err := coord.Shutdown(shutdownCtx); err != nil {
		logging.Warn("Coordinator did not drain cleanly: %v", err)
	}

	return results, coord.GetMetrics(), nil
}
