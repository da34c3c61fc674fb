package cli

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"time"

	"github.com/Swind/go-coop/core"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// stressResult summarizes one stress run.
type stressResult struct {
	Tasks     int64
	Steps     int64
	Elapsed   time.Duration
	HeapDelta uint64
}

func newStressCmd() *cobra.Command {
	var (
		producers int
		perProd   int
		yields    int
	)

	cmd := &cobra.Command{
		Use:   "stress",
		Short: "Spawn from many goroutines and drain on one",
		Long:  "Starts producer goroutines that spawn through their own Spawner while the runtime owner blocks until every task completed, then prints throughput.",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, _, err := newRuntime(nil)
			if err != nil {
				return err
			}
			defer rt.Close()

			res, err := runStress(cmd.Context(), rt, producers, perProd, yields)
			if err != nil {
				return err
			}
			printStress(cmd.OutOrStdout(), res)
			return nil
		},
	}

	cmd.Flags().IntVarP(&producers, "producers", "p", runtime.NumCPU(), "Number of spawning goroutines")
	cmd.Flags().IntVarP(&perProd, "tasks", "n", 10_000, "Tasks spawned per producer")
	cmd.Flags().IntVar(&yields, "yields", 1, "Times each task yields before completing")

	return cmd
}

// runStress spawns producers*perProducer tasks concurrently and blocks rt's
// owner until all of them completed. rt must be fresh.
func runStress(ctx context.Context, rt *core.Runtime, producers, perProducer, yields int) (stressResult, error) {
	if producers <= 0 || perProducer <= 0 {
		return stressResult{}, fmt.Errorf("producers and tasks must be positive, got %d and %d", producers, perProducer)
	}
	total := producers * perProducer

	var before runtime.MemStats
	runtime.ReadMemStats(&before)
	start := time.Now()

	// The counter and signal are only touched by steps, on the owner goroutine.
	completed := 0
	var allDone core.Signal
	newTask := func() core.Computation {
		steps := make([]core.Computation, 0, yields+1)
		for range yields {
			steps = append(steps, core.YieldNow())
		}
		steps = append(steps, core.Do(func() {
			completed++
			if completed == total {
				allDone.Notify()
			}
		}))
		return core.Chain(steps...)
	}

	// Producers start from the first step, once the waiter is admitted, so the
	// owner never competes with them for inbox space.
	g, gctx := errgroup.WithContext(ctx)
	startProducers := core.Do(func() {
		for range producers {
			spawner := rt.Spawner()
			g.Go(func() error {
				for range perProducer {
					if err := gctx.Err(); err != nil {
						return err
					}
					if err := spawner.Spawn(newTask()); err != nil {
						return err
					}
				}
				return nil
			})
		}
	})

	if err := rt.BlockOnContext(ctx, core.Chain(startProducers, allDone.Await())); err != nil {
		// Unblock producers stuck on a full inbox.
		rt.Close()
		_ = g.Wait()
		return stressResult{}, err
	}
	if err := g.Wait(); err != nil {
		return stressResult{}, err
	}

	var after runtime.MemStats
	runtime.ReadMemStats(&after)
	stats := rt.Stats()

	res := stressResult{
		Tasks:   int64(completed),
		Steps:   stats.Steps,
		Elapsed: time.Since(start),
	}
	if after.TotalAlloc > before.TotalAlloc {
		res.HeapDelta = after.TotalAlloc - before.TotalAlloc
	}
	return res, nil
}

func printStress(w io.Writer, res stressResult) {
	secs := res.Elapsed.Seconds()
	if secs == 0 {
		secs = 1e-9
	}
	fmt.Fprintf(w, "Tasks:     %s\n", humanize.Comma(res.Tasks))
	fmt.Fprintf(w, "Steps:     %s\n", humanize.Comma(res.Steps))
	fmt.Fprintf(w, "Elapsed:   %v\n", res.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(w, "Rate:      %s tasks/s\n", humanize.CommafWithDigits(float64(res.Tasks)/secs, 0))
	fmt.Fprintf(w, "Allocated: %s\n", humanize.Bytes(res.HeapDelta))
}
