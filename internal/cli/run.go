package cli

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/Swind/go-coop/core"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	var (
		tasks    int
		maxSleep time.Duration
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run sleeping tasks on a ticked runtime",
		Long:  "Spawns N tasks that each sleep a random duration, then drives the runtime with Run at the configured tick interval until all of them finished.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if tasks <= 0 {
				return fmt.Errorf("--tasks must be positive, got %d", tasks)
			}
			if maxSleep < 0 {
				return fmt.Errorf("--max-sleep must not be negative, got %s", maxSleep)
			}
			rt, opts, err := newRuntime(nil)
			if err != nil {
				return err
			}
			defer rt.Close()
			// Spawning happens before the loop starts, so the inbox must hold every task.
			if tasks > opts.InboxCapacity {
				return fmt.Errorf("--tasks %d exceeds inbox_capacity %d", tasks, opts.InboxCapacity)
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			start := time.Now()
			remaining := tasks
			for i := range tasks {
				d := time.Duration(rand.Int64N(int64(maxSleep) + 1))
				err := rt.SpawnNamed(fmt.Sprintf("sleeper-%d", i), core.Chain(
					core.Sleep(d),
					core.Do(func() {
						fmt.Fprintf(cmd.OutOrStdout(), "sleeper-%d woke after %v (asked %v)\n",
							i, time.Since(start).Round(time.Millisecond), d.Round(time.Millisecond))
						remaining--
						if remaining == 0 {
							cancel()
						}
					}),
				))
				if err != nil {
					return fmt.Errorf("spawn sleeper-%d: %w", i, err)
				}
			}

			if err := rt.Run(ctx, opts.TickInterval); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			if remaining > 0 {
				return fmt.Errorf("interrupted with %d tasks pending", remaining)
			}

			stats := rt.Stats()
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d tasks, %d steps in %v\n",
				stats.Name, stats.Completed, stats.Steps, time.Since(start).Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().IntVarP(&tasks, "tasks", "n", 5, "Number of sleeping tasks")
	cmd.Flags().DurationVar(&maxSleep, "max-sleep", 500*time.Millisecond, "Upper bound of each task's sleep")

	return cmd
}
