package tasks

import (
	"context"
	"fmt"
	"time"
)

// newFlowCleanupTask removes flows that outlived the flow TTL. Expired flows are already
// ignored by the router; this only keeps chat_flows small.
func newFlowCleanupTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "flow_cleanup")

	return func(ctx context.Context) error {
		cutoff := time.Now().Add(-deps.FlowTTL)
		n, err := deps.Store.PurgeFlowsBefore(ctx, cutoff)
		if err != nil {
			return fmt.Errorf("flow cleanup failed: %w", err)
		}
		if n > 0 {
			log.InfoContext(ctx, "Purged expired flows", "count", n)
		}
		return nil
	}
}
