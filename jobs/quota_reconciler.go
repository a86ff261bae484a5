package jobs

import (
	"context"
	"fmt"
	"time"

	"vaultdrive/services"
	"vaultdrive/utils"
)

// StartQuotaReconciler periodically recomputes every user's used-storage
// counter from their actual files. A crash between a blob mutation and its
// quota increment leaves the counter drifted; this sweep is the repair.
func StartQuotaReconciler(ctx context.Context, quota *services.QuotaService, interval time.Duration) {
	if interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				reconcileAll(ctx, quota)
			}
		}
	}()

	utils.LogInfo(fmt.Sprintf("quota reconciler job started, interval %v", interval))
}

func reconcileAll(ctx context.Context, quota *services.QuotaService) {
	userIDs, err := quota.AllUserIDs(ctx)
	if err != nil {
		utils.LogError("quota reconciler could not list users", err)
		return
	}

	for _, userID := range userIDs {
		if _, err := quota.Recompute(ctx, userID); err != nil {
			utils.LogError(fmt.Sprintf("quota recompute failed for user %s", userID.Hex()), err)
		}
	}
}
