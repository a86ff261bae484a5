package jobs

import (
	"context"
	"fmt"
	"time"

	"vaultdrive/services"
	"vaultdrive/utils"
)

// StartTrashCleanup runs the auto-purge sweep on a ticker until the context
// is cancelled. Items past their retention deadline are permanently
// deleted, blobs included.
func StartTrashCleanup(ctx context.Context, trashService *services.TrashService, interval time.Duration) {
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
			case now := <-ticker.C:
				purged, err := trashService.PurgeExpired(ctx, now)
				if err != nil {
					utils.LogError("trash cleanup sweep failed", err)
					continue
				}
				if purged > 0 {
					utils.LogInfo(fmt.Sprintf("trash cleanup purged %d expired items", purged))
				}
			}
		}
	}()

	utils.LogInfo(fmt.Sprintf("trash cleanup job started, interval %v", interval))
}
