package services

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"vaultdrive/models"
	"vaultdrive/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TrashService is the manager over the trash collection: listing, restore
// with the orphan reparenting policy, permanent purge, and the expiry sweep
// the cleanup job runs.
type TrashService struct {
	trashStore    TrashEntityStore
	fileStore     FileEntityStore
	folderStore   FolderEntityStore
	fileService   *FileService
	folderService *FolderService
	stats         AggregateTracker
}

func NewTrashService(trashStore TrashEntityStore, fileStore FileEntityStore, folderStore FolderEntityStore, fileService *FileService, folderService *FolderService, stats AggregateTracker) *TrashService {
	return &TrashService{
		trashStore:    trashStore,
		fileStore:     fileStore,
		folderStore:   folderStore,
		fileService:   fileService,
		folderService: folderService,
		stats:         stats,
	}
}

// List returns the owner's trash records, optionally filtered by item type.
func (s *TrashService) List(ctx context.Context, ownerID primitive.ObjectID, itemType models.ItemType, opts QueryOptions) ([]models.TrashRecord, int64, error) {
	return s.trashStore.List(ctx, ownerID, itemType, opts)
}

// Restore brings trashed items back. Each record succeeds or fails on its
// own; one broken entry never blocks the rest of the batch.
func (s *TrashService) Restore(ctx context.Context, ownerID primitive.ObjectID, recordIDs []primitive.ObjectID) []BatchResult {
	results := make([]BatchResult, len(recordIDs))
	for i, recordID := range recordIDs {
		results[i] = s.restoreOne(ctx, ownerID, recordID)
	}
	return results
}

func (s *TrashService) restoreOne(ctx context.Context, ownerID, recordID primitive.ObjectID) BatchResult {
	result := BatchResult{ID: recordID.Hex()}

	record, err := s.trashStore.Find(ctx, ownerID, recordID)
	if err != nil {
		result.Status = utils.AsApiError(err).Message
		return result
	}
	result.Name = record.Name

	switch record.ItemType {
	case models.ItemTypeFolder:
		if _, err := s.folderService.Restore(ctx, ownerID, record.ItemID); err != nil {
			result.Status = utils.AsApiError(err).Message
			return result
		}
	default:
		if err := s.restoreFile(ctx, ownerID, record.ItemID); err != nil {
			result.Status = utils.AsApiError(err).Message
			return result
		}
	}

	if err := s.trashStore.Delete(ctx, ownerID, recordID); err != nil {
		utils.LogError("restore: trash record cleanup failed", err)
	}

	result.Success = true
	result.Status = "restored"
	return result
}

// restoreFile clears a file's trashed flag. When the original parent folder
// is gone or itself trashed, the file is reparented to the root and its path
// restarts from its own name. A name taken by an active sibling gets the
// usual " (n)" suffix.
func (s *TrashService) restoreFile(ctx context.Context, ownerID, fileID primitive.ObjectID) error {
	file, err := s.fileStore.FindAny(ctx, ownerID, fileID)
	if err != nil {
		return err
	}
	if !file.IsTrashed {
		return utils.NewBadRequest("file is not in the trash")
	}

	newParentID := file.ParentID
	parentPath := ""
	if file.ParentID != nil {
		parent, err := s.folderStore.FindAny(ctx, ownerID, *file.ParentID)
		if err != nil || parent.IsTrashed {
			newParentID = nil
		} else {
			parentPath = parent.Path
		}
	}

	name, err := s.resolveRestoredName(ctx, ownerID, newParentID, file.OriginalName)
	if err != nil {
		return err
	}

	err = s.fileStore.Save(ctx, ownerID, fileID, bson.M{
		"is_trashed":    false,
		"parent_id":     parentIDValue(newParentID),
		"original_name": name,
		"path":          utils.JoinPath(parentPath, name),
	})
	if err != nil {
		return err
	}

	s.stats.Adjust(ctx, newParentID, 1, 0, file.Size)
	return nil
}

func (s *TrashService) resolveRestoredName(ctx context.Context, ownerID primitive.ObjectID, parentID *primitive.ObjectID, name string) (string, error) {
	return utils.ResolveCollision(name, func(candidate string) (bool, error) {
		return s.fileStore.ActiveSiblingExists(ctx, ownerID, parentID, candidate)
	})
}

// Purge permanently removes trashed items: blobs, records, and quota all
// settled. Per-item outcomes, no rollback.
func (s *TrashService) Purge(ctx context.Context, ownerID primitive.ObjectID, recordIDs []primitive.ObjectID) []BatchResult {
	results := make([]BatchResult, len(recordIDs))
	for i, recordID := range recordIDs {
		results[i] = s.purgeOne(ctx, ownerID, recordID)
	}
	return results
}

func (s *TrashService) purgeOne(ctx context.Context, ownerID, recordID primitive.ObjectID) BatchResult {
	result := BatchResult{ID: recordID.Hex()}

	record, err := s.trashStore.Find(ctx, ownerID, recordID)
	if err != nil {
		result.Status = utils.AsApiError(err).Message
		return result
	}
	result.Name = record.Name

	if err := s.purgeItem(ctx, record); err != nil {
		result.Status = utils.AsApiError(err).Message
		return result
	}

	result.Success = true
	result.Status = "purged"
	return result
}

// purgeItem destroys the entity a trash record points at. Only entities
// that are still trashed are destroyed: a record left behind after its item
// was re-activated through another path is dropped as stale, never acted
// on.
func (s *TrashService) purgeItem(ctx context.Context, record *models.TrashRecord) error {
	switch record.ItemType {
	case models.ItemTypeFolder:
		folder, err := s.folderStore.FindAny(ctx, record.OwnerID, record.ItemID)
		if err != nil && !utils.IsStatus(err, http.StatusNotFound) {
			return err
		}
		if err == nil {
			if !folder.IsTrashed {
				return s.dropStaleRecord(ctx, record)
			}
			if _, err := s.folderService.HardDeleteTree(ctx, record.OwnerID, record.ItemID); err != nil {
				return err
			}
		}
	default:
		file, err := s.fileStore.FindAny(ctx, record.OwnerID, record.ItemID)
		if err != nil && !utils.IsStatus(err, http.StatusNotFound) {
			return err
		}
		if err == nil {
			if !file.IsTrashed {
				return s.dropStaleRecord(ctx, record)
			}
			outcome := s.fileService.HardDelete(ctx, record.OwnerID, []primitive.ObjectID{record.ItemID})
			if len(outcome) == 1 && !outcome[0].Success {
				return utils.NewInternal("%s", outcome[0].Status)
			}
		}
	}
	// HardDelete paths remove the record by item id; clear it here too in
	// case the entity document was already gone.
	return s.trashStore.Delete(ctx, record.OwnerID, record.ID)
}

func (s *TrashService) dropStaleRecord(ctx context.Context, record *models.TrashRecord) error {
	if err := s.trashStore.Delete(ctx, record.OwnerID, record.ID); err != nil {
		utils.LogError("purge: stale trash record cleanup failed", err)
	}
	return utils.NewConflict("item is no longer in the trash")
}

// ClearAll purges every trash record the owner has.
func (s *TrashService) ClearAll(ctx context.Context, ownerID primitive.ObjectID) []BatchResult {
	records, _, err := s.trashStore.List(ctx, ownerID, "", QueryOptions{Limit: maxPageLimit})
	if err != nil {
		return []BatchResult{{Status: utils.AsApiError(err).Message}}
	}

	var results []BatchResult
	for len(records) > 0 {
		progressed := false
		for _, record := range records {
			outcome := s.purgeOne(ctx, ownerID, record.ID)
			if outcome.Success {
				progressed = true
			}
			results = append(results, outcome)
		}
		// Stop when a full pass purged nothing, otherwise the same broken
		// records would loop forever.
		if !progressed {
			break
		}
		records, _, err = s.trashStore.List(ctx, ownerID, "", QueryOptions{Limit: maxPageLimit})
		if err != nil {
			break
		}
	}
	return results
}

// PurgeExpired deletes every record past its auto-purge deadline, across
// all users. The trash cleanup job calls this on a timer.
func (s *TrashService) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	records, err := s.trashStore.ListExpired(ctx, now)
	if err != nil {
		return 0, err
	}

	purged := 0
	for _, record := range records {
		if err := s.purgeItem(ctx, &record); err != nil {
			utils.LogError(fmt.Sprintf("auto-purge failed for trash record %s", record.ID.Hex()), err)
			continue
		}
		purged++
	}
	return purged, nil
}
