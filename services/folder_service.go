package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"vaultdrive/models"
	"vaultdrive/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// FolderService implements folder CRUD and the recursive tree operations:
// subtree soft delete, subtree hard delete, move with cycle rejection, and
// the descendant path rewrite that rename and move require.
type FolderService struct {
	folderStore FolderEntityStore
	fileStore   FileEntityStore
	trashStore  TrashEntityStore
	stats       AggregateTracker
	quota       QuotaTracker
	blobs       BlobStore
}

func NewFolderService(folderStore FolderEntityStore, fileStore FileEntityStore, trashStore TrashEntityStore, stats AggregateTracker, quota QuotaTracker, blobs BlobStore) *FolderService {
	return &FolderService{
		folderStore: folderStore,
		fileStore:   fileStore,
		trashStore:  trashStore,
		stats:       stats,
		quota:       quota,
		blobs:       blobs,
	}
}

// Create makes a folder under parentID (nil for root). An active sibling
// with the same name is a conflict; the unique index backstops the check.
func (s *FolderService) Create(ctx context.Context, ownerID primitive.ObjectID, name string, parentID *primitive.ObjectID) (*models.Folder, error) {
	if err := utils.ValidateName(name); err != nil {
		return nil, err
	}

	parentPath := ""
	if parentID != nil {
		parent, err := s.folderStore.FindActive(ctx, ownerID, *parentID)
		if err != nil {
			return nil, utils.NewBadRequest("parent folder not found")
		}
		parentPath = parent.Path
	}

	exists, err := s.folderStore.ActiveSiblingExists(ctx, ownerID, parentID, name)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, utils.NewConflict("folder with name '%s' already exists", name)
	}

	now := time.Now()
	folder := models.Folder{
		ID:        primitive.NewObjectID(),
		OwnerID:   ownerID,
		ParentID:  parentID,
		Name:      name,
		Path:      utils.JoinPath(parentPath, name),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.folderStore.Insert(ctx, &folder); err != nil {
		return nil, err
	}

	s.stats.Adjust(ctx, parentID, 0, 1, 0)
	return &folder, nil
}

// Get returns an active folder by id.
func (s *FolderService) Get(ctx context.Context, ownerID, folderID primitive.ObjectID) (*models.Folder, error) {
	return s.folderStore.FindActive(ctx, ownerID, folderID)
}

// Rename changes the display name and rewrites the materialized path of the
// folder and every descendant. Renaming to the current name is a no-op.
func (s *FolderService) Rename(ctx context.Context, ownerID, folderID primitive.ObjectID, newName string) (*models.Folder, error) {
	if err := utils.ValidateName(newName); err != nil {
		return nil, err
	}

	folder, err := s.folderStore.FindActive(ctx, ownerID, folderID)
	if err != nil {
		return nil, err
	}
	if folder.Name == newName {
		return folder, nil
	}

	exists, err := s.folderStore.ActiveSiblingExists(ctx, ownerID, folder.ParentID, newName)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, utils.NewConflict("folder with name '%s' already exists", newName)
	}

	parentPath := ""
	if folder.ParentID != nil {
		parent, err := s.folderStore.FindAny(ctx, ownerID, *folder.ParentID)
		if err != nil {
			return nil, err
		}
		parentPath = parent.Path
	}

	oldPath := folder.Path
	newPath := utils.JoinPath(parentPath, newName)

	err = s.folderStore.Save(ctx, ownerID, folderID, bson.M{
		"name": newName,
		"path": newPath,
	})
	if err != nil {
		return nil, err
	}

	if err := s.rewriteDescendantPaths(ctx, ownerID, oldPath, newPath); err != nil {
		return nil, err
	}

	folder.Name = newName
	folder.Path = newPath
	return folder, nil
}

// Move reparents a folder. Moving a folder into itself or any of its
// descendants is rejected: reparenting onto the subtree would detach it
// into a cycle.
func (s *FolderService) Move(ctx context.Context, ownerID, folderID primitive.ObjectID, newParentID *primitive.ObjectID) (*models.Folder, error) {
	folder, err := s.folderStore.FindActive(ctx, ownerID, folderID)
	if err != nil {
		return nil, err
	}

	if sameParent(folder.ParentID, newParentID) {
		return nil, utils.NewConflict("folder is already in the target location")
	}

	newParentPath := ""
	if newParentID != nil {
		if *newParentID == folderID {
			return nil, utils.NewConflict("cannot move a folder into itself")
		}
		target, err := s.folderStore.FindActive(ctx, ownerID, *newParentID)
		if err != nil {
			return nil, utils.NewNotFound("target folder not found")
		}
		if utils.IsDescendantPath(folder.Path, target.Path) {
			return nil, utils.NewConflict("cannot move a folder into its own descendant")
		}
		newParentPath = target.Path
	}

	exists, err := s.folderStore.ActiveSiblingExists(ctx, ownerID, newParentID, folder.Name)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, utils.NewConflict("folder with name '%s' already exists in the target", folder.Name)
	}

	oldPath := folder.Path
	newPath := utils.JoinPath(newParentPath, folder.Name)

	err = s.folderStore.Save(ctx, ownerID, folderID, bson.M{
		"parent_id": parentIDValue(newParentID),
		"path":      newPath,
	})
	if err != nil {
		return nil, err
	}

	if err := s.rewriteDescendantPaths(ctx, ownerID, oldPath, newPath); err != nil {
		return nil, err
	}

	s.stats.Adjust(ctx, folder.ParentID, 0, -1, -folder.Size)
	s.stats.Adjust(ctx, newParentID, 0, 1, folder.Size)

	folder.ParentID = newParentID
	folder.Path = newPath
	return folder, nil
}

// rewriteDescendantPaths rewrites the materialized path of every file and
// folder under oldPath to live under newPath instead. Skipping this after a
// rename or move leaves every descendant's path stale.
func (s *FolderService) rewriteDescendantPaths(ctx context.Context, ownerID primitive.ObjectID, oldPath, newPath string) error {
	pattern := utils.PathPrefixPattern(oldPath)
	subtreeFilter := bson.M{
		"owner_id": ownerID,
		"path":     bson.M{"$regex": pattern},
	}

	folders, err := s.folderStore.FindFilter(ctx, subtreeFilter, nil)
	if err != nil {
		return err
	}

	var folderOps []mongo.WriteModel
	for _, f := range folders {
		folderOps = append(folderOps, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": f.ID}).
			SetUpdate(bson.M{"$set": bson.M{
				"path":       utils.RewritePathPrefix(f.Path, oldPath, newPath),
				"updated_at": time.Now(),
			}}))
	}
	if err := s.folderStore.BulkWrite(ctx, folderOps); err != nil {
		return err
	}

	files, err := s.fileStore.FindFilter(ctx, subtreeFilter, nil)
	if err != nil {
		return err
	}

	var fileOps []mongo.WriteModel
	for _, f := range files {
		fileOps = append(fileOps, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": f.ID}).
			SetUpdate(bson.M{"$set": bson.M{
				"path":       utils.RewritePathPrefix(f.Path, oldPath, newPath),
				"updated_at": time.Now(),
			}}))
	}
	return s.fileStore.BulkWrite(ctx, fileOps)
}

// SoftDeleteTree trashes a folder and everything under it. The walk is an
// explicit breadth-first queue so arbitrarily deep trees cannot exhaust the
// stack. Parent pointers are left untouched: the subtree stays structurally
// intact for restore. Locked descendants are skipped; only the locker's own
// operations may transition them.
func (s *FolderService) SoftDeleteTree(ctx context.Context, ownerID, rootID primitive.ObjectID) (*models.Folder, error) {
	root, err := s.folderStore.FindActive(ctx, ownerID, rootID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	trashUpdate := bson.M{"$set": bson.M{"is_trashed": true, "updated_at": now}}

	queue := []primitive.ObjectID{rootID}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		// Files first, then the folder itself at each level.
		err := s.fileStore.UpdateMany(ctx, bson.M{
			"owner_id":   ownerID,
			"parent_id":  current,
			"is_trashed": false,
			"is_locked":  false,
		}, trashUpdate)
		if err != nil {
			return nil, err
		}

		children, err := s.folderStore.FindFilter(ctx, bson.M{
			"owner_id":   ownerID,
			"parent_id":  current,
			"is_trashed": false,
			"is_locked":  false,
		}, nil)
		if err != nil {
			return nil, err
		}
		for _, child := range children {
			queue = append(queue, child.ID)
		}

		if err := s.folderStore.Save(ctx, ownerID, current, bson.M{"is_trashed": true}); err != nil {
			return nil, err
		}
	}

	// Aggregates are direct-child-only, so only the root's own parent is
	// compensated, once, using the root's cached stats.
	s.stats.Adjust(ctx, root.ParentID, 0, -1, -root.Size)

	if err := s.trashStore.Insert(ctx, ownerID, root.ID, models.ItemTypeFolder, root.Name, root.Path, root.Size); err != nil {
		utils.LogError(fmt.Sprintf("trash record insert failed for folder %s", rootID.Hex()), err)
	}

	root.IsTrashed = true
	return root, nil
}

// TreeDeleteSummary reports what a hard tree delete removed.
type TreeDeleteSummary struct {
	FilesDeleted   int64 `json:"files_deleted"`
	FoldersDeleted int64 `json:"folders_deleted"`
	BytesReclaimed int64 `json:"bytes_reclaimed"`
}

// HardDeleteTree permanently removes a folder subtree: every blob, every
// file record, every folder record, level by level off an explicit queue.
// One stuck blob never aborts the rest of the traversal.
func (s *FolderService) HardDeleteTree(ctx context.Context, ownerID, rootID primitive.ObjectID) (*TreeDeleteSummary, error) {
	root, err := s.folderStore.FindAny(ctx, ownerID, rootID)
	if err != nil {
		return nil, err
	}

	summary := &TreeDeleteSummary{}

	queue := []primitive.ObjectID{rootID}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		files, err := s.fileStore.FindFilter(ctx, bson.M{
			"owner_id":  ownerID,
			"parent_id": current,
		}, nil)
		if err != nil {
			return nil, err
		}

		for _, file := range files {
			if err := s.blobs.Delete(ctx, file.StoragePath); err != nil {
				utils.LogWarning(fmt.Sprintf("failed to delete blob %s, continuing: %v", file.StoragePath, err))
			}
			summary.FilesDeleted++
			summary.BytesReclaimed += file.Size
			if err := s.trashStore.DeleteByItem(ctx, ownerID, file.ID); err != nil {
				utils.LogError("tree delete: trash record cleanup failed", err)
			}
		}

		if err := s.fileStore.DeleteMany(ctx, bson.M{"owner_id": ownerID, "parent_id": current}); err != nil {
			return nil, err
		}

		children, err := s.folderStore.ChildFolderIDs(ctx, ownerID, current)
		if err != nil {
			return nil, err
		}
		queue = append(queue, children...)

		if err := s.folderStore.Delete(ctx, ownerID, current); err != nil {
			utils.LogError(fmt.Sprintf("failed to delete folder record %s", current.Hex()), err)
		}
		summary.FoldersDeleted++
		if err := s.trashStore.DeleteByItem(ctx, ownerID, current); err != nil {
			utils.LogError("tree delete: trash record cleanup failed", err)
		}
	}

	if err := s.quota.Adjust(ctx, ownerID, -summary.BytesReclaimed); err != nil {
		utils.LogError("tree delete: quota update failed", err)
	}

	// A still-active root was being counted by its parent.
	if !root.IsTrashed {
		s.stats.Adjust(ctx, root.ParentID, 0, -1, -root.Size)
	}

	return summary, nil
}

// ContentItem is one entry of a merged folder listing.
type ContentItem struct {
	Type        models.ItemType    `json:"type"`
	ID          primitive.ObjectID `json:"id"`
	Name        string             `json:"name"`
	Path        string             `json:"path"`
	Size        int64              `json:"size"`
	FileType    string             `json:"file_type,omitempty"`
	FileCount   int64              `json:"file_count,omitempty"`
	FolderCount int64              `json:"folder_count,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// GetContents returns the union of direct active child folders and files
// under parentID (nil for root) as one typed result set. Pagination applies
// to the merged list, folders sorting before files.
func (s *FolderService) GetContents(ctx context.Context, ownerID primitive.ObjectID, parentID *primitive.ObjectID, nameFilter string, opts QueryOptions) ([]ContentItem, int64, error) {
	if parentID != nil {
		if _, err := s.folderStore.FindActive(ctx, ownerID, *parentID); err != nil {
			return nil, 0, err
		}
	}

	folders, err := s.folderStore.FindByParent(ctx, ownerID, parentID)
	if err != nil {
		return nil, 0, err
	}
	files, err := s.fileStore.FindByParent(ctx, ownerID, parentID)
	if err != nil {
		return nil, 0, err
	}

	var items []ContentItem
	for _, f := range folders {
		if nameFilter != "" && !strings.Contains(strings.ToLower(f.Name), strings.ToLower(nameFilter)) {
			continue
		}
		items = append(items, ContentItem{
			Type:        models.ItemTypeFolder,
			ID:          f.ID,
			Name:        f.Name,
			Path:        f.Path,
			Size:        f.Size,
			FileCount:   f.FileCount,
			FolderCount: f.FolderCount,
			CreatedAt:   f.CreatedAt,
			UpdatedAt:   f.UpdatedAt,
		})
	}
	for _, f := range files {
		if nameFilter != "" && !strings.Contains(strings.ToLower(f.OriginalName), strings.ToLower(nameFilter)) {
			continue
		}
		items = append(items, ContentItem{
			Type:      models.ItemTypeFile,
			ID:        f.ID,
			Name:      f.OriginalName,
			Path:      f.Path,
			Size:      f.Size,
			FileType:  f.FileType,
			CreatedAt: f.CreatedAt,
			UpdatedAt: f.UpdatedAt,
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Type != items[j].Type {
			return items[i].Type == models.ItemTypeFolder
		}
		return items[i].Name < items[j].Name
	})

	total := int64(len(items))
	n := opts.normalized()
	start := int(n.skip())
	if start > len(items) {
		start = len(items)
	}
	end := start + n.Limit
	if end > len(items) {
		end = len(items)
	}

	return items[start:end], total, nil
}

// Restore clears a folder's trashed flag and re-activates its subtree. If
// the original parent is gone or still trashed the folder is reparented to
// the root and its path restarts from its own name.
func (s *FolderService) Restore(ctx context.Context, ownerID, folderID primitive.ObjectID) (*models.Folder, error) {
	folder, err := s.folderStore.FindAny(ctx, ownerID, folderID)
	if err != nil {
		return nil, err
	}
	if !folder.IsTrashed {
		return nil, utils.NewBadRequest("folder is not in the trash")
	}

	newParentID := folder.ParentID
	newPath := folder.Path
	if folder.ParentID != nil {
		parent, err := s.folderStore.FindAny(ctx, ownerID, *folder.ParentID)
		if err != nil || parent.IsTrashed {
			newParentID = nil
			newPath = utils.JoinPath("", folder.Name)
		} else {
			newPath = utils.JoinPath(parent.Path, folder.Name)
		}
	}

	oldPath := folder.Path
	err = s.folderStore.Save(ctx, ownerID, folderID, bson.M{
		"is_trashed": false,
		"parent_id":  parentIDValue(newParentID),
		"path":       newPath,
	})
	if err != nil {
		return nil, err
	}

	// Re-activate the subtree and fix descendant paths if the anchor moved.
	// Descendants holding their own trash record were trashed individually
	// before the folder was; they keep their trashed state (and their
	// record) so their restore stays a separate, aggregate-correct step.
	held, err := s.trashStore.ItemIDs(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	pattern := utils.PathPrefixPattern(oldPath)
	activateFilter := bson.M{"owner_id": ownerID, "path": bson.M{"$regex": pattern}}
	if len(held) > 0 {
		activateFilter["_id"] = bson.M{"$nin": held}
	}
	activate := bson.M{"$set": bson.M{"is_trashed": false, "updated_at": time.Now()}}

	if err := s.folderStore.UpdateMany(ctx, activateFilter, activate); err != nil {
		return nil, err
	}
	if err := s.fileStore.UpdateMany(ctx, activateFilter, activate); err != nil {
		return nil, err
	}
	if oldPath != newPath {
		if err := s.rewriteDescendantPaths(ctx, ownerID, oldPath, newPath); err != nil {
			return nil, err
		}
	}

	s.stats.Adjust(ctx, newParentID, 0, 1, folder.Size)

	folder.IsTrashed = false
	folder.ParentID = newParentID
	folder.Path = newPath
	return folder, nil
}
