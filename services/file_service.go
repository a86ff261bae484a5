package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"vaultdrive/models"
	"vaultdrive/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// FileService implements file CRUD plus move/copy/rename, keeping the
// parent folder's cached aggregates and the owner's quota in step with
// every mutation.
type FileService struct {
	fileStore   FileEntityStore
	folderStore FolderEntityStore
	trashStore  TrashEntityStore
	stats       AggregateTracker
	quota       QuotaTracker
	blobs       BlobStore
	maxFileSize int64
}

func NewFileService(fileStore FileEntityStore, folderStore FolderEntityStore, trashStore TrashEntityStore, stats AggregateTracker, quota QuotaTracker, blobs BlobStore, maxFileSize int64) *FileService {
	return &FileService{
		fileStore:   fileStore,
		folderStore: folderStore,
		trashStore:  trashStore,
		stats:       stats,
		quota:       quota,
		blobs:       blobs,
		maxFileSize: maxFileSize,
	}
}

// FileUpload is one incoming blob.
type FileUpload struct {
	Reader   io.Reader
	Filename string
	MimeType string
	Size     int64
}

// FileFilter narrows Query results. Name and FileType are case-insensitive
// substring/regex matches; sizes are inclusive bounds (0 = unbounded).
type FileFilter struct {
	Name     string
	FileType string
	MinSize  int64
	MaxSize  int64

	// ExcludeInactiveAncestors additionally drops files whose ancestor
	// chain contains a trashed or locked folder. Soft delete trickles
	// down explicitly, but a file can be observed before the trickle
	// completes.
	ExcludeInactiveAncestors bool
}

// Upload stores each blob and inserts its metadata under the given parent
// (nil for root). Display names are deduplicated against active siblings
// with a " (n)" suffix.
func (s *FileService) Upload(ctx context.Context, ownerID primitive.ObjectID, parentID *primitive.ObjectID, uploads []FileUpload) ([]models.File, error) {
	if len(uploads) == 0 {
		return nil, utils.NewBadRequest("no files to upload")
	}

	var parentPath string
	if parentID != nil {
		parent, err := s.folderStore.FindActive(ctx, ownerID, *parentID)
		if err != nil {
			return nil, utils.NewBadRequest("parent folder not found")
		}
		parentPath = parent.Path
	}

	var totalSize int64
	for _, u := range uploads {
		if s.maxFileSize > 0 && u.Size > s.maxFileSize {
			return nil, utils.NewPayloadTooLarge("file %s exceeds the maximum file size", u.Filename)
		}
		totalSize += u.Size
	}
	if err := s.quota.CheckSpace(ctx, ownerID, totalSize); err != nil {
		return nil, err
	}

	now := time.Now()
	var inserted []models.File
	var storedSize int64

	for _, u := range uploads {
		displayName, err := s.resolveDisplayName(ctx, ownerID, parentID, u.Filename)
		if err != nil {
			s.cleanupUploaded(ctx, ownerID, inserted)
			return nil, err
		}

		location, written, err := s.blobs.Store(ctx, u.Reader, u.Filename)
		if err != nil {
			s.cleanupUploaded(ctx, ownerID, inserted)
			return nil, utils.NewInternal("failed to store blob for %s: %v", u.Filename, err)
		}

		file := models.File{
			ID:           primitive.NewObjectID(),
			OwnerID:      ownerID,
			ParentID:     parentID,
			Name:         utils.GenerateStoredName(displayName),
			OriginalName: displayName,
			Path:         utils.JoinPath(parentPath, displayName),
			StoragePath:  location,
			FileType:     u.MimeType,
			Size:         written,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		if err := s.fileStore.Insert(ctx, &file); err != nil {
			s.blobs.Delete(ctx, location)
			s.cleanupUploaded(ctx, ownerID, inserted)
			return nil, err
		}

		inserted = append(inserted, file)
		storedSize += written
	}

	s.stats.Adjust(ctx, parentID, int64(len(inserted)), 0, storedSize)
	if err := s.quota.Adjust(ctx, ownerID, storedSize); err != nil {
		utils.LogError("uploaded files but quota update failed", err)
	}

	return inserted, nil
}

func (s *FileService) cleanupUploaded(ctx context.Context, ownerID primitive.ObjectID, files []models.File) {
	for _, f := range files {
		if err := s.blobs.Delete(ctx, f.StoragePath); err != nil {
			utils.LogError(fmt.Sprintf("cleanup: failed to delete blob %s", f.StoragePath), err)
		}
		if err := s.fileStore.Delete(ctx, ownerID, f.ID); err != nil {
			utils.LogError(fmt.Sprintf("cleanup: failed to delete file record %s", f.ID.Hex()), err)
		}
	}
}

// resolveDisplayName probes name, "name (1).ext", ... until no active
// sibling matches.
func (s *FileService) resolveDisplayName(ctx context.Context, ownerID primitive.ObjectID, parentID *primitive.ObjectID, name string) (string, error) {
	return utils.ResolveCollision(name, func(candidate string) (bool, error) {
		return s.fileStore.ActiveSiblingExists(ctx, ownerID, parentID, candidate)
	})
}

// Query lists the owner's active files matching the filter, paged. Files
// whose record is fine but whose ancestor chain is trashed or locked are
// dropped when the strict variant is requested.
func (s *FileService) Query(ctx context.Context, ownerID primitive.ObjectID, filter FileFilter, opts QueryOptions) ([]models.File, int64, error) {
	query := bson.M{
		"owner_id":   ownerID,
		"is_trashed": false,
		"is_locked":  false,
	}
	if filter.Name != "" {
		query["original_name"] = bson.M{"$regex": filter.Name, "$options": "i"}
	}
	if filter.FileType != "" {
		query["file_type"] = bson.M{"$regex": filter.FileType, "$options": "i"}
	}
	if filter.MinSize > 0 || filter.MaxSize > 0 {
		size := bson.M{}
		if filter.MinSize > 0 {
			size["$gte"] = filter.MinSize
		}
		if filter.MaxSize > 0 {
			size["$lte"] = filter.MaxSize
		}
		query["size"] = size
	}

	if filter.ExcludeInactiveAncestors {
		// The ancestor walk cannot run in the database, so the page is cut
		// after filtering: fetch the sorted set, drop ineligible files,
		// then slice. total counts eligible files only.
		files, err := s.fileStore.FindFilter(ctx, query, options.Find().SetSort(opts.sortDoc("original_name")))
		if err != nil {
			return nil, 0, err
		}
		files, err = s.dropInactiveAncestors(ctx, ownerID, files)
		if err != nil {
			return nil, 0, err
		}

		total := int64(len(files))
		n := opts.normalized()
		start := int(n.skip())
		if start > len(files) {
			start = len(files)
		}
		end := start + n.Limit
		if end > len(files) {
			end = len(files)
		}
		return files[start:end], total, nil
	}

	total, err := s.fileStore.Count(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	files, err := s.fileStore.FindFilter(ctx, query, opts.findOptions("original_name"))
	if err != nil {
		return nil, 0, err
	}

	return files, total, nil
}

// dropInactiveAncestors filters out files living under a trashed or locked
// folder. Ancestor verdicts are memoized per call since siblings share
// chains.
func (s *FileService) dropInactiveAncestors(ctx context.Context, ownerID primitive.ObjectID, files []models.File) ([]models.File, error) {
	verdicts := make(map[primitive.ObjectID]bool)

	chainActive := func(parentID *primitive.ObjectID) (bool, error) {
		for parentID != nil {
			if v, ok := verdicts[*parentID]; ok {
				return v, nil
			}
			folder, err := s.folderStore.FindAny(ctx, ownerID, *parentID)
			if err != nil {
				if utils.IsStatus(err, http.StatusNotFound) {
					verdicts[*parentID] = false
					return false, nil
				}
				return false, err
			}
			if folder.IsTrashed || folder.IsLocked {
				verdicts[folder.ID] = false
				return false, nil
			}
			verdicts[folder.ID] = true
			parentID = folder.ParentID
		}
		return true, nil
	}

	result := files[:0]
	for _, f := range files {
		ok, err := chainActive(f.ParentID)
		if err != nil {
			return nil, err
		}
		if ok {
			result = append(result, f)
		}
	}
	return result, nil
}

// Rename updates the display name and recomputes the logical path from the
// unchanged parent. Renaming to the current name is a no-op.
func (s *FileService) Rename(ctx context.Context, ownerID, fileID primitive.ObjectID, newName string) (*models.File, error) {
	if err := utils.ValidateName(newName); err != nil {
		return nil, err
	}

	file, err := s.fileStore.FindActive(ctx, ownerID, fileID)
	if err != nil {
		return nil, err
	}
	if file.OriginalName == newName {
		return file, nil
	}

	parentPath := ""
	if file.ParentID != nil {
		parent, err := s.folderStore.FindAny(ctx, ownerID, *file.ParentID)
		if err != nil {
			return nil, err
		}
		parentPath = parent.Path
	}

	newPath := utils.JoinPath(parentPath, newName)
	err = s.fileStore.Save(ctx, ownerID, fileID, bson.M{
		"original_name": newName,
		"path":          newPath,
	})
	if err != nil {
		return nil, err
	}

	file.OriginalName = newName
	file.Path = newPath
	return file, nil
}

// ReplaceOp pairs a target file id with its replacement blob.
type ReplaceOp struct {
	FileID primitive.ObjectID
	Upload FileUpload
}

// Replace swaps each file's blob for a new one, adjusting the quota by the
// size delta. Missing files are reported per item, not as a batch failure.
func (s *FileService) Replace(ctx context.Context, ownerID primitive.ObjectID, ops []ReplaceOp) []BatchResult {
	results := make([]BatchResult, len(ops))

	for i, op := range ops {
		results[i] = s.replaceOne(ctx, ownerID, op)
	}
	return results
}

func (s *FileService) replaceOne(ctx context.Context, ownerID primitive.ObjectID, op ReplaceOp) BatchResult {
	file, err := s.fileStore.FindActive(ctx, ownerID, op.FileID)
	if err != nil {
		return BatchResult{ID: op.FileID.Hex(), Name: op.Upload.Filename, Status: "file not found"}
	}

	if err := s.blobs.Delete(ctx, file.StoragePath); err != nil {
		utils.LogError(fmt.Sprintf("replace: failed to delete old blob %s", file.StoragePath), err)
	}

	location, written, err := s.blobs.Store(ctx, op.Upload.Reader, op.Upload.Filename)
	if err != nil {
		return BatchResult{ID: op.FileID.Hex(), Name: op.Upload.Filename, Status: "failed to store replacement blob"}
	}

	sizeDelta := written - file.Size
	err = s.fileStore.Save(ctx, ownerID, file.ID, bson.M{
		"name":         utils.GenerateStoredName(op.Upload.Filename),
		"storage_path": location,
		"file_type":    op.Upload.MimeType,
		"size":         written,
	})
	if err != nil {
		return BatchResult{ID: op.FileID.Hex(), Name: op.Upload.Filename, Status: "failed to update file record"}
	}

	s.stats.Adjust(ctx, file.ParentID, 0, 0, sizeDelta)
	if err := s.quota.Adjust(ctx, ownerID, sizeDelta); err != nil {
		utils.LogError("replace: quota update failed", err)
	}

	return BatchResult{ID: op.FileID.Hex(), Name: op.Upload.Filename, Success: true, Status: "replaced"}
}

// Copy duplicates a file into the target folder. Copying into the current
// parent without a rename is rejected as a true no-op.
func (s *FileService) Copy(ctx context.Context, ownerID, fileID, targetFolderID primitive.ObjectID, newName string) (*models.File, error) {
	file, err := s.fileStore.FindActive(ctx, ownerID, fileID)
	if err != nil {
		return nil, err
	}

	target, err := s.folderStore.FindActive(ctx, ownerID, targetFolderID)
	if err != nil {
		return nil, utils.NewNotFound("target folder not found")
	}

	sameParent := file.ParentID != nil && *file.ParentID == targetFolderID
	if sameParent && (newName == "" || newName == file.OriginalName) {
		return nil, utils.NewConflict("file already exists in target folder")
	}

	wantName := file.OriginalName
	if newName != "" {
		wantName = newName
	}
	displayName, err := s.resolveDisplayName(ctx, ownerID, &targetFolderID, wantName)
	if err != nil {
		return nil, err
	}

	newLocation, err := s.blobs.Copy(ctx, file.StoragePath)
	if err != nil {
		return nil, utils.NewInternal("failed to copy blob: %v", err)
	}

	now := time.Now()
	copied := models.File{
		ID:           primitive.NewObjectID(),
		OwnerID:      ownerID,
		ParentID:     &target.ID,
		Name:         utils.GenerateStoredName(displayName),
		OriginalName: displayName,
		Path:         utils.JoinPath(target.Path, displayName),
		StoragePath:  newLocation,
		FileType:     file.FileType,
		Size:         file.Size,
		Metadata:     file.Metadata,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.fileStore.Insert(ctx, &copied); err != nil {
		s.blobs.Delete(ctx, newLocation)
		return nil, err
	}

	s.stats.Adjust(ctx, &target.ID, 1, 0, copied.Size)
	if err := s.quota.Adjust(ctx, ownerID, copied.Size); err != nil {
		utils.LogError("copy: quota update failed", err)
	}

	return &copied, nil
}

// Move reparents a file. Both the old and new parent aggregates are
// adjusted even though the owner's total is unchanged.
func (s *FileService) Move(ctx context.Context, ownerID, fileID primitive.ObjectID, targetFolderID *primitive.ObjectID) (*models.File, error) {
	file, err := s.fileStore.FindActive(ctx, ownerID, fileID)
	if err != nil {
		return nil, err
	}

	if sameParent(file.ParentID, targetFolderID) {
		return nil, utils.NewConflict("file already exists in target folder")
	}

	targetPath := ""
	if targetFolderID != nil {
		target, err := s.folderStore.FindActive(ctx, ownerID, *targetFolderID)
		if err != nil {
			return nil, utils.NewNotFound("target folder not found")
		}
		targetPath = target.Path
	}

	displayName, err := s.resolveDisplayName(ctx, ownerID, targetFolderID, file.OriginalName)
	if err != nil {
		return nil, err
	}

	newPath := utils.JoinPath(targetPath, displayName)
	err = s.fileStore.Save(ctx, ownerID, file.ID, bson.M{
		"parent_id":     parentIDValue(targetFolderID),
		"original_name": displayName,
		"path":          newPath,
	})
	if err != nil {
		return nil, err
	}

	s.stats.Adjust(ctx, file.ParentID, -1, 0, -file.Size)
	s.stats.Adjust(ctx, targetFolderID, 1, 0, file.Size)

	file.ParentID = targetFolderID
	file.OriginalName = displayName
	file.Path = newPath
	return file, nil
}

// SoftDelete trashes each file: the flag flips, the parent's aggregates
// drop, and a trash record is written. Items fan out concurrently with
// independent outcomes.
func (s *FileService) SoftDelete(ctx context.Context, ownerID primitive.ObjectID, fileIDs []primitive.ObjectID) []BatchResult {
	results := make([]BatchResult, len(fileIDs))
	var wg sync.WaitGroup

	for i, fileID := range fileIDs {
		wg.Add(1)
		go func(i int, fileID primitive.ObjectID) {
			defer wg.Done()
			results[i] = s.softDeleteOne(ctx, ownerID, fileID)
		}(i, fileID)
	}
	wg.Wait()
	return results
}

func (s *FileService) softDeleteOne(ctx context.Context, ownerID, fileID primitive.ObjectID) BatchResult {
	file, err := s.fileStore.FindActive(ctx, ownerID, fileID)
	if err != nil {
		return BatchResult{ID: fileID.Hex(), Status: "file not found"}
	}

	if err := s.fileStore.Save(ctx, ownerID, fileID, bson.M{"is_trashed": true}); err != nil {
		return BatchResult{ID: fileID.Hex(), Name: file.OriginalName, Status: "failed to trash file"}
	}

	s.stats.Adjust(ctx, file.ParentID, -1, 0, -file.Size)

	if err := s.trashStore.Insert(ctx, ownerID, file.ID, models.ItemTypeFile, file.OriginalName, file.Path, file.Size); err != nil {
		utils.LogError(fmt.Sprintf("trash record insert failed for file %s", fileID.Hex()), err)
	}

	return BatchResult{ID: fileID.Hex(), Name: file.OriginalName, Success: true, Status: "moved to trash"}
}

// HardDelete removes each file's blob, metadata, and quota share. Safe on
// files that are already soft-deleted; the parent aggregate is only
// decremented for files that were still active.
func (s *FileService) HardDelete(ctx context.Context, ownerID primitive.ObjectID, fileIDs []primitive.ObjectID) []BatchResult {
	results := make([]BatchResult, len(fileIDs))
	var wg sync.WaitGroup

	for i, fileID := range fileIDs {
		wg.Add(1)
		go func(i int, fileID primitive.ObjectID) {
			defer wg.Done()
			results[i] = s.hardDeleteOne(ctx, ownerID, fileID)
		}(i, fileID)
	}
	wg.Wait()
	return results
}

func (s *FileService) hardDeleteOne(ctx context.Context, ownerID, fileID primitive.ObjectID) BatchResult {
	file, err := s.fileStore.FindAny(ctx, ownerID, fileID)
	if err != nil {
		return BatchResult{ID: fileID.Hex(), Status: "file not found"}
	}

	if err := s.blobs.Delete(ctx, file.StoragePath); err != nil {
		// Orphaned metadata is worse than an orphaned blob: log and
		// keep going.
		utils.LogWarning(fmt.Sprintf("failed to delete blob %s, continuing: %v", file.StoragePath, err))
	}

	if err := s.fileStore.Delete(ctx, ownerID, fileID); err != nil {
		return BatchResult{ID: fileID.Hex(), Name: file.OriginalName, Status: "failed to delete file record"}
	}

	if !file.IsTrashed {
		s.stats.Adjust(ctx, file.ParentID, -1, 0, -file.Size)
	}
	if err := s.quota.Adjust(ctx, ownerID, -file.Size); err != nil {
		utils.LogError("hard delete: quota update failed", err)
	}
	if err := s.trashStore.DeleteByItem(ctx, ownerID, fileID); err != nil {
		utils.LogError("hard delete: trash record cleanup failed", err)
	}

	return BatchResult{ID: fileID.Hex(), Name: file.OriginalName, Success: true, Status: "permanently deleted"}
}

// GetForDownload returns the file record and an open reader over its blob.
// Metadata and blob can desynchronize, so both are checked.
func (s *FileService) GetForDownload(ctx context.Context, ownerID, fileID primitive.ObjectID) (*models.File, io.ReadCloser, error) {
	file, err := s.fileStore.FindActive(ctx, ownerID, fileID)
	if err != nil {
		return nil, nil, err
	}

	if !s.blobs.Exists(ctx, file.StoragePath) {
		return nil, nil, utils.NewNotFound("file content is missing from storage")
	}

	reader, err := s.blobs.Open(ctx, file.StoragePath)
	if err != nil {
		return nil, nil, utils.NewInternal("failed to open file content: %v", err)
	}
	return file, reader, nil
}

// Get returns an active file by id.
func (s *FileService) Get(ctx context.Context, ownerID, fileID primitive.ObjectID) (*models.File, error) {
	return s.fileStore.FindActive(ctx, ownerID, fileID)
}

func sameParent(a, b *primitive.ObjectID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
