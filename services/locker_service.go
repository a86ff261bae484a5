package services

import (
	"context"
	"net/http"
	"time"

	"vaultdrive/models"
	"vaultdrive/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

// vaultFolderName is the hidden folder that adopts locked items whose
// original parent disappears while they are in the locker.
const vaultFolderName = ".vault"

// LockerService manages the PIN-protected vault: credential setup, unlock
// sessions, and moving items in and out of the locked state. Locked items
// are invisible to every normal listing and mutation; only this service
// transitions the is_locked flag.
type LockerService struct {
	lockerCollection *mongo.Collection
	recordCollection *mongo.Collection
	fileStore        *FileStore
	folderStore      *FolderStore
	fileService      *FileService
	folderService    *FolderService
	stats            *FolderStatsService

	jwtSecret  string
	jwtIssuer  string
	sessionTTL time.Duration
}

func NewLockerService(db *mongo.Database, fileStore *FileStore, folderStore *FolderStore, fileService *FileService, folderService *FolderService, stats *FolderStatsService, jwtSecret, jwtIssuer string, sessionTTL time.Duration) *LockerService {
	return &LockerService{
		lockerCollection: db.Collection("lockers"),
		recordCollection: db.Collection("locker_items"),
		fileStore:        fileStore,
		folderStore:      folderStore,
		fileService:      fileService,
		folderService:    folderService,
		stats:            stats,
		jwtSecret:        jwtSecret,
		jwtIssuer:        jwtIssuer,
		sessionTTL:       sessionTTL,
	}
}

func (s *LockerService) find(ctx context.Context, ownerID primitive.ObjectID) (*models.Locker, error) {
	var locker models.Locker
	err := s.lockerCollection.FindOne(ctx, bson.M{"owner_id": ownerID, "is_active": true}).Decode(&locker)
	if err == mongo.ErrNoDocuments {
		return nil, utils.NewNotFound("locker is not set up")
	} else if err != nil {
		return nil, utils.NewInternal("database error: %v", err)
	}
	return &locker, nil
}

func (s *LockerService) save(ctx context.Context, locker *models.Locker, fields bson.M) error {
	fields["updated_at"] = time.Now()
	_, err := s.lockerCollection.UpdateOne(ctx,
		bson.M{"_id": locker.ID},
		bson.M{"$set": fields},
	)
	if err != nil {
		return utils.NewInternal("failed to update locker: %v", err)
	}
	return nil
}

// Setup creates the owner's locker credentials. A second setup while one is
// active is rejected; ResetPIN is the path for a forgotten PIN.
func (s *LockerService) Setup(ctx context.Context, ownerID primitive.ObjectID, pin, securityQuestion, securityAnswer string) (*models.Locker, error) {
	if err := utils.ValidatePIN(pin); err != nil {
		return nil, err
	}
	if securityQuestion == "" || securityAnswer == "" {
		return nil, utils.NewBadRequest("security question and answer are required")
	}

	if existing, err := s.find(ctx, ownerID); err == nil && existing.IsActive {
		return nil, utils.NewBadRequest("locker is already set up")
	}

	pinHash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return nil, utils.NewInternal("failed to hash PIN: %v", err)
	}
	answerHash, err := bcrypt.GenerateFromPassword([]byte(securityAnswer), bcrypt.DefaultCost)
	if err != nil {
		return nil, utils.NewInternal("failed to hash security answer: %v", err)
	}

	now := time.Now()
	locker := models.Locker{
		ID:                 primitive.NewObjectID(),
		OwnerID:            ownerID,
		PINHash:            string(pinHash),
		SecurityQuestion:   securityQuestion,
		SecurityAnswerHash: string(answerHash),
		IsActive:           true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if _, err := s.lockerCollection.InsertOne(ctx, locker); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, utils.NewBadRequest("locker is already set up")
		}
		return nil, utils.NewInternal("failed to create locker: %v", err)
	}
	return &locker, nil
}

// Status reports the locker's setup and cooldown state.
func (s *LockerService) Status(ctx context.Context, ownerID primitive.ObjectID) (*models.Locker, error) {
	return s.find(ctx, ownerID)
}

// Unlock verifies the PIN and mints a short-lived locker-scope session
// token. Three consecutive failures start a cooldown during which every
// attempt is rejected before the PIN is even checked.
func (s *LockerService) Unlock(ctx context.Context, ownerID primitive.ObjectID, pin string) (string, error) {
	locker, err := s.find(ctx, ownerID)
	if err != nil {
		return "", err
	}

	now := time.Now()
	if locker.InCooldown(now) {
		return "", utils.NewUnauthorized("locker is locked, try again later")
	}

	if bcrypt.CompareHashAndPassword([]byte(locker.PINHash), []byte(pin)) != nil {
		locker.RegisterFailure(now)
		if err := s.save(ctx, locker, bson.M{"attempts": locker.Attempts, "locked_until": locker.LockedUntil}); err != nil {
			return "", err
		}
		return "", utils.NewUnauthorized("incorrect PIN")
	}

	locker.RegisterSuccess()
	if err := s.save(ctx, locker, bson.M{"attempts": 0, "locked_until": nil}); err != nil {
		return "", err
	}

	token, err := utils.GenerateToken(ownerID, utils.ScopeLocker, s.jwtSecret, s.jwtIssuer, s.sessionTTL)
	if err != nil {
		return "", utils.NewInternal("failed to create locker session: %v", err)
	}
	return token, nil
}

// ChangePIN rotates the PIN after verifying the current one. Failures count
// toward the same cooldown as unlock attempts.
func (s *LockerService) ChangePIN(ctx context.Context, ownerID primitive.ObjectID, currentPIN, newPIN string) error {
	if err := utils.ValidatePIN(newPIN); err != nil {
		return err
	}

	locker, err := s.find(ctx, ownerID)
	if err != nil {
		return err
	}

	now := time.Now()
	if locker.InCooldown(now) {
		return utils.NewUnauthorized("locker is locked, try again later")
	}

	if bcrypt.CompareHashAndPassword([]byte(locker.PINHash), []byte(currentPIN)) != nil {
		locker.RegisterFailure(now)
		if err := s.save(ctx, locker, bson.M{"attempts": locker.Attempts, "locked_until": locker.LockedUntil}); err != nil {
			return err
		}
		return utils.NewUnauthorized("incorrect PIN")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPIN), bcrypt.DefaultCost)
	if err != nil {
		return utils.NewInternal("failed to hash PIN: %v", err)
	}
	return s.save(ctx, locker, bson.M{"pin_hash": string(hash), "attempts": 0, "locked_until": nil})
}

// ResetPIN recovers a forgotten PIN with the security answer. The cooldown
// applies here too so the answer cannot be brute-forced around it.
func (s *LockerService) ResetPIN(ctx context.Context, ownerID primitive.ObjectID, securityAnswer, newPIN string) error {
	if err := utils.ValidatePIN(newPIN); err != nil {
		return err
	}

	locker, err := s.find(ctx, ownerID)
	if err != nil {
		return err
	}

	now := time.Now()
	if locker.InCooldown(now) {
		return utils.NewUnauthorized("locker is locked, try again later")
	}

	if bcrypt.CompareHashAndPassword([]byte(locker.SecurityAnswerHash), []byte(securityAnswer)) != nil {
		locker.RegisterFailure(now)
		if err := s.save(ctx, locker, bson.M{"attempts": locker.Attempts, "locked_until": locker.LockedUntil}); err != nil {
			return err
		}
		return utils.NewUnauthorized("incorrect security answer")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPIN), bcrypt.DefaultCost)
	if err != nil {
		return utils.NewInternal("failed to hash PIN: %v", err)
	}
	return s.save(ctx, locker, bson.M{"pin_hash": string(hash), "attempts": 0, "locked_until": nil})
}

// AddItems moves files and folders into the locker. Each item gets a
// membership record and its is_locked flag set; folders lock their whole
// subtree. Already-locked and trashed items are per-item failures.
func (s *LockerService) AddItems(ctx context.Context, ownerID primitive.ObjectID, itemIDs []primitive.ObjectID, itemType models.ItemType) []BatchResult {
	results := make([]BatchResult, len(itemIDs))
	for i, itemID := range itemIDs {
		results[i] = s.addOne(ctx, ownerID, itemID, itemType)
	}
	return results
}

func (s *LockerService) addOne(ctx context.Context, ownerID, itemID primitive.ObjectID, itemType models.ItemType) BatchResult {
	result := BatchResult{ID: itemID.Hex()}

	var name string
	var err error
	if itemType == models.ItemTypeFolder {
		var folder *models.Folder
		folder, err = s.folderStore.FindActive(ctx, ownerID, itemID)
		if err == nil {
			name = folder.Name
			err = s.setLockedTree(ctx, ownerID, itemID, true)
			if err == nil {
				s.stats.Adjust(ctx, folder.ParentID, 0, -1, -folder.Size)
			}
		}
	} else {
		var file *models.File
		file, err = s.fileStore.FindActive(ctx, ownerID, itemID)
		if err == nil {
			name = file.OriginalName
			err = s.fileStore.Save(ctx, ownerID, itemID, bson.M{"is_locked": true})
			if err == nil {
				s.stats.Adjust(ctx, file.ParentID, -1, 0, -file.Size)
			}
		}
	}
	if err != nil {
		result.Status = utils.AsApiError(err).Message
		return result
	}

	record := models.LockerRecord{
		ID:        primitive.NewObjectID(),
		OwnerID:   ownerID,
		ItemID:    itemID,
		ItemType:  itemType,
		CreatedAt: time.Now(),
	}
	if _, err := s.recordCollection.InsertOne(ctx, record); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			result.Status = "item is already in the locker"
		} else {
			result.Status = "failed to record locker membership"
		}
		return result
	}

	result.Name = name
	result.Success = true
	result.Status = "locked"
	return result
}

// setLockedTree walks a folder subtree breadth-first and flips the locked
// flag on every file and folder in it.
func (s *LockerService) setLockedTree(ctx context.Context, ownerID, rootID primitive.ObjectID, locked bool) error {
	update := bson.M{"$set": bson.M{"is_locked": locked, "updated_at": time.Now()}}

	queue := []primitive.ObjectID{rootID}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		err := s.fileStore.UpdateMany(ctx, bson.M{"owner_id": ownerID, "parent_id": current}, update)
		if err != nil {
			return err
		}

		children, err := s.folderStore.ChildFolderIDs(ctx, ownerID, current)
		if err != nil {
			return err
		}
		queue = append(queue, children...)

		if err := s.folderStore.Save(ctx, ownerID, current, bson.M{"is_locked": locked}); err != nil {
			return err
		}
	}
	return nil
}

// RemoveItems releases items from the locker back into the normal tree. An
// item whose original parent vanished while locked lands in the owner's
// vault folder instead of disappearing. Items are addressed by entity id;
// the unique (owner_id, item_id) index makes that interchangeable with the
// membership record's id.
func (s *LockerService) RemoveItems(ctx context.Context, ownerID primitive.ObjectID, itemIDs []primitive.ObjectID) []BatchResult {
	results := make([]BatchResult, len(itemIDs))
	for i, itemID := range itemIDs {
		results[i] = s.removeOne(ctx, ownerID, itemID)
	}
	return results
}

func (s *LockerService) removeOne(ctx context.Context, ownerID, itemID primitive.ObjectID) BatchResult {
	result := BatchResult{ID: itemID.Hex()}

	var record models.LockerRecord
	err := s.recordCollection.FindOne(ctx, bson.M{"owner_id": ownerID, "item_id": itemID}).Decode(&record)
	if err == mongo.ErrNoDocuments {
		result.Status = "item is not in the locker"
		return result
	} else if err != nil {
		result.Status = "database error"
		return result
	}

	if record.ItemType == models.ItemTypeFolder {
		err = s.unlockFolder(ctx, ownerID, itemID, &result)
	} else {
		err = s.unlockFile(ctx, ownerID, itemID, &result)
	}
	if err != nil {
		result.Status = utils.AsApiError(err).Message
		return result
	}

	if _, err := s.recordCollection.DeleteOne(ctx, bson.M{"_id": record.ID}); err != nil {
		utils.LogError("locker record cleanup failed", err)
	}

	result.Success = true
	result.Status = "unlocked"
	return result
}

func (s *LockerService) unlockFile(ctx context.Context, ownerID, fileID primitive.ObjectID, result *BatchResult) error {
	file, err := s.fileStore.FindAny(ctx, ownerID, fileID)
	if err != nil {
		return err
	}
	result.Name = file.OriginalName

	parentID, parentPath, err := s.resolveReleaseParent(ctx, ownerID, file.ParentID)
	if err != nil {
		return err
	}

	err = s.fileStore.Save(ctx, ownerID, fileID, bson.M{
		"is_locked": false,
		"parent_id": parentIDValue(parentID),
		"path":      utils.JoinPath(parentPath, file.OriginalName),
	})
	if err != nil {
		return err
	}
	s.stats.Adjust(ctx, parentID, 1, 0, file.Size)
	return nil
}

func (s *LockerService) unlockFolder(ctx context.Context, ownerID, folderID primitive.ObjectID, result *BatchResult) error {
	folder, err := s.folderStore.FindAny(ctx, ownerID, folderID)
	if err != nil {
		return err
	}
	result.Name = folder.Name

	parentID, parentPath, err := s.resolveReleaseParent(ctx, ownerID, folder.ParentID)
	if err != nil {
		return err
	}

	if err := s.setLockedTree(ctx, ownerID, folderID, false); err != nil {
		return err
	}

	newPath := utils.JoinPath(parentPath, folder.Name)
	err = s.folderStore.Save(ctx, ownerID, folderID, bson.M{
		"parent_id": parentIDValue(parentID),
		"path":      newPath,
	})
	if err != nil {
		return err
	}
	if folder.Path != newPath {
		if err := s.folderService.rewriteDescendantPaths(ctx, ownerID, folder.Path, newPath); err != nil {
			return err
		}
	}
	s.stats.Adjust(ctx, parentID, 0, 1, folder.Size)
	return nil
}

// resolveReleaseParent keeps the original parent when it is still active,
// otherwise falls back to the vault folder.
func (s *LockerService) resolveReleaseParent(ctx context.Context, ownerID primitive.ObjectID, parentID *primitive.ObjectID) (*primitive.ObjectID, string, error) {
	if parentID != nil {
		parent, err := s.folderStore.FindActive(ctx, ownerID, *parentID)
		if err == nil {
			return parentID, parent.Path, nil
		}
	} else {
		return nil, "", nil
	}

	vault, err := s.ensureVaultFolder(ctx, ownerID)
	if err != nil {
		return nil, "", err
	}
	return &vault.ID, vault.Path, nil
}

// ensureVaultFolder lazily creates the owner's vault folder at the root and
// remembers it on the locker document.
func (s *LockerService) ensureVaultFolder(ctx context.Context, ownerID primitive.ObjectID) (*models.Folder, error) {
	locker, err := s.find(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	if locker.VaultFolderID != nil {
		folder, err := s.folderStore.FindActive(ctx, ownerID, *locker.VaultFolderID)
		if err == nil {
			return folder, nil
		}
	}

	folder, err := s.folderService.Create(ctx, ownerID, vaultFolderName, nil)
	if err != nil {
		if !utils.IsStatus(err, http.StatusConflict) {
			return nil, err
		}
		// Someone else created it; find it by name at the root.
		existing, ferr := s.folderStore.FindFilter(ctx, bson.M{
			"owner_id":   ownerID,
			"parent_id":  nil,
			"name":       vaultFolderName,
			"is_trashed": false,
		}, nil)
		if ferr != nil || len(existing) == 0 {
			return nil, err
		}
		folder = &existing[0]
	}

	if err := s.save(ctx, locker, bson.M{"vault_folder_id": folder.ID}); err != nil {
		return nil, err
	}
	return folder, nil
}

// PurgeItems permanently deletes locked items without releasing them
// first. Addressed by entity id, like RemoveItems.
func (s *LockerService) PurgeItems(ctx context.Context, ownerID primitive.ObjectID, itemIDs []primitive.ObjectID) []BatchResult {
	results := make([]BatchResult, len(itemIDs))
	for i, itemID := range itemIDs {
		results[i] = s.purgeOne(ctx, ownerID, itemID)
	}
	return results
}

func (s *LockerService) purgeOne(ctx context.Context, ownerID, itemID primitive.ObjectID) BatchResult {
	result := BatchResult{ID: itemID.Hex()}

	var record models.LockerRecord
	err := s.recordCollection.FindOne(ctx, bson.M{"owner_id": ownerID, "item_id": itemID}).Decode(&record)
	if err == mongo.ErrNoDocuments {
		result.Status = "item is not in the locker"
		return result
	} else if err != nil {
		result.Status = "database error"
		return result
	}

	if record.ItemType == models.ItemTypeFolder {
		if _, err := s.folderService.HardDeleteTree(ctx, ownerID, itemID); err != nil {
			result.Status = utils.AsApiError(err).Message
			return result
		}
	} else {
		outcome := s.fileService.HardDelete(ctx, ownerID, []primitive.ObjectID{itemID})
		if len(outcome) == 1 && !outcome[0].Success {
			result.Status = outcome[0].Status
			return result
		}
	}

	if _, err := s.recordCollection.DeleteOne(ctx, bson.M{"_id": record.ID}); err != nil {
		utils.LogError("locker record cleanup failed", err)
	}

	result.Success = true
	result.Status = "purged"
	return result
}

// GetContents lists the locker's members with their current entity details.
// Requires an unlocked session; the route layer enforces the locker scope.
func (s *LockerService) GetContents(ctx context.Context, ownerID primitive.ObjectID, opts QueryOptions) ([]ContentItem, int64, error) {
	filter := bson.M{"owner_id": ownerID}

	total, err := s.recordCollection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, utils.NewInternal("failed to count locker items: %v", err)
	}

	cursor, err := s.recordCollection.Find(ctx, filter, opts.findOptions("created_at"))
	if err != nil {
		return nil, 0, utils.NewInternal("failed to list locker items: %v", err)
	}
	defer cursor.Close(ctx)

	var records []models.LockerRecord
	if err = cursor.All(ctx, &records); err != nil {
		return nil, 0, utils.NewInternal("failed to decode locker items: %v", err)
	}

	items := make([]ContentItem, 0, len(records))
	for _, record := range records {
		if record.ItemType == models.ItemTypeFolder {
			folder, err := s.folderStore.FindAny(ctx, ownerID, record.ItemID)
			if err != nil {
				continue
			}
			items = append(items, ContentItem{
				Type:        models.ItemTypeFolder,
				ID:          folder.ID,
				Name:        folder.Name,
				Path:        folder.Path,
				Size:        folder.Size,
				FileCount:   folder.FileCount,
				FolderCount: folder.FolderCount,
				CreatedAt:   folder.CreatedAt,
				UpdatedAt:   folder.UpdatedAt,
			})
		} else {
			file, err := s.fileStore.FindAny(ctx, ownerID, record.ItemID)
			if err != nil {
				continue
			}
			items = append(items, ContentItem{
				Type:      models.ItemTypeFile,
				ID:        file.ID,
				Name:      file.OriginalName,
				Path:      file.Path,
				Size:      file.Size,
				FileType:  file.FileType,
				CreatedAt: file.CreatedAt,
				UpdatedAt: file.UpdatedAt,
			})
		}
	}
	return items, total, nil
}
