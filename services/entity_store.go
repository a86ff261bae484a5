package services

import (
	"context"
	"time"

	"vaultdrive/models"
	"vaultdrive/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// FileStore and FolderStore are the only mutators of their collections.
// Every higher service routes reads and writes through them so the active
// filter and owner scoping have a single implementation.

// FileEntityStore is the file persistence contract the managers depend on;
// FileStore is the Mongo implementation.
type FileEntityStore interface {
	FindActive(ctx context.Context, ownerID, fileID primitive.ObjectID) (*models.File, error)
	FindAny(ctx context.Context, ownerID, fileID primitive.ObjectID) (*models.File, error)
	Insert(ctx context.Context, file *models.File) error
	Save(ctx context.Context, ownerID, fileID primitive.ObjectID, fields bson.M) error
	Delete(ctx context.Context, ownerID, fileID primitive.ObjectID) error
	ActiveSiblingExists(ctx context.Context, ownerID primitive.ObjectID, parentID *primitive.ObjectID, name string) (bool, error)
	FindByParent(ctx context.Context, ownerID primitive.ObjectID, parentID *primitive.ObjectID) ([]models.File, error)
	FindFilter(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.File, error)
	Count(ctx context.Context, filter bson.M) (int64, error)
	UpdateMany(ctx context.Context, filter, update bson.M) error
	DeleteMany(ctx context.Context, filter bson.M) error
	BulkWrite(ctx context.Context, ops []mongo.WriteModel) error
}

// FolderEntityStore is the folder counterpart of FileEntityStore.
type FolderEntityStore interface {
	FindActive(ctx context.Context, ownerID, folderID primitive.ObjectID) (*models.Folder, error)
	FindAny(ctx context.Context, ownerID, folderID primitive.ObjectID) (*models.Folder, error)
	Insert(ctx context.Context, folder *models.Folder) error
	Save(ctx context.Context, ownerID, folderID primitive.ObjectID, fields bson.M) error
	Delete(ctx context.Context, ownerID, folderID primitive.ObjectID) error
	ActiveSiblingExists(ctx context.Context, ownerID primitive.ObjectID, parentID *primitive.ObjectID, name string) (bool, error)
	FindByParent(ctx context.Context, ownerID primitive.ObjectID, parentID *primitive.ObjectID) ([]models.Folder, error)
	ChildFolderIDs(ctx context.Context, ownerID, parentID primitive.ObjectID) ([]primitive.ObjectID, error)
	FindFilter(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Folder, error)
	UpdateMany(ctx context.Context, filter, update bson.M) error
	BulkWrite(ctx context.Context, ops []mongo.WriteModel) error
}

type FileStore struct {
	collection *mongo.Collection
}

func NewFileStore(db *mongo.Database) *FileStore {
	return &FileStore{collection: db.Collection("files")}
}

// FindActive returns the file only when it is neither trashed nor locked.
func (s *FileStore) FindActive(ctx context.Context, ownerID, fileID primitive.ObjectID) (*models.File, error) {
	var file models.File
	err := s.collection.FindOne(ctx, bson.M{
		"_id":        fileID,
		"owner_id":   ownerID,
		"is_trashed": false,
		"is_locked":  false,
	}).Decode(&file)

	if err == mongo.ErrNoDocuments {
		return nil, utils.NewNotFound("file not found")
	} else if err != nil {
		return nil, utils.NewInternal("database error: %v", err)
	}
	return &file, nil
}

// FindAny looks a file up regardless of trash or lock state.
func (s *FileStore) FindAny(ctx context.Context, ownerID, fileID primitive.ObjectID) (*models.File, error) {
	var file models.File
	err := s.collection.FindOne(ctx, bson.M{
		"_id":      fileID,
		"owner_id": ownerID,
	}).Decode(&file)

	if err == mongo.ErrNoDocuments {
		return nil, utils.NewNotFound("file not found")
	} else if err != nil {
		return nil, utils.NewInternal("database error: %v", err)
	}
	return &file, nil
}

func (s *FileStore) Insert(ctx context.Context, file *models.File) error {
	if _, err := s.collection.InsertOne(ctx, file); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return utils.NewConflict("a file named '%s' already exists here", file.OriginalName)
		}
		return utils.NewInternal("failed to insert file: %v", err)
	}
	return nil
}

// Save applies a field-set update to one owned file.
func (s *FileStore) Save(ctx context.Context, ownerID, fileID primitive.ObjectID, fields bson.M) error {
	fields["updated_at"] = time.Now()
	result, err := s.collection.UpdateOne(ctx,
		bson.M{"_id": fileID, "owner_id": ownerID},
		bson.M{"$set": fields},
	)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return utils.NewConflict("a file with the same name already exists here")
		}
		return utils.NewInternal("failed to update file: %v", err)
	}
	if result.MatchedCount == 0 {
		return utils.NewNotFound("file not found")
	}
	return nil
}

func (s *FileStore) Delete(ctx context.Context, ownerID, fileID primitive.ObjectID) error {
	result, err := s.collection.DeleteOne(ctx, bson.M{"_id": fileID, "owner_id": ownerID})
	if err != nil {
		return utils.NewInternal("failed to delete file: %v", err)
	}
	if result.DeletedCount == 0 {
		return utils.NewNotFound("file not found")
	}
	return nil
}

// ActiveSiblingExists reports whether an active file with the given display
// name already lives under parentID.
func (s *FileStore) ActiveSiblingExists(ctx context.Context, ownerID primitive.ObjectID, parentID *primitive.ObjectID, name string) (bool, error) {
	count, err := s.collection.CountDocuments(ctx, bson.M{
		"owner_id":      ownerID,
		"parent_id":     parentIDValue(parentID),
		"original_name": name,
		"is_trashed":    false,
		"is_locked":     false,
	})
	if err != nil {
		return false, utils.NewInternal("database error: %v", err)
	}
	return count > 0, nil
}

// FindByParent lists files under a parent, active only.
func (s *FileStore) FindByParent(ctx context.Context, ownerID primitive.ObjectID, parentID *primitive.ObjectID) ([]models.File, error) {
	cursor, err := s.collection.Find(ctx, bson.M{
		"owner_id":   ownerID,
		"parent_id":  parentIDValue(parentID),
		"is_trashed": false,
		"is_locked":  false,
	}, options.Find().SetSort(bson.M{"original_name": 1}))
	if err != nil {
		return nil, utils.NewInternal("failed to list files: %v", err)
	}
	defer cursor.Close(ctx)

	var files []models.File
	if err = cursor.All(ctx, &files); err != nil {
		return nil, utils.NewInternal("failed to decode files: %v", err)
	}
	return files, nil
}

// FindFilter runs an arbitrary owner-scoped query. The filter must already
// contain the owner clause.
func (s *FileStore) FindFilter(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.File, error) {
	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, utils.NewInternal("failed to query files: %v", err)
	}
	defer cursor.Close(ctx)

	var files []models.File
	if err = cursor.All(ctx, &files); err != nil {
		return nil, utils.NewInternal("failed to decode files: %v", err)
	}
	return files, nil
}

func (s *FileStore) Count(ctx context.Context, filter bson.M) (int64, error) {
	count, err := s.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, utils.NewInternal("failed to count files: %v", err)
	}
	return count, nil
}

func (s *FileStore) UpdateMany(ctx context.Context, filter, update bson.M) error {
	if _, err := s.collection.UpdateMany(ctx, filter, update); err != nil {
		return utils.NewInternal("failed to update files: %v", err)
	}
	return nil
}

func (s *FileStore) DeleteMany(ctx context.Context, filter bson.M) error {
	if _, err := s.collection.DeleteMany(ctx, filter); err != nil {
		return utils.NewInternal("failed to delete files: %v", err)
	}
	return nil
}

func (s *FileStore) BulkWrite(ctx context.Context, ops []mongo.WriteModel) error {
	if len(ops) == 0 {
		return nil
	}
	if _, err := s.collection.BulkWrite(ctx, ops); err != nil {
		return utils.NewInternal("bulk file update failed: %v", err)
	}
	return nil
}

type FolderStore struct {
	collection *mongo.Collection
}

func NewFolderStore(db *mongo.Database) *FolderStore {
	return &FolderStore{collection: db.Collection("folders")}
}

func (s *FolderStore) FindActive(ctx context.Context, ownerID, folderID primitive.ObjectID) (*models.Folder, error) {
	var folder models.Folder
	err := s.collection.FindOne(ctx, bson.M{
		"_id":        folderID,
		"owner_id":   ownerID,
		"is_trashed": false,
		"is_locked":  false,
	}).Decode(&folder)

	if err == mongo.ErrNoDocuments {
		return nil, utils.NewNotFound("folder not found")
	} else if err != nil {
		return nil, utils.NewInternal("database error: %v", err)
	}
	return &folder, nil
}

func (s *FolderStore) FindAny(ctx context.Context, ownerID, folderID primitive.ObjectID) (*models.Folder, error) {
	var folder models.Folder
	err := s.collection.FindOne(ctx, bson.M{
		"_id":      folderID,
		"owner_id": ownerID,
	}).Decode(&folder)

	if err == mongo.ErrNoDocuments {
		return nil, utils.NewNotFound("folder not found")
	} else if err != nil {
		return nil, utils.NewInternal("database error: %v", err)
	}
	return &folder, nil
}

func (s *FolderStore) Insert(ctx context.Context, folder *models.Folder) error {
	if _, err := s.collection.InsertOne(ctx, folder); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return utils.NewConflict("folder with name '%s' already exists", folder.Name)
		}
		return utils.NewInternal("failed to create folder: %v", err)
	}
	return nil
}

func (s *FolderStore) Save(ctx context.Context, ownerID, folderID primitive.ObjectID, fields bson.M) error {
	fields["updated_at"] = time.Now()
	result, err := s.collection.UpdateOne(ctx,
		bson.M{"_id": folderID, "owner_id": ownerID},
		bson.M{"$set": fields},
	)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return utils.NewConflict("folder with the same name already exists")
		}
		return utils.NewInternal("failed to update folder: %v", err)
	}
	if result.MatchedCount == 0 {
		return utils.NewNotFound("folder not found")
	}
	return nil
}

func (s *FolderStore) Delete(ctx context.Context, ownerID, folderID primitive.ObjectID) error {
	result, err := s.collection.DeleteOne(ctx, bson.M{"_id": folderID, "owner_id": ownerID})
	if err != nil {
		return utils.NewInternal("failed to delete folder: %v", err)
	}
	if result.DeletedCount == 0 {
		return utils.NewNotFound("folder not found")
	}
	return nil
}

func (s *FolderStore) ActiveSiblingExists(ctx context.Context, ownerID primitive.ObjectID, parentID *primitive.ObjectID, name string) (bool, error) {
	count, err := s.collection.CountDocuments(ctx, bson.M{
		"owner_id":   ownerID,
		"parent_id":  parentIDValue(parentID),
		"name":       name,
		"is_trashed": false,
		"is_locked":  false,
	})
	if err != nil {
		return false, utils.NewInternal("database error: %v", err)
	}
	return count > 0, nil
}

func (s *FolderStore) FindByParent(ctx context.Context, ownerID primitive.ObjectID, parentID *primitive.ObjectID) ([]models.Folder, error) {
	cursor, err := s.collection.Find(ctx, bson.M{
		"owner_id":   ownerID,
		"parent_id":  parentIDValue(parentID),
		"is_trashed": false,
		"is_locked":  false,
	}, options.Find().SetSort(bson.M{"name": 1}))
	if err != nil {
		return nil, utils.NewInternal("failed to list folders: %v", err)
	}
	defer cursor.Close(ctx)

	var folders []models.Folder
	if err = cursor.All(ctx, &folders); err != nil {
		return nil, utils.NewInternal("failed to decode folders: %v", err)
	}
	return folders, nil
}

// ChildFolderIDs returns the ids of every direct child folder, including
// trashed and locked ones. Tree walks need the full structure.
func (s *FolderStore) ChildFolderIDs(ctx context.Context, ownerID, parentID primitive.ObjectID) ([]primitive.ObjectID, error) {
	cursor, err := s.collection.Find(ctx,
		bson.M{"owner_id": ownerID, "parent_id": parentID},
		options.Find().SetProjection(bson.M{"_id": 1}),
	)
	if err != nil {
		return nil, utils.NewInternal("failed to list child folders: %v", err)
	}
	defer cursor.Close(ctx)

	var ids []primitive.ObjectID
	for cursor.Next(ctx) {
		var doc struct {
			ID primitive.ObjectID `bson:"_id"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, utils.NewInternal("failed to decode folder id: %v", err)
		}
		ids = append(ids, doc.ID)
	}
	if err := cursor.Err(); err != nil {
		return nil, utils.NewInternal("cursor error: %v", err)
	}
	return ids, nil
}

func (s *FolderStore) FindFilter(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Folder, error) {
	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, utils.NewInternal("failed to query folders: %v", err)
	}
	defer cursor.Close(ctx)

	var folders []models.Folder
	if err = cursor.All(ctx, &folders); err != nil {
		return nil, utils.NewInternal("failed to decode folders: %v", err)
	}
	return folders, nil
}

func (s *FolderStore) UpdateMany(ctx context.Context, filter, update bson.M) error {
	if _, err := s.collection.UpdateMany(ctx, filter, update); err != nil {
		return utils.NewInternal("failed to update folders: %v", err)
	}
	return nil
}

func (s *FolderStore) BulkWrite(ctx context.Context, ops []mongo.WriteModel) error {
	if len(ops) == 0 {
		return nil
	}
	if _, err := s.collection.BulkWrite(ctx, ops); err != nil {
		return utils.NewInternal("bulk folder update failed: %v", err)
	}
	return nil
}

// parentIDValue normalizes a nullable parent pointer for queries: root
// entities carry a literal null parent_id.
func parentIDValue(parentID *primitive.ObjectID) interface{} {
	if parentID == nil {
		return nil
	}
	return *parentID
}
