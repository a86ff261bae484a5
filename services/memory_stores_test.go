package services

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"vaultdrive/models"
	"vaultdrive/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Map-backed stand-ins for the Mongo stores. They interpret the filter and
// update shapes the managers actually issue, so upload/trash/restore flows
// can be driven end to end and their bookkeeping asserted without a
// database.

// matchCond evaluates one filter condition against a document value.
func matchCond(val interface{}, cond interface{}) bool {
	c, ok := cond.(bson.M)
	if !ok {
		return val == cond
	}
	for op, arg := range c {
		switch op {
		case "$regex":
			pat, _ := arg.(string)
			if optv, ok := c["$options"]; ok && strings.Contains(optv.(string), "i") {
				pat = "(?i)" + pat
			}
			re, err := regexp.Compile(pat)
			if err != nil {
				return false
			}
			s, ok := val.(string)
			if !ok || !re.MatchString(s) {
				return false
			}
		case "$options":
			// consumed with $regex
		case "$nin":
			ids, _ := arg.([]primitive.ObjectID)
			for _, id := range ids {
				if val == interface{}(id) {
					return false
				}
			}
		case "$gte":
			v, _ := val.(int64)
			bound, _ := arg.(int64)
			if v < bound {
				return false
			}
		case "$lte":
			v, _ := val.(int64)
			bound, _ := arg.(int64)
			if v > bound {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func matchDoc(doc map[string]interface{}, filter bson.M) bool {
	for key, cond := range filter {
		if !matchCond(doc[key], cond) {
			return false
		}
	}
	return true
}

func setFromUpdate(update bson.M) bson.M {
	set, _ := update["$set"].(bson.M)
	return set
}

func toIDPtr(v interface{}) *primitive.ObjectID {
	if id, ok := v.(primitive.ObjectID); ok {
		p := id
		return &p
	}
	return nil
}

// sortDocs orders docs by the single sort key the managers use, when one is
// given.
func sortKeyOrder(opts *options.FindOptions) (string, int, bool) {
	if opts == nil || opts.Sort == nil {
		return "", 0, false
	}
	m, ok := opts.Sort.(bson.M)
	if !ok || len(m) != 1 {
		return "", 0, false
	}
	for key, ord := range m {
		order := 1
		switch o := ord.(type) {
		case int:
			order = o
		case int64:
			order = int(o)
		}
		return key, order, true
	}
	return "", 0, false
}

func lessDocValue(a, b interface{}) bool {
	switch av := a.(type) {
	case string:
		bv, _ := b.(string)
		return av < bv
	case int64:
		bv, _ := b.(int64)
		return av < bv
	case time.Time:
		bv, _ := b.(time.Time)
		return av.Before(bv)
	}
	return false
}

func sliceWindow(length int, opts *options.FindOptions) (int, int) {
	start, end := 0, length
	if opts != nil && opts.Skip != nil {
		start = int(*opts.Skip)
		if start > length {
			start = length
		}
	}
	if opts != nil && opts.Limit != nil {
		end = start + int(*opts.Limit)
		if end > length {
			end = length
		}
	}
	return start, end
}

// ---- files ----

type memFileStore struct {
	mu    sync.Mutex
	files map[primitive.ObjectID]*models.File

	// failDelete, when set, is returned by Delete so purge failure paths
	// can be exercised.
	failDelete error
}

func newMemFileStore() *memFileStore {
	return &memFileStore{files: make(map[primitive.ObjectID]*models.File)}
}

func fileDoc(f *models.File) map[string]interface{} {
	return map[string]interface{}{
		"_id":           f.ID,
		"owner_id":      f.OwnerID,
		"parent_id":     parentIDValue(f.ParentID),
		"name":          f.Name,
		"original_name": f.OriginalName,
		"path":          f.Path,
		"file_type":     f.FileType,
		"size":          f.Size,
		"is_trashed":    f.IsTrashed,
		"is_locked":     f.IsLocked,
		"created_at":    f.CreatedAt,
	}
}

func applyFileSet(f *models.File, set bson.M) {
	for k, v := range set {
		switch k {
		case "is_trashed":
			f.IsTrashed = v.(bool)
		case "is_locked":
			f.IsLocked = v.(bool)
		case "path":
			f.Path = v.(string)
		case "name":
			f.Name = v.(string)
		case "original_name":
			f.OriginalName = v.(string)
		case "parent_id":
			f.ParentID = toIDPtr(v)
		case "updated_at":
			f.UpdatedAt = v.(time.Time)
		}
	}
}

func (s *memFileStore) FindActive(ctx context.Context, ownerID, fileID primitive.ObjectID) (*models.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[fileID]
	if !ok || f.OwnerID != ownerID || f.IsTrashed || f.IsLocked {
		return nil, utils.NewNotFound("file not found")
	}
	c := *f
	return &c, nil
}

func (s *memFileStore) FindAny(ctx context.Context, ownerID, fileID primitive.ObjectID) (*models.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[fileID]
	if !ok || f.OwnerID != ownerID {
		return nil, utils.NewNotFound("file not found")
	}
	c := *f
	return &c, nil
}

func (s *memFileStore) Insert(ctx context.Context, file *models.File) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *file
	s.files[file.ID] = &c
	return nil
}

func (s *memFileStore) Save(ctx context.Context, ownerID, fileID primitive.ObjectID, fields bson.M) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[fileID]
	if !ok || f.OwnerID != ownerID {
		return utils.NewNotFound("file not found")
	}
	applyFileSet(f, fields)
	f.UpdatedAt = time.Now()
	return nil
}

func (s *memFileStore) Delete(ctx context.Context, ownerID, fileID primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failDelete != nil {
		return s.failDelete
	}
	f, ok := s.files[fileID]
	if !ok || f.OwnerID != ownerID {
		return utils.NewNotFound("file not found")
	}
	delete(s.files, fileID)
	return nil
}

func (s *memFileStore) ActiveSiblingExists(ctx context.Context, ownerID primitive.ObjectID, parentID *primitive.ObjectID, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := parentIDValue(parentID)
	for _, f := range s.files {
		if f.OwnerID == ownerID && parentIDValue(f.ParentID) == want &&
			f.OriginalName == name && !f.IsTrashed && !f.IsLocked {
			return true, nil
		}
	}
	return false, nil
}

func (s *memFileStore) FindByParent(ctx context.Context, ownerID primitive.ObjectID, parentID *primitive.ObjectID) ([]models.File, error) {
	return s.FindFilter(ctx, bson.M{
		"owner_id":   ownerID,
		"parent_id":  parentIDValue(parentID),
		"is_trashed": false,
		"is_locked":  false,
	}, options.Find().SetSort(bson.M{"original_name": 1}))
}

func (s *memFileStore) FindFilter(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.File
	for _, f := range s.files {
		if matchDoc(fileDoc(f), filter) {
			out = append(out, *f)
		}
	}
	if key, order, ok := sortKeyOrder(opts); ok {
		sort.SliceStable(out, func(i, j int) bool {
			less := lessDocValue(fileDoc(&out[i])[key], fileDoc(&out[j])[key])
			if order < 0 {
				return !less
			}
			return less
		})
	} else {
		sort.SliceStable(out, func(i, j int) bool { return out[i].OriginalName < out[j].OriginalName })
	}
	start, end := sliceWindow(len(out), opts)
	return out[start:end], nil
}

func (s *memFileStore) Count(ctx context.Context, filter bson.M) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, f := range s.files {
		if matchDoc(fileDoc(f), filter) {
			n++
		}
	}
	return n, nil
}

func (s *memFileStore) UpdateMany(ctx context.Context, filter, update bson.M) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := setFromUpdate(update)
	for _, f := range s.files {
		if matchDoc(fileDoc(f), filter) {
			applyFileSet(f, set)
		}
	}
	return nil
}

func (s *memFileStore) DeleteMany(ctx context.Context, filter bson.M) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, f := range s.files {
		if matchDoc(fileDoc(f), filter) {
			delete(s.files, id)
		}
	}
	return nil
}

func (s *memFileStore) BulkWrite(ctx context.Context, ops []mongo.WriteModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, op := range ops {
		um, ok := op.(*mongo.UpdateOneModel)
		if !ok {
			continue
		}
		filter, _ := um.Filter.(bson.M)
		set := setFromUpdate(um.Update.(bson.M))
		for _, f := range s.files {
			if matchDoc(fileDoc(f), filter) {
				applyFileSet(f, set)
				break
			}
		}
	}
	return nil
}

// ---- folders ----

type memFolderStore struct {
	mu      sync.Mutex
	folders map[primitive.ObjectID]*models.Folder
}

func newMemFolderStore() *memFolderStore {
	return &memFolderStore{folders: make(map[primitive.ObjectID]*models.Folder)}
}

func folderDoc(f *models.Folder) map[string]interface{} {
	return map[string]interface{}{
		"_id":        f.ID,
		"owner_id":   f.OwnerID,
		"parent_id":  parentIDValue(f.ParentID),
		"name":       f.Name,
		"path":       f.Path,
		"size":       f.Size,
		"is_trashed": f.IsTrashed,
		"is_locked":  f.IsLocked,
		"created_at": f.CreatedAt,
	}
}

func applyFolderSet(f *models.Folder, set bson.M) {
	for k, v := range set {
		switch k {
		case "is_trashed":
			f.IsTrashed = v.(bool)
		case "is_locked":
			f.IsLocked = v.(bool)
		case "path":
			f.Path = v.(string)
		case "name":
			f.Name = v.(string)
		case "parent_id":
			f.ParentID = toIDPtr(v)
		case "updated_at":
			f.UpdatedAt = v.(time.Time)
		}
	}
}

func (s *memFolderStore) FindActive(ctx context.Context, ownerID, folderID primitive.ObjectID) (*models.Folder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.folders[folderID]
	if !ok || f.OwnerID != ownerID || f.IsTrashed || f.IsLocked {
		return nil, utils.NewNotFound("folder not found")
	}
	c := *f
	return &c, nil
}

func (s *memFolderStore) FindAny(ctx context.Context, ownerID, folderID primitive.ObjectID) (*models.Folder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.folders[folderID]
	if !ok || f.OwnerID != ownerID {
		return nil, utils.NewNotFound("folder not found")
	}
	c := *f
	return &c, nil
}

func (s *memFolderStore) Insert(ctx context.Context, folder *models.Folder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *folder
	s.folders[folder.ID] = &c
	return nil
}

func (s *memFolderStore) Save(ctx context.Context, ownerID, folderID primitive.ObjectID, fields bson.M) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.folders[folderID]
	if !ok || f.OwnerID != ownerID {
		return utils.NewNotFound("folder not found")
	}
	applyFolderSet(f, fields)
	f.UpdatedAt = time.Now()
	return nil
}

func (s *memFolderStore) Delete(ctx context.Context, ownerID, folderID primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.folders[folderID]
	if !ok || f.OwnerID != ownerID {
		return utils.NewNotFound("folder not found")
	}
	delete(s.folders, folderID)
	return nil
}

func (s *memFolderStore) ActiveSiblingExists(ctx context.Context, ownerID primitive.ObjectID, parentID *primitive.ObjectID, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := parentIDValue(parentID)
	for _, f := range s.folders {
		if f.OwnerID == ownerID && parentIDValue(f.ParentID) == want &&
			f.Name == name && !f.IsTrashed && !f.IsLocked {
			return true, nil
		}
	}
	return false, nil
}

func (s *memFolderStore) FindByParent(ctx context.Context, ownerID primitive.ObjectID, parentID *primitive.ObjectID) ([]models.Folder, error) {
	return s.FindFilter(ctx, bson.M{
		"owner_id":   ownerID,
		"parent_id":  parentIDValue(parentID),
		"is_trashed": false,
		"is_locked":  false,
	}, options.Find().SetSort(bson.M{"name": 1}))
}

func (s *memFolderStore) ChildFolderIDs(ctx context.Context, ownerID, parentID primitive.ObjectID) ([]primitive.ObjectID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []primitive.ObjectID
	for _, f := range s.folders {
		if f.OwnerID == ownerID && f.ParentID != nil && *f.ParentID == parentID {
			ids = append(ids, f.ID)
		}
	}
	return ids, nil
}

func (s *memFolderStore) FindFilter(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Folder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Folder
	for _, f := range s.folders {
		if matchDoc(folderDoc(f), filter) {
			out = append(out, *f)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	start, end := sliceWindow(len(out), opts)
	return out[start:end], nil
}

func (s *memFolderStore) UpdateMany(ctx context.Context, filter, update bson.M) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := setFromUpdate(update)
	for _, f := range s.folders {
		if matchDoc(folderDoc(f), filter) {
			applyFolderSet(f, set)
		}
	}
	return nil
}

func (s *memFolderStore) BulkWrite(ctx context.Context, ops []mongo.WriteModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, op := range ops {
		um, ok := op.(*mongo.UpdateOneModel)
		if !ok {
			continue
		}
		filter, _ := um.Filter.(bson.M)
		set := setFromUpdate(um.Update.(bson.M))
		for _, f := range s.folders {
			if matchDoc(folderDoc(f), filter) {
				applyFolderSet(f, set)
				break
			}
		}
	}
	return nil
}

// adjust mirrors the $inc the stats tracker issues.
func (s *memFolderStore) adjust(folderID primitive.ObjectID, deltaFiles, deltaFolders, deltaSize int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.folders[folderID]
	if !ok {
		return
	}
	f.FileCount += deltaFiles
	f.FolderCount += deltaFolders
	f.Size += deltaSize
}

// ---- trash records ----

type memTrashStore struct {
	mu            sync.Mutex
	records       map[primitive.ObjectID]*models.TrashRecord
	retentionDays int
}

func newMemTrashStore(retentionDays int) *memTrashStore {
	return &memTrashStore{
		records:       make(map[primitive.ObjectID]*models.TrashRecord),
		retentionDays: retentionDays,
	}
}

func (s *memTrashStore) Insert(ctx context.Context, ownerID, itemID primitive.ObjectID, itemType models.ItemType, name, originalPath string, size int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if r.OwnerID == ownerID && r.ItemID == itemID {
			return utils.NewConflict("item is already in the trash")
		}
	}
	now := time.Now()
	record := &models.TrashRecord{
		ID:           primitive.NewObjectID(),
		OwnerID:      ownerID,
		ItemID:       itemID,
		ItemType:     itemType,
		Name:         name,
		OriginalPath: originalPath,
		Size:         size,
		TrashedAt:    now,
		AutoPurgeAt:  now.AddDate(0, 0, s.retentionDays),
	}
	s.records[record.ID] = record
	return nil
}

func (s *memTrashStore) Find(ctx context.Context, ownerID, recordID primitive.ObjectID) (*models.TrashRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[recordID]
	if !ok || r.OwnerID != ownerID {
		return nil, utils.NewNotFound("trash record not found")
	}
	c := *r
	return &c, nil
}

func (s *memTrashStore) List(ctx context.Context, ownerID primitive.ObjectID, itemType models.ItemType, opts QueryOptions) ([]models.TrashRecord, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.TrashRecord
	for _, r := range s.records {
		if r.OwnerID != ownerID {
			continue
		}
		if itemType != "" && r.ItemType != itemType {
			continue
		}
		out = append(out, *r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TrashedAt.After(out[j].TrashedAt) })
	total := int64(len(out))
	n := opts.normalized()
	start := int(n.skip())
	if start > len(out) {
		start = len(out)
	}
	end := start + n.Limit
	if end > len(out) {
		end = len(out)
	}
	return out[start:end], total, nil
}

func (s *memTrashStore) ListExpired(ctx context.Context, now time.Time) ([]models.TrashRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.TrashRecord
	for _, r := range s.records {
		if !r.AutoPurgeAt.After(now) {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (s *memTrashStore) ItemIDs(ctx context.Context, ownerID primitive.ObjectID) ([]primitive.ObjectID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []primitive.ObjectID
	for _, r := range s.records {
		if r.OwnerID == ownerID {
			ids = append(ids, r.ItemID)
		}
	}
	return ids, nil
}

func (s *memTrashStore) Delete(ctx context.Context, ownerID, recordID primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, recordID)
	return nil
}

func (s *memTrashStore) DeleteByItem(ctx context.Context, ownerID, itemID primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, r := range s.records {
		if r.OwnerID == ownerID && r.ItemID == itemID {
			delete(s.records, id)
		}
	}
	return nil
}

func (s *memTrashStore) recordByItem(itemID primitive.ObjectID) *models.TrashRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if r.ItemID == itemID {
			c := *r
			return &c
		}
	}
	return nil
}

// ---- stats and quota ----

type memStats struct {
	folders *memFolderStore
}

func (s *memStats) Adjust(ctx context.Context, folderID *primitive.ObjectID, deltaFiles, deltaFolders, deltaSize int64) {
	if folderID == nil {
		return
	}
	if deltaFiles == 0 && deltaFolders == 0 && deltaSize == 0 {
		return
	}
	s.folders.adjust(*folderID, deltaFiles, deltaFolders, deltaSize)
}

type memQuota struct {
	mu    sync.Mutex
	used  map[primitive.ObjectID]int64
	limit int64
}

func newMemQuota(limit int64) *memQuota {
	return &memQuota{used: make(map[primitive.ObjectID]int64), limit: limit}
}

func (q *memQuota) Adjust(ctx context.Context, ownerID primitive.ObjectID, delta int64) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.used[ownerID] += delta
	return nil
}

func (q *memQuota) CheckSpace(ctx context.Context, ownerID primitive.ObjectID, additionalSize int64) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.used[ownerID]+additionalSize > q.limit {
		return utils.NewInsufficientStorage("upload would exceed storage limit")
	}
	return nil
}

func (q *memQuota) usedBy(ownerID primitive.ObjectID) int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.used[ownerID]
}

// ---- wired environment ----

type serviceEnv struct {
	files     *memFileStore
	folders   *memFolderStore
	trash     *memTrashStore
	quota     *memQuota
	blobs     *DiskBlobStore
	fileSvc   *FileService
	folderSvc *FolderService
	trashSvc  *TrashService
	owner     primitive.ObjectID
}

func newServiceEnv(t *testing.T) *serviceEnv {
	t.Helper()

	files := newMemFileStore()
	folders := newMemFolderStore()
	trash := newMemTrashStore(30)
	stats := &memStats{folders: folders}
	quota := newMemQuota(1 << 30)

	blobs, err := NewDiskBlobStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDiskBlobStore: %v", err)
	}

	fileSvc := NewFileService(files, folders, trash, stats, quota, blobs, 1<<20)
	folderSvc := NewFolderService(folders, files, trash, stats, quota, blobs)
	trashSvc := NewTrashService(trash, files, folders, fileSvc, folderSvc, stats)

	return &serviceEnv{
		files:     files,
		folders:   folders,
		trash:     trash,
		quota:     quota,
		blobs:     blobs,
		fileSvc:   fileSvc,
		folderSvc: folderSvc,
		trashSvc:  trashSvc,
		owner:     primitive.NewObjectID(),
	}
}

func (e *serviceEnv) mustCreateFolder(t *testing.T, name string, parentID *primitive.ObjectID) *models.Folder {
	t.Helper()
	folder, err := e.folderSvc.Create(context.Background(), e.owner, name, parentID)
	if err != nil {
		t.Fatalf("create folder %s: %v", name, err)
	}
	return folder
}

func (e *serviceEnv) mustUpload(t *testing.T, name, content string, parentID *primitive.ObjectID) models.File {
	t.Helper()
	uploaded, err := e.fileSvc.Upload(context.Background(), e.owner, parentID, []FileUpload{{
		Reader:   strings.NewReader(content),
		Filename: name,
		MimeType: "text/plain",
		Size:     int64(len(content)),
	}})
	if err != nil {
		t.Fatalf("upload %s: %v", name, err)
	}
	if len(uploaded) != 1 {
		t.Fatalf("upload %s: got %d files", name, len(uploaded))
	}
	return uploaded[0]
}

func (e *serviceEnv) folderByID(t *testing.T, id primitive.ObjectID) *models.Folder {
	t.Helper()
	f, err := e.folders.FindAny(context.Background(), e.owner, id)
	if err != nil {
		t.Fatalf("folder %s: %v", id.Hex(), err)
	}
	return f
}

func (e *serviceEnv) fileByID(t *testing.T, id primitive.ObjectID) *models.File {
	t.Helper()
	f, err := e.files.FindAny(context.Background(), e.owner, id)
	if err != nil {
		t.Fatalf("file %s: %v", id.Hex(), err)
	}
	return f
}
