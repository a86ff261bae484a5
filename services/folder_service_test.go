package services

import (
	"context"
	"net/http"
	"testing"

	"vaultdrive/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestCreateFolderAdjustsParentAggregate(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()

	parent := env.mustCreateFolder(t, "projects", nil)
	child := env.mustCreateFolder(t, "go", &parent.ID)

	if child.Path != "/projects/go" {
		t.Errorf("child path = %q, want /projects/go", child.Path)
	}
	if got := env.folderByID(t, parent.ID); got.FolderCount != 1 {
		t.Errorf("parent folder_count = %d, want 1", got.FolderCount)
	}

	_, err := env.folderSvc.Create(ctx, env.owner, "go", &parent.ID)
	if !utils.IsStatus(err, http.StatusConflict) {
		t.Fatalf("duplicate create err = %v, want status %d", err, http.StatusConflict)
	}
}

func TestRenameRewritesDescendantPaths(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()

	root := env.mustCreateFolder(t, "old", nil)
	sub := env.mustCreateFolder(t, "sub", &root.ID)
	file := env.mustUpload(t, "notes.txt", "hello", &sub.ID)

	renamed, err := env.folderSvc.Rename(ctx, env.owner, root.ID, "new")
	if err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if renamed.Path != "/new" {
		t.Errorf("renamed path = %q, want /new", renamed.Path)
	}
	if got := env.folderByID(t, sub.ID); got.Path != "/new/sub" {
		t.Errorf("descendant folder path = %q, want /new/sub", got.Path)
	}
	if got := env.fileByID(t, file.ID); got.Path != "/new/sub/notes.txt" {
		t.Errorf("descendant file path = %q, want /new/sub/notes.txt", got.Path)
	}
}

func TestMoveIntoOwnSubtreeRejected(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()

	outer := env.mustCreateFolder(t, "outer", nil)
	inner := env.mustCreateFolder(t, "inner", &outer.ID)

	if _, err := env.folderSvc.Move(ctx, env.owner, outer.ID, &inner.ID); !utils.IsStatus(err, http.StatusConflict) {
		t.Errorf("move into descendant err = %v, want status %d", err, http.StatusConflict)
	}
	if _, err := env.folderSvc.Move(ctx, env.owner, outer.ID, &outer.ID); !utils.IsStatus(err, http.StatusConflict) {
		t.Errorf("move into itself err = %v, want status %d", err, http.StatusConflict)
	}

	// Nothing may have moved.
	if got := env.folderByID(t, inner.ID); got.Path != "/outer/inner" {
		t.Errorf("inner path = %q after rejected moves, want /outer/inner", got.Path)
	}
}

func TestMoveReparentsAndRewritesSubtree(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()

	src := env.mustCreateFolder(t, "src", nil)
	dst := env.mustCreateFolder(t, "dst", nil)
	sub := env.mustCreateFolder(t, "sub", &src.ID)
	file := env.mustUpload(t, "notes.txt", "hello", &sub.ID)

	moved, err := env.folderSvc.Move(ctx, env.owner, sub.ID, &dst.ID)
	if err != nil {
		t.Fatalf("Move: %v", err)
	}
	if moved.Path != "/dst/sub" {
		t.Errorf("moved path = %q, want /dst/sub", moved.Path)
	}
	if moved.ParentID == nil || *moved.ParentID != dst.ID {
		t.Errorf("moved parent = %v, want %s", moved.ParentID, dst.ID.Hex())
	}
	if got := env.fileByID(t, file.ID); got.Path != "/dst/sub/notes.txt" {
		t.Errorf("descendant file path = %q, want /dst/sub/notes.txt", got.Path)
	}
	if got := env.folderByID(t, src.ID); got.FolderCount != 0 {
		t.Errorf("old parent folder_count = %d, want 0", got.FolderCount)
	}
	if got := env.folderByID(t, dst.ID); got.FolderCount != 1 {
		t.Errorf("new parent folder_count = %d, want 1", got.FolderCount)
	}
}

func TestSoftDeleteTreeTrashesWholeSubtree(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()

	root := env.mustCreateFolder(t, "root", nil)
	sub := env.mustCreateFolder(t, "sub", &root.ID)
	inRoot := env.mustUpload(t, "top.txt", "aa", &root.ID)
	inSub := env.mustUpload(t, "deep.txt", "bbb", &sub.ID)

	trashed, err := env.folderSvc.SoftDeleteTree(ctx, env.owner, root.ID)
	if err != nil {
		t.Fatalf("SoftDeleteTree: %v", err)
	}
	if !trashed.IsTrashed {
		t.Error("root not marked trashed")
	}

	for _, id := range []primitive.ObjectID{inRoot.ID, inSub.ID} {
		if !env.fileByID(t, id).IsTrashed {
			t.Errorf("file %s still active after tree trash", id.Hex())
		}
	}
	if !env.folderByID(t, sub.ID).IsTrashed {
		t.Error("subfolder still active after tree trash")
	}

	// One record for the root, none for the descendants.
	if env.trash.recordByItem(root.ID) == nil {
		t.Error("no trash record for the root")
	}
	if env.trash.recordByItem(sub.ID) != nil || env.trash.recordByItem(inSub.ID) != nil {
		t.Error("descendants got their own trash records")
	}

	// Parent pointers survive so the subtree stays restorable.
	if got := env.folderByID(t, sub.ID); got.ParentID == nil || *got.ParentID != root.ID {
		t.Error("subfolder parent pointer changed during tree trash")
	}
}

func TestRestoreReparentsOrphanedFolderToRoot(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()

	parent := env.mustCreateFolder(t, "parent", nil)
	child := env.mustCreateFolder(t, "child", &parent.ID)

	if _, err := env.folderSvc.SoftDeleteTree(ctx, env.owner, child.ID); err != nil {
		t.Fatalf("trash child: %v", err)
	}
	if _, err := env.folderSvc.SoftDeleteTree(ctx, env.owner, parent.ID); err != nil {
		t.Fatalf("trash parent: %v", err)
	}

	record := env.trash.recordByItem(child.ID)
	if record == nil {
		t.Fatal("no trash record for child")
	}
	results := env.trashSvc.Restore(ctx, env.owner, []primitive.ObjectID{record.ID})
	if len(results) != 1 || !results[0].Success {
		t.Fatalf("restore results = %+v", results)
	}

	got := env.folderByID(t, child.ID)
	if got.IsTrashed {
		t.Error("child still trashed after restore")
	}
	if got.ParentID != nil {
		t.Errorf("child parent = %s, want root", got.ParentID.Hex())
	}
	if got.Path != "/child" {
		t.Errorf("child path = %q, want /child", got.Path)
	}
	if !env.folderByID(t, parent.ID).IsTrashed {
		t.Error("trashed parent was reactivated by the child's restore")
	}
}

func TestRestoreKeepsIndividuallyTrashedDescendants(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()

	root := env.mustCreateFolder(t, "root", nil)
	sub := env.mustCreateFolder(t, "sub", &root.ID)
	file := env.mustUpload(t, "solo.txt", "hello", &sub.ID)

	// The file goes to the trash on its own, then the whole tree follows.
	if results := env.fileSvc.SoftDelete(ctx, env.owner, []primitive.ObjectID{file.ID}); !results[0].Success {
		t.Fatalf("file soft delete = %+v", results)
	}
	if _, err := env.folderSvc.SoftDeleteTree(ctx, env.owner, root.ID); err != nil {
		t.Fatalf("SoftDeleteTree: %v", err)
	}

	rootRecord := env.trash.recordByItem(root.ID)
	if rootRecord == nil {
		t.Fatal("no trash record for root")
	}
	if results := env.trashSvc.Restore(ctx, env.owner, []primitive.ObjectID{rootRecord.ID}); !results[0].Success {
		t.Fatalf("restore results = %+v", results)
	}

	if env.folderByID(t, root.ID).IsTrashed || env.folderByID(t, sub.ID).IsTrashed {
		t.Fatal("tree not reactivated by restore")
	}

	// The individually trashed file keeps its state, its record, and its
	// absence from the parent's counters.
	got := env.fileByID(t, file.ID)
	if !got.IsTrashed {
		t.Fatal("individually trashed file was reactivated by the folder restore")
	}
	if env.trash.recordByItem(file.ID) == nil {
		t.Fatal("file's own trash record vanished during the folder restore")
	}
	if counts := env.folderByID(t, sub.ID); counts.FileCount != 0 || counts.Size != 0 {
		t.Errorf("parent aggregates = (%d, %d) while the file is trashed, want (0, 0)", counts.FileCount, counts.Size)
	}

	// Its own restore still works and settles the counters.
	fileRecord := env.trash.recordByItem(file.ID)
	if results := env.trashSvc.Restore(ctx, env.owner, []primitive.ObjectID{fileRecord.ID}); !results[0].Success {
		t.Fatalf("file restore results = %+v", results)
	}
	got = env.fileByID(t, file.ID)
	if got.IsTrashed {
		t.Error("file still trashed after its own restore")
	}
	if got.Path != "/root/sub/solo.txt" {
		t.Errorf("restored file path = %q, want /root/sub/solo.txt", got.Path)
	}
	if counts := env.folderByID(t, sub.ID); counts.FileCount != 1 || counts.Size != 5 {
		t.Errorf("parent aggregates after file restore = (%d, %d), want (1, 5)", counts.FileCount, counts.Size)
	}
}

func TestHardDeleteTreeRemovesEverything(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()

	root := env.mustCreateFolder(t, "root", nil)
	sub := env.mustCreateFolder(t, "sub", &root.ID)
	file := env.mustUpload(t, "deep.txt", "hello", &sub.ID)

	summary, err := env.folderSvc.HardDeleteTree(ctx, env.owner, root.ID)
	if err != nil {
		t.Fatalf("HardDeleteTree: %v", err)
	}
	if summary.FilesDeleted != 1 || summary.FoldersDeleted != 2 || summary.BytesReclaimed != 5 {
		t.Errorf("summary = %+v, want 1 file, 2 folders, 5 bytes", summary)
	}

	if _, err := env.folders.FindAny(ctx, env.owner, root.ID); !utils.IsStatus(err, http.StatusNotFound) {
		t.Error("root folder record survived hard delete")
	}
	if _, err := env.files.FindAny(ctx, env.owner, file.ID); !utils.IsStatus(err, http.StatusNotFound) {
		t.Error("file record survived hard delete")
	}
	if env.blobs.Exists(ctx, file.StoragePath) {
		t.Error("blob survived hard delete")
	}
	if used := env.quota.usedBy(env.owner); used != 0 {
		t.Errorf("quota used = %d after hard delete, want 0", used)
	}
}
