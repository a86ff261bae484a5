package models

// ItemType discriminates the file-or-folder references held by trash and
// locker records.
type ItemType string

const (
	ItemTypeFile   ItemType = "file"
	ItemTypeFolder ItemType = "folder"
)

func (t ItemType) Valid() bool {
	return t == ItemTypeFile || t == ItemTypeFolder
}
