package models

import "time"

type Folder struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Icon      string    `json:"icon"`
	CreatedAt time.Time `json:"created_at"`
}

type FolderPatch struct {
	Name Optional[string] `json:"name"`
	Icon Optional[string] `json:"icon"`
}

func (p FolderPatch) IsEmpty() bool {
	return !p.Name.Set && !p.Icon.Set
}

// FolderIcons допустимые иконки папок
var FolderIcons = []string{
	"folder",
	"briefcase",
	"home",
	"star",
	"heart",
	"bookmark",
	"code",
	"music",
	"camera",
	"book",
	"globe",
	"shopping-cart",
}
