// Package snapshot finds and rewrites PicklePersistence files.
package snapshot

import (
	"os"

	"github.com/yndnr/ptb-migrate/internal/core/domain"
)

// Category names the persistence data held in a file.
type Category string

// Persistence categories.
const (
	CategorySingle        Category = "single"
	CategoryUserData      Category = "user_data"
	CategoryBotData       Category = "bot_data"
	CategoryChatData      Category = "chat_data"
	CategoryConversations Category = "conversations"
	CategoryCallbackData  Category = "callback_data"
)

// Categories lists the per-category files in the order they are
// converted.
var Categories = []Category{
	CategoryUserData,
	CategoryBotData,
	CategoryChatData,
	CategoryConversations,
	CategoryCallbackData,
}

// Suffix returns the file name suffix for c, empty for CategorySingle.
func (c Category) Suffix() string {
	if c == CategorySingle {
		return ""
	}
	return "_" + string(c)
}

// File is a persistence file found by Locate.
type File struct {
	Path     string   `json:"path" yaml:"path"`
	Category Category `json:"category" yaml:"category"`
}

// Locate returns the persistence files for base.
//
// When base itself is a regular file it is returned alone. Otherwise the
// per-category files that exist are returned in Categories order.
// Directories are never treated as persistence files.
func Locate(base string) ([]File, error) {
	if isFile(base) {
		return []File{{Path: base, Category: CategorySingle}}, nil
	}

	var files []File
	for _, c := range Categories {
		path := base + c.Suffix()
		if isFile(path) {
			files = append(files, File{Path: path, Category: c})
		}
	}
	if len(files) == 0 {
		return nil, domain.ErrSnapshotNotFound.WithDetailsf("in %s", base)
	}
	return files, nil
}

func isFile(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}
