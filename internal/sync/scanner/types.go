package scanner

import "github.com/dl-alexandre/mrisync/internal/remote"

// Level is one remote folder's immediate children, split by kind. The name
// lists keep listing order, duplicates included; the maps resolve a name to
// the first entry listed with it.
type Level struct {
	FolderID    string
	Folders     map[string]remote.Item
	Files       map[string]remote.Item
	FolderNames []string
	FileNames   []string
	// FolderItems and FileItems hold every entry, duplicates included.
	FolderItems []remote.Item
	FileItems   []remote.Item
}

func newLevel(folderID string) *Level {
	return &Level{
		FolderID: folderID,
		Folders:  make(map[string]remote.Item),
		Files:    make(map[string]remote.Item),
	}
}

func (l *Level) add(item remote.Item) {
	if item.IsFolder() {
		l.FolderNames = append(l.FolderNames, item.Name)
		l.FolderItems = append(l.FolderItems, item)
		if _, seen := l.Folders[item.Name]; !seen {
			l.Folders[item.Name] = item
		}
		return
	}
	l.FileNames = append(l.FileNames, item.Name)
	l.FileItems = append(l.FileItems, item)
	if _, seen := l.Files[item.Name]; !seen {
		l.Files[item.Name] = item
	}
}
