package resolver

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/dl-alexandre/mrisync/internal/remote"
	"github.com/dl-alexandre/mrisync/internal/utils"
)

// RootFolderID is the Drive alias for the caller's My Drive root
const RootFolderID = "root"

// PathResolver resolves slash-separated folder paths to remote folder IDs
type PathResolver struct {
	store remote.Store
	cache map[string]string
}

// NewPathResolver creates a resolver; results are cached for its lifetime
func NewPathResolver(store remote.Store) *PathResolver {
	return &PathResolver{
		store: store,
		cache: make(map[string]string),
	}
}

// ResolveOptions configures path resolution
type ResolveOptions struct {
	// StartID is the folder the path is relative to. Defaults to RootFolderID.
	StartID string
	// StrictMode fails when a segment names more than one folder instead of
	// picking the first by ID.
	StrictMode bool
}

// ResolveFolder walks path one segment at a time and returns the ID of the
// last folder. Files with a matching name are ignored.
func (r *PathResolver) ResolveFolder(ctx context.Context, path string, opts ResolveOptions) (string, error) {
	currentID := opts.StartID
	if currentID == "" {
		currentID = RootFolderID
	}

	segments := splitPath(path)
	if len(segments) == 0 {
		return currentID, nil
	}

	for i, segment := range segments {
		key := currentID + "/" + segment
		if id, ok := r.cache[key]; ok {
			currentID = id
			continue
		}

		items, err := r.store.ListChildren(ctx, currentID)
		if err != nil {
			return "", fmt.Errorf("resolve %s: %w", path, err)
		}

		var matches []remote.Item
		for _, item := range items {
			if item.IsFolder() && item.Name == segment {
				matches = append(matches, item)
			}
		}

		walked := strings.Join(segments[:i+1], "/")
		if len(matches) == 0 {
			return "", utils.NewAppError(utils.NewCLIError(utils.ErrCodeFileNotFound,
				fmt.Sprintf("Path segment not found: %s (at %s)", segment, walked)).
				WithContext("path", path).
				WithContext("segment", segment).
				Build())
		}
		if len(matches) > 1 {
			if opts.StrictMode {
				return "", utils.NewAppError(utils.NewCLIError(utils.ErrCodeAmbiguousPath,
					fmt.Sprintf("Ambiguous path: multiple folders named '%s'", segment)).
					WithContext("path", walked).
					WithContext("matchCount", len(matches)).
					Build())
			}
			sort.Slice(matches, func(a, b int) bool { return matches[a].ID < matches[b].ID })
		}

		r.cache[key] = matches[0].ID
		currentID = matches[0].ID
	}
	return currentID, nil
}

func splitPath(path string) []string {
	var segments []string
	for _, s := range strings.Split(strings.Trim(path, "/"), "/") {
		if s = strings.TrimSpace(s); s != "" {
			segments = append(segments, s)
		}
	}
	return segments
}
