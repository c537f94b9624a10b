package tree

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dl-alexandre/mrisync/internal/logging"
	"github.com/dl-alexandre/mrisync/internal/sync/pattern"
	"github.com/dl-alexandre/mrisync/internal/utils"
	"github.com/spf13/afero"
)

// Builder grows a Node into the tree of matching folders and files below it
type Builder struct {
	fs      afero.Fs
	folders *pattern.Pattern
	files   *pattern.Pattern
	study   *pattern.Pattern
	logger  logging.Logger
}

func NewBuilder(fs afero.Fs, folders, files *pattern.Pattern, logger logging.Logger) *Builder {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	return &Builder{
		fs:      fs,
		folders: folders,
		files:   files,
		study:   pattern.MustCompile(utils.StudyFolderPattern),
		logger:  logger,
	}
}

// Build lists node's directory once, attaches every matching folder and
// file, and recurses into the attached folders. A directory that cannot be
// listed fails the whole build.
func (b *Builder) Build(ctx context.Context, node *Node) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	infos, err := afero.ReadDir(b.fs, node.Path)
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", node.Path, err)
	}

	if b.study.Match(node.Name) && len(infos) > utils.LargeStudyEntryThreshold {
		b.logger.Warn("Study directory has an unusually large number of entries",
			logging.F("path", node.Path),
			logging.F("entries", len(infos)),
		)
	}

	var dirs []*Node
	for _, info := range infos {
		isDir, isFile := b.classify(node, info)
		switch {
		case isDir:
			if b.folders.Match(info.Name()) {
				child := newChild(b.fs, node, info.Name(), true)
				node.AddChild(child)
				dirs = append(dirs, child)
			}
		case isFile:
			if b.files.Match(info.Name()) {
				node.AddChild(newChild(b.fs, node, info.Name(), false))
			}
		}
	}

	for _, dir := range dirs {
		if err := b.Build(ctx, dir); err != nil {
			return err
		}
	}
	return nil
}

// classify reports whether info is a directory or a regular file. Symbolic
// links are followed; a dangling link is neither.
func (b *Builder) classify(parent *Node, info os.FileInfo) (isDir, isFile bool) {
	if info.Mode()&os.ModeSymlink == 0 {
		return info.IsDir(), info.Mode().IsRegular()
	}

	path := filepath.Join(parent.Path, info.Name())
	target, err := b.fs.Stat(path)
	if err != nil {
		b.logger.Warn("Skipping unreadable symbolic link",
			logging.F("path", path),
			logging.F("error", err.Error()),
		)
		return false, false
	}
	return target.IsDir(), target.Mode().IsRegular()
}
