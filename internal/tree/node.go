package tree

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// Entry is a local directory or file. The modification time is read from
// the filesystem when asked for, not when the entry is listed.
type Entry struct {
	Name  string
	Path  string
	IsDir bool

	fs afero.Fs
}

// ModTime stats the entry and returns its last modification time
func (e Entry) ModTime() (time.Time, error) {
	info, err := e.fs.Stat(e.Path)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

// Node wraps an Entry in the desired-state tree. Folders and Files keep the
// order the builder attached them in.
type Node struct {
	Entry
	Depth   int
	Folders []*Node
	Files   []*Node
}

// NewRoot creates the depth-0 node for the directory at path
func NewRoot(fs afero.Fs, path string) (*Node, error) {
	info, err := fs.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", path)
	}
	return &Node{
		Entry: Entry{Name: filepath.Base(filepath.Clean(path)), Path: path, IsDir: true, fs: fs},
	}, nil
}

func newChild(fs afero.Fs, parent *Node, name string, isDir bool) *Node {
	return &Node{
		Entry: Entry{
			Name:  name,
			Path:  filepath.Join(parent.Path, name),
			IsDir: isDir,
			fs:    fs,
		},
		Depth: parent.Depth + 1,
	}
}

// AddChild attaches child to Folders or Files by its kind. Files never get
// children.
func (n *Node) AddChild(child *Node) {
	if !n.IsDir {
		return
	}
	if child.IsDir {
		n.Folders = append(n.Folders, child)
	} else {
		n.Files = append(n.Files, child)
	}
}

// RemoveChild detaches child, compared by identity
func (n *Node) RemoveChild(child *Node) {
	if child.IsDir {
		n.Folders = without(n.Folders, child)
	} else {
		n.Files = without(n.Files, child)
	}
}

func without(nodes []*Node, target *Node) []*Node {
	out := nodes[:0:0]
	for _, n := range nodes {
		if n != target {
			out = append(out, n)
		}
	}
	return out
}

// FolderNames returns the names of the child folders in order
func (n *Node) FolderNames() []string {
	names := make([]string, len(n.Folders))
	for i, c := range n.Folders {
		names[i] = c.Name
	}
	return names
}

// FileNames returns the names of the child files in order
func (n *Node) FileNames() []string {
	names := make([]string, len(n.Files))
	for i, c := range n.Files {
		names[i] = c.Name
	}
	return names
}

// Count returns the number of folders and files below n
func (n *Node) Count() (folders, files int) {
	folders = len(n.Folders)
	files = len(n.Files)
	for _, c := range n.Folders {
		f, fi := c.Count()
		folders += f
		files += fi
	}
	return folders, files
}

// Print writes the tree, two spaces of indent per depth level, child
// folders (depth-first) before files.
func (n *Node) Print(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "%s%s\n", strings.Repeat("  ", n.Depth), n.Name); err != nil {
		return err
	}
	for _, c := range n.Folders {
		if err := c.Print(w); err != nil {
			return err
		}
	}
	for _, c := range n.Files {
		if _, err := fmt.Fprintf(w, "%s%s\n", strings.Repeat("  ", c.Depth), c.Name); err != nil {
			return err
		}
	}
	return nil
}
