package tree

import (
	"github.com/dl-alexandre/mrisync/internal/logging"
	"github.com/dl-alexandre/mrisync/internal/sync/pattern"
)

// TagReader returns the series description of a local file, or "" when the
// file is not a readable dataset.
type TagReader interface {
	SeriesDescription(path string) string
}

// Pruner removes folders that contain no file with a matching series
// description anywhere below them.
type Pruner struct {
	reader  TagReader
	content *pattern.Pattern
	logger  logging.Logger
	seen    map[*Node]bool
}

func NewPruner(reader TagReader, content *pattern.Pattern, logger logging.Logger) *Pruner {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	return &Pruner{
		reader:  reader,
		content: content,
		logger:  logger,
		seen:    make(map[*Node]bool),
	}
}

func (p *Pruner) Prune(node *Node) {
	// Iterate over a copy; RemoveChild rebuilds node.Folders.
	folders := append([]*Node(nil), node.Folders...)
	for _, child := range folders {
		if p.MatchesBelow(child) {
			p.Prune(child)
			continue
		}
		p.logger.Debug("Pruning folder without matching series", logging.F("path", child.Path))
		node.RemoveChild(child)
	}
}

// MatchesBelow reports whether any file at or below node has a matching
// series description. Child folders are searched first and the search
// stops at the first match.
func (p *Pruner) MatchesBelow(node *Node) bool {
	if found, ok := p.seen[node]; ok {
		return found
	}
	found := p.matchesBelow(node)
	p.seen[node] = found
	return found
}

func (p *Pruner) matchesBelow(node *Node) bool {
	for _, child := range node.Folders {
		if p.MatchesBelow(child) {
			return true
		}
	}
	for _, file := range node.Files {
		desc := p.reader.SeriesDescription(file.Path)
		if desc != "" && p.content.Match(desc) {
			return true
		}
	}
	return false
}
