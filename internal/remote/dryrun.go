package remote

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const dryRunPrefix = "dryrun-"

// Mutation is one write a DryRunStore declined to perform
type Mutation struct {
	Op        string `json:"op"`
	ID        string `json:"id,omitempty"`
	ParentID  string `json:"parentId,omitempty"`
	Name      string `json:"name,omitempty"`
	LocalPath string `json:"localPath,omitempty"`
	Recursive bool   `json:"recursive,omitempty"`
}

// DryRunStore passes reads through to the wrapped store and records every
// mutation instead of performing it. Created folders get synthetic IDs so the
// engine can keep descending; listing one of them returns no children.
type DryRunStore struct {
	inner Store
	now   func() time.Time

	mu        sync.Mutex
	next      int
	mutations []Mutation
}

// NewDryRunStore wraps inner
func NewDryRunStore(inner Store) *DryRunStore {
	return &DryRunStore{inner: inner, now: time.Now}
}

// Mutations returns the recorded mutations in the order they were requested
func (s *DryRunStore) Mutations() []Mutation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Mutation, len(s.mutations))
	copy(out, s.mutations)
	return out
}

func (s *DryRunStore) record(m Mutation) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	s.mutations = append(s.mutations, m)
	return fmt.Sprintf("%s%d", dryRunPrefix, s.next)
}

func isSynthetic(id string) bool {
	return strings.HasPrefix(id, dryRunPrefix)
}

func (s *DryRunStore) ListChildren(ctx context.Context, folderID string) ([]Item, error) {
	if isSynthetic(folderID) {
		return nil, nil
	}
	return s.inner.ListChildren(ctx, folderID)
}

func (s *DryRunStore) CreateFolder(ctx context.Context, parentID, name string) (Item, error) {
	id := s.record(Mutation{Op: "create_folder", ParentID: parentID, Name: name})
	return Item{ID: id, Name: name, Kind: KindFolder, ModifiedTime: s.timestamp()}, nil
}

func (s *DryRunStore) Upload(ctx context.Context, parentID, localPath string) (Item, error) {
	name := filepath.Base(localPath)
	id := s.record(Mutation{Op: "upload", ParentID: parentID, Name: name, LocalPath: localPath})
	return Item{ID: id, Name: name, Kind: KindFile, ModifiedTime: s.timestamp()}, nil
}

func (s *DryRunStore) UpdateContents(ctx context.Context, fileID, localPath string) (Item, error) {
	s.record(Mutation{Op: "update", ID: fileID, Name: filepath.Base(localPath), LocalPath: localPath})
	return Item{ID: fileID, Name: filepath.Base(localPath), Kind: KindFile, ModifiedTime: s.timestamp()}, nil
}

func (s *DryRunStore) Delete(ctx context.Context, id string, recursive bool) error {
	s.record(Mutation{Op: "delete", ID: id, Recursive: recursive})
	return nil
}

func (s *DryRunStore) Get(ctx context.Context, id string) (Item, error) {
	if isSynthetic(id) {
		return Item{ID: id, Kind: KindFolder, ModifiedTime: s.timestamp()}, nil
	}
	return s.inner.Get(ctx, id)
}

func (s *DryRunStore) timestamp() string {
	return s.now().UTC().Format(time.RFC3339)
}
