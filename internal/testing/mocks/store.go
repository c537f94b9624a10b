package mocks

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/dl-alexandre/mrisync/internal/remote"
)

// Call records one invocation of a Store method
type Call struct {
	Op        string
	ID        string
	ParentID  string
	Name      string
	LocalPath string
	Recursive bool
}

// Mutating reports whether the call changes remote state
func (c Call) Mutating() bool {
	switch c.Op {
	case "CreateFolder", "Upload", "UpdateContents", "Delete":
		return true
	}
	return false
}

type entry struct {
	item     remote.Item
	parentID string
}

// Store is an in-memory remote.Store that records every call. Any of the
// Func fields may be set to override the default behavior of one method.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry
	order   []string
	nextID  int
	calls   []Call

	// Now stamps ModifiedTime on created and updated files.
	Now func() time.Time

	ListChildrenFunc   func(folderID string) ([]remote.Item, error)
	CreateFolderFunc   func(parentID, name string) (remote.Item, error)
	UploadFunc         func(parentID, localPath string) (remote.Item, error)
	UpdateContentsFunc func(fileID, localPath string) (remote.Item, error)
	DeleteFunc         func(id string, recursive bool) error
}

// NewStore creates an empty in-memory store
func NewStore() *Store {
	return &Store{
		entries: make(map[string]*entry),
		Now: func() time.Time {
			return time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC)
		},
	}
}

// AddFolder seeds a folder under parentID without recording a call
func (s *Store) AddFolder(parentID, name string) remote.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addLocked(parentID, name, remote.KindFolder, s.Now())
}

// AddFile seeds a file under parentID with the given modification time
func (s *Store) AddFile(parentID, name string, modified time.Time) remote.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addLocked(parentID, name, remote.KindFile, modified)
}

func (s *Store) addLocked(parentID, name string, kind remote.Kind, modified time.Time) remote.Item {
	s.nextID++
	item := remote.Item{
		ID:           fmt.Sprintf("id-%d", s.nextID),
		Name:         name,
		Kind:         kind,
		ModifiedTime: modified.UTC().Format(time.RFC3339Nano),
	}
	s.entries[item.ID] = &entry{item: item, parentID: parentID}
	s.order = append(s.order, item.ID)
	return item
}

// Children returns the current children of parentID in creation order
func (s *Store) Children(parentID string) []remote.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.childrenLocked(parentID)
}

func (s *Store) childrenLocked(parentID string) []remote.Item {
	var out []remote.Item
	for _, id := range s.order {
		e, ok := s.entries[id]
		if ok && e.parentID == parentID {
			out = append(out, e.item)
		}
	}
	return out
}

// Find looks up a child of parentID by name
func (s *Store) Find(parentID, name string) (remote.Item, bool) {
	for _, item := range s.Children(parentID) {
		if item.Name == name {
			return item, true
		}
	}
	return remote.Item{}, false
}

// Calls returns every recorded call
func (s *Store) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// Mutations returns the recorded calls that change remote state
func (s *Store) Mutations() []Call {
	var out []Call
	for _, c := range s.Calls() {
		if c.Mutating() {
			out = append(out, c)
		}
	}
	return out
}

// CallsTo returns the recorded calls of one method
func (s *Store) CallsTo(op string) []Call {
	var out []Call
	for _, c := range s.Calls() {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// ResetCalls forgets recorded calls but keeps the stored entries
func (s *Store) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

func (s *Store) record(c Call) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, c)
}

func (s *Store) ListChildren(ctx context.Context, folderID string) ([]remote.Item, error) {
	s.record(Call{Op: "ListChildren", ID: folderID})
	if s.ListChildrenFunc != nil {
		return s.ListChildrenFunc(folderID)
	}
	return s.Children(folderID), nil
}

func (s *Store) CreateFolder(ctx context.Context, parentID, name string) (remote.Item, error) {
	s.record(Call{Op: "CreateFolder", ParentID: parentID, Name: name})
	if s.CreateFolderFunc != nil {
		return s.CreateFolderFunc(parentID, name)
	}
	return s.AddFolder(parentID, name), nil
}

func (s *Store) Upload(ctx context.Context, parentID, localPath string) (remote.Item, error) {
	name := filepath.Base(localPath)
	s.record(Call{Op: "Upload", ParentID: parentID, Name: name, LocalPath: localPath})
	if s.UploadFunc != nil {
		return s.UploadFunc(parentID, localPath)
	}
	return s.AddFile(parentID, name, s.Now()), nil
}

func (s *Store) UpdateContents(ctx context.Context, fileID, localPath string) (remote.Item, error) {
	s.record(Call{Op: "UpdateContents", ID: fileID, Name: filepath.Base(localPath), LocalPath: localPath})
	if s.UpdateContentsFunc != nil {
		return s.UpdateContentsFunc(fileID, localPath)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[fileID]
	if !ok {
		return remote.Item{}, fmt.Errorf("file %s not found", fileID)
	}
	e.item.ModifiedTime = s.Now().UTC().Format(time.RFC3339Nano)
	return e.item, nil
}

func (s *Store) Delete(ctx context.Context, id string, recursive bool) error {
	s.record(Call{Op: "Delete", ID: id, Recursive: recursive})
	if s.DeleteFunc != nil {
		return s.DeleteFunc(id, recursive)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; !ok {
		return fmt.Errorf("entry %s not found", id)
	}
	if !recursive && len(s.childrenLocked(id)) > 0 {
		return fmt.Errorf("folder %s is not empty", id)
	}
	s.deleteLocked(id)
	return nil
}

func (s *Store) deleteLocked(id string) {
	for _, child := range s.childrenLocked(id) {
		s.deleteLocked(child.ID)
	}
	delete(s.entries, id)
}

func (s *Store) Get(ctx context.Context, id string) (remote.Item, error) {
	s.record(Call{Op: "Get", ID: id})
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return remote.Item{}, fmt.Errorf("entry %s not found", id)
	}
	return e.item, nil
}

var _ remote.Store = (*Store)(nil)
