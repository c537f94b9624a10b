package testing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// FakeDrive is an in-process HTTP server speaking enough of the Drive v3
// files API for the folder and file managers: list by parent, create,
// multipart upload, metadata/content update, trash, delete and get.
type FakeDrive struct {
	mu       sync.Mutex
	files    map[string]*drive.File
	content  map[string][]byte
	order    []string
	nextID   int
	requests []string

	// Now stamps modifiedTime on created and updated files.
	Now func() time.Time
	// Fail, when set, is consulted before every request; a non-zero status
	// is returned to the client as a Drive error.
	Fail func(r *http.Request) int
	// IncompleteSearch marks every listing as incomplete.
	IncompleteSearch bool

	server *httptest.Server
}

// NewFakeDrive starts a FakeDrive and returns a Drive service pointed at it.
// The server is shut down when the test finishes.
func NewFakeDrive(t testing.TB) (*FakeDrive, *drive.Service) {
	t.Helper()

	fd := &FakeDrive{
		files:   make(map[string]*drive.File),
		content: make(map[string][]byte),
		Now: func() time.Time {
			return time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC)
		},
	}
	fd.server = httptest.NewServer(http.HandlerFunc(fd.serveHTTP))
	t.Cleanup(fd.server.Close)

	svc, err := drive.NewService(context.Background(),
		option.WithEndpoint(fd.server.URL+"/"),
		option.WithHTTPClient(fd.server.Client()),
	)
	if err != nil {
		t.Fatalf("failed to create drive service: %v", err)
	}
	return fd, svc
}

// Seed stores f as if it had been created earlier
func (fd *FakeDrive) Seed(f *drive.File) {
	fd.mu.Lock()
	defer fd.mu.Unlock()
	fd.files[f.Id] = f
	fd.order = append(fd.order, f.Id)
}

// File returns the stored metadata for id, or nil
func (fd *FakeDrive) File(id string) *drive.File {
	fd.mu.Lock()
	defer fd.mu.Unlock()
	return fd.files[id]
}

// Content returns the uploaded bytes for id
func (fd *FakeDrive) Content(id string) []byte {
	fd.mu.Lock()
	defer fd.mu.Unlock()
	return fd.content[id]
}

// URL is the base URL a Drive client should use as its endpoint
func (fd *FakeDrive) URL() string {
	return fd.server.URL + "/"
}

// Requests returns "METHOD /path" for every request served so far
func (fd *FakeDrive) Requests() []string {
	fd.mu.Lock()
	defer fd.mu.Unlock()
	out := make([]string, len(fd.requests))
	copy(out, fd.requests)
	return out
}

func (fd *FakeDrive) serveHTTP(w http.ResponseWriter, r *http.Request) {
	fd.mu.Lock()
	fd.requests = append(fd.requests, r.Method+" "+r.URL.Path)
	fd.mu.Unlock()

	if fd.Fail != nil {
		if status := fd.Fail(r); status != 0 {
			writeError(w, status, "backendError")
			return
		}
	}

	path := strings.TrimPrefix(r.URL.Path, "/upload/drive/v3")
	path = strings.TrimPrefix(path, "/drive/v3")
	id := strings.TrimPrefix(strings.TrimPrefix(path, "/files"), "/")

	switch {
	case r.Method == http.MethodGet && id == "":
		fd.list(w, r)
	case r.Method == http.MethodGet:
		fd.get(w, id)
	case r.Method == http.MethodPost && id == "":
		fd.create(w, r)
	case r.Method == http.MethodPatch && id != "":
		fd.update(w, r, id)
	case r.Method == http.MethodDelete && id != "":
		fd.delete(w, id)
	default:
		writeError(w, http.StatusNotFound, "notFound")
	}
}

func (fd *FakeDrive) list(w http.ResponseWriter, r *http.Request) {
	parentID := parentFromQuery(r.URL.Query().Get("q"))

	fd.mu.Lock()
	var children []*drive.File
	for _, id := range fd.order {
		f, ok := fd.files[id]
		if !ok || f.Trashed {
			continue
		}
		for _, p := range f.Parents {
			if p == parentID {
				children = append(children, f)
				break
			}
		}
	}
	fd.mu.Unlock()

	offset, _ := strconv.Atoi(r.URL.Query().Get("pageToken"))
	if offset > len(children) {
		offset = len(children)
	}
	end := len(children)
	if size, err := strconv.Atoi(r.URL.Query().Get("pageSize")); err == nil && size > 0 && offset+size < end {
		end = offset + size
	}

	result := &drive.FileList{Files: children[offset:end], IncompleteSearch: fd.IncompleteSearch}
	if end < len(children) {
		result.NextPageToken = strconv.Itoa(end)
	}
	writeJSON(w, http.StatusOK, result)
}

func (fd *FakeDrive) get(w http.ResponseWriter, id string) {
	f := fd.File(id)
	if f == nil {
		writeError(w, http.StatusNotFound, "notFound")
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (fd *FakeDrive) create(w http.ResponseWriter, r *http.Request) {
	meta, body, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "badRequest")
		return
	}

	fd.mu.Lock()
	fd.nextID++
	meta.Id = fmt.Sprintf("fake-%d", fd.nextID)
	meta.ModifiedTime = fd.Now().UTC().Format(time.RFC3339Nano)
	meta.CreatedTime = meta.ModifiedTime
	if meta.MimeType == "" {
		meta.MimeType = "application/octet-stream"
	}
	if body != nil {
		meta.Size = int64(len(body))
		fd.content[meta.Id] = body
	}
	fd.files[meta.Id] = meta
	fd.order = append(fd.order, meta.Id)
	fd.mu.Unlock()

	writeJSON(w, http.StatusOK, meta)
}

func (fd *FakeDrive) update(w http.ResponseWriter, r *http.Request, id string) {
	meta, body, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "badRequest")
		return
	}

	fd.mu.Lock()
	f, ok := fd.files[id]
	if !ok {
		fd.mu.Unlock()
		writeError(w, http.StatusNotFound, "notFound")
		return
	}
	if meta.Trashed {
		fd.trashLocked(id)
	}
	if body != nil {
		f.Size = int64(len(body))
		fd.content[id] = body
	}
	f.ModifiedTime = fd.Now().UTC().Format(time.RFC3339Nano)
	fd.mu.Unlock()

	writeJSON(w, http.StatusOK, f)
}

func (fd *FakeDrive) delete(w http.ResponseWriter, id string) {
	fd.mu.Lock()
	if _, ok := fd.files[id]; !ok {
		fd.mu.Unlock()
		writeError(w, http.StatusNotFound, "notFound")
		return
	}
	fd.deleteLocked(id)
	fd.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (fd *FakeDrive) trashLocked(id string) {
	fd.files[id].Trashed = true
	for _, child := range fd.childrenLocked(id) {
		fd.trashLocked(child)
	}
}

func (fd *FakeDrive) deleteLocked(id string) {
	for _, child := range fd.childrenLocked(id) {
		fd.deleteLocked(child)
	}
	delete(fd.files, id)
	delete(fd.content, id)
}

func (fd *FakeDrive) childrenLocked(id string) []string {
	var out []string
	for childID, f := range fd.files {
		for _, p := range f.Parents {
			if p == id {
				out = append(out, childID)
			}
		}
	}
	return out
}

// readBody decodes a plain JSON metadata body or a multipart/related upload
// (JSON metadata part followed by the media part).
func readBody(r *http.Request) (*drive.File, []byte, error) {
	meta := &drive.File{}
	mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") {
		data, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, nil, err
		}
		if len(data) > 0 {
			if err := json.Unmarshal(data, meta); err != nil {
				return nil, nil, err
			}
		}
		return meta, nil, nil
	}

	mr := multipart.NewReader(r.Body, params["boundary"])
	part, err := mr.NextPart()
	if err != nil {
		return nil, nil, err
	}
	if err := json.NewDecoder(part).Decode(meta); err != nil {
		return nil, nil, err
	}
	part, err = mr.NextPart()
	if err != nil {
		return nil, nil, err
	}
	body, err := io.ReadAll(part)
	if err != nil {
		return nil, nil, err
	}
	return meta, body, nil
}

// parentFromQuery extracts ID from "'ID' in parents ..."
func parentFromQuery(q string) string {
	start := strings.Index(q, "'")
	if start < 0 {
		return ""
	}
	end := strings.Index(q[start+1:], "'")
	if end < 0 {
		return ""
	}
	return q[start+1 : start+1+end]
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, reason string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"code":    status,
			"message": reason,
			"errors": []map[string]string{
				{"reason": reason, "message": reason},
			},
		},
	})
}
