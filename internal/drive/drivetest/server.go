// Package drivetest provides an in-memory fake of the Drive v3 endpoints used
// by package drive, for tests.
package drivetest

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

const folderMimeType = "application/vnd.google-apps.folder"

// File is a file or folder held by the fake server.
type File struct {
	ID          string
	Name        string
	MimeType    string
	Parents     []string
	Content     []byte
	CreatedTime time.Time
	Trashed     bool
}

// Request records a request the fake server received.
type Request struct {
	Method string
	Path   string
	Query  string
}

// Server is a fake Drive API. Point a drive client at URL with the HTTP
// client from Client.
type Server struct {
	server *httptest.Server

	mu       sync.Mutex
	files    []*File
	nextID   int
	baseTime time.Time
	requests []Request
	failures map[string]int
	pageSize int
}

// NewServer starts a fake Drive server. Close it when done.
func NewServer() *Server {
	s := &Server{
		baseTime: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		failures: make(map[string]int),
	}
	s.server = httptest.NewServer(http.HandlerFunc(s.handler))
	return s
}

// URL returns the base endpoint to pass to the Drive client.
func (s *Server) URL() string {
	return s.server.URL + "/"
}

// Client returns an HTTP client for the fake server.
func (s *Server) Client() *http.Client {
	return s.server.Client()
}

// Close shuts down the server.
func (s *Server) Close() {
	s.server.Close()
}

// AddFolder stores a folder and returns its ID.
func (s *Server) AddFolder(name string) string {
	return s.AddFile(File{Name: name, MimeType: folderMimeType})
}

// AddFile stores f, assigning an ID and creation time when unset, and
// returns its ID. Files are created in order, one second apart.
func (s *Server) AddFile(f File) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.add(&f).ID
}

// File returns a copy of the stored file with the given ID.
func (s *Server) File(id string) (File, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.find(id)
	if f == nil {
		return File{}, false
	}
	return *f, true
}

// Files returns copies of all stored files in creation order.
func (s *Server) Files() []File {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]File, 0, len(s.files))
	for _, f := range s.files {
		out = append(out, *f)
	}
	return out
}

// Requests returns the requests received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Count returns how many requests matched method and path.
func (s *Server) Count(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.requests {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

// SetPageSize splits list responses into pages of n entries when n is
// positive.
func (s *Server) SetPageSize(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pageSize = n
}

// FailOn makes requests with method and path answer with a Drive error of
// the given HTTP status.
func (s *Server) FailOn(method, path string, code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method+" "+path] = code
}

func (s *Server) handler(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.requests = append(s.requests, Request{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery})
	code, fail := s.failures[r.Method+" "+r.URL.Path]
	s.mu.Unlock()

	if fail {
		writeError(w, code, http.StatusText(code))
		return
	}

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/files":
		s.list(w, r)
	case r.Method == http.MethodPost && r.URL.Path == "/files":
		s.createMetadata(w, r)
	case r.Method == http.MethodPost && r.URL.Path == "/upload/drive/v3/files":
		s.createMedia(w, r)
	case r.Method == http.MethodPatch && strings.HasPrefix(r.URL.Path, "/upload/drive/v3/files/"):
		s.updateMedia(w, r, strings.TrimPrefix(r.URL.Path, "/upload/drive/v3/files/"))
	default:
		writeError(w, http.StatusNotFound, "not found: "+r.Method+" "+r.URL.Path)
	}
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	var matches []*File
	for _, f := range s.files {
		if q.matches(f) {
			c := *f
			matches = append(matches, &c)
		}
	}
	pageSize := s.pageSize
	s.mu.Unlock()

	switch r.URL.Query().Get("orderBy") {
	case "name":
		sort.SliceStable(matches, func(i, j int) bool { return matches[i].Name < matches[j].Name })
	default:
		sort.SliceStable(matches, func(i, j int) bool { return matches[i].CreatedTime.Before(matches[j].CreatedTime) })
	}

	resp := map[string]any{}
	if pageSize > 0 {
		offset, _ := strconv.Atoi(r.URL.Query().Get("pageToken"))
		if offset > len(matches) {
			offset = len(matches)
		}
		end := offset + pageSize
		if end < len(matches) {
			resp["nextPageToken"] = strconv.Itoa(end)
		} else {
			end = len(matches)
		}
		matches = matches[offset:end]
	}

	files := make([]map[string]any, 0, len(matches))
	for _, f := range matches {
		files = append(files, fileJSON(f))
	}
	resp["files"] = files
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) createMetadata(w http.ResponseWriter, r *http.Request) {
	var meta metadata
	if err := json.NewDecoder(r.Body).Decode(&meta); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	f := s.add(&File{Name: meta.Name, MimeType: meta.MimeType, Parents: meta.Parents})
	resp := fileJSON(f)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) createMedia(w http.ResponseWriter, r *http.Request) {
	meta, content, err := readUpload(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	f := s.add(&File{Name: meta.Name, MimeType: meta.MimeType, Parents: meta.Parents, Content: content})
	resp := fileJSON(f)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) updateMedia(w http.ResponseWriter, r *http.Request, id string) {
	meta, content, err := readUpload(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	f := s.find(id)
	if f == nil {
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, "file not found: "+id)
		return
	}
	f.Content = content
	if meta.Name != "" {
		f.Name = meta.Name
	}
	resp := fileJSON(f)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

// add must be called with s.mu held.
func (s *Server) add(f *File) *File {
	s.nextID++
	if f.ID == "" {
		f.ID = fmt.Sprintf("file-%d", s.nextID)
	}
	if f.CreatedTime.IsZero() {
		f.CreatedTime = s.baseTime.Add(time.Duration(s.nextID) * time.Second)
	}
	s.files = append(s.files, f)
	return f
}

// find must be called with s.mu held.
func (s *Server) find(id string) *File {
	for _, f := range s.files {
		if f.ID == id {
			return f
		}
	}
	return nil
}

type metadata struct {
	Name     string   `json:"name"`
	MimeType string   `json:"mimeType"`
	Parents  []string `json:"parents"`
}

// readUpload decodes a multipart/related upload into its metadata and media
// parts. A non-multipart body is treated as bare media.
func readUpload(r *http.Request) (metadata, []byte, error) {
	var meta metadata

	mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") {
		content, err := io.ReadAll(r.Body)
		return meta, content, err
	}

	mr := multipart.NewReader(r.Body, params["boundary"])
	metaPart, err := mr.NextPart()
	if err != nil {
		return meta, nil, fmt.Errorf("missing metadata part: %w", err)
	}
	if err := json.NewDecoder(metaPart).Decode(&meta); err != nil {
		return meta, nil, fmt.Errorf("invalid metadata part: %w", err)
	}

	mediaPart, err := mr.NextPart()
	if err != nil {
		return meta, nil, fmt.Errorf("missing media part: %w", err)
	}
	content, err := io.ReadAll(mediaPart)
	if err != nil {
		return meta, nil, err
	}
	if meta.MimeType == "" {
		meta.MimeType = mediaPart.Header.Get("Content-Type")
	}
	return meta, content, nil
}

func fileJSON(f *File) map[string]any {
	m := map[string]any{
		"id":          f.ID,
		"name":        f.Name,
		"mimeType":    f.MimeType,
		"createdTime": f.CreatedTime.Format(time.RFC3339),
		"parents":     f.Parents,
		"webViewLink": "https://drive.google.com/file/d/" + f.ID + "/view?usp=drivesdk",
	}
	if f.MimeType != folderMimeType {
		m["size"] = strconv.Itoa(len(f.Content))
		m["webContentLink"] = "https://drive.google.com/uc?id=" + f.ID + "&export=download"
	}
	return m
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	})
}
