// Package ingesttest provides zip fixtures and a fake GitHub zipball API
// for tests.
package ingesttest

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-github/v57/github"
	"github.com/klauspost/compress/zip"
)

// Entry is one archive member. Names ending in "/" are directories.
type Entry struct {
	Name string
	Body []byte
}

// File is a shorthand for a text entry.
func File(name, body string) Entry {
	return Entry{Name: name, Body: []byte(body)}
}

// Dir is a shorthand for a directory entry.
func Dir(name string) Entry {
	return Entry{Name: strings.TrimSuffix(name, "/") + "/"}
}

// Zip builds an archive holding entries in order.
func Zip(tb testing.TB, entries ...Entry) []byte {
	tb.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		w, err := zw.Create(e.Name)
		if err != nil {
			tb.Fatalf("zip create %s: %v", e.Name, err)
		}
		if len(e.Body) > 0 {
			if _, err := w.Write(e.Body); err != nil {
				tb.Fatalf("zip write %s: %v", e.Name, err)
			}
		}
	}
	if err := zw.Close(); err != nil {
		tb.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

// Server fakes GET /repos/{owner}/{repo}/zipball/{ref}. Known archives are
// served through a codeload-style redirect like the real API does; unknown
// refs get a GitHub-shaped 404.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	archives map[string][]byte
	statuses map[string]int
	requests []string
	apiAuth  []string
	archAuth []string

	// Delay is applied before every archive response.
	Delay time.Duration
	// Chunked omits Content-Length on archive responses.
	Chunked bool
}

// NewServer starts a fake API that is closed with the test.
func NewServer(tb testing.TB) *Server {
	tb.Helper()

	s := &Server{
		archives: make(map[string][]byte),
		statuses: make(map[string]int),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/", s.handleZipball)
	mux.HandleFunc("/codeload/", s.handleCodeload)
	s.Server = httptest.NewServer(mux)
	tb.Cleanup(s.Close)
	return s
}

func key(owner, name, ref string) string {
	return owner + "/" + name + "@" + ref
}

// AddArchive registers the snapshot served for owner/name at ref.
func (s *Server) AddArchive(owner, name, ref string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.archives[key(owner, name, ref)] = data
}

// SetStatus forces the zipball endpoint to answer with code for ref.
func (s *Server) SetStatus(owner, name, ref string, code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[key(owner, name, ref)] = code
}

// Requests returns the refs requested so far, as "owner/name@ref".
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

// APIAuthorizations returns the Authorization header of every zipball API
// request, empty when none was sent.
func (s *Server) APIAuthorizations() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.apiAuth...)
}

// ArchiveAuthorizations returns the Authorization header of every archive
// download, empty when none was sent.
func (s *Server) ArchiveAuthorizations() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.archAuth...)
}

// Client returns a go-github client pointed at the fake API.
func (s *Server) Client(tb testing.TB) *github.Client {
	tb.Helper()
	client := github.NewClient(s.Server.Client())
	u, err := client.BaseURL.Parse(s.URL + "/")
	if err != nil {
		tb.Fatalf("parse base URL: %v", err)
	}
	client.BaseURL = u
	return client
}

func (s *Server) handleZipball(w http.ResponseWriter, r *http.Request) {
	// /repos/{owner}/{name}/zipball/{ref...}
	parts := strings.SplitN(strings.TrimPrefix(r.URL.Path, "/repos/"), "/", 4)
	if len(parts) != 4 || parts[2] != "zipball" {
		http.NotFound(w, r)
		return
	}
	k := key(parts[0], parts[1], parts[3])

	s.mu.Lock()
	s.requests = append(s.requests, k)
	s.apiAuth = append(s.apiAuth, r.Header.Get("Authorization"))
	status, forced := s.statuses[k]
	_, known := s.archives[k]
	s.mu.Unlock()

	if forced {
		writeError(w, status)
		return
	}
	if !known {
		writeError(w, http.StatusNotFound)
		return
	}
	http.Redirect(w, r, s.URL+"/codeload/"+strings.Join(parts[:2], "/")+"/zip/"+parts[3], http.StatusFound)
}

func (s *Server) handleCodeload(w http.ResponseWriter, r *http.Request) {
	// /codeload/{owner}/{name}/zip/{ref...}
	parts := strings.SplitN(strings.TrimPrefix(r.URL.Path, "/codeload/"), "/", 4)
	if len(parts) != 4 {
		http.NotFound(w, r)
		return
	}

	s.mu.Lock()
	s.archAuth = append(s.archAuth, r.Header.Get("Authorization"))
	data, ok := s.archives[key(parts[0], parts[1], parts[3])]
	delay, chunked := s.Delay, s.Chunked
	s.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	w.Header().Set("Content-Type", "application/zip")
	if chunked {
		w.WriteHeader(http.StatusOK)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
	} else {
		w.Header().Set("Content-Length", fmt.Sprint(len(data)))
	}
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, status int) {
	w.Header().Set("Content-Type", "application/json")
	if status == http.StatusForbidden {
		w.Header().Set("X-RateLimit-Limit", "60")
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.Header().Set("X-RateLimit-Reset", fmt.Sprint(time.Now().Add(time.Hour).Unix()))
	}
	w.WriteHeader(status)
	_, _ = fmt.Fprintf(w, `{"message":%q,"documentation_url":"https://docs.github.com/rest"}`, http.StatusText(status))
}
