// Package testgcs serves the Cloud Storage JSON upload API from memory so
// tests can drive a real storage.Client.
package testgcs

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

	"cloud.google.com/go/storage"
)

const uploadPrefix = "/upload/storage/v1/b/"

// Object is one stored object version.
type Object struct {
	Data        []byte
	ContentType string
	Generation  int64
}

// Server keeps objects keyed by bucket and name and honours
// ifGenerationMatch preconditions on uploads.
type Server struct {
	mu         sync.Mutex
	objects    map[string]Object
	generation int64
	uploads    int
}

// Start runs a Server for the duration of t and returns a client bound to
// it through STORAGE_EMULATOR_HOST. Tests using it cannot run in parallel.
func Start(t testing.TB) (*Server, *storage.Client) {
	t.Helper()
	s := &Server{objects: make(map[string]Object)}
	srv := httptest.NewServer(s)
	t.Cleanup(srv.Close)

	t.Setenv("STORAGE_EMULATOR_HOST", srv.URL)
	client, err := storage.NewClient(context.Background())
	if err != nil {
		t.Fatalf("storage client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return s, client
}

// Put stores data as bucket/name, replacing any existing object.
func (s *Server) Put(bucket, name string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.objects[bucket+"/"+name] = Object{Data: data, Generation: s.generation}
}

// Object returns the current version of bucket/name.
func (s *Server) Object(bucket, name string) (Object, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.objects[bucket+"/"+name]
	return o, ok
}

// Names returns the stored object keys as "bucket/name".
func (s *Server) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for k := range s.objects {
		out = append(out, k)
	}
	return out
}

// Uploads counts accepted uploads.
func (s *Server) Uploads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uploads
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost || !strings.HasPrefix(r.URL.Path, uploadPrefix) {
		writeError(w, http.StatusNotImplemented, "unsupported request "+r.Method+" "+r.URL.Path)
		return
	}
	bucket := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, uploadPrefix), "/o")

	mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") {
		writeError(w, http.StatusBadRequest, "expected a multipart upload")
		return
	}
	mr := multipart.NewReader(r.Body, params["boundary"])

	var meta struct {
		Name        string `json:"name"`
		ContentType string `json:"contentType"`
	}
	part, err := mr.NextPart()
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing metadata part")
		return
	}
	if err := json.NewDecoder(part).Decode(&meta); err != nil {
		writeError(w, http.StatusBadRequest, "bad metadata: "+err.Error())
		return
	}
	part, err = mr.NextPart()
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing media part")
		return
	}
	data, err := io.ReadAll(part)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if meta.Name == "" {
		meta.Name = r.URL.Query().Get("name")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	key := bucket + "/" + meta.Name
	current := s.objects[key].Generation
	if v := r.URL.Query().Get("ifGenerationMatch"); v != "" {
		if want, err := strconv.ParseInt(v, 10, 64); err != nil || want != current {
			writeError(w, http.StatusPreconditionFailed, "conditionNotMet")
			return
		}
	}
	s.generation++
	s.uploads++
	s.objects[key] = Object{Data: data, ContentType: meta.ContentType, Generation: s.generation}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"bucket":      bucket,
		"name":        meta.Name,
		"contentType": meta.ContentType,
		"generation":  strconv.FormatInt(s.generation, 10),
		"size":        strconv.Itoa(len(data)),
	})
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	fmt.Fprintf(w, `{"error":{"code":%d,"message":%q}}`, code, msg)
}
