// Package httpserver owns the HTTP/HTTPS listener of a webhost instance.
package httpserver

import (
	"io/fs"
	"net/http"
	"sync/atomic"
)

type staticRoot struct {
	name    string
	handler http.Handler
}

// StaticFiles serves files from a root that can be replaced at any time.
type StaticFiles struct {
	root atomic.Pointer[staticRoot]
}

// NewStaticFiles creates a file server over root.
func NewStaticFiles(name string, root fs.FS) *StaticFiles {
	s := &StaticFiles{}
	s.SetRoot(name, root)
	return s
}

// SetRoot switches the served tree. name is only used for reporting.
func (s *StaticFiles) SetRoot(name string, root fs.FS) {
	s.root.Store(&staticRoot{
		name:    name,
		handler: http.FileServerFS(root),
	})
}

// Root returns the name of the served tree.
func (s *StaticFiles) Root() string {
	return s.root.Load().name
}

// ServeHTTP implements http.Handler.
func (s *StaticFiles) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.root.Load().handler.ServeHTTP(w, r)
}
