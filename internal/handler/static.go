package handler

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
)

// SPAHandler serves files from dir and falls back to dir/index.html for any
// path that does not name a regular file.
type SPAHandler struct {
	dir        string
	fileServer http.Handler
}

func NewSPAHandler(dir string) *SPAHandler {
	return &SPAHandler{
		dir:        dir,
		fileServer: http.FileServer(http.Dir(dir)),
	}
}

func (h *SPAHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := filepath.Join(h.dir, filepath.FromSlash(path.Clean("/"+r.URL.Path)))

	if info, err := os.Stat(name); err == nil && info.Mode().IsRegular() {
		h.fileServer.ServeHTTP(w, r)
		return
	}

	f, err := os.Open(filepath.Join(h.dir, "index.html"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}
	http.ServeContent(w, r, "index.html", info.ModTime(), f)
}
