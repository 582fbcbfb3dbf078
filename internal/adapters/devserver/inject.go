package devserver

import (
	"bytes"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// clientTag is the script element added to every served page.
const clientTag = `<script src="` + clientPath + `"></script>`

var bodyClose = []byte("</body>")

// injectClient inserts the live-reload script before the last </body>,
// or appends it when the document has none.
func injectClient(page []byte) []byte {
	i := bytes.LastIndex(bytes.ToLower(page), bodyClose)
	if i < 0 {
		return append(page[:len(page):len(page)], clientTag...)
	}

	out := make([]byte, 0, len(page)+len(clientTag))
	out = append(out, page[:i]...)
	out = append(out, clientTag...)
	return append(out, page[i:]...)
}

// pageHandler serves the output directory. HTML documents get the
// live-reload client; everything else is delegated to files.
type pageHandler struct {
	dist  string
	files http.Handler
}

func newPageHandler(dist string) *pageHandler {
	return &pageHandler{
		dist:  dist,
		files: http.FileServer(http.Dir(dist)),
	}
}

func (h *pageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")

	name, info, ok := h.htmlFile(r.URL.Path)
	if !ok {
		h.files.ServeHTTP(w, r)
		return
	}

	page, err := os.ReadFile(name) //nolint:gosec // Path is cleaned and rooted at dist
	if err != nil {
		h.files.ServeHTTP(w, r)
		return
	}
	http.ServeContent(w, r, name, info.ModTime(), bytes.NewReader(injectClient(page)))
}

// htmlFile maps a request path to an HTML document inside dist.
// Directory paths resolve to their index.html.
func (h *pageHandler) htmlFile(urlPath string) (string, os.FileInfo, bool) {
	clean := path.Clean("/" + urlPath)
	switch {
	case strings.HasSuffix(urlPath, "/"):
		clean = path.Join(clean, "index.html")
	case path.Ext(clean) != ".html":
		return "", nil, false
	case path.Base(clean) == "index.html":
		// The file server redirects index.html to its directory.
		return "", nil, false
	}

	name := filepath.Join(h.dist, filepath.FromSlash(clean))
	info, err := os.Stat(name)
	if err != nil || info.IsDir() {
		return "", nil, false
	}
	return name, info, true
}
