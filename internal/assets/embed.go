// ABOUTME: Embedded static assets (stylesheet and icons) for the chat pages
// ABOUTME: Serves them under /static/ with content types and cache headers

package assets

import (
	"embed"
	"io/fs"
	"mime"
	"net/http"
	"path"
	"strings"
)

//go:embed static
var staticFS embed.FS

// Prefix is the URL path the file server is mounted under.
const Prefix = "/static/"

// Stylesheet is the URL of the main stylesheet.
const Stylesheet = Prefix + "app.css"

func init() {
	// Only fails for malformed extensions.
	_ = mime.AddExtensionType(".woff2", "font/woff2")
}

// mimeFromExt returns the MIME type for a file extension, falling back to
// the standard library database and then application/octet-stream.
func mimeFromExt(ext string) string {
	switch ext {
	case ".js", ".mjs":
		return "application/javascript"
	case ".css":
		return "text/css; charset=utf-8"
	case ".svg":
		return "image/svg+xml"
	case ".woff2":
		return "font/woff2"
	default:
		if ct := mime.TypeByExtension(ext); ct != "" {
			return ct
		}
		return "application/octet-stream"
	}
}

// FileServer returns a handler serving the embedded static directory. It
// expects the Prefix to be stripped. Assets are revalidated on every load
// since their names carry no content hash.
func FileServer() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic("assets: failed to create sub filesystem: " + err.Error())
	}
	fileServer := http.FileServer(http.FS(sub))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		if ext := strings.ToLower(path.Ext(r.URL.Path)); ext != "" {
			w.Header().Set("Content-Type", mimeFromExt(ext))
		}
		w.Header().Set("Cache-Control", "no-cache")
		fileServer.ServeHTTP(w, r)
	})
}

// Handler mounts FileServer under Prefix.
func Handler() http.Handler {
	return http.StripPrefix(Prefix, FileServer())
}
