package dashboard

import (
	"embed"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

//go:embed static
var embeddedAssets embed.FS

// handleStatic serves dashboard assets. Files dropped into the
// workspace's .nlplanner/dashboard directory shadow the embedded
// defaults, so users can restyle the dashboard without rebuilding.
func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(path.Clean(r.URL.Path), "/")
	if name == "" {
		name = "index.html"
	}

	if s.staticDir != "" {
		local := filepath.Join(s.staticDir, filepath.FromSlash(name))
		if info, err := os.Stat(local); err == nil && info.Mode().IsRegular() {
			http.ServeFile(w, r, local)
			return
		}
	}

	sub, err := fs.Sub(embeddedAssets, "static")
	if err != nil {
		http.NotFound(w, r)
		return
	}
	http.ServeFileFS(w, r, sub, name)
}
