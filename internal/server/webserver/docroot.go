package webserver

import (
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/yndnr/webhost-go/internal/assets"
)

// resolveDocumentRoot returns the tree to serve for path. Blank paths, the
// builtin marker and paths that are not existing directories select the
// embedded web root.
func resolveDocumentRoot(path string, logger *slog.Logger) (string, fs.FS) {
	path = strings.TrimSpace(path)
	if path == "" || path == BuiltinDocumentRoot {
		return BuiltinDocumentRoot, assets.WebRoot()
	}

	info, err := os.Stat(path)
	switch {
	case err != nil:
		logger.Warn("document root unavailable, falling back to built-in web root",
			"document_root", path,
			"error", err,
		)
		return BuiltinDocumentRoot, assets.WebRoot()
	case !info.IsDir():
		logger.Warn("document root is not a directory, falling back to built-in web root",
			"document_root", path,
		)
		return BuiltinDocumentRoot, assets.WebRoot()
	}

	return path, os.DirFS(path)
}
