package server

import (
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"os"
)

//go:embed web
var webFS embed.FS

// staticHandler serves dir when set, otherwise the embedded page.
func staticHandler(dir string) (http.Handler, error) {
	if dir != "" {
		info, err := os.Stat(dir)
		if err != nil {
			return nil, fmt.Errorf("static dir: %w", err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("static dir: %s is not a directory", dir)
		}
		return http.FileServer(http.Dir(dir)), nil
	}

	sub, err := fs.Sub(webFS, "web")
	if err != nil {
		return nil, fmt.Errorf("embedded web assets: %w", err)
	}
	return http.FileServerFS(sub), nil
}
