// Package web embeds the static assets of the metrics panel page.
package web

import (
	"embed"
	"io/fs"
)

//go:embed all:dist
var distFS embed.FS

// Assets returns the embedded panel assets. The returned FS has dist/ as
// its root, so files are accessed directly (e.g., "panel.js").
func Assets() (fs.FS, error) {
	return fs.Sub(distFS, "dist")
}
