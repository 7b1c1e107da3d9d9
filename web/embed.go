// Package web holds the server-rendered templates and static assets, compiled
// into the binary.
package web

import (
	"embed"
	"io/fs"
)

//go:embed templates
var Templates embed.FS

//go:embed static
var assets embed.FS

// Static serves the files under static/ rooted at the directory itself, so
// "css/app.css" resolves to static/css/app.css.
var Static = mustSub(assets, "static")

func mustSub(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic(err)
	}
	return sub
}
