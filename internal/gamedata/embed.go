// Package gamedata provides the static battle catalogs and utilities for loading them.
package gamedata

import (
	"embed"
	"io/fs"
)

// dataFS embeds all JSON catalogs from this directory at build time.
//
//go:embed *.json
var dataFS embed.FS

// FS returns the embedded filesystem containing the default catalogs.
func FS() fs.FS {
	return dataFS
}
