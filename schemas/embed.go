// Package schemas embeds the JSON Schemas of the documents the catalog API
// produces.
package schemas

import "embed"

// FS holds every *.schema.json file in this directory.
//
//go:embed *.schema.json
var FS embed.FS
