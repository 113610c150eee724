package schema

import "embed"

//go:embed *.json
var FS embed.FS
