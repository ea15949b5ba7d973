package migration

import "embed"

// FS holds the goose migrations, one directory per database under postgresql/.
//
//go:embed postgresql
var FS embed.FS
