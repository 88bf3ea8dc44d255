// Package appfs embeds the database migrations, the seed data and the password assets.
package appfs

import "embed"

//go:embed migrations/*.sql seed/*.yaml passwords/*.txt
var FS embed.FS
