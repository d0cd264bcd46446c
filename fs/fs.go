// Package appfs embeds the database migrations and the templates shipped with the binary.
package appfs

import "embed"

//go:embed migrations all:templates
var FS embed.FS

const (
	WebTemplatesDir   = "templates/web"
	EmailTemplatesDir = "templates/email"
)

// MigrationsDir returns the migrations directory of a database engine.
func MigrationsDir(engine string) string {
	return "migrations/" + engine
}
