// Package appfs embeds the static files shipped with the binaries.
package appfs

import "embed"

// FS holds the database migrations, the email templates and the password blocklist.
//
//go:embed migrations/*.sql templates/email/* assets/*
var FS embed.FS

const (
	MigrationsDir       = "migrations"
	EmailTemplatesDir   = "templates/email"
	CommonPasswordsFile = "assets/common-passwords.txt"
)
