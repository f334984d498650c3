// Package appfs embeds the static assets shipped inside the binaries:
// SQL migrations and email templates.
package appfs

import "embed"

//go:embed migrations/*.sql templates/email/*
var FS embed.FS
