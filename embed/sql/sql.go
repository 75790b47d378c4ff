package sql

import _ "embed"

// Schema is the store schema applied on startup.
//
//go:embed schema.sql
var Schema string
