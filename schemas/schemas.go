// Package schemas embeds the JSON Schemas used to pre-validate site configuration files.
package schemas

import _ "embed"

// SiteSchemaJSON describes the documented top-level keys of an mkdocs.yml file.
//
//go:embed mkdocs.schema.json
var SiteSchemaJSON string
