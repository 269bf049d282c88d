package html

import (
	"embed"
	"io/fs"
)

//go:embed templates/*.tpl
var embeddedTemplates embed.FS

// TemplatesFS exposes the embedded template bundle so callers can render the
// built-in form chrome out of the box or overlay their own copies.
func TemplatesFS() fs.FS {
	return embeddedTemplates
}
