package cli

import (
	"bytes"
	"fmt"
	"text/template"
)

const materialTemplate = `
=== Material Details ===

Title:   {{.Title}}
ID:      {{.ID}}
{{- if .FileType }}
Type:    {{.FileType}}
{{- end}}
{{- if .FolderID }}
Folder:  {{.FolderID}}
{{- end}}
Updated: {{.UpdatedAt.Format "2006-01-02 15:04:05"}}
Synced:  {{if .Synced}}yes{{else}}no{{end}}
{{- if .Content }}

Content:
---
{{printf "%s" .Content}}
---
{{- end}}
`

const folderTemplate = `
=== Folder Details ===

Name:    {{.Name}}
ID:      {{.ID}}
{{- if .ParentFolderID }}
Parent:  {{.ParentFolderID}}
{{- end}}
{{- if .Description }}
About:   {{.Description}}
{{- end}}
Synced:  {{if .Synced}}yes{{else}}no{{end}}
`

var (
	materialTmpl = template.Must(template.New("material").Parse(materialTemplate))
	folderTmpl   = template.Must(template.New("folder").Parse(folderTemplate))
)

func render(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}
