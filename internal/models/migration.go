package models

import (
	"fmt"
	"io"
	"strings"
)

// Preview actions.
const (
	ActionCreate        = "create"
	ActionSkipReference = "skip_reference"
)

// MigrationResource describes a single definition being considered for migration.
type MigrationResource struct {
	SourceID string `json:"source_id"`
	Name     string `json:"name"`
	Type     string `json:"type"`                 // metaobject type slug or namespace.key
	Owner    string `json:"owner_type,omitempty"` // metafields only
	Action   string `json:"action"`
	Reason   string `json:"reason,omitempty"`
}

// MigrationPreview holds the classification of every fetched definition.
type MigrationPreview struct {
	SourceID  string                           `json:"source_id"`
	TargetID  string                           `json:"target_id"`
	Resources map[Category][]MigrationResource `json:"resources"`
	Warnings  []string                         `json:"warnings"`
}

// Counts returns how many resources would be created and skipped.
func (p *MigrationPreview) Counts() (create, skip int) {
	for _, items := range p.Resources {
		for _, item := range items {
			if item.Action == ActionCreate {
				create++
			} else {
				skip++
			}
		}
	}
	return create, skip
}

// Render writes the preview as a plain-text plan.
func (p *MigrationPreview) Render(w io.Writer) error {
	var b strings.Builder
	b.WriteString("--- Migration Plan ---\n")
	for _, c := range []Category{CategoryMetaobjects, CategoryMetafields} {
		items, ok := p.Resources[c]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "%s%s:\n", strings.ToUpper(string(c[:1])), c[1:])
		if len(items) == 0 {
			b.WriteString("  (none)\n")
		}
		for _, item := range items {
			label := item.Name
			if item.Owner != "" {
				label = fmt.Sprintf("%s [%s]", item.Type, item.Owner)
			} else if item.Type != "" {
				label = fmt.Sprintf("%s (%s)", item.Name, item.Type)
			}
			if item.Action == ActionCreate {
				fmt.Fprintf(&b, "  create  %s\n", label)
			} else {
				fmt.Fprintf(&b, "  skip    %s: %s\n", label, item.Reason)
			}
		}
	}
	if len(p.Warnings) > 0 {
		b.WriteString("Warnings:\n")
		for _, warning := range p.Warnings {
			fmt.Fprintf(&b, "- %s\n", warning)
		}
	}
	create, skip := p.Counts()
	fmt.Fprintf(&b, "Total: %d to create, %d to skip\n", create, skip)
	_, err := io.WriteString(w, b.String())
	return err
}
