package migration

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/rflorenc/shopify-metadata-migrator/internal/models"
)

func strPtr(s string) *string { return &s }

func TestToMetaobjectInput(t *testing.T) {
	node := models.MetaobjectDefinitionNode{
		ID:          "gid://shopify/MetaobjectDefinition/1",
		Name:        "Author",
		Description: strPtr("People who write"),
		Type:        "author",
		FieldDefinitions: []models.MetaobjectFieldDefinitionNode{
			{Key: "name", Name: "Name", Required: true, Type: models.TypeRef{Name: "single_line_text_field", Category: "TEXT"}},
			{Key: "bio", Name: "Bio", Type: models.TypeRef{Name: "multi_line_text_field"},
				Validations: []models.Validation{{Name: "max", Value: "500"}}},
		},
	}

	in := toMetaobjectInput(node)
	if in.Name != "Author" || in.Type != "author" || *in.Description != "People who write" {
		t.Errorf("input = %+v", in)
	}
	if in.FieldDefinitions[0].Type != "single_line_text_field" || !in.FieldDefinitions[0].Required {
		t.Errorf("field 0 = %+v", in.FieldDefinitions[0])
	}
	if in.FieldDefinitions[0].Validations == nil {
		t.Error("validations should be an empty list, not nil")
	}
	if in.FieldDefinitions[1].Validations[0].Value != "500" {
		t.Errorf("field 1 validations = %+v", in.FieldDefinitions[1].Validations)
	}

	// The copy must not alias the source.
	*node.Description = "changed"
	node.FieldDefinitions[1].Validations[0].Value = "1"
	if *in.Description != "People who write" || in.FieldDefinitions[1].Validations[0].Value != "500" {
		t.Error("input shares memory with the source node")
	}

	raw, err := json.Marshal(in)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(raw), `"id"`) {
		t.Errorf("input carries an id: %s", raw)
	}
	if strings.Contains(string(raw), `"category"`) || !strings.Contains(string(raw), `"type":"multi_line_text_field"`) {
		t.Errorf("field types not flattened: %s", raw)
	}
}

func TestToMetafieldInput(t *testing.T) {
	node := models.MetafieldDefinitionNode{
		ID:        "gid://shopify/MetafieldDefinition/9",
		Namespace: "custom",
		Key:       "color",
		OwnerType: "PRODUCT",
		Name:      "Color",
		Type:      models.TypeRef{Name: "single_line_text_field", Category: "TEXT"},
	}
	in := toMetafieldInput(node)
	want := models.MetafieldDefinitionInput{
		Namespace: "custom", Key: "color", OwnerType: "PRODUCT", Name: "Color", Type: "single_line_text_field",
	}
	if in != want {
		t.Errorf("toMetafieldInput = %+v, want %+v", in, want)
	}
	raw, _ := json.Marshal(in)
	if strings.Contains(string(raw), `"id"`) {
		t.Errorf("input carries an id: %s", raw)
	}
}

func TestHasMetaobjectReference(t *testing.T) {
	tests := []struct {
		name   string
		types  []string
		expect bool
	}{
		{"no fields", nil, false},
		{"plain fields", []string{"single_line_text_field", "number_integer"}, false},
		{"one reference", []string{"single_line_text_field", "metaobject_reference"}, true},
		{"only reference", []string{"metaobject_reference"}, true},
		{"list reference", []string{"list.metaobject_reference"}, false},
		{"product reference", []string{"product_reference"}, false},
		{"different case", []string{"Metaobject_Reference"}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			def := models.MetaobjectDefinitionInput{}
			for _, typ := range tc.types {
				def.FieldDefinitions = append(def.FieldDefinitions, models.FieldDefinitionInput{Type: typ})
			}
			if got := hasMetaobjectReference(def); got != tc.expect {
				t.Errorf("hasMetaobjectReference(%v) = %v, want %v", tc.types, got, tc.expect)
			}
		})
	}
}

func TestIsMetaobjectReferenceMetafield(t *testing.T) {
	tests := []struct {
		typ    string
		expect bool
	}{
		{"metaobject_reference", true},
		{"list.metaobject_reference", true},
		{"product_reference", false},
		{"single_line_text_field", false},
	}
	for _, tc := range tests {
		t.Run(tc.typ, func(t *testing.T) {
			if got := isMetaobjectReferenceMetafield(models.MetafieldDefinitionInput{Type: tc.typ}); got != tc.expect {
				t.Errorf("isMetaobjectReferenceMetafield(%q) = %v, want %v", tc.typ, got, tc.expect)
			}
		})
	}
}

func TestDescribeFields(t *testing.T) {
	got := describeFields([]models.FieldDefinitionInput{
		{Key: "name", Type: "single_line_text_field", Required: true},
		{Name: "Bio", Type: "multi_line_text_field"},
	})
	want := "name:single_line_text_field (required), Bio:multi_line_text_field"
	if got != want {
		t.Errorf("describeFields = %q, want %q", got, want)
	}
}
