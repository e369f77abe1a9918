package migration

import (
	"fmt"
	"strings"

	"github.com/rflorenc/shopify-metadata-migrator/internal/models"
)

// toMetaobjectInput copies the replayable fields of a source metaobject
// definition. The source ID is dropped and field types are flattened to
// their name.
func toMetaobjectInput(node models.MetaobjectDefinitionNode) models.MetaobjectDefinitionInput {
	fields := make([]models.FieldDefinitionInput, 0, len(node.FieldDefinitions))
	for _, f := range node.FieldDefinitions {
		validations := make([]models.Validation, len(f.Validations))
		copy(validations, f.Validations)
		fields = append(fields, models.FieldDefinitionInput{
			Key:         f.Key,
			Name:        f.Name,
			Description: copyString(f.Description),
			Required:    f.Required,
			Type:        f.Type.Name,
			Validations: validations,
		})
	}
	return models.MetaobjectDefinitionInput{
		Name:             node.Name,
		Description:      copyString(node.Description),
		Type:             node.Type,
		FieldDefinitions: fields,
	}
}

// toMetafieldInput copies the replayable fields of a source metafield
// definition, dropping the ID and flattening the type to its name.
func toMetafieldInput(node models.MetafieldDefinitionNode) models.MetafieldDefinitionInput {
	return models.MetafieldDefinitionInput{
		Namespace:   node.Namespace,
		Key:         node.Key,
		OwnerType:   node.OwnerType,
		Description: copyString(node.Description),
		Name:        node.Name,
		Type:        node.Type.Name,
	}
}

// hasMetaobjectReference reports whether any field of the definition is a
// single metaobject reference. Only the exact type name matches; list
// references pass through.
func hasMetaobjectReference(def models.MetaobjectDefinitionInput) bool {
	for _, f := range def.FieldDefinitions {
		if f.Type == models.MetaobjectReferenceType {
			return true
		}
	}
	return false
}

// isMetaobjectReferenceMetafield reports whether a metafield definition points
// at metaobjects, as a single or list reference.
func isMetaobjectReferenceMetafield(def models.MetafieldDefinitionInput) bool {
	return def.Type == models.MetaobjectReferenceType || def.Type == models.ListMetaobjectReferenceType
}

// describeFields renders "key:type (required)" pairs for verbose logging.
func describeFields(fields []models.FieldDefinitionInput) string {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		label := f.Key
		if label == "" {
			label = f.Name
		}
		part := fmt.Sprintf("%s:%s", label, f.Type)
		if f.Required {
			part += " (required)"
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, ", ")
}

// metafieldLabel returns "namespace.key".
func metafieldLabel(def models.MetafieldDefinitionInput) string {
	return def.Namespace + "." + def.Key
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
