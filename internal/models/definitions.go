package models

// Field types that point at another metaobject. A definition carrying one
// cannot be recreated until the referenced metaobject exists on the target.
const (
	MetaobjectReferenceType     = "metaobject_reference"
	ListMetaobjectReferenceType = "list.metaobject_reference"
)

// TypeRef is the nested type wrapper returned by the Admin API.
type TypeRef struct {
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
}

// Validation is a single name/value validation rule on a field.
type Validation struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// MetaobjectFieldDefinitionNode is a field definition as read from the source.
type MetaobjectFieldDefinitionNode struct {
	Key         string       `json:"key"`
	Name        string       `json:"name"`
	Description *string      `json:"description"`
	Required    bool         `json:"required"`
	Type        TypeRef      `json:"type"`
	Validations []Validation `json:"validations"`
}

// MetaobjectDefinitionNode is a metaobject definition as read from the source.
type MetaobjectDefinitionNode struct {
	ID               string                          `json:"id"`
	Name             string                          `json:"name"`
	Description      *string                         `json:"description"`
	Type             string                          `json:"type"`
	FieldDefinitions []MetaobjectFieldDefinitionNode `json:"fieldDefinitions"`
}

// MetafieldDefinitionNode is a metafield definition as read from the source.
type MetafieldDefinitionNode struct {
	ID          string  `json:"id"`
	Namespace   string  `json:"namespace"`
	Key         string  `json:"key"`
	OwnerType   string  `json:"ownerType"`
	Description *string `json:"description"`
	Name        string  `json:"name"`
	Type        TypeRef `json:"type"`
}

// FieldDefinitionInput is the replayable shape of a metaobject field
// definition. It carries the flattened type name.
type FieldDefinitionInput struct {
	Key         string       `json:"key"`
	Name        string       `json:"name"`
	Description *string      `json:"description"`
	Required    bool         `json:"required"`
	Type        string       `json:"type"`
	Validations []Validation `json:"validations"`
}

// MetaobjectDefinitionInput is the payload for metaobjectDefinitionCreate.
// There is no ID: the target assigns its own.
type MetaobjectDefinitionInput struct {
	Name             string                 `json:"name"`
	Description      *string                `json:"description"`
	Type             string                 `json:"type"`
	FieldDefinitions []FieldDefinitionInput `json:"fieldDefinitions"`
}

// MetafieldDefinitionInput is the payload for metafieldDefinitionCreate.
type MetafieldDefinitionInput struct {
	Namespace   string  `json:"namespace"`
	Key         string  `json:"key"`
	OwnerType   string  `json:"ownerType"`
	Description *string `json:"description"`
	Name        string  `json:"name"`
	Type        string  `json:"type"`
}

// UserError is a validation rejection returned inside a successful mutation.
type UserError struct {
	Field   []string `json:"field,omitempty"`
	Message string   `json:"message"`
	Code    string   `json:"code,omitempty"`
}
