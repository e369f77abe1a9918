package platform

import (
	"context"

	"github.com/juju/errors"

	"github.com/rflorenc/shopify-metadata-migrator/internal/models"
)

// Platform defines the Admin API operations the migrator needs from a store.
type Platform interface {
	// Ping verifies the endpoint and token. Returns the shop name.
	Ping(ctx context.Context) (string, error)

	// MetaobjectDefinitions returns the first page of metaobject definitions.
	MetaobjectDefinitions(ctx context.Context) (*MetaobjectDefinitionPage, error)

	// MetafieldDefinitions returns the first page of metafield definitions
	// for one owner type.
	MetafieldDefinitions(ctx context.Context, ownerType string) (*MetafieldDefinitionPage, error)

	// CreateMetaobjectDefinition submits one definition and returns any user errors.
	CreateMetaobjectDefinition(ctx context.Context, def models.MetaobjectDefinitionInput) ([]models.UserError, error)

	// CreateMetafieldDefinition submits one definition and returns any user errors.
	CreateMetafieldDefinition(ctx context.Context, def models.MetafieldDefinitionInput) ([]models.UserError, error)
}

// MetaobjectDefinitionPage is one page of source metaobject definitions.
type MetaobjectDefinitionPage struct {
	Definitions []models.MetaobjectDefinitionNode
	HasNextPage bool
}

// MetafieldDefinitionPage is one page of source metafield definitions.
type MetafieldDefinitionPage struct {
	Definitions []models.MetafieldDefinitionNode
	HasNextPage bool
}

type pageInfo struct {
	HasNextPage bool `json:"hasNextPage"`
}

type metaobjectDefinitionsData struct {
	MetaobjectDefinitions *struct {
		Edges []struct {
			Node models.MetaobjectDefinitionNode `json:"node"`
		} `json:"edges"`
		PageInfo pageInfo `json:"pageInfo"`
	} `json:"metaobjectDefinitions"`
}

type metafieldDefinitionsData struct {
	MetafieldDefinitions *struct {
		Edges []struct {
			Node models.MetafieldDefinitionNode `json:"node"`
		} `json:"edges"`
		PageInfo pageInfo `json:"pageInfo"`
	} `json:"metafieldDefinitions"`
}

type metaobjectDefinitionCreateData struct {
	MetaobjectDefinitionCreate *struct {
		UserErrors []models.UserError `json:"userErrors"`
	} `json:"metaobjectDefinitionCreate"`
}

type metafieldDefinitionCreateData struct {
	MetafieldDefinitionCreate *struct {
		UserErrors []models.UserError `json:"userErrors"`
	} `json:"metafieldDefinitionCreate"`
}

type shopData struct {
	Shop *struct {
		Name string `json:"name"`
	} `json:"shop"`
}

// Shopify implements Platform on top of the Admin GraphQL API.
type Shopify struct {
	client *Client
}

// NewShopify creates a Shopify platform for a store.
func NewShopify(client *Client) *Shopify {
	return &Shopify{client: client}
}

// NewPlatform creates the Platform implementation for a store.
func NewPlatform(store *models.Store, opts ...ClientOption) Platform {
	return NewShopify(NewClient(store, opts...))
}

func (s *Shopify) Ping(ctx context.Context) (string, error) {
	var data shopData
	if err := s.client.Do(ctx, shopQuery, nil, &data); err != nil {
		return "", err
	}
	if data.Shop == nil {
		return "", errors.New("shop query returned no shop")
	}
	return data.Shop.Name, nil
}

func (s *Shopify) MetaobjectDefinitions(ctx context.Context) (*MetaobjectDefinitionPage, error) {
	var data metaobjectDefinitionsData
	if err := s.client.Do(ctx, metaobjectDefinitionsQuery, map[string]any{"first": PageSize}, &data); err != nil {
		return nil, err
	}
	if data.MetaobjectDefinitions == nil {
		return nil, errors.Annotate(ErrNoData, "metaobjectDefinitions missing from response")
	}
	page := &MetaobjectDefinitionPage{HasNextPage: data.MetaobjectDefinitions.PageInfo.HasNextPage}
	for _, edge := range data.MetaobjectDefinitions.Edges {
		page.Definitions = append(page.Definitions, edge.Node)
	}
	return page, nil
}

func (s *Shopify) MetafieldDefinitions(ctx context.Context, ownerType string) (*MetafieldDefinitionPage, error) {
	var data metafieldDefinitionsData
	vars := map[string]any{"first": PageSize, "ownerType": ownerType}
	if err := s.client.Do(ctx, metafieldDefinitionsQuery, vars, &data); err != nil {
		return nil, err
	}
	if data.MetafieldDefinitions == nil {
		return nil, errors.Annotatef(ErrNoData, "metafieldDefinitions for %s missing from response", ownerType)
	}
	page := &MetafieldDefinitionPage{HasNextPage: data.MetafieldDefinitions.PageInfo.HasNextPage}
	for _, edge := range data.MetafieldDefinitions.Edges {
		page.Definitions = append(page.Definitions, edge.Node)
	}
	return page, nil
}

func (s *Shopify) CreateMetaobjectDefinition(ctx context.Context, def models.MetaobjectDefinitionInput) ([]models.UserError, error) {
	var data metaobjectDefinitionCreateData
	if err := s.client.Do(ctx, createMetaobjectDefinitionMutation, map[string]any{"definition": def}, &data); err != nil {
		return nil, err
	}
	if data.MetaobjectDefinitionCreate == nil {
		return nil, nil
	}
	return data.MetaobjectDefinitionCreate.UserErrors, nil
}

func (s *Shopify) CreateMetafieldDefinition(ctx context.Context, def models.MetafieldDefinitionInput) ([]models.UserError, error) {
	var data metafieldDefinitionCreateData
	if err := s.client.Do(ctx, createMetafieldDefinitionMutation, map[string]any{"definition": def}, &data); err != nil {
		return nil, err
	}
	if data.MetafieldDefinitionCreate == nil {
		return nil, nil
	}
	return data.MetafieldDefinitionCreate.UserErrors, nil
}
