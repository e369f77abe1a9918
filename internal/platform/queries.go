package platform

// PageSize is the number of definitions fetched per query. Only the first
// page is read.
const PageSize = 250

const metaobjectDefinitionsQuery = `
query MetaobjectDefinitions($first: Int!) {
  metaobjectDefinitions(first: $first) {
    edges {
      node {
        id
        name
        description
        type
        fieldDefinitions {
          description
          key
          name
          required
          type {
            name
          }
          validations {
            name
            value
          }
        }
      }
    }
    pageInfo {
      hasNextPage
    }
  }
}`

const createMetaobjectDefinitionMutation = `
mutation CreateMetaObjectDefinition($definition: MetaobjectDefinitionCreateInput!) {
  metaobjectDefinitionCreate(definition: $definition) {
    metaobjectDefinition {
      name
      type
    }
    userErrors {
      field
      message
      code
    }
  }
}`

const metafieldDefinitionsQuery = `
query MetafieldDefinitions($first: Int!, $ownerType: MetafieldOwnerType!) {
  metafieldDefinitions(first: $first, ownerType: $ownerType) {
    edges {
      node {
        id
        namespace
        key
        ownerType
        description
        name
        type {
          name
          category
        }
      }
    }
    pageInfo {
      hasNextPage
    }
  }
}`

const createMetafieldDefinitionMutation = `
mutation CreateMetafieldDefinition($definition: MetafieldDefinitionInput!) {
  metafieldDefinitionCreate(definition: $definition) {
    createdDefinition {
      id
      name
    }
    userErrors {
      field
      message
      code
    }
  }
}`

const shopQuery = `
query Shop {
  shop {
    name
  }
}`
