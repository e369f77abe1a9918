package migration

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/rflorenc/shopify-metadata-migrator/internal/logging"
	"github.com/rflorenc/shopify-metadata-migrator/internal/models"
	"github.com/rflorenc/shopify-metadata-migrator/internal/platform"
)

// MigrateMetafields copies metafield definitions for each owner type, one
// owner type at a time in the given order. A fetch failure for one owner
// type is recorded and the loop moves on to the next.
//
// When skipReferences is set, definitions typed as metaobject references are
// counted as processed and skipped instead of being submitted.
func MigrateMetafields(ctx context.Context, src, dst platform.Platform, ownerTypes []string, skipReferences bool, summary *models.RunSummary, logger *zap.SugaredLogger) error {
	for _, ownerType := range ownerTypes {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := migrateOwnerType(ctx, src, dst, ownerType, skipReferences, summary, logger); err != nil {
			return err
		}
	}
	return nil
}

func migrateOwnerType(ctx context.Context, src, dst platform.Platform, ownerType string, skipReferences bool, summary *models.RunSummary, logger *zap.SugaredLogger) error {
	logger.Infof("Migrating metafield definitions for ownerType %s", ownerType)

	page, err := src.MetafieldDefinitions(ctx, ownerType)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		summary.RecordError(fmt.Sprintf("GraphQL request failed while fetching source metafield definitions for ownerType %s", ownerType), err)
		logger.Errorw("fetching source metafield definitions failed", "ownerType", ownerType, "error", err)
		return nil
	}

	definitions := make([]models.MetafieldDefinitionInput, 0, len(page.Definitions))
	for _, node := range page.Definitions {
		definitions = append(definitions, toMetafieldInput(node))
	}

	logger.Infof("Found %d metafield definitions for ownerType %s", len(definitions), ownerType)
	if page.HasNextPage {
		warnTruncated(summary, logger, ownerType+" metafield definitions")
	}

	for i, def := range definitions {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		summary.Processed(models.CategoryMetafields)
		logger.Infof("Creating metafield definition %d/%d: %s", i+1, len(definitions), def.Name)
		logger.Debugf("Metafield %s (%s) type %s", metafieldLabel(def), def.OwnerType, def.Type)

		if skipReferences && isMetaobjectReferenceMetafield(def) {
			summary.Skipped(models.CategoryMetafields, def.Name)
			logger.Warnw("skipping metaobject reference metafield definition", "name", def.Name, "metafield", metafieldLabel(def))
			continue
		}

		userErrors, err := dst.CreateMetafieldDefinition(ctx, def)
		if err != nil {
			summary.RecordError(fmt.Sprintf("GraphQL request failed while creating metafield definition for %s", def.Name), err)
			summary.Failed(models.CategoryMetafields, def.Name, err)
			logger.Errorw("creating metafield definition failed", "name", def.Name, "error", err)
			continue
		}
		if len(userErrors) > 0 {
			summary.Rejected(models.CategoryMetafields, def.Name, userErrors)
			logger.Errorw("Failed to create metafield definition", "name", def.Name, "metafield", metafieldLabel(def))
			logger.Debugw("user errors", "name", def.Name, "userErrors", userErrors)
			logging.Trace(logger, "original variables", "definition", def)
			continue
		}
		summary.Created(models.CategoryMetafields, def.Name)
		logger.Infow("Successfully created metafield definition", "name", def.Name, "metafield", metafieldLabel(def))
	}
	return nil
}
