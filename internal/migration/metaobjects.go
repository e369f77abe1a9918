package migration

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/rflorenc/shopify-metadata-migrator/internal/logging"
	"github.com/rflorenc/shopify-metadata-migrator/internal/models"
	"github.com/rflorenc/shopify-metadata-migrator/internal/platform"
)

// MigrateMetaobjects copies metaobject definitions from src to dst.
//
// Definitions with a metaobject_reference field are counted as processed
// and skipped: the referenced definition's ID on the target is not known
// when they are created. Per-definition failures are recorded and the loop
// continues. A failed source fetch is recorded and ends this migrator only.
// The returned error is non-nil only when ctx is done.
func MigrateMetaobjects(ctx context.Context, src, dst platform.Platform, summary *models.RunSummary, logger *zap.SugaredLogger) error {
	page, err := src.MetaobjectDefinitions(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		summary.RecordError("GraphQL request failed while fetching source metaobject definitions", err)
		logger.Errorw("fetching source metaobject definitions failed", "error", err)
		return nil
	}

	definitions := make([]models.MetaobjectDefinitionInput, 0, len(page.Definitions))
	for _, node := range page.Definitions {
		definitions = append(definitions, toMetaobjectInput(node))
	}

	logger.Infof("Found %d metaobject definitions to migrate", len(definitions))
	if page.HasNextPage {
		warnTruncated(summary, logger, "metaobject definitions")
	}

	for i, def := range definitions {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		summary.Processed(models.CategoryMetaobjects)
		logger.Infof("Creating metaobject definition %d/%d: %s", i+1, len(definitions), def.Name)
		logger.Debugf("Fields for %s: %s", def.Name, describeFields(def.FieldDefinitions))

		if hasMetaobjectReference(def) {
			summary.Skipped(models.CategoryMetaobjects, def.Name)
			logger.Warnw("skipping metaobject definition with metaobject_reference field", "name", def.Name, "type", def.Type)
			continue
		}

		userErrors, err := dst.CreateMetaobjectDefinition(ctx, def)
		if err != nil {
			summary.RecordError(fmt.Sprintf("GraphQL request failed while creating metaobject definition for %s", def.Name), err)
			summary.Failed(models.CategoryMetaobjects, def.Name, err)
			logger.Errorw("creating metaobject definition failed", "name", def.Name, "error", err)
			continue
		}
		if len(userErrors) > 0 {
			summary.Rejected(models.CategoryMetaobjects, def.Name, userErrors)
			logger.Errorw("Failed to create metaobject definition", "name", def.Name)
			logger.Debugw("user errors", "name", def.Name, "userErrors", userErrors)
			logging.Trace(logger, "original variables", "definition", def)
			continue
		}
		summary.Created(models.CategoryMetaobjects, def.Name)
		logger.Infow("Successfully created metaobject definition", "name", def.Name)
	}
	return nil
}

func warnTruncated(summary *models.RunSummary, logger *zap.SugaredLogger, what string) {
	msg := fmt.Sprintf("source has more than %d %s; only the first %d are migrated", platform.PageSize, what, platform.PageSize)
	logger.Warn(msg)
	summary.RecordError("Source page limit reached", fmt.Errorf("%s", msg))
}
