package migration

import (
	"context"
	"fmt"

	"github.com/juju/errors"
	"go.uber.org/zap"

	"github.com/rflorenc/shopify-metadata-migrator/internal/models"
	"github.com/rflorenc/shopify-metadata-migrator/internal/platform"
)

// Preview fetches the selected definitions from src and classifies each as
// create or skip_reference without touching any target. A fetch failure
// fails the preview, unlike Run.
func Preview(ctx context.Context, src platform.Platform, opts Options, logger *zap.SugaredLogger) (*models.MigrationPreview, error) {
	preview := &models.MigrationPreview{
		Resources: make(map[models.Category][]models.MigrationResource),
	}

	if opts.MigrateMetaobjects {
		logger.Info("=== Checking metaobject definitions ===")
		preview.Resources[models.CategoryMetaobjects] = []models.MigrationResource{}
		page, err := src.MetaobjectDefinitions(ctx)
		if err != nil {
			return nil, errors.Annotate(err, "fetching source metaobject definitions")
		}
		if page.HasNextPage {
			preview.Warnings = append(preview.Warnings, truncatedWarning("metaobject definitions"))
		}
		for _, node := range page.Definitions {
			def := toMetaobjectInput(node)
			mr := models.MigrationResource{
				SourceID: node.ID,
				Name:     def.Name,
				Type:     def.Type,
				Action:   models.ActionCreate,
			}
			if hasMetaobjectReference(def) {
				mr.Action = models.ActionSkipReference
				mr.Reason = "has a metaobject_reference field"
			}
			logger.Infof("  %s (%s): %s", def.Name, def.Type, mr.Action)
			preview.Resources[models.CategoryMetaobjects] = append(preview.Resources[models.CategoryMetaobjects], mr)
		}
	}

	if opts.MigrateMetafields {
		preview.Resources[models.CategoryMetafields] = []models.MigrationResource{}
		for _, ownerType := range opts.OwnerTypes {
			logger.Infof("=== Checking %s metafield definitions ===", ownerType)
			page, err := src.MetafieldDefinitions(ctx, ownerType)
			if err != nil {
				return nil, errors.Annotatef(err, "fetching source metafield definitions for ownerType %s", ownerType)
			}
			if page.HasNextPage {
				preview.Warnings = append(preview.Warnings, truncatedWarning(ownerType+" metafield definitions"))
			}
			for _, node := range page.Definitions {
				def := toMetafieldInput(node)
				mr := models.MigrationResource{
					SourceID: node.ID,
					Name:     def.Name,
					Type:     metafieldLabel(def),
					Owner:    def.OwnerType,
					Action:   models.ActionCreate,
				}
				if opts.SkipMetafieldReferences && isMetaobjectReferenceMetafield(def) {
					mr.Action = models.ActionSkipReference
					mr.Reason = "metaobject reference metafield"
				}
				logger.Infof("  %s: %s", metafieldLabel(def), mr.Action)
				preview.Resources[models.CategoryMetafields] = append(preview.Resources[models.CategoryMetafields], mr)
			}
		}
	}

	create, skip := preview.Counts()
	logger.Infof("Preview complete: %d to create, %d to skip", create, skip)
	return preview, nil
}

func truncatedWarning(what string) string {
	return fmt.Sprintf("Source has more than %d %s; only the first %d will be migrated.", platform.PageSize, what, platform.PageSize)
}
