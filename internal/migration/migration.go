package migration

import (
	"context"
	"regexp"
	"strings"

	"github.com/juju/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rflorenc/shopify-metadata-migrator/internal/models"
	"github.com/rflorenc/shopify-metadata-migrator/internal/platform"
)

// Options selects what a run migrates.
type Options struct {
	MigrateMetaobjects      bool
	MigrateMetafields       bool
	OwnerTypes              []string
	APIVersion              string
	SkipMetafieldReferences bool
}

var ownerTypePattern = regexp.MustCompile(`^[A-Z][A-Z_]*$`)

// ParseOwnerTypes splits a comma separated owner type list, trimming blanks
// and upper-casing each token.
func ParseOwnerTypes(s string) []string {
	var out []string
	for _, tok := range strings.Split(s, ",") {
		tok = strings.ToUpper(strings.TrimSpace(tok))
		if tok != "" {
			out = append(out, tok)
		}
	}
	return out
}

// Validate checks that the options describe a runnable migration.
func (o Options) Validate() error {
	if !o.MigrateMetaobjects && !o.MigrateMetafields {
		return errors.NewNotValid(nil, "Please specify --metafields and/or --metaobjects")
	}
	if o.MigrateMetafields {
		if len(o.OwnerTypes) == 0 {
			return errors.NewNotValid(nil, "--shopifyObjectTypes is required when --metafields is set")
		}
		for _, ot := range o.OwnerTypes {
			if !ownerTypePattern.MatchString(ot) {
				return errors.NotValidf("owner type %q", ot)
			}
		}
	}
	if o.APIVersion != "" {
		if err := platform.ValidateAPIVersion(o.APIVersion); err != nil {
			return err
		}
	}
	return nil
}

// Run launches the selected migrators together and waits for both. Per-item
// and fetch failures are recorded in summary and never returned. The
// returned error reports an unhandled failure, such as cancellation.
func Run(ctx context.Context, src, dst platform.Platform, opts Options, summary *models.RunSummary, logger *zap.SugaredLogger) error {
	if summary == nil {
		return errors.NotValidf("nil summary")
	}
	if err := opts.Validate(); err != nil {
		return errors.Trace(err)
	}
	if opts.APIVersion != "" && !platform.VersionAtLeast(opts.APIVersion, platform.MetaobjectsMinVersion) && opts.MigrateMetaobjects {
		logger.Warnf("API version %s predates metaobject support (%s); metaobject requests will likely fail",
			opts.APIVersion, platform.MetaobjectsMinVersion)
	}

	// Not errgroup.WithContext: one migrator failing must not cancel the other.
	var g errgroup.Group
	if opts.MigrateMetaobjects {
		g.Go(func() error {
			logger.Info("Starting metaobject definition migration")
			return errors.Annotate(MigrateMetaobjects(ctx, src, dst, summary, logger), "metaobject migration")
		})
	}
	if opts.MigrateMetafields {
		g.Go(func() error {
			logger.Infof("Starting metafield definition migration for %d owner types", len(opts.OwnerTypes))
			return errors.Annotate(MigrateMetafields(ctx, src, dst, opts.OwnerTypes, opts.SkipMetafieldReferences, summary, logger), "metafield migration")
		})
	}
	err := g.Wait()
	if err != nil {
		summary.RecordError("Unhandled migration failure", err)
		logger.Errorw("migration aborted", "error", err)
		return err
	}
	logger.Info("Migration finished")
	return nil
}
