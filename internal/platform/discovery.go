package platform

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/juju/errors"
	"go.uber.org/zap"

	"github.com/rflorenc/shopify-metadata-migrator/internal/models"
)

// UnstableVersion is the rolling Admin API version.
const UnstableVersion = "unstable"

// MetaobjectsMinVersion is the first Admin API release with metaobject definitions.
const MetaobjectsMinVersion = "2023-01"

// ValidateAPIVersion checks that version looks like "YYYY-MM" or "unstable".
func ValidateAPIVersion(version string) error {
	if version == UnstableVersion {
		return nil
	}
	parts := parseVersionParts(version)
	if len(parts) != 2 || len(version) != len("2006-01") {
		return errors.NotValidf("api version %q (want YYYY-MM or %s)", version, UnstableVersion)
	}
	if parts[1] < 1 || parts[1] > 12 {
		return errors.NotValidf("api version %q month", version)
	}
	return nil
}

// CompareVersions compares two "YYYY-MM" versions.
// Returns -1 if a < b, 0 if a == b, 1 if a > b. "unstable" sorts last.
func CompareVersions(a, b string) int {
	if a == b {
		return 0
	}
	if a == UnstableVersion {
		return 1
	}
	if b == UnstableVersion {
		return -1
	}
	aParts := parseVersionParts(a)
	bParts := parseVersionParts(b)

	maxLen := len(aParts)
	if len(bParts) > maxLen {
		maxLen = len(bParts)
	}
	for i := 0; i < maxLen; i++ {
		var av, bv int
		if i < len(aParts) {
			av = aParts[i]
		}
		if i < len(bParts) {
			bv = bParts[i]
		}
		if av < bv {
			return -1
		}
		if av > bv {
			return 1
		}
	}
	return 0
}

// VersionAtLeast returns true if version >= min.
func VersionAtLeast(version, min string) bool {
	if version == "" || min == "" {
		return true
	}
	return CompareVersions(version, min) >= 0
}

func parseVersionParts(v string) []int {
	parts := strings.Split(v, "-")
	result := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			break
		}
		result = append(result, n)
	}
	return result
}

// CheckAndStore pings a registered store and records the result on it.
// The check is best-effort: failures are logged and stored, not returned.
func CheckAndStore(ctx context.Context, p Platform, store *models.Store, registry *models.StoreRegistry, logger *zap.SugaredLogger) bool {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	name, err := p.Ping(ctx)
	if err != nil {
		registry.SetHealth(store.ID, "error", err.Error(), "")
		logger.Warnw("store check failed", "store", store.Name, "domain", store.Handle(), "error", err)
		return false
	}
	registry.SetHealth(store.ID, "ok", "", name)
	logger.Infow("store reachable", "store", store.Name, "shop", name)
	return true
}
