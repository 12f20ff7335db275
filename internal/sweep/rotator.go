package sweep

import (
	"context"
	"regexp"
	"sort"
	"time"

	"sweep-go/internal/config"
)

// VersionRotator garbage-collects old date-stamped versions of a synced
// folder from the remote bucket, by count and/or age. The live object
// listing is the source of truth for which versions exist; nothing is
// persisted locally.
type VersionRotator struct {
	logger  Logger
	clock   Clock
	metrics Metrics
}

// NewVersionRotator creates a rotator.
func NewVersionRotator(logger Logger, clock Clock, metrics Metrics) *VersionRotator {
	return &VersionRotator{logger: logger, clock: clock, metrics: metrics}
}

// Rotate removes stale versions of folderName from the bucket according
// to the rule's max_versions / max_version_age_days policy. Per-object
// delete failures are logged and do not abort the batch. Returns the
// number of objects deleted.
func (r *VersionRotator) Rotate(ctx context.Context, store ObjectStore, bucket, folderName string, rule config.SyncRule) int {
	if rule.MaxVersions == 0 && rule.MaxVersionAgeDays == 0 {
		return 0
	}

	objects, err := store.ListObjects(ctx, bucket, "")
	if err != nil {
		r.logger.Error("listing bucket for rotation failed", "bucket", bucket, "folder", folderName, "error", err)
		return 0
	}
	if len(objects) == 0 {
		return 0
	}

	versionPattern := regexp.MustCompile(`^` + regexp.QuoteMeta(folderName) + `_(\d{4}-\d{2}-\d{2}_\d{2}-\d{2})/`)

	versions := make(map[string][]ObjectInfo)
	for _, obj := range objects {
		m := versionPattern.FindStringSubmatch(obj.Key)
		if m == nil {
			continue
		}
		versions[m[1]] = append(versions[m[1]], obj)
	}
	if len(versions) == 0 {
		r.logger.Debug("no versions to rotate", "folder", folderName)
		return 0
	}

	// Newest first. The stamp format sorts lexicographically.
	stamps := make([]string, 0, len(versions))
	for s := range versions {
		stamps = append(stamps, s)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(stamps)))

	r.logger.Info("rotating folder versions", "folder", folderName, "versions", len(stamps))

	now := r.clock.Now().UTC()
	totalDeleted := 0

	for rank, stamp := range stamps {
		del := false

		if rule.MaxVersions > 0 && rank >= rule.MaxVersions {
			del = true
			r.logger.Debug("version over count limit", "folder", folderName, "version", stamp, "max", rule.MaxVersions)
		}

		// The count rule decides first; the age rule only sees versions
		// it passed over.
		if !del && rule.MaxVersionAgeDays > 0 {
			if ts, err := time.Parse(VersionStampLayout, stamp); err == nil {
				ageDays := int(now.Sub(ts.UTC()).Hours() / 24)
				if ageDays > rule.MaxVersionAgeDays {
					del = true
					r.logger.Debug("version over age limit", "folder", folderName, "version", stamp, "age_days", ageDays)
				}
			}
		}

		if !del {
			continue
		}

		deleted := 0
		for _, obj := range versions[stamp] {
			if err := store.DeleteObject(ctx, bucket, obj.Key); err != nil {
				r.logger.Error("deleting versioned object failed", "key", obj.Key, "error", err)
				continue
			}
			deleted++
		}
		totalDeleted += deleted
		r.metrics.VersionRotated()
		r.logger.Info("version rotated away", "folder", folderName, "version", stamp, "objects", deleted)
	}

	return totalDeleted
}
