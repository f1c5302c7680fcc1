package catalog

import (
	"context"

	"github.com/archbeaver/beaver/errors"
)

// NameWhere selects a lookup-table row by exact name
type NameWhere struct {
	Name string
}

// EnvironmentFinder returns the first environment matching where, or nil when none does
type EnvironmentFinder interface {
	FindFirstEnvironment(ctx context.Context, where NameWhere) (*Environment, error)
}

// RoadmapTypeFinder returns the first roadmap type matching where, or nil when none does
type RoadmapTypeFinder interface {
	FindFirstRoadmapType(ctx context.Context, where NameWhere) (*RoadmapType, error)
}

// GetEnvironmentIDFromLegacyEnum maps a deprecated environment enum value
// ("development", "homologation", "production") to the environments row id.
func GetEnvironmentIDFromLegacyEnum(ctx context.Context, finder EnvironmentFinder, value string) (int64, error) {
	env, err := finder.FindFirstEnvironment(ctx, NameWhere{Name: value})
	if err != nil {
		return 0, errors.Wrapf(err, "failed to look up environment %q", value)
	}
	if env == nil {
		return 0, errors.NewNotFoundError("Environment not found for legacy value: %s", value)
	}
	return env.ID, nil
}

// GetRoadmapTypeIDFromLegacyEnum maps a deprecated roadmap type enum value to the roadmap_types row id.
func GetRoadmapTypeIDFromLegacyEnum(ctx context.Context, finder RoadmapTypeFinder, value string) (int64, error) {
	rt, err := finder.FindFirstRoadmapType(ctx, NameWhere{Name: value})
	if err != nil {
		return 0, errors.Wrapf(err, "failed to look up roadmap type %q", value)
	}
	if rt == nil {
		return 0, errors.NewNotFoundError("Roadmap type not found for legacy value: %s", value)
	}
	return rt.ID, nil
}
