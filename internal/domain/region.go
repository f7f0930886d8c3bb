package domain

import (
	"context"
	"encoding/json"
)

// Region is a comarca as supplied by the region catalogue. Affectations refer
// to it by ID only.
type Region struct {
	ID       int             `json:"id"`
	Name     string          `json:"name"`
	Geometry json.RawMessage `json:"geometry,omitempty"`
}

// RegionCatalog resolves comarca ids to names and geometry.
type RegionCatalog interface {
	// Regions returns all known regions ordered by name.
	Regions() []Region

	// Lookup returns the region with the given id.
	Lookup(id int) (Region, bool)
}

// RegionIDs lists the ids of every region in the catalogue, or nil when the
// catalogue is nil.
func RegionIDs(catalog RegionCatalog) []int {
	if catalog == nil {
		return nil
	}
	regions := catalog.Regions()
	ids := make([]int, len(regions))
	for i, r := range regions {
		ids[i] = r.ID
	}
	return ids
}

// EpisodeSource fetches the open episodes for one calendar day.
type EpisodeSource interface {
	OpenEpisodes(ctx context.Context, date Date) ([]Episode, error)
}
