// Package catalog loads the comarca region catalogue from a GeoJSON or YAML
// file or from a PostGIS table.
package catalog

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/couchcryptid/meteocat-episodes-service/internal/domain"
)

// ErrEmptyCatalog is returned when a source yields no regions.
var ErrEmptyCatalog = errors.New("region catalogue is empty")

// Catalog is an immutable in-memory domain.RegionCatalog.
type Catalog struct {
	regions []domain.Region
	byID    map[int]domain.Region
}

// New builds a catalogue ordered by name. Duplicate ids are rejected.
func New(regions []domain.Region) (*Catalog, error) {
	if len(regions) == 0 {
		return nil, ErrEmptyCatalog
	}

	c := &Catalog{
		regions: slices.Clone(regions),
		byID:    make(map[int]domain.Region, len(regions)),
	}
	for _, r := range c.regions {
		if _, dup := c.byID[r.ID]; dup {
			return nil, fmt.Errorf("duplicate region id %d", r.ID)
		}
		c.byID[r.ID] = r
	}
	slices.SortStableFunc(c.regions, func(a, b domain.Region) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
	})
	return c, nil
}

func (c *Catalog) Regions() []domain.Region {
	return slices.Clone(c.regions)
}

func (c *Catalog) Lookup(id int) (domain.Region, bool) {
	r, ok := c.byID[id]
	return r, ok
}

// Len returns the number of regions.
func (c *Catalog) Len() int {
	return len(c.regions)
}

// parseCode turns a comarca code such as "01" or "13" into its numeric id.
func parseCode(raw string) (int, error) {
	s := strings.TrimSpace(raw)
	id, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid region code %q", raw)
	}
	if id <= 0 {
		return 0, fmt.Errorf("invalid region code %q: must be positive", raw)
	}
	return id, nil
}
