package catalog

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/meteocat-episodes-service/internal/domain"
)

// LoadFile reads a catalogue from path. GeoJSON FeatureCollections (.geojson,
// .json) carry geometry; YAML lists (.yaml, .yml) carry only code and name.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalogue: %w", err)
	}

	var regions []domain.Region
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".geojson", ".json":
		regions, err = ParseGeoJSON(data)
	case ".yaml", ".yml":
		regions, err = ParseYAML(data)
	default:
		return nil, fmt.Errorf("unsupported catalogue format %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("parse catalogue %s: %w", path, err)
	}
	return New(regions)
}

type featureCollection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

type feature struct {
	Geometry   json.RawMessage   `json:"geometry"`
	Properties featureProperties `json:"properties"`
}

type featureProperties struct {
	Code regionCode `json:"code"`
	Name string     `json:"name"`
}

// regionCode accepts the code property as either a JSON string or number.
type regionCode string

func (c *regionCode) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = regionCode(s)
		return nil
	}
	if len(data) == 0 || (data[0] != '-' && (data[0] < '0' || data[0] > '9')) {
		return fmt.Errorf("region code must be a string or number, got %s", data)
	}
	*c = regionCode(data)
	return nil
}

// ParseGeoJSON extracts regions from a GeoJSON FeatureCollection.
func ParseGeoJSON(data []byte) ([]domain.Region, error) {
	var fc featureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("decode geojson: %w", err)
	}
	if fc.Type != "FeatureCollection" {
		return nil, fmt.Errorf("expected FeatureCollection, got %q", fc.Type)
	}

	regions := make([]domain.Region, 0, len(fc.Features))
	for i, f := range fc.Features {
		id, err := parseCode(string(f.Properties.Code))
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}
		r := domain.Region{ID: id, Name: f.Properties.Name}
		if len(f.Geometry) > 0 && !bytes.Equal(f.Geometry, []byte("null")) {
			r.Geometry = []byte(f.Geometry)
		}
		regions = append(regions, r)
	}
	return regions, nil
}

type yamlRegion struct {
	Code string `yaml:"code"`
	Name string `yaml:"name"`
}

// ParseYAML extracts regions from a YAML list of {code, name} entries.
func ParseYAML(data []byte) ([]domain.Region, error) {
	var entries []yamlRegion
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}

	regions := make([]domain.Region, 0, len(entries))
	for i, e := range entries {
		id, err := parseCode(e.Code)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		regions = append(regions, domain.Region{ID: id, Name: e.Name})
	}
	return regions, nil
}
