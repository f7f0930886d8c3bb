package domain

import (
	"fmt"
	"strings"
)

// Palette maps a clamped danger level to a fill colour, lowest first.
var Palette = [...]string{"#ffffb2", "#fecc5c", "#fd8d3c", "#f03b20", "#bd0026"}

const (
	// NoDataColor fills regions without affectations in the selected period.
	NoDataColor = "#eeeeee"
	// NoDataDescription is shown for regions without affectations.
	NoDataDescription = "no warnings for this period"
	// NoDataLevel is the sentinel level of an unaffected region.
	NoDataLevel = -1
)

// Classification is the display-ready danger summary of one region.
type Classification struct {
	Level        int    `json:"level"`
	ColorIndex   int    `json:"color_index"`
	Color        string `json:"color"`
	Description  string `json:"description"`
	Affectations int    `json:"affectations"`
}

// NoData is the classification of a region with no affectations.
var NoData = Classification{
	Level:       NoDataLevel,
	ColorIndex:  NoDataLevel,
	Color:       NoDataColor,
	Description: NoDataDescription,
}

// IsNoData reports whether the region had no affectations.
func (c Classification) IsNoData() bool {
	return c.Level == NoDataLevel && c.Affectations == 0
}

// ClassifyRegion reduces one region's affectations, in aggregation order, to a
// single classification. The colour follows the first affectation; the
// description lists all of them, one per line.
func ClassifyRegion(affs []Affectation) Classification {
	if len(affs) == 0 {
		return NoData
	}

	first := affs[0]
	idx := ColorIndex(first.DangerLevel)

	lines := make([]string, 0, len(affs))
	for _, a := range affs {
		lines = append(lines, describeAffectation(a))
	}

	return Classification{
		Level:        first.DangerLevel,
		ColorIndex:   idx,
		Color:        Palette[idx],
		Description:  strings.Join(lines, "\n"),
		Affectations: len(affs),
	}
}

// ClassifyRegions classifies every region in affs plus every id in
// knownRegionIDs. Known regions without affectations get NoData.
func ClassifyRegions(affs []Affectation, knownRegionIDs []int) map[int]Classification {
	groups := GroupByRegion(affs)
	out := make(map[int]Classification, len(knownRegionIDs)+len(groups))
	for _, id := range knownRegionIDs {
		out[id] = NoData
	}
	for id, group := range groups {
		out[id] = ClassifyRegion(group)
	}
	return out
}

// ColorIndex clamps a danger level into the palette bounds.
func ColorIndex(dangerLevel int) int {
	switch {
	case dangerLevel < 0:
		return 0
	case dangerLevel >= len(Palette):
		return len(Palette) - 1
	default:
		return dangerLevel
	}
}

func describeAffectation(a Affectation) string {
	line := fmt.Sprintf("Danger: %d, Severity: %d", a.DangerLevel, a.SeverityLevel)
	if a.Threshold != nil && *a.Threshold != "" {
		line += ", Threshold: " + *a.Threshold
	}
	return line
}
