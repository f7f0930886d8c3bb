package selection

import (
	"fmt"
	"slices"
	"time"

	"github.com/couchcryptid/meteocat-episodes-service/internal/domain"
)

// Snapshot is the classified view of the current selection, keyed by region id.
type Snapshot struct {
	DayOffset      int                           `json:"day_offset"`
	DayLabel       string                        `json:"day_label"`
	Date           string                        `json:"date,omitempty"`
	Periods        []string                      `json:"periods"`
	SelectedPeriod string                        `json:"selected_period"`
	Status         Status                        `json:"status"`
	Err            string                        `json:"error,omitempty"`
	Generation     uint64                        `json:"generation"`
	GeneratedAt    time.Time                     `json:"generated_at"`
	Regions        map[int]domain.Classification `json:"regions"`
}

// Snapshot classifies every known region for the selected period. Without a
// selected period no aggregation runs and every region is NoData.
func (s *Selector) Snapshot() Snapshot {
	s.mu.Lock()
	st := s.stateLocked()
	episodes := s.episodes
	s.mu.Unlock()

	snap := Snapshot{
		DayOffset:      st.DayOffset,
		DayLabel:       DayLabel(st.DayOffset),
		Periods:        st.AvailablePeriods,
		SelectedPeriod: st.SelectedPeriod,
		Status:         st.Status,
		Err:            st.Err,
		Generation:     st.Generation,
		GeneratedAt:    domain.Now(),
	}
	if !st.Date.IsZero() {
		snap.Date = st.Date.String()
	}

	if !st.HasPeriod() {
		snap.Regions = noData(s.known)
		return snap
	}

	affected := domain.CollectAffectedRegions(episodes, st.SelectedPeriod)
	snap.Regions = domain.ClassifyRegions(affected, s.known)
	return snap
}

// AffectedRegionIDs returns the ids of regions that are not NoData, ascending.
func (s Snapshot) AffectedRegionIDs() []int {
	ids := make([]int, 0, len(s.Regions))
	for id, c := range s.Regions {
		if !c.IsNoData() {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

// DayLabel names a day offset for UI controls.
func DayLabel(offset int) string {
	switch offset {
	case 0:
		return "today"
	case 1:
		return "tomorrow"
	default:
		return fmt.Sprintf("today+%d", offset)
	}
}

func noData(ids []int) map[int]domain.Classification {
	out := make(map[int]domain.Classification, len(ids))
	for _, id := range ids {
		out[id] = domain.NoData
	}
	return out
}
