package domain

// CollectAffectedRegions flattens every affectation of every period named
// periodName, walking episodes, alerts, evolutions and periods in source order.
// Duplicate region ids are kept; reducing them is the classifier's job.
// A name that does not occur yields an empty slice.
func CollectAffectedRegions(episodes []Episode, periodName string) []Affectation {
	affected := []Affectation{}
	for _, ep := range episodes {
		for _, alert := range ep.Alerts {
			for _, evol := range alert.Evolutions {
				for _, period := range evol.Periods {
					if period.Name != periodName {
						continue
					}
					affected = append(affected, period.Affectations...)
				}
			}
		}
	}
	return affected
}

// PeriodNames returns the distinct period names in first-seen order.
func PeriodNames(episodes []Episode) []string {
	names := []string{}
	seen := make(map[string]struct{})
	for _, ep := range episodes {
		for _, alert := range ep.Alerts {
			for _, evol := range alert.Evolutions {
				for _, period := range evol.Periods {
					if _, ok := seen[period.Name]; ok {
						continue
					}
					seen[period.Name] = struct{}{}
					names = append(names, period.Name)
				}
			}
		}
	}
	return names
}

// GroupByRegion buckets affectations by region id, preserving source order
// within each bucket.
func GroupByRegion(affs []Affectation) map[int][]Affectation {
	groups := make(map[int][]Affectation)
	for _, a := range affs {
		groups[a.RegionID] = append(groups[a.RegionID], a)
	}
	return groups
}
