package domain

// NormalizeEpisodes returns a deep copy of episodes in which every absent
// collection (alerts, evolutions, periods, affectations) is an empty slice.
// It is applied once at the source boundary; the input is left untouched.
func NormalizeEpisodes(episodes []Episode) []Episode {
	out := make([]Episode, len(episodes))
	for i, ep := range episodes {
		ep.Alerts = normalizeAlerts(ep.Alerts)
		out[i] = ep
	}
	return out
}

func normalizeAlerts(alerts []Alert) []Alert {
	out := make([]Alert, len(alerts))
	for i, a := range alerts {
		a.Evolutions = normalizeEvolutions(a.Evolutions)
		out[i] = a
	}
	return out
}

func normalizeEvolutions(evolutions []Evolution) []Evolution {
	out := make([]Evolution, len(evolutions))
	for i, ev := range evolutions {
		ev.Periods = normalizePeriods(ev.Periods)
		out[i] = ev
	}
	return out
}

func normalizePeriods(periods []Period) []Period {
	out := make([]Period, len(periods))
	for i, p := range periods {
		affs := make([]Affectation, len(p.Affectations))
		copy(affs, p.Affectations)
		p.Affectations = affs
		out[i] = p
	}
	return out
}
