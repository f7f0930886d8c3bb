// Package domain models Meteocat open hazard episodes ("episodis oberts") and
// reduces them to a per-comarca danger classification.
//
// # Data Source
//
// Episodes come from the Meteocat SMP endpoint
// https://api.meteo.cat/pronostic/v2/smp/episodis-oberts?data=YYYY-MM-DDZ, one
// request per calendar day. The payload is a JSON array of episodes, each nested
// four levels deep:
//
//	episode (estat, meteor)
//	└── avisos[]            alert with issue and validity timestamps
//	    └── evolucions[]    forecast revision
//	        └── periodes[]  named sub-interval, e.g. "12-24h"
//	            └── afectacions[]  one comarca-level hazard assertion
//
// Any of the four collections may be null or missing. [NormalizeEpisodes] turns
// every absent collection into an empty slice right after decoding so the rest
// of the package never checks for nil.
//
// # Field Conventions
//
//	perill     danger level, nominally 0–5; used as a palette index
//	nivell     escalation tier, reported but never used for colour
//	llindar    optional human-readable threshold, may be null
//	idComarca  numeric comarca id, a weak reference into the region catalogue
//
// Timestamps arrive as "2024-01-15T10:00Z" and variants. Unparseable values
// are kept verbatim with a zero time instead of failing the whole payload.
//
// # Classification
//
// Regions can collect several affectations in one period (two alerts covering
// the same comarca). The description lists all of them in source order, but the
// colour comes from the first one: first match wins, not max severity. The
// danger level is clamped into the five-entry palette:
//
//	0 #ffffb2 | 1 #fecc5c | 2 #fd8d3c | 3 #f03b20 | 4+ #bd0026
//
// Regions without affectations get [NoData].
package domain
