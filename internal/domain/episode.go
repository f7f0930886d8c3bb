package domain

import (
	"fmt"
	"strings"
	"time"
)

// MeteorKind is the hazard category of an episode, e.g. "Pluja" or "Vent".
type MeteorKind struct {
	Name string `json:"nom"`
}

// ID returns a stable lowercase identifier for the hazard kind.
func (m MeteorKind) ID() string {
	return strings.ToLower(strings.TrimSpace(m.Name))
}

// AlertState is the episode status label. Since is nil when the upstream did
// not report when the status was entered.
type AlertState struct {
	Name  string     `json:"nom"`
	Since *Timestamp `json:"data,omitempty"`
}

// Affectation is one comarca-level hazard assertion inside a period.
type Affectation struct {
	Day           Timestamp `json:"dia"`
	Threshold     *string   `json:"llindar"`
	Auxiliary     bool      `json:"auxiliar"`
	DangerLevel   int       `json:"perill"`
	RegionID      int       `json:"idComarca"`
	SeverityLevel int       `json:"nivell"`
}

// Period is a named sub-interval of an evolution. It is the aggregation key.
type Period struct {
	Name         string        `json:"nom"`
	Affectations []Affectation `json:"afectacions"`
}

// Evolution is one forecast revision within an alert.
type Evolution struct {
	Day                    Timestamp `json:"dia"`
	Comment                *string   `json:"comentari,omitempty"`
	RepresentativeLevel    int       `json:"representatiu"`
	Threshold1             *string   `json:"llindar1,omitempty"`
	Threshold2             *string   `json:"llindar2,omitempty"`
	GeographicDistribution *string   `json:"distribucioGeografica,omitempty"`
	Periods                []Period  `json:"periodes"`
}

// Alert is a single hazard advisory with its validity window.
type Alert struct {
	Kind       string      `json:"tipus"`
	IssuedAt   Timestamp   `json:"dataEmisio"`
	ValidFrom  Timestamp   `json:"dataInici"`
	ValidTo    Timestamp   `json:"dataFi"`
	Evolutions []Evolution `json:"evolucions"`
}

// Episode is the top-level record returned by the source for one day.
type Episode struct {
	State  AlertState `json:"estat"`
	Meteor MeteorKind `json:"meteor"`
	Alerts []Alert    `json:"avisos"`
}

// Date is a calendar day used to query the episode source.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the calendar day of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// IsZero reports whether the date is unset.
func (d Date) IsZero() bool {
	return d == Date{}
}
