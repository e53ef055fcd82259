// pkg/core/observation.go
package core

import "time"

// Taxon is the optional species classification attached to an observation.
type Taxon struct {
	CommonName     string `json:"commonName"`
	ScientificName string `json:"scientificName"`
	IconicGroup    string `json:"iconicGroup"`
}

// UnknownSpecies is displayed when an observation carries no taxon labels.
const UnknownSpecies = "Unknown species"

// Label returns the best available display name for the taxon.
func (t Taxon) Label() string {
	if t.CommonName != "" {
		return t.CommonName
	}
	if t.ScientificName != "" {
		return t.ScientificName
	}
	if t.IconicGroup != "" {
		return t.IconicGroup
	}
	return UnknownSpecies
}

// HasLabel reports whether any taxonomic label is present.
func (t Taxon) HasLabel() bool {
	return t.CommonName != "" || t.ScientificName != "" || t.IconicGroup != ""
}

// Observation is a single wildlife sighting fetched from the remote
// biodiversity API. It is immutable once constructed.
type Observation struct {
	ID         int64      `json:"id"`
	Coordinate Coordinate `json:"coordinate"`

	// ObservedOn and SubmittedAt are kept as raw strings; parsing is
	// on demand and failure degrades to unknown rather than erroring.
	ObservedOn  string `json:"observedOn"`
	SubmittedAt string `json:"submittedAt"`

	PhotoURLs []string `json:"photoUrls"`
	Taxon     Taxon    `json:"taxon"`
	Submitter string   `json:"submitter"`
}

// timestampLayouts are tried in order when parsing observation timestamps.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseTimestamp attempts each known layout. The bool is false when no
// layout matches, which callers render as "unknown".
func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ObservedAt parses the capture timestamp. ok is false when the raw
// value is empty or unparseable.
func (o Observation) ObservedAt() (t time.Time, ok bool) {
	return parseTimestamp(o.ObservedOn)
}

// SubmittedTime parses the submission timestamp. ok is false when the
// raw value is empty or unparseable.
func (o Observation) SubmittedTime() (t time.Time, ok bool) {
	return parseTimestamp(o.SubmittedAt)
}

// HasPhoto reports whether the observation carries at least one photo URL.
func (o Observation) HasPhoto() bool {
	return len(o.PhotoURLs) > 0
}

// DisplayName returns the species label shown on the info surface.
func (o Observation) DisplayName() string {
	return o.Taxon.Label()
}

// Spawnable reports whether the observation is eligible for spawning:
// it must have a plausible coordinate and at least one taxonomic label.
// Batch-level id dedup is the fetcher's responsibility.
func (o Observation) Spawnable() bool {
	if !o.Taxon.HasLabel() {
		return false
	}
	c := o.Coordinate
	if c.Lat < -90 || c.Lat > 90 || c.Lng < -180 || c.Lng > 180 {
		return false
	}
	// (0,0) is the null island sentinel the API uses for obscured records
	if c.Lat == 0 && c.Lng == 0 {
		return false
	}
	return true
}
