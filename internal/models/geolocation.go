package models

// Geolocation is the state-level result of an IP lookup against the upstream
// geolocation services. County data is rarely available from IP lookups but
// is carried when present.
type Geolocation struct {
	State      string `json:"state"`
	StateFips  string `json:"stateFips"`
	County     string `json:"county,omitempty"`
	CountyFips string `json:"countyFips,omitempty"`
}
