package domain

import "time"

// Station is a fixed observation point from the station registry.
type Station struct {
	ID           string    `json:"key"`
	Name         string    `json:"name"`
	Active       bool      `json:"active"`
	From         time.Time `json:"from"`
	To           time.Time `json:"to"`
	Lat          float64   `json:"latitude"`
	Lon          float64   `json:"longitude"`
	Municipality string    `json:"municipality,omitempty"` // empty until geocoded
}

// HasCoordinates reports whether the station carries a usable position.
func (s Station) HasCoordinates() bool {
	return s.Lat != 0 || s.Lon != 0
}

// Observation is one downloaded reading tagged with its station's metadata.
// Date and TimeUTC are kept as the API prints them (YYYY-MM-DD, HH:MM:SS) so
// stored values compare lexically.
type Observation struct {
	StationID           string  `json:"station_id"`
	StationActive       bool    `json:"station_active"`
	StationMunicipality string  `json:"station_municipality,omitempty"`
	Date                string  `json:"date"`
	TimeUTC             string  `json:"time_utc"`
	Value               float64 `json:"value"`
	Quality             string  `json:"quality"`
	Resolution          string  `json:"resolution,omitempty"`
}

// Key identifies an observation within the persisted table.
func (o Observation) Key() string {
	return o.StationID + "|" + o.Date + "|" + o.TimeUTC
}

// TagStation copies station metadata onto every observation in rows.
func TagStation(rows []Observation, s Station) []Observation {
	for i := range rows {
		rows[i].StationID = s.ID
		rows[i].StationActive = s.Active
		rows[i].StationMunicipality = s.Municipality
	}
	return rows
}
