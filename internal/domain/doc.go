// Package domain models SMHI meteorological observation data (metobs) and the
// rules applied to it before it is persisted.
//
// # Data Source
//
// Observations come from the SMHI open data API at
// https://opendata-download-metobs.smhi.se/api/version/1.0. Each request
// names a parameter (what is measured), a station and a period. The
// "corrected-archive" period holds quality-reviewed historical readings; the
// "latest-*" periods hold preliminary ones.
//
// # CSV Layout
//
// The data.csv endpoint is semicolon separated. The first 11 lines are station
// and parameter metadata; the data rows follow:
//
//	Datum;Tid (UTC);Lufttemperatur;Kvalitet;;Tidsutsnitt:
//	2024-01-05;06:00:00;-3.2;G;;
//
// Quality codes are G (checked and approved), Y (suspect or aggregated) and
// R (unchecked). The value column name follows the parameter; the layout does not.
//
// # Freshness
//
// A downloaded row is new when its date is strictly greater than the most
// recent stored date for the same station. The comparison ignores the time
// column, so several readings on the same day are accepted or rejected
// together. See [FilterNewer].
//
// # Municipalities
//
// Reverse geocoding returns Swedish municipality names as "Stockholms kommun"
// or "Göteborg kommun". [NormalizeMunicipality] strips both suffix forms so the
// name can be matched against the official list of 290 municipalities.
package domain
