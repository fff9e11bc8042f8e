package domain

// FilterNewer returns the rows of batch that are newer than what is already
// stored. maxDates maps a station id to its most recent stored Date; a station
// absent from the map has nothing stored and all of its rows are kept.
//
// Only the date is compared. A row dated on the stored maximum is rejected even
// when its time is later, so a partially stored day is never completed.
func FilterNewer(batch []Observation, maxDates map[string]string) []Observation {
	out := make([]Observation, 0, len(batch))
	for _, o := range batch {
		maxDate, ok := maxDates[o.StationID]
		if !ok || maxDate == "" || o.Date > maxDate {
			out = append(out, o)
		}
	}
	return out
}
