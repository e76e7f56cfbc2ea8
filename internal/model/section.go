package model

// SongSection is a labeled time interval describing part of a song's musical
// structure, produced in bulk by one structure-analysis call.
type SongSection struct {
	Type      SectionType `json:"type"`
	Label     string      `json:"label"`
	StartTime float64     `json:"startTime"`
	EndTime   float64     `json:"endTime"`
	Duration  float64     `json:"duration"`
}

// WellFormed reports whether the interval is usable: non-negative start and
// a positive span. Coverage of [0, songDuration] and non-overlap are NOT
// enforced; providers are trusted to be roughly sane here.
func (s SongSection) WellFormed() bool {
	return s.StartTime >= 0 && s.EndTime > s.StartTime
}

// FilterRecordable returns only the verse/chorus sections, preserving order.
// The guided re-recording flow prompts section-by-section over this subset.
func FilterRecordable(sections []SongSection) []SongSection {
	var out []SongSection
	for _, s := range sections {
		if s.Type.Recordable() {
			out = append(out, s)
		}
	}
	return out
}
