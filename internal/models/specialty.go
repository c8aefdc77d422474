package models

// Specialty is a medical practice area with a fixed appointment duration.
// The duration governs slot sizing for every appointment of the specialty.
type Specialty struct {
	ID              string `db:"id" json:"id"`
	Name            string `db:"name" json:"name"`
	DurationMinutes int    `db:"duration_minutes" json:"duration_minutes"`
	Description     string `db:"description" json:"description,omitempty"`
}

// AllowedDurations enumerates the valid specialty appointment durations.
var AllowedDurations = []int{15, 30}

// ValidDuration reports whether minutes is an allowed specialty duration.
func ValidDuration(minutes int) bool {
	for _, d := range AllowedDurations {
		if d == minutes {
			return true
		}
	}
	return false
}
