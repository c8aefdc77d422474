package models

import "github.com/medagenda/citas-api/internal/scheduling"

// WeeklySchedule is a doctor's recurring availability window for one
// weekday (0=Monday .. 6=Sunday). At most one entry per (doctor, weekday).
type WeeklySchedule struct {
	ID       string               `db:"id" json:"id"`
	DoctorID string               `db:"doctor_id" json:"doctor_id"`
	Weekday  int                  `db:"weekday" json:"weekday"`
	Start    scheduling.ClockTime `db:"start_time" json:"start"`
	End      scheduling.ClockTime `db:"end_time" json:"end"`
}

// WeeklyScheduleDetail joins the doctor's display name for board payloads.
type WeeklyScheduleDetail struct {
	WeeklySchedule
	DoctorName string `db:"doctor_name" json:"doctor_name"`
}

// WeekdayNames maps schedule weekday numbers to English day names.
var WeekdayNames = [7]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}
