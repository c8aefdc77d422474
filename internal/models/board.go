package models

import "github.com/medagenda/citas-api/internal/scheduling"

// RoomLane is one room column of the scheduler board with its day's
// appointments.
type RoomLane struct {
	Room         Room                `json:"room"`
	Appointments []AppointmentDetail `json:"appointments"`
}

// SchedulerBoard is the read-model behind the visual scheduling board for
// one date: every room lane, the doctor schedules for that weekday, and any
// orphaned appointments needing repair.
type SchedulerBoard struct {
	Date            scheduling.Date        `json:"date"`
	Rooms           []RoomLane             `json:"rooms"`
	DoctorSchedules []WeeklyScheduleDetail `json:"doctor_schedules"`
	Orphans         []AppointmentDetail    `json:"orphans"`
}
