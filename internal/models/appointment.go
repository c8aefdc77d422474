package models

import (
	"time"

	"github.com/medagenda/citas-api/internal/scheduling"
)

// Appointment is one booked slot. SpecialtyID is a deliberate denormalized
// copy of the doctor's specialty at booking time: historical records keep
// their duration rule even if the doctor's specialty later changes.
// A nil RoomID marks an orphaned appointment, which is surfaced for repair
// rather than silently hidden.
type Appointment struct {
	ID          string               `db:"id" json:"id"`
	PatientID   string               `db:"patient_id" json:"patient_id"`
	DoctorID    string               `db:"doctor_id" json:"doctor_id"`
	RoomID      *string              `db:"room_id" json:"room_id,omitempty"`
	SpecialtyID string               `db:"specialty_id" json:"specialty_id"`
	Date        scheduling.Date      `db:"date" json:"date"`
	Start       scheduling.ClockTime `db:"start_time" json:"start"`
	End         scheduling.ClockTime `db:"end_time" json:"end"`
	CreatedAt   time.Time            `db:"created_at" json:"created_at"`
}

// Orphaned reports whether the appointment lost its room reference.
func (a Appointment) Orphaned() bool {
	return a.RoomID == nil || *a.RoomID == ""
}

// AppointmentDetail joins display names for board and listing payloads.
type AppointmentDetail struct {
	Appointment
	DoctorName    string  `db:"doctor_name" json:"doctor_name"`
	DoctorType    string  `db:"doctor_type" json:"doctor_type"`
	PatientName   string  `db:"patient_name" json:"patient_name"`
	SpecialtyName string  `db:"specialty_name" json:"specialty_name"`
	RoomNumber    *int    `db:"room_number" json:"room_number,omitempty"`
	RoomType      *string `db:"room_type" json:"room_type,omitempty"`
}

// Slot is an availability search result: the first valid
// (doctor, start, end, room) tuple for a date and specialty.
type Slot struct {
	DoctorID   string               `json:"doctor_id"`
	DoctorName string               `json:"doctor_name"`
	Date       scheduling.Date      `json:"date"`
	Start      scheduling.ClockTime `json:"start"`
	End        scheduling.ClockTime `json:"end"`
	RoomID     string               `json:"room_id"`
	RoomNumber int                  `json:"room_number"`
}
