package models

import "time"

// Doctor links a user account to a specialty and, for internal doctors, to
// their fixed room. External doctors have no fixed room and are assigned a
// free external room per appointment.
type Doctor struct {
	ID           string    `db:"id" json:"id"`
	UserID       string    `db:"user_id" json:"user_id"`
	FullName     string    `db:"full_name" json:"full_name"`
	SpecialtyID  *string   `db:"specialty_id" json:"specialty_id,omitempty"`
	Type         string    `db:"type" json:"type"`
	RoomID       *string   `db:"room_id" json:"room_id,omitempty"`
	RegisteredAt time.Time `db:"registered_at" json:"registered_at"`
}

// DoctorDetail joins display names for listings.
type DoctorDetail struct {
	Doctor
	SpecialtyName *string `db:"specialty_name" json:"specialty_name,omitempty"`
	RoomNumber    *int    `db:"room_number" json:"room_number,omitempty"`
}
