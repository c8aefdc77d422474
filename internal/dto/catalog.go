package dto

// SpecialtyRequest creates or updates a specialty.
type SpecialtyRequest struct {
	Name            string `json:"name" validate:"required,min=2,max=120"`
	DurationMinutes int    `json:"duration_minutes" validate:"required"`
	Description     string `json:"description" validate:"omitempty,max=500"`
}

// RoomRequest creates or updates a consulting room.
type RoomRequest struct {
	Number      int    `json:"number" validate:"required,gt=0"`
	Type        string `json:"type" validate:"required,oneof=internal external"`
	Active      *bool  `json:"active" validate:"omitempty"`
	Description string `json:"description" validate:"omitempty,max=500"`
}

// DoctorRequest creates or updates a doctor profile. A doctor may carry no
// specialty, for example right after their specialty was deleted; such a
// doctor simply cannot take bookings until one is assigned.
type DoctorRequest struct {
	UserID      string  `json:"user_id" validate:"required"`
	FullName    string  `json:"full_name" validate:"required,min=2,max=150"`
	SpecialtyID *string `json:"specialty_id" validate:"omitempty"`
	Type        string  `json:"type" validate:"required,oneof=internal external"`
	RoomID      *string `json:"room_id" validate:"omitempty"`
}

// ScheduleRequest creates or updates a doctor's weekly availability window.
type ScheduleRequest struct {
	DoctorID string `json:"doctor_id" validate:"required"`
	Weekday  int    `json:"weekday" validate:"min=0,max=6"`
	Start    string `json:"start" validate:"required"`
	End      string `json:"end" validate:"required"`
}
