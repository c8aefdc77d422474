package dto

// AvailabilityQuery asks for the first free slot for a specialty on a date.
type AvailabilityQuery struct {
	Date        string `form:"date" json:"date" validate:"required,datetime=2006-01-02"`
	SpecialtyID string `form:"specialty_id" json:"specialty_id" validate:"required"`
}

// CreateAppointmentRequest books a concrete slot. The caller supplies both
// interval ends; an end that does not match the specialty duration is
// rejected, never silently corrected.
type CreateAppointmentRequest struct {
	PatientID string `json:"patient_id" validate:"required"`
	DoctorID  string `json:"doctor_id" validate:"required"`
	RoomID    string `json:"room_id" validate:"omitempty"`
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	Start     string `json:"start" validate:"required"`
	End       string `json:"end" validate:"required"`
}

// RescheduleAppointmentRequest patches any subset of date, start, end and
// room. Omitted fields keep their current values; the result is revalidated
// as a whole.
type RescheduleAppointmentRequest struct {
	Date   *string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Start  *string `json:"start" validate:"omitempty"`
	End    *string `json:"end" validate:"omitempty"`
	RoomID *string `json:"room_id" validate:"omitempty"`
}

// RepairOrphanRequest reassigns a room to an appointment that lost its own.
type RepairOrphanRequest struct {
	RoomID string `json:"room_id" validate:"required"`
}
