package dto

// ReportRequest asks for an asynchronous report export.
type ReportRequest struct {
	Type     string  `json:"type" validate:"required,oneof=agenda orphans"`
	DoctorID *string `json:"doctor_id,omitempty"`
	Date     string  `json:"date,omitempty"`
	Format   string  `json:"format" validate:"required,oneof=csv pdf"`
}
