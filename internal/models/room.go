package models

// Room is a physical consulting room. Internal rooms are fixed assignments
// of internal doctors; external rooms are allocated per appointment.
type Room struct {
	ID          string `db:"id" json:"id"`
	Number      int    `db:"number" json:"number"`
	Type        string `db:"type" json:"type"`
	Active      bool   `db:"active" json:"active"`
	Description string `db:"description" json:"description,omitempty"`
}
