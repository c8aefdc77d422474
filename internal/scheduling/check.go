package scheduling

import "fmt"

// Doctor and room types. A room is exclusively usable by doctors of the
// matching type; internal doctors additionally have one fixed room.
const (
	TypeInternal = "internal"
	TypeExternal = "external"
)

// Violation kinds surfaced to callers as machine-readable codes.
const (
	KindInvalidInterval     = "INVALID_INTERVAL"
	KindRoomRequired        = "ROOM_REQUIRED"
	KindDurationMismatch    = "DURATION_MISMATCH"
	KindDoctorOverlap       = "DOCTOR_OVERLAP"
	KindRoomOverlap         = "ROOM_OVERLAP"
	KindOutsideWorkingHours = "OUTSIDE_WORKING_HOURS"
	KindRoomTypeMismatch    = "ROOM_TYPE_MISMATCH"
)

// Violation describes one failed invariant on a candidate appointment.
type Violation struct {
	Field   string
	Kind    string
	Message string
}

// Candidate is a proposed appointment, new or rescheduled. RoomID is empty
// when the candidate has no room, which is itself a violation.
type Candidate struct {
	ID          string
	DoctorID    string
	RoomID      string
	SpecialtyID string
	Date        Date
	Start       ClockTime
	End         ClockTime
}

// BookedSlot is an already-persisted appointment interval the candidate is
// checked against.
type BookedSlot struct {
	ID         string
	DoctorName string
	Start      ClockTime
	End        ClockTime
}

// Window is a doctor's working-hours envelope for one weekday.
type Window struct {
	Start ClockTime
	End   ClockTime
}

// Snapshot carries every persisted fact the checker needs. The checker does
// no I/O; callers assemble the snapshot from an in-memory read (search) or
// from locked rows inside the booking transaction (commit).
type Snapshot struct {
	DoctorType      string
	DoctorRoomID    string // fixed room of an internal doctor, empty otherwise
	RoomType        string
	RoomNumber      int
	SpecialtyName   string
	DurationMinutes int
	// Workday is the schedule entry for the candidate date's weekday,
	// nil when the doctor does not attend that day.
	Workday *Window
	// DoctorBooked and RoomBooked are the same-date appointments of the
	// candidate's doctor and room. The candidate's own row, when
	// rescheduling, must already be excluded.
	DoctorBooked []BookedSlot
	RoomBooked   []BookedSlot
}

// Check validates a candidate against every booking invariant and returns
// all violations found. An empty result means the candidate may be
// committed; callers must re-run Check over a transactional snapshot before
// any write.
func Check(c Candidate, snap Snapshot) []Violation {
	var out []Violation

	if c.End <= c.Start {
		out = append(out, Violation{
			Field:   "end",
			Kind:    KindInvalidInterval,
			Message: "end time must be after start time",
		})
		return out
	}

	if c.RoomID == "" {
		out = append(out, Violation{
			Field:   "room_id",
			Kind:    KindRoomRequired,
			Message: "appointment cannot be booked without an assigned room",
		})
	}

	if got := c.End.Sub(c.Start); got != snap.DurationMinutes {
		out = append(out, Violation{
			Field: "end",
			Kind:  KindDurationMismatch,
			Message: fmt.Sprintf("wrong duration: %d min, %s requires exactly %d min",
				got, snap.SpecialtyName, snap.DurationMinutes),
		})
	}

	for _, booked := range snap.DoctorBooked {
		if booked.ID == c.ID {
			continue
		}
		if Overlaps(c.Start, c.End, booked.Start, booked.End) {
			out = append(out, Violation{
				Field: "start",
				Kind:  KindDoctorOverlap,
				Message: fmt.Sprintf("doctor already has appointment #%s from %s to %s",
					booked.ID, booked.Start, booked.End),
			})
			break
		}
	}

	if c.RoomID != "" {
		for _, booked := range snap.RoomBooked {
			if booked.ID == c.ID {
				continue
			}
			if Overlaps(c.Start, c.End, booked.Start, booked.End) {
				msg := fmt.Sprintf("room %d occupied by appointment #%s from %s to %s",
					snap.RoomNumber, booked.ID, booked.Start, booked.End)
				if booked.DoctorName != "" {
					msg = fmt.Sprintf("room %d occupied by %s from %s to %s",
						snap.RoomNumber, booked.DoctorName, booked.Start, booked.End)
				}
				out = append(out, Violation{Field: "room_id", Kind: KindRoomOverlap, Message: msg})
				break
			}
		}
	}

	if snap.Workday == nil {
		out = append(out, Violation{
			Field:   "date",
			Kind:    KindOutsideWorkingHours,
			Message: fmt.Sprintf("doctor does not attend on %s", c.Date.WeekdayName()),
		})
	} else if !(snap.Workday.Start <= c.Start && c.End <= snap.Workday.End) {
		out = append(out, Violation{
			Field: "start",
			Kind:  KindOutsideWorkingHours,
			Message: fmt.Sprintf("outside working hours (%s to %s)",
				snap.Workday.Start, snap.Workday.End),
		})
	}

	if c.RoomID != "" {
		switch snap.DoctorType {
		case TypeInternal:
			if c.RoomID != snap.DoctorRoomID {
				out = append(out, Violation{
					Field:   "room_id",
					Kind:    KindRoomTypeMismatch,
					Message: "internal doctor is restricted to their assigned room",
				})
			}
		case TypeExternal:
			if snap.RoomType != TypeExternal {
				out = append(out, Violation{
					Field:   "room_id",
					Kind:    KindRoomTypeMismatch,
					Message: "external doctor requires a room of type external",
				})
			}
		}
	}

	return out
}

// HasConflict reports whether [start, end) overlaps any booked slot.
func HasConflict(start, end ClockTime, booked []BookedSlot) bool {
	for _, b := range booked {
		if Overlaps(start, end, b.Start, b.End) {
			return true
		}
	}
	return false
}

// FirstConflict returns the earliest-known booked slot overlapping
// [start, end), used by the finder to jump the cursor past a busy stretch.
func FirstConflict(start, end ClockTime, booked []BookedSlot) (BookedSlot, bool) {
	for _, b := range booked {
		if Overlaps(start, end, b.Start, b.End) {
			return b, true
		}
	}
	return BookedSlot{}, false
}

// AlignAfter advances cursor forward in duration-sized steps until it is at
// or past the given floor. The finder uses it to skip slots already in the
// past when searching today.
func AlignAfter(cursor ClockTime, floor ClockTime, duration int) ClockTime {
	for cursor < floor {
		cursor = cursor.Add(duration)
	}
	return cursor
}
