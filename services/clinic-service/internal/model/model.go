package model

import "time"

// Slot statuses. A slot is the atomic bookable unit of doctor+service
// availability at a specific start time and duration.
const (
	SlotAvailable   = "AVAILABLE"
	SlotBooked      = "BOOKED"
	SlotUnavailable = "UNAVAILABLE"
)

// Catalog service statuses.
const (
	ServiceAvailable   = "AVAILABLE"
	ServiceUnavailable = "UNAVAILABLE"
)

// Payment statuses.
const (
	PaymentPending  = "PENDING"
	PaymentPaid     = "PAID"
	PaymentRefunded = "REFUNDED"
	PaymentFailed   = "FAILED"
)

// User roles.
const (
	RolePatient = "patient"
	RoleDoctor  = "doctor"
	RoleAdmin   = "admin"
)

func ValidSlotStatus(s string) bool {
	return s == SlotAvailable || s == SlotBooked || s == SlotUnavailable
}

type User struct {
	ID           string
	Email        string
	PasswordHash string
	Role         string
	Name         string
	Phone        string
	CreatedAt    time.Time
}

type Doctor struct {
	ID        string
	UserID    string
	Name      string
	Specialty string
	Bio       string
	CreatedAt time.Time
}

type CatalogService struct {
	ID          string
	Name        string
	Description string
	Price       string
	Status      string
	CreatedAt   time.Time
}

type Slot struct {
	ID           string
	DoctorID     string
	ServiceID    string
	StartAt      time.Time
	DurationMins int
	Status       string
	CreatedAt    time.Time
}

// EndAt is the exclusive end of the slot's half-open interval.
func (s Slot) EndAt() time.Time {
	return s.StartAt.Add(time.Duration(s.DurationMins) * time.Minute)
}

type Appointment struct {
	ID           string
	SlotID       string
	PatientID    string
	PatientName  string
	PatientPhone string
	CancelledBy  string
	CancelledAt  *time.Time
	CancelReason string
	CreatedAt    time.Time
}

func (a Appointment) Cancelled() bool {
	return a.CancelledAt != nil
}

type Payment struct {
	ID            string
	AppointmentID string
	Amount        string
	Status        string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Promotion struct {
	ID         string
	ServiceID  string
	Title      string
	PercentOff int
	StartsAt   time.Time
	EndsAt     time.Time
	CreatedAt  time.Time
}

type Feedback struct {
	ID        string
	PatientID string
	DoctorID  string
	Rating    int
	Comment   string
	CreatedAt time.Time
}

// SlotDetail is one slot row inside a ScheduleView.
type SlotDetail struct {
	SlotID       string `json:"slot_id"`
	Time         string `json:"time"`
	DurationMins int    `json:"duration_minutes"`
	Status       string `json:"status"`
}

// ScheduleView is the day-level read model grouping slots that share
// doctor, service, and calendar date. It is never persisted.
type ScheduleView struct {
	ServiceID   string       `json:"service_id"`
	ServiceName string       `json:"service_name,omitempty"`
	DoctorID    string       `json:"doctor_id"`
	DoctorName  string       `json:"doctor_name,omitempty"`
	Date        string       `json:"date"`
	Slots       []SlotDetail `json:"slots"`
}
