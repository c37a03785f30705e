package domain

import (
	"time"

	"github.com/google/uuid"
)

// SlotStatus is the state of an entry in a listing's showing calendar.
type SlotStatus string

const (
	SlotAvailable SlotStatus = "available"
	SlotBooked    SlotStatus = "booked"
	SlotPending   SlotStatus = "pending"
)

// Slot is one entry in a listing's showing calendar.
type Slot struct {
	StartTime time.Time  `json:"startTime"`
	EndTime   time.Time  `json:"endTime"`
	Status    SlotStatus `json:"status"`
}

// DayWindow bounds an availability query to [Start, End).
type DayWindow struct {
	Start time.Time
	End   time.Time
}

// Listing is the property-listing record behind a property of interest.
type Listing struct {
	ID             uuid.UUID
	ListingID      string
	Address        string
	Location       Coordinate
	ListingAgentID *uuid.UUID
	IsCustom       bool
	IsAutoApprove  bool
}

// Message is one entry in a stop's message log.
type Message struct {
	ID         uuid.UUID `json:"id"`
	StopID     uuid.UUID `json:"stop_id"`
	FromUserID uuid.UUID `json:"from_user_id"`
	ToUserID   uuid.UUID `json:"to_user_id"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"created_at"`
}

// Contact is what the notifier needs to reach a user.
type Contact struct {
	UserID     uuid.UUID
	Name       string
	Email      string
	Phone      string
	PushTokens []string
}

// Email is the email part of a notification.
type Email struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Routing tells the client app where a tapped notification should land.
type Routing struct {
	Screen string            `json:"screen"`
	Params map[string]string `json:"params,omitempty"`
}

// Notification is a templated message to one user. Delivery is best-effort.
type Notification struct {
	UserID      uuid.UUID `json:"user_id"`
	PushMessage string    `json:"push_message"`
	SMSMessage  string    `json:"sms_message,omitempty"`
	Email       *Email    `json:"email,omitempty"`
	Routing     *Routing  `json:"routing,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
