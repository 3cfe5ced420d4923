package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// EventStatus is the lifecycle state of a relief event
type EventStatus string

const (
	EventStatusPlanned EventStatus = "planned"
	EventStatusActive  EventStatus = "active"
	EventStatusClosed  EventStatus = "closed"
)

// RequestStatus is the handling state of an aid request
type RequestStatus string

const (
	RequestStatusNew        RequestStatus = "new"
	RequestStatusAssigned   RequestStatus = "assigned"
	RequestStatusInProgress RequestStatus = "in_progress"
	RequestStatusCompleted  RequestStatus = "completed"
)

// Category is the kind of aid requested
type Category string

const (
	CategoryWater     Category = "water"
	CategoryFood      Category = "food"
	CategoryMedical   Category = "medical"
	CategoryShelter   Category = "shelter"
	CategoryTransport Category = "transport"
	CategoryOther     Category = "other"
)

// Urgency ranks how quickly a request needs attention
type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

// Event is a disaster-response operation grouping aid requests
type Event struct {
	ID        string      `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name      string      `gorm:"not null" json:"name"`
	Region    string      `gorm:"not null" json:"region"`
	Status    EventStatus `gorm:"type:varchar(16);not null;default:planned" json:"status"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
	Requests  []Request   `gorm:"foreignKey:EventID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// Request is a single aid need tied to one event
type Request struct {
	ID           string        `gorm:"type:varchar(36);primaryKey" json:"id"`
	EventID      string        `gorm:"type:varchar(36);not null;index:idx_requests_event_updated,priority:1" json:"event_id"`
	Category     Category      `gorm:"type:varchar(16);not null" json:"category"`
	Urgency      Urgency       `gorm:"type:varchar(16);not null" json:"urgency"`
	Location     string        `gorm:"not null" json:"location"`
	Description  string        `gorm:"not null" json:"description"`
	Status       RequestStatus `gorm:"type:varchar(16);not null;default:new" json:"status"`
	AssigneeName *string       `json:"assignee_name"`
	AssigneeTeam *string       `json:"assignee_team"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `gorm:"index:idx_requests_event_updated,priority:2" json:"updated_at"`
}

// SeedLock is a named row used to serialize seed routines across processes
type SeedLock struct {
	Name     string    `gorm:"type:varchar(64);primaryKey"`
	LockedAt time.Time `gorm:"not null"`
}

// BeforeCreate assigns an id to new events
func (e *Event) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}

// BeforeCreate assigns an id to new requests
func (r *Request) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// Valid reports whether s is a known event status
func (s EventStatus) Valid() bool {
	switch s {
	case EventStatusPlanned, EventStatusActive, EventStatusClosed:
		return true
	}
	return false
}

// Valid reports whether s is a known request status
func (s RequestStatus) Valid() bool {
	switch s {
	case RequestStatusNew, RequestStatusAssigned, RequestStatusInProgress, RequestStatusCompleted:
		return true
	}
	return false
}

// Valid reports whether c is a known category
func (c Category) Valid() bool {
	switch c {
	case CategoryWater, CategoryFood, CategoryMedical, CategoryShelter, CategoryTransport, CategoryOther:
		return true
	}
	return false
}

// Valid reports whether u is a known urgency
func (u Urgency) Valid() bool {
	switch u {
	case UrgencyLow, UrgencyMedium, UrgencyHigh:
		return true
	}
	return false
}

// SetupModels runs migrations for all models
func SetupModels(db *gorm.DB) error {
	err := db.AutoMigrate(
		&Event{},
		&Request{},
		&SeedLock{},
	)
	if err != nil {
		return errors.Wrap(err, "failed to run auto migrations")
	}

	return nil
}
