package entity

import "time"

// Event is a row in the events table. UserID is the organizer.
type Event struct {
	ID          string    `db:"id" json:"id"`
	UserID      string    `db:"user_id" json:"userId"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	StartDate   time.Time `db:"start_date" json:"startDate"`
	EndDate     time.Time `db:"end_date" json:"endDate"`
	Location    string    `db:"location" json:"location"`
	Image       string    `db:"image" json:"image"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

// Participation links a user to an event.
type Participation struct {
	ID        string    `db:"id" json:"id"`
	EventID   string    `db:"event_id" json:"eventId"`
	UserID    string    `db:"user_id" json:"userId"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// Fields are the caller-supplied attributes of a new event.
type Fields struct {
	Name        string
	Description string
	StartDate   time.Time
	EndDate     time.Time
	Location    string
}

// Patch is a sparse update: nil fields are left untouched.
type Patch struct {
	Name        *string
	Description *string
	StartDate   *time.Time
	EndDate     *time.Time
	Location    *string
	Image       *string
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Name == nil && p.Description == nil && p.StartDate == nil &&
		p.EndDate == nil && p.Location == nil && p.Image == nil
}

// Query selects events. Zero values mean "all owners", "no limit", oldest first.
type Query struct {
	OwnerID     string
	Limit       uint
	NewestFirst bool
}
