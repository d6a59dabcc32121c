package entity

import "time"

// View is an event joined to its organizer. UserName and UserImage are
// absent (nil) when the organizer does not resolve.
type View struct {
	IDEvent     string    `json:"idEvent"`
	UserName    *string   `json:"userName,omitempty"`
	UserImage   *string   `json:"userImage,omitempty"`
	EventName   string    `json:"eventName"`
	Description string    `json:"description"`
	EventImage  string    `json:"eventImage"`
	StartDate   time.Time `json:"startDate"`
	EndDate     time.Time `json:"endDate"`
	Location    string    `json:"location"`
}

// DetailView is a View plus every participant of the event.
type DetailView struct {
	View
	Participants []Participant `json:"participants"`
}

// Participant is a participation joined to the participant's profile.
// Username and Image are "" when the profile does not resolve.
type Participant struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Image    string `json:"image"`
}

// Summary is the participant-count projection of an event.
type Summary struct {
	IDEvent        string `json:"idEvent"`
	EventName      string `json:"eventName"`
	NbParticipants int    `json:"nbParticipants"`
}
