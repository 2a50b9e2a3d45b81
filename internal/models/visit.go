package models

import "time"

// Visit links one office and one client at a given date.
type Visit struct {
	ID        string    `json:"id"`
	OfficeID  string    `json:"officeId"  validate:"required"`
	ClientID  string    `json:"clientId"  validate:"required"`
	VisitDate time.Time `json:"visitDate" validate:"required"`
	Purpose   string    `json:"purpose,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	Attendees []string  `json:"attendees"`
	Images    []string  `json:"images"`
	CreatedAt time.Time `json:"createdAt"`
}

// PopulatedVisit is a visit with both ends resolved.
type PopulatedVisit struct {
	Visit

	Office *Office `json:"office,omitempty"`
	Client *Client `json:"client,omitempty"`
}

// VisitEntry is one row of a detail panel's visit history. Only the
// counterpart of the detailed entity is set.
type VisitEntry struct {
	Office    *Office   `json:"office,omitempty"`
	Client    *Client   `json:"client,omitempty"`
	VisitDate time.Time `json:"visitDate"`
	Purpose   string    `json:"purpose,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	Attendees []string  `json:"attendees"`
	Images    []string  `json:"images"`
}

// OfficeDetail is the payload of GET /api/offices/{id}.
type OfficeDetail struct {
	Office Office       `json:"office"`
	Visits []VisitEntry `json:"visits"`
}

// ClientDetail is the payload of GET /api/clients/{id}.
type ClientDetail struct {
	Client Client       `json:"client"`
	Visits []VisitEntry `json:"visits"`
}

// Stats is the admin dashboard summary.
type Stats struct {
	Offices      int              `json:"offices"`
	Clients      int              `json:"clients"`
	Visits       int              `json:"visits"`
	RecentVisits []PopulatedVisit `json:"recentVisits"`
}
