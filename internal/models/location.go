package models

import "time"

// Kind distinguishes the two location categories shown on the map.
type Kind string

const (
	KindOffice Kind = "office"
	KindClient Kind = "client"
)

// Site holds the fields shared by offices and clients.
type Site struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"                  validate:"required"`
	Address     string      `json:"address"               validate:"required"`
	City        string      `json:"city"                  validate:"required"`
	State       string      `json:"state"                 validate:"required"`
	ZipCode     string      `json:"zipCode"               validate:"required"`
	Country     string      `json:"country"               validate:"required"`
	Coordinates Coordinates `json:"coordinates"           validate:"required,len=2,coordinates"`
	Description string      `json:"description,omitempty"`
	Images      []string    `json:"images"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// Office is one of the company's own locations.
type Office struct {
	Site

	Employees   *int `json:"employees,omitempty"   validate:"omitempty,min=0"`
	Established *int `json:"established,omitempty" validate:"omitempty,min=1900,notfutureyear"`
}

// Client is a customer location.
type Client struct {
	Site

	Industry         string `json:"industry,omitempty"`
	PartnershipSince *int   `json:"partnershipSince,omitempty" validate:"omitempty,min=1900,notfutureyear"`
}

// Location is the read-only view of an office or client used by the map.
// EmployeeCount/Established are set for offices, Industry/PartnershipSince for clients.
type Location struct {
	ID               string      `json:"id"`
	Kind             Kind        `json:"kind"`
	Name             string      `json:"name"`
	City             string      `json:"city"`
	Country          string      `json:"country"`
	Coordinates      Coordinates `json:"coordinates"`
	Description      string      `json:"description,omitempty"`
	Images           []string    `json:"images"`
	Employees        *int        `json:"employees,omitempty"`
	Established      *int        `json:"established,omitempty"`
	Industry         string      `json:"industry,omitempty"`
	PartnershipSince *int        `json:"partnershipSince,omitempty"`
}

// HasEmployeeCount reports whether the location carries office staffing data.
func (l Location) HasEmployeeCount() bool {
	return l.Employees != nil
}

// HasIndustry reports whether the location carries client industry data.
func (l Location) HasIndustry() bool {
	return l.Industry != ""
}

// Location returns the map view of the office with its country normalized.
func (o Office) Location() Location {
	loc := o.Site.location(KindOffice)
	loc.Employees = o.Employees
	loc.Established = o.Established
	return loc
}

// Location returns the map view of the client with its country normalized.
func (c Client) Location() Location {
	loc := c.Site.location(KindClient)
	loc.Industry = c.Industry
	loc.PartnershipSince = c.PartnershipSince
	return loc
}

func (s Site) location(kind Kind) Location {
	images := s.Images
	if images == nil {
		images = []string{}
	}
	return Location{
		ID:          s.ID,
		Kind:        kind,
		Name:        s.Name,
		City:        s.City,
		Country:     NormalizeCountry(s.Country),
		Coordinates: s.Coordinates,
		Description: s.Description,
		Images:      images,
	}
}
