package models

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/techagentng/wastewatch/geo"
)

// Status is a report's position in the resolution lifecycle.
type Status string

const (
	StatusPending    Status = "Pending"
	StatusInProgress Status = "InProgress"
	StatusResolved   Status = "Resolved"
)

// ParseStatus accepts the canonical names and the legacy "In Progress" spelling.
func ParseStatus(s string) (Status, error) {
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "") {
	case "pending":
		return StatusPending, nil
	case "inprogress":
		return StatusInProgress, nil
	case "resolved":
		return StatusResolved, nil
	}
	return "", fmt.Errorf("unknown status %q", s)
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusResolved:
		return true
	}
	return false
}

// Next returns the single legal successor. Resolved has none.
func (s Status) Next() (Status, bool) {
	switch s {
	case StatusPending:
		return StatusInProgress, true
	case StatusInProgress:
		return StatusResolved, true
	}
	return "", false
}

func (s Status) Terminal() bool {
	return s == StatusResolved
}

// Requestable reports whether s may be asked for in a transition request.
func (s Status) Requestable() bool {
	return s == StatusInProgress || s == StatusResolved
}

// Category is the waste type of a report.
type Category string

const (
	CategoryOrganic   Category = "Organic"
	CategoryInorganic Category = "Inorganic"
	CategoryMixed     Category = "Mixed"
)

var Categories = []Category{CategoryOrganic, CategoryInorganic, CategoryMixed}

func ParseCategory(s string) (Category, error) {
	for _, c := range Categories {
		if strings.EqualFold(strings.TrimSpace(s), string(c)) {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// Report is a single waste incident filed by a citizen.
type Report struct {
	Model
	ReportedBy  uuid.UUID `json:"reportedBy" gorm:"type:uuid;not null;index"`
	AssignedTo  uuid.UUID `json:"assignedTo" gorm:"type:uuid;not null;index"`
	Longitude   float64   `json:"longitude" gorm:"not null"`
	Latitude    float64   `json:"latitude" gorm:"not null"`
	Address     string    `json:"address" gorm:"not null"`
	Category    Category  `json:"category" gorm:"type:varchar(16);not null;index"`
	Description string    `json:"description" gorm:"type:varchar(1000);not null"`
	ImageURL    string    `json:"imageUrl" gorm:"not null"`
	Status      Status    `json:"status" gorm:"type:varchar(16);not null;default:Pending;index"`
}

// Location is the submitted coordinate as [longitude, latitude] plus an address.
type Location struct {
	Coordinates []float64 `json:"coordinates" binding:"required,len=2"`
	Address     string    `json:"address" binding:"required" conform:"trim"`
}

type CreateReportRequest struct {
	Location    Location `json:"location" binding:"required"`
	Category    string   `json:"category" binding:"required,oneof=Organic Inorganic Mixed" conform:"trim"`
	Description string   `json:"description" binding:"required,min=10" conform:"trim"`
	ImageURL    string   `json:"imageUrl" binding:"required,url" conform:"trim"`
}

// Point returns the request coordinate. Callers must check Coordinates has two entries.
func (r *CreateReportRequest) Point() geo.Point {
	return geo.NewPoint(r.Location.Coordinates[0], r.Location.Coordinates[1])
}

type CreateReportResult struct {
	Message  string  `json:"message"`
	Report   *Report `json:"report"`
	Distance float64 `json:"distance"`
}

type TransitionRequest struct {
	Status string `json:"status" binding:"required" conform:"trim"`
}

type TransitionResult struct {
	Message string  `json:"message"`
	Report  *Report `json:"report"`
}

// ReportScope restricts a listing to the reports a principal may see.
type ReportScope struct {
	ReportedBy *uuid.UUID
	AssignedTo *uuid.UUID
}

// ReportQuery is the filter and ordering of a report listing.
type ReportQuery struct {
	Status    Status
	Category  Category
	Ascending bool
}

// ParseReportQuery reads list parameters; "All" or empty disables a filter and
// "asc" or "1" sorts oldest first.
func ParseReportQuery(status, category, sort string) (ReportQuery, error) {
	var q ReportQuery
	if status != "" && !strings.EqualFold(status, "all") {
		s, err := ParseStatus(status)
		if err != nil {
			return q, err
		}
		q.Status = s
	}
	if category != "" && !strings.EqualFold(category, "all") {
		c, err := ParseCategory(category)
		if err != nil {
			return q, err
		}
		q.Category = c
	}
	switch strings.ToLower(sort) {
	case "asc", "1", "oldest":
		q.Ascending = true
	}
	return q, nil
}
