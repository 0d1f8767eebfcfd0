package models

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/lib/pq"
	"github.com/techagentng/wastewatch/geo"
)

// Citizen is the reporting party. Profile fields live with the identity
// service; this table holds the counters and balances the engine mutates.
type Citizen struct {
	Model
	Name                string         `json:"name"`
	Email               string         `json:"email" gorm:"uniqueIndex"`
	SubmissionCount     int            `json:"submissionCount" gorm:"not null;default:0"`
	SubmissionLimit     int            `json:"submissionLimit" gorm:"not null;default:5"`
	RewardBalance       int            `json:"rewardBalance" gorm:"not null;default:0"`
	RewardPerResolution int            `json:"rewardPerResolution" gorm:"not null;default:10"`
	ReportIDs           pq.StringArray `json:"reportIds" gorm:"type:text[]"`
}

// CanSubmit reports whether another submission fits under the daily cap.
func (c *Citizen) CanSubmit() bool {
	return c.SubmissionCount < c.SubmissionLimit
}

// ApprovalStatus gates whether an authority may receive assignments.
type ApprovalStatus string

const (
	ApprovalPending   ApprovalStatus = "pending"
	ApprovalApproved  ApprovalStatus = "approved"
	ApprovalRejected  ApprovalStatus = "rejected"
	ApprovalSuspended ApprovalStatus = "suspended"
)

func ParseApprovalStatus(s string) (ApprovalStatus, error) {
	a := ApprovalStatus(strings.ToLower(strings.TrimSpace(s)))
	switch a {
	case ApprovalPending, ApprovalApproved, ApprovalRejected, ApprovalSuspended:
		return a, nil
	}
	return "", fmt.Errorf("unknown approval status %q", s)
}

// Authority is a municipal responder anchored at a single point.
type Authority struct {
	Model
	Name           string         `json:"name" gorm:"not null"`
	Email          string         `json:"email" gorm:"uniqueIndex;not null"`
	Longitude      float64        `json:"longitude" gorm:"not null"`
	Latitude       float64        `json:"latitude" gorm:"not null"`
	Address        string         `json:"address"`
	ApprovalStatus ApprovalStatus `json:"approvalStatus" gorm:"type:varchar(16);not null;default:pending;index"`
	ReportIDs      pq.StringArray `json:"reportIds" gorm:"type:text[]"`
}

func (a *Authority) Point() geo.Point {
	return geo.NewPoint(a.Longitude, a.Latitude)
}

func (a *Authority) Eligible() bool {
	return a.ApprovalStatus == ApprovalApproved
}

type AuthorityRegistrationRequest struct {
	Name     string    `json:"name" binding:"required,min=2" conform:"trim"`
	Email    string    `json:"email" binding:"required,email" conform:"trim,lower"`
	Location []float64 `json:"coordinates" binding:"required,len=2"`
	Address  string    `json:"address" binding:"required" conform:"trim"`
}

func (r *AuthorityRegistrationRequest) Point() geo.Point {
	return geo.NewPoint(r.Location[0], r.Location[1])
}

const (
	DefaultAuthorityRadius   = 10000.0
	DefaultAuthorityPageSize = 10
	MaxAuthorityPageSize     = 100
)

var (
	ErrPartialCoordinates = errors.New("Both latitude and longitude must be provided together.")
	ErrInvalidCoordinates = errors.New("Invalid latitude or longitude.")
)

// AuthorityQuery filters the authority directory. When Near is set only
// authorities within Radius meters of it are returned, closest first.
type AuthorityQuery struct {
	Status ApprovalStatus
	City   string
	Near   *geo.Point
	Radius float64
	Page   int
	Limit  int
}

func (q AuthorityQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}

// ParseAuthorityQuery reads directory list parameters. Status "all" or empty
// disables the status filter; page and limit fall back to 1 and 10.
func ParseAuthorityQuery(status, city, lat, lon, radius, page, limit string) (AuthorityQuery, error) {
	q := AuthorityQuery{
		City:   strings.TrimSpace(city),
		Radius: DefaultAuthorityRadius,
		Page:   1,
		Limit:  DefaultAuthorityPageSize,
	}
	if status != "" && !strings.EqualFold(status, "all") {
		a, err := ParseApprovalStatus(status)
		if err != nil {
			return q, err
		}
		q.Status = a
	}

	if (lat == "") != (lon == "") {
		return q, ErrPartialCoordinates
	}
	if lat != "" {
		latitude, err := strconv.ParseFloat(lat, 64)
		if err != nil {
			return q, ErrInvalidCoordinates
		}
		longitude, err := strconv.ParseFloat(lon, 64)
		if err != nil {
			return q, ErrInvalidCoordinates
		}
		p := geo.NewPoint(longitude, latitude)
		if err := p.Validate(); err != nil {
			return q, ErrInvalidCoordinates
		}
		q.Near = &p
	}
	if radius != "" {
		r, err := strconv.ParseFloat(radius, 64)
		if err != nil || r <= 0 || math.IsInf(r, 0) || math.IsNaN(r) {
			return q, fmt.Errorf("invalid radius %q", radius)
		}
		q.Radius = r
	}

	if n, err := strconv.Atoi(page); err == nil && n > 0 {
		q.Page = n
	}
	if n, err := strconv.Atoi(limit); err == nil && n > 0 {
		q.Limit = min(n, MaxAuthorityPageSize)
	}
	return q, nil
}

// AuthorityListing is a directory entry. Distance is set only for queries
// around a point.
type AuthorityListing struct {
	Authority
	Distance *float64 `json:"distance,omitempty"`
}

type AuthorityPage struct {
	Total       int64              `json:"total"`
	Page        int                `json:"page"`
	Limit       int                `json:"limit"`
	Authorities []AuthorityListing `json:"authorities"`
}
