// Package catalog defines the Beaver domain: architecture components, their
// deployed instances, the environments/teams/categories they reference, and
// architecture decision records (ADRs) with their participants.
//
// The package also carries the two rule families that guard writes:
// participant validation for ADRs and (component, environment) uniqueness for
// instances, plus the legacy enum lookups kept for older clients.
package catalog

import (
	"strings"
	"time"

	"github.com/archbeaver/beaver/errors"
)

// ComponentStatus is the lifecycle state of a component
type ComponentStatus string

const (
	ComponentActive     ComponentStatus = "active"
	ComponentInactive   ComponentStatus = "inactive"
	ComponentDeprecated ComponentStatus = "deprecated"
)

// ADRStatus is the state of an architecture decision record
type ADRStatus string

const (
	ADRDraft      ADRStatus = "draft"
	ADRAccepted   ADRStatus = "accepted"
	ADRSuperseded ADRStatus = "superseded"
	ADRRejected   ADRStatus = "rejected"
)

// ParticipantRole is the part a user plays on an ADR
type ParticipantRole string

const (
	RoleOwner       ParticipantRole = "owner"
	RoleReviewer    ParticipantRole = "reviewer"
	RoleContributor ParticipantRole = "contributor"
)

var (
	componentStatuses = []ComponentStatus{ComponentActive, ComponentInactive, ComponentDeprecated}
	adrStatuses       = []ADRStatus{ADRDraft, ADRAccepted, ADRSuperseded, ADRRejected}
	participantRoles  = []ParticipantRole{RoleOwner, RoleReviewer, RoleContributor}
)

// ParseComponentStatus accepts any casing ("ACTIVE", "active")
func ParseComponentStatus(s string) (ComponentStatus, error) {
	for _, st := range componentStatuses {
		if strings.EqualFold(s, string(st)) {
			return st, nil
		}
	}
	return "", errors.NewValidationError("invalid component status: %s", s)
}

// ParseADRStatus accepts any casing ("DRAFT", "draft")
func ParseADRStatus(s string) (ADRStatus, error) {
	for _, st := range adrStatuses {
		if strings.EqualFold(s, string(st)) {
			return st, nil
		}
	}
	return "", errors.NewValidationError("invalid ADR status: %s", s)
}

// ParseParticipantRole accepts any casing ("OWNER", "owner")
func ParseParticipantRole(s string) (ParticipantRole, error) {
	for _, r := range participantRoles {
		if strings.EqualFold(s, string(r)) {
			return r, nil
		}
	}
	return "", errors.NewValidationError("invalid participant role: %s", s)
}

// Environment is a deployment target (development, homologation, production, ...)
type Environment struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Team owns components
type Team struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Category groups components
type Category struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// RoadmapType classifies roadmap items
type RoadmapType struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Color       string    `json:"color"`
	CreatedAt   time.Time `json:"createdAt"`
}

// User participates in ADRs
type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// Component is a catalogued piece of software
type Component struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Status      ComponentStatus `json:"status"`
	CategoryID  *int64          `json:"categoryId"`
	TeamID      *int64          `json:"teamId"`
	Tags        []string        `json:"tags"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// Instance is a deployment of a component into one environment
type Instance struct {
	ID            int64                  `json:"id"`
	ComponentID   int64                  `json:"componentId"`
	EnvironmentID int64                  `json:"environmentId"`
	Hostname      string                 `json:"hostname"`
	Specs         map[string]interface{} `json:"specs"`
	CreatedAt     time.Time              `json:"createdAt"`
	UpdatedAt     time.Time              `json:"updatedAt"`
}

// Participant is a user attached to an ADR in a role
type Participant struct {
	UserID int64           `json:"userId"`
	Role   ParticipantRole `json:"role"`
}

// ADR is an architecture decision record
type ADR struct {
	ID           int64         `json:"id"`
	Title        string        `json:"title"`
	Description  string        `json:"description"`
	Status       ADRStatus     `json:"status"`
	Tags         []string      `json:"tags"`
	Participants []Participant `json:"participants"`
	ComponentIDs []int64       `json:"componentIds"`
	InstanceIDs  []int64       `json:"instanceIds"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

// EnvironmentCount is the number of instances a component has in one environment
type EnvironmentCount struct {
	EnvironmentID   int64  `json:"environmentId"`
	EnvironmentName string `json:"environmentName"`
	Count           int    `json:"count"`
}
