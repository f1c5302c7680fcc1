package catalog

import (
	"strings"

	"github.com/archbeaver/beaver/errors"
)

// NamedInput creates an environment, team or category
type NamedInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Validate requires a non-blank name
func (in NamedInput) Validate(kind string) error {
	if strings.TrimSpace(in.Name) == "" {
		return errors.NewValidationError("%s name is required", kind)
	}
	return nil
}

// UserInput creates a user
type UserInput struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Validate requires a name and an email address
func (in UserInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return errors.NewValidationError("user name is required")
	}
	if !strings.Contains(in.Email, "@") {
		return errors.NewValidationError("invalid email: %s", in.Email)
	}
	return nil
}

// ComponentInput creates a component. Status defaults to active.
type ComponentInput struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Status      ComponentStatus `json:"status"`
	CategoryID  *int64          `json:"categoryId"`
	TeamID      *int64          `json:"teamId"`
	Tags        []string        `json:"tags"`
}

// Validate requires a name and normalizes status and tags
func (in *ComponentInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return errors.NewValidationError("component name is required")
	}
	if in.Status == "" {
		in.Status = ComponentActive
	}
	st, err := ParseComponentStatus(string(in.Status))
	if err != nil {
		return err
	}
	in.Status = st
	in.Tags = NormalizeTags(in.Tags)
	return nil
}

// ComponentUpdate changes the non-nil fields of a component
type ComponentUpdate struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Status      *ComponentStatus `json:"status"`
	CategoryID  *int64           `json:"categoryId"`
	TeamID      *int64           `json:"teamId"`
	Tags        []string         `json:"tags"`
}

// Apply writes the update onto c after validating it
func (u ComponentUpdate) Apply(c *Component) error {
	if u.Name != nil {
		if strings.TrimSpace(*u.Name) == "" {
			return errors.NewValidationError("component name is required")
		}
		c.Name = *u.Name
	}
	if u.Description != nil {
		c.Description = *u.Description
	}
	if u.Status != nil {
		st, err := ParseComponentStatus(string(*u.Status))
		if err != nil {
			return err
		}
		c.Status = st
	}
	if u.CategoryID != nil {
		c.CategoryID = u.CategoryID
	}
	if u.TeamID != nil {
		c.TeamID = u.TeamID
	}
	if u.Tags != nil {
		c.Tags = NormalizeTags(u.Tags)
	}
	return nil
}

// InstanceInput creates or replaces an instance
type InstanceInput struct {
	ComponentID   int64                  `json:"componentId"`
	EnvironmentID int64                  `json:"environmentId"`
	Hostname      string                 `json:"hostname"`
	Specs         map[string]interface{} `json:"specs"`
}

// Validate requires both references
func (in *InstanceInput) Validate() error {
	if in.ComponentID <= 0 {
		return errors.NewValidationError("componentId is required")
	}
	if in.EnvironmentID <= 0 {
		return errors.NewValidationError("environmentId is required")
	}
	if in.Specs == nil {
		in.Specs = map[string]interface{}{}
	}
	return nil
}

// ADRInput creates or replaces an ADR. Status defaults to draft.
type ADRInput struct {
	Title        string        `json:"title"`
	Description  string        `json:"description"`
	Status       ADRStatus     `json:"status"`
	Tags         []string      `json:"tags"`
	Participants []Participant `json:"participants"`
	ComponentIDs []int64       `json:"componentIds"`
	InstanceIDs  []int64       `json:"instanceIds"`
}

// Validate requires a title, a known status and at least one owner
func (in *ADRInput) Validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return errors.NewValidationError("ADR title is required")
	}
	if in.Status == "" {
		in.Status = ADRDraft
	}
	st, err := ParseADRStatus(string(in.Status))
	if err != nil {
		return err
	}
	in.Status = st
	for i, p := range in.Participants {
		if p.UserID <= 0 {
			return errors.NewValidationError("participant userId is required")
		}
		role, err := ParseParticipantRole(string(p.Role))
		if err != nil {
			return err
		}
		in.Participants[i].Role = role
	}
	if err := ValidateADRParticipants(in.Participants); err != nil {
		return err
	}
	in.Tags = NormalizeTags(in.Tags)
	return nil
}

// NormalizeTags trims, lowercases and de-duplicates tags, keeping first-seen order
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
