package catalog

import (
	"context"

	"github.com/archbeaver/beaver/errors"
)

// Messages surfaced verbatim to users.
const (
	MsgADRNeedsOwner     = "ADR must have at least one owner"
	MsgDuplicateInstance = "Este componente já possui uma instância no ambiente especificado"
)

// InstanceWhere selects instances by (component, environment), optionally excluding one id
type InstanceWhere struct {
	ComponentID   int64
	EnvironmentID int64
	ExcludeID     *int64
}

// InstanceFinder returns the first instance matching where, or nil when none does
type InstanceFinder interface {
	FindFirstInstance(ctx context.Context, where InstanceWhere) (*Instance, error)
}

// ValidateADRParticipants fails unless at least one participant is an owner.
// An empty list fails the same way.
func ValidateADRParticipants(participants []Participant) error {
	for _, p := range participants {
		if p.Role == RoleOwner {
			return nil
		}
	}
	return errors.NewValidationError(MsgADRNeedsOwner)
}

// ValidateComponentInstance fails with a conflict when another instance already
// pairs componentID with environmentID. Updates pass their own id as excludeID.
func ValidateComponentInstance(ctx context.Context, finder InstanceFinder, componentID, environmentID int64, excludeID *int64) error {
	existing, err := finder.FindFirstInstance(ctx, InstanceWhere{
		ComponentID:   componentID,
		EnvironmentID: environmentID,
		ExcludeID:     excludeID,
	})
	if err != nil {
		return errors.Wrap(err, "failed to look up existing instance")
	}
	if existing != nil {
		return errors.NewConflictError(MsgDuplicateInstance)
	}
	return nil
}
