package access

import (
	"context"
	"errors"
	"net/http"
	"strings"

	apperrors "github.com/orgtreehq/orgtree/pkg/errors"
)

var (
	// ErrOrganizationNotFound indicates the evaluated organization does not exist.
	ErrOrganizationNotFound = apperrors.New("ORG_NOT_FOUND", "Organization not found", http.StatusNotFound)
)

// Identity carries the authenticated caller attributes the evaluator consumes.
// It is supplied by the session collaborator; the evaluator never loads users itself.
type Identity struct {
	ID         string
	SystemRole SystemRole
}

// Directory is the storage collaborator behind the evaluator. Implementations must
// return ErrOrganizationNotFound (or an error wrapping it) for unknown organizations;
// a missing membership is reported via found=false, not an error.
type Directory interface {
	// OrganizationCreator returns the immutable created_by id of an organization.
	OrganizationCreator(ctx context.Context, orgID string) (string, error)

	// MembershipRole returns the stored role for (orgID, userID) when present.
	MembershipRole(ctx context.Context, orgID, userID string) (Role, bool, error)
}

// Decision is the outcome of evaluating a user against an organization.
type Decision struct {
	HasAccess bool  `json:"has_access"`
	Role      *Role `json:"role"`
	// IsOwner is true only when the caller is recorded as owner (creator bypass or
	// owner membership). A superuser acts with owner privileges but is not an owner.
	IsOwner bool `json:"is_owner"`
	Capabilities
}

// Evaluator decides, per request, whether a user may act on an organization's data.
// It is a pure decision function over its inputs plus one membership lookup; results
// are never cached because roles can change between requests.
type Evaluator struct {
	dir Directory
}

// NewEvaluator constructs an Evaluator over the supplied directory.
func NewEvaluator(dir Directory) (*Evaluator, error) {
	if dir == nil {
		return nil, errors.New("access: directory is required")
	}
	return &Evaluator{dir: dir}, nil
}

// Evaluate resolves the caller's effective role for the organization.
//
// Precedence is deliberate and first-match-wins: superuser bypass, then creator
// bypass, then membership lookup. The creator bypass guarantees creators are never
// locked out even when the membership table is inconsistent (the historical
// "member cannot search" defect). A missing membership is a normal denial.
func (e *Evaluator) Evaluate(ctx context.Context, identity Identity, orgID string) (Decision, error) {
	orgID = strings.TrimSpace(orgID)
	if orgID == "" {
		return Decision{}, ErrOrganizationNotFound
	}

	creatorID, err := e.dir.OrganizationCreator(ctx, orgID)
	if err != nil {
		return Decision{}, err
	}

	if identity.SystemRole == SystemRoleSuperuser {
		return granted(RoleOwner, false), nil
	}

	if identity.ID != "" && identity.ID == creatorID {
		return granted(RoleOwner, true), nil
	}

	role, found, err := e.dir.MembershipRole(ctx, orgID, identity.ID)
	if err != nil {
		return Decision{}, err
	}
	if !found {
		return Decision{}, nil
	}

	return granted(role, role == RoleOwner), nil
}

func granted(role Role, isOwner bool) Decision {
	return Decision{
		HasAccess:    true,
		Role:         &role,
		IsOwner:      isOwner,
		Capabilities: role.Capabilities(),
	}
}
