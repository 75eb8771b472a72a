package shared

import "github.com/google/uuid"

// Capability names checked by the warehouse and clinical services.
// The capability-to-role mapping lives outside this core (identity service);
// services only ever ask "does the actor hold this capability".
const (
	// CapabilityViewCost gates financial fields on transaction history
	CapabilityViewCost = "VIEW_COST"
	// CapabilityApproveTransaction gates the approval workflow
	CapabilityApproveTransaction = "WAREHOUSE_APPROVE"
	// CapabilityDeleteTransaction gates privileged rollback/delete of transactions
	CapabilityDeleteTransaction = "WAREHOUSE_DELETE"
)

// Actor identifies the authenticated caller of a service operation.
type Actor struct {
	ID           uuid.UUID
	Name         string
	Capabilities []string
}

// HasCapability reports whether the actor holds the named capability.
func (a Actor) HasCapability(capability string) bool {
	for _, c := range a.Capabilities {
		if c == capability {
			return true
		}
	}
	return false
}

// RequireCapability returns a FORBIDDEN domain error when the actor lacks
// the named capability.
func (a Actor) RequireCapability(capability string) error {
	if !a.HasCapability(capability) {
		return NewDomainError("FORBIDDEN", "Missing required capability: "+capability)
	}
	return nil
}

// SystemActor is used for internally triggered operations (no authenticated user).
func SystemActor() Actor {
	return Actor{Name: "SYSTEM"}
}
