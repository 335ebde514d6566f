// Package controls holds the fixed compliance control catalog that
// violations are classified against. The catalog is read-only.
package controls

import "github.com/complyscan/complyscan/internal/types"

const (
	AccessControl = "access-control"
	Secrets       = "secrets-management"
	AuditLogging  = "audit-logging"
	Resilience    = "resilience"
)

var catalog = []types.Control{
	{
		ID:          AccessControl,
		Name:        "Access Control",
		Description: "Request handlers must enforce authentication and authorization.",
		Requirement: "Every route or view that receives a request must carry an auth annotation or middleware reference.",
		Category:    "authorization",
	},
	{
		ID:          Secrets,
		Name:        "Secrets Management",
		Description: "Credentials must not be hardcoded in source.",
		Requirement: "Passwords, API keys, and tokens must come from the environment or a secret manager, never string literals.",
		Category:    "credentials",
	},
	{
		ID:          AuditLogging,
		Name:        "Audit Logging",
		Description: "Sensitive state mutations must be logged.",
		Requirement: "Create, update, and delete operations on sensitive data must be followed by an audit log call.",
		Category:    "observability",
	},
	{
		ID:          Resilience,
		Name:        "Resilience",
		Description: "Outbound calls must handle failure.",
		Requirement: "Network and database calls must be enclosed in an error-handling block with a logged error path.",
		Category:    "reliability",
	},
}

// All returns the control catalog in stable order.
func All() []types.Control {
	out := make([]types.Control, len(catalog))
	copy(out, catalog)
	return out
}

// ByID returns the control with the given ID, or false if unknown.
func ByID(id string) (types.Control, bool) {
	for _, c := range catalog {
		if c.ID == id {
			return c, true
		}
	}
	return types.Control{}, false
}

// IDs returns all control IDs in catalog order.
func IDs() []string {
	ids := make([]string, len(catalog))
	for i, c := range catalog {
		ids[i] = c.ID
	}
	return ids
}
