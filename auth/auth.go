// Package auth defines the interfaces a deployment plugs in to resolve who
// a connection belongs to and what it is allowed to do, independent of how
// credentials or relations are actually stored. The storage-backed
// adapters live in the storage subpackages and in cmd/waddled; this
// package only fixes the shape external identity/authorization providers
// must satisfy.
package auth

import "context"

// Session is the result of a successful credential check or token
// resolution: the minimal identity a stream needs to finish binding.
type Session struct {
	Principal string // bare JID local part, or full external subject id
	Domain    string
}

// Provider authenticates connections and resolves already-issued tokens.
// Authenticate and ValidateSession are split because a deployment may
// accept native SASL credentials, a bearer token, or both, and the two
// paths have different failure semantics: a bad password is a SASL
// failure, a bad/expired token is a stream-level not-authorized.
type Provider interface {
	// Authenticate checks a username/password pair against the backing
	// identity store and returns the resulting session.
	Authenticate(ctx context.Context, username, password string) (Session, error)

	// ValidateSession resolves a previously-issued token (e.g. from an
	// external SSO or WADDLE_AUTH_PROVIDERS_JSON-configured provider)
	// back to the session it belongs to.
	ValidateSession(ctx context.Context, token string) (Session, error)
}

// Relation is a named affiliation or role a subject holds against an
// object (a MUC room JID, a PubSub node, etc). The string values are
// provider-defined; callers map them through their own precedence table
// (see muc.ResolveAffiliation for the MUC mapping).
type Relation string

// Decision is the outcome of an authorization check.
type Decision int

const (
	Deny Decision = iota
	Allow
)

// PermissionService answers relation and authorization queries for a
// principal against an object. list_relations backs affiliation/role
// resolution (MUC joins, PubSub node access); Authorize backs direct
// yes/no checks (room configuration, node publish).
type PermissionService interface {
	// ListRelations returns every relation subject holds against object.
	// A MUC join resolves the occupant's affiliation by taking the
	// highest-privilege relation in the result.
	ListRelations(ctx context.Context, object, subject string) ([]Relation, error)

	// Authorize reports whether principal may perform action on object.
	Authorize(ctx context.Context, principal, action, object string) (Decision, error)
}
