package auth

// Scope represents a named capability carried in a token.
type Scope string

// Scope constants.
const (
	ScopeReadThings  Scope = "read:things"
	ScopeWriteThings Scope = "write:things"
	ScopeAdmin       Scope = "admin"
)

// HasScope reports whether the granted scopes include the required one.
// The admin scope implies every other scope.
func HasScope(granted []Scope, required Scope) bool {
	for _, s := range granted {
		if s == required || s == ScopeAdmin {
			return true
		}
	}
	return false
}
