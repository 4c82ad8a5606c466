// Package authz holds the route-admission decision: a pure function of the
// authenticated user and the roles a route requires. Transport concerns
// (status codes, redirects) belong to the middleware and the client.
package authz

import "hrms/internal/models"

type Decision int

const (
	// Allow admits the request.
	Allow Decision = iota
	// DenyUnauthenticated means no valid session; clients redirect to login
	// carrying the originally requested location.
	DenyUnauthenticated
	// DenyForbidden means the session is valid but its role is not in the
	// required set; clients redirect to the forbidden view.
	DenyForbidden
)

// Decide returns the admission decision for a user against a required role
// set. A nil user is unauthenticated. An empty role set admits any
// authenticated user.
func Decide(u *models.User, required ...models.Role) Decision {
	if u == nil {
		return DenyUnauthenticated
	}
	if len(required) == 0 {
		return Allow
	}
	for _, r := range required {
		if u.Role == r {
			return Allow
		}
	}
	return DenyForbidden
}
