// Package auth implements role derivation, sessions, and the mutation gate.
package auth

import "github.com/rs/zerolog"

type Role string

const (
	RoleUnauthenticated Role = "unauthenticated"
	RoleReader          Role = "student"
	RoleContributor     Role = "faculty"
	RoleAdministrator   Role = "admin"
)

// CanMutate reports whether the role may post or delete announcements.
// Contributors and administrators have identical mutation rights.
func CanMutate(role Role) bool {
	return role == RoleContributor || role == RoleAdministrator
}

var authLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	authLogger = l
}
