package domain

// Actor is the authenticated caller, passed by value into every service call.
type Actor struct {
	ID    string
	Role  Role
	Email string
	Name  string
}

// IsStaff reports whether the actor is a team member or admin.
func (a Actor) IsStaff() bool {
	return a.Role.IsStaff()
}

// IsAdmin reports whether the actor is an admin.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// ActorFromUser builds the actor for an authenticated user record.
func ActorFromUser(u *User) Actor {
	return Actor{ID: u.ID, Role: u.Role, Email: u.Email, Name: u.Name}
}
