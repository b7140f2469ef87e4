package model

// User. Authenticated account identity.
// Immutable once authenticated, except for targeted
// field patches via [UserPatch].
type User struct {
	// Account identifier
	ID int64
	// E-mail address ; login
	Email string
	// Display (handle) name
	Username string
	// Display fields ; OPTIONAL
	FirstName string
	LastName  string
	AvatarURL string
}

// Clone returns a copy of the identity.
func (e *User) Clone() *User {
	if e == nil {
		return nil
	}
	clone := *e
	return &clone
}

// UserPatch lists exactly which identity fields an operation
// may mutate. A nil field means "leave untouched".
type UserPatch struct {
	Email     *string `json:"email,omitempty"`
	Username  *string `json:"username,omitempty"`
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
}

// Zero reports whether the patch mutates nothing.
func (p *UserPatch) Zero() bool {
	return p == nil || (p.Email == nil && p.Username == nil &&
		p.FirstName == nil && p.LastName == nil && p.AvatarURL == nil)
}

// Apply mutates [user] with the patch fields assigned.
func (p *UserPatch) Apply(user *User) {
	if p == nil || user == nil {
		return
	}
	if p.Email != nil {
		user.Email = *p.Email
	}
	if p.Username != nil {
		user.Username = *p.Username
	}
	if p.FirstName != nil {
		user.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		user.LastName = *p.LastName
	}
	if p.AvatarURL != nil {
		user.AvatarURL = *p.AvatarURL
	}
}

// Credentials for the login operation.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration input for the register operation.
type Registration struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}
