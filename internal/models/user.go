package models

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
	RoleGuest Role = "guest"
)

var ValidRoles = map[Role]bool{
	RoleAdmin: true,
	RoleUser:  true,
	RoleGuest: true,
}

// User is the persisted session record.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
	Email    string `json:"email,omitempty"`
}

func (u *User) IsAdmin() bool { return u != nil && u.Role == RoleAdmin }
func (u *User) IsGuest() bool { return u != nil && u.Role == RoleGuest }

// GuestUser returns a fresh guest session record.
func GuestUser() *User {
	return &User{ID: 0, Username: "guest", Role: RoleGuest}
}
