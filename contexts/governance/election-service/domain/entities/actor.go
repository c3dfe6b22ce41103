package entities

type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleMember Role = "MEMBER"
)

// Actor is the identity provider's view of the authenticated user. MemberID is
// empty when the user has no member profile.
type Actor struct {
	UserID      string
	Role        Role
	MemberID    string
	DisplayName string
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

func (a Actor) IsMember() bool {
	return a.MemberID != ""
}

type Member struct {
	MemberID  string
	UserID    string
	FirstName string
	LastName  string
	Email     string
}

func (m Member) DisplayName() string {
	switch {
	case m.FirstName == "":
		return m.LastName
	case m.LastName == "":
		return m.FirstName
	default:
		return m.FirstName + " " + m.LastName
	}
}
