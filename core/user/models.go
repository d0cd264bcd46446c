package user

import (
	"database/sql/driver"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/edudesk/core"
)

// Role is the closed set of user roles.
// The zero value is RoleUnknown: a stored role value this build does not recognize.
type Role uint8

const (
	RoleUnknown Role = iota
	RoleAdmin
	RoleTeacher
	RoleParent
)

var roleNames = map[Role]string{
	RoleAdmin:   "admin",
	RoleTeacher: "teacher",
	RoleParent:  "parent",
}

// Roles lists every known role, for select inputs and CLI help.
var Roles = []Role{RoleAdmin, RoleTeacher, RoleParent}

// ParseRole returns the Role named s, or RoleUnknown and an error.
func ParseRole(s string) (Role, error) {
	s = core.CleanString(s, true /* lower */)
	for role, name := range roleNames {
		if name == s {
			return role, nil
		}
	}
	return RoleUnknown, fmt.Errorf("unknown role %q", s)
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return "unknown"
}

func (r Role) Valid() bool {
	_, ok := roleNames[r]
	return ok
}

// Value stores a role by name.
func (r Role) Value() (driver.Value, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("cannot store role %d", r)
	}
	return r.String(), nil
}

// Scan reads a role name. Unrecognized names scan to RoleUnknown without error,
// so the caller can still load the user and reject it.
func (r *Role) Scan(src interface{}) error {
	var s string
	switch v := src.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	case nil:
		*r = RoleUnknown
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Role", src)
	}
	role, _ := ParseRole(s)
	*r = role
	return nil
}

// RoleSet is a set of roles allowed to invoke an operation.
type RoleSet uint8

func NewRoleSet(roles ...Role) RoleSet {
	var rs RoleSet
	for _, r := range roles {
		if r.Valid() {
			rs |= 1 << r
		}
	}
	return rs
}

func (rs RoleSet) Has(r Role) bool {
	return r.Valid() && rs&(1<<r) != 0
}

var (
	AdminOnly   = NewRoleSet(RoleAdmin)
	TeacherOnly = NewRoleSet(RoleTeacher)
	AnyRole     = NewRoleSet(Roles...)
)

// Authorize reports whether role may invoke an operation restricted to allowed.
func Authorize(role Role, allowed RoleSet) bool {
	return allowed.Has(role)
}

type User struct {
	ID           int        `db:"id"`
	Username     string     `db:"username"`
	Name         string     `db:"name"`
	Email        string     `db:"email"`
	Role         Role       `db:"role"`
	IsActive     bool       `db:"is_active"`
	PasswordHash []byte     `db:"password_hash"`
	CreatedAt    time.Time  `db:"created_at"` // UTC
	UpdatedAt    time.Time  `db:"updated_at"` // UTC
	LastLogin    *time.Time `db:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) IsAdmin() bool   { return u.Role == RoleAdmin }
func (u *User) IsTeacher() bool { return u.Role == RoleTeacher }
func (u *User) IsParent() bool  { return u.Role == RoleParent }

// DisplayName is the name shown in lists and select inputs.
func (u User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Username
}

// LoginForm holds the submitted credentials.
type LoginForm struct {
	Username string `form:"username" validate:"required,max=150,username"`
	Password string `form:"password" validate:"required,min=6"`
}

func (lf *LoginForm) Clean() {
	lf.Username = core.CleanString(lf.Username)
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	Username string `validate:"required,max=150,username"`
	Name     string `validate:"max=150"`
	Email    string `validate:"omitempty,email"`
	Role     Role   `validate:"required"`
	Password string `validate:"required"`
}

func (nu *NewUser) Clean() {
	nu.Username = core.CleanString(nu.Username)
	nu.Name = core.CleanString(nu.Name)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
}

// UpdateUser defines what information may be provided to modify an existing User.
// Empty fields keep their current value.
type UpdateUser struct {
	Name     string `validate:"max=150"`
	Email    string `validate:"omitempty,email"`
	Role     Role
	IsActive *bool
	Password string
}

func (uu *UpdateUser) Clean(orig User) {
	if name := core.CleanString(uu.Name); name != "" {
		uu.Name = name
	} else {
		uu.Name = orig.Name
	}
	if email := core.CleanString(uu.Email, true /* lower */); email != "" {
		uu.Email = email
	} else {
		uu.Email = orig.Email
	}
	if !uu.Role.Valid() {
		uu.Role = orig.Role
	}
}

type GetFilter struct {
	ID       int
	Username string
}
