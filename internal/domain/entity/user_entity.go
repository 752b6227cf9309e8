package entity

import (
	"fmt"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// User is the aggregate root for the identity domain.
// Passwords are stored verbatim and compared by equality; replacing this
// with salted hashing is outside the current contract.
//
// Extra carries document fields accepted by profile update that are not
// part of the core schema. They round-trip through the store untouched.
type User struct {
	ID        string
	Email     string
	Password  string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
	Extra     map[string]any
}

// Validation failure reasons reported by NewUser.
const (
	ReasonInvalidEmail = "invalid_email"
	ReasonTooShort     = "too_short"
	ReasonNoUppercase  = "no_uppercase"
	ReasonNoLowercase  = "no_lowercase"
	ReasonNoDigit      = "no_digit"
)

// ValidationError reports which field failed construction and why.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s (%s)", e.Field, e.Reason)
}

var emailValidator = validator.New()

// NewUser builds a candidate user record from raw credentials. It validates
// email syntax and password strength, assigns a fresh id and sets both
// timestamps. It never touches the store.
func NewUser(email, password string) (*User, error) {
	if err := emailValidator.Var(email, "required,email"); err != nil {
		return nil, &ValidationError{Field: "email", Reason: ReasonInvalidEmail}
	}
	if reason, ok := CheckPasswordPolicy(password); !ok {
		return nil, &ValidationError{Field: "password", Reason: reason}
	}
	now := time.Now().UTC()
	return &User{
		ID:        uuid.NewString(),
		Email:     email,
		Password:  password,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// CheckPasswordPolicy runs the strength predicates in order and returns the
// first missing class, so callers can report exactly what is wrong.
func CheckPasswordPolicy(password string) (reason string, ok bool) {
	switch {
	case len(password) < 8:
		return ReasonTooShort, false
	case !hasClass(password, unicode.IsUpper):
		return ReasonNoUppercase, false
	case !hasClass(password, unicode.IsLower):
		return ReasonNoLowercase, false
	case !hasClass(password, unicode.IsDigit):
		return ReasonNoDigit, false
	}
	return "", true
}

func hasClass(s string, is func(rune) bool) bool {
	for _, r := range s {
		if is(r) {
			return true
		}
	}
	return false
}

// Touch refreshes UpdatedAt. The clock has nanosecond resolution but two
// mutations inside the same tick must still produce increasing timestamps.
func (u *User) Touch() {
	now := time.Now().UTC()
	if !now.After(u.UpdatedAt) {
		now = u.UpdatedAt.Add(time.Nanosecond)
	}
	u.UpdatedAt = now
}

// Document returns the full persisted shape, password included, with extra
// fields flattened alongside the core schema.
func (u *User) Document() map[string]any {
	doc := make(map[string]any, len(u.Extra)+6)
	for k, v := range u.Extra {
		doc[k] = v
	}
	doc["id"] = u.ID
	doc["email"] = u.Email
	doc["password"] = u.Password
	doc["active"] = u.Active
	doc["created_at"] = u.CreatedAt.Format(time.RFC3339Nano)
	doc["updated_at"] = u.UpdatedAt.Format(time.RFC3339Nano)
	return doc
}

// Profile returns the API exposure shape: the document without its password.
func (u *User) Profile() map[string]any {
	doc := u.Document()
	delete(doc, "password")
	return doc
}

// UserFromDocument rebuilds a User from a stored document. Unknown keys are
// preserved in Extra.
func UserFromDocument(doc map[string]any) (*User, error) {
	u := &User{}
	var err error
	for k, v := range doc {
		switch k {
		case "id":
			u.ID, _ = v.(string)
		case "email":
			u.Email, _ = v.(string)
		case "password":
			u.Password, _ = v.(string)
		case "active":
			u.Active, _ = v.(bool)
		case "created_at":
			if u.CreatedAt, err = parseDocTime(v); err != nil {
				return nil, err
			}
		case "updated_at":
			if u.UpdatedAt, err = parseDocTime(v); err != nil {
				return nil, err
			}
		default:
			if u.Extra == nil {
				u.Extra = map[string]any{}
			}
			u.Extra[k] = v
		}
	}
	if u.ID == "" {
		return nil, fmt.Errorf("user document missing id")
	}
	return u, nil
}

func parseDocTime(v any) (time.Time, error) {
	s, ok := v.(string)
	if !ok {
		return time.Time{}, fmt.Errorf("timestamp is not a string: %T", v)
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}
