// Package users owns the account model, the persistence contract, and the
// account lifecycle operations (create, read, partial update, replace,
// delete).
package users

import (
	"strings"

	"github.com/google/uuid"

	dErrors "aureus/pkg/domain-errors"
)

// User is the stored account record. PasswordDigest never serializes and is
// only written by this package after hashing; no handler or log may surface
// it.
type User struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
	FullName string    `json:"full_name,omitempty"`
	Disabled bool      `json:"disabled"`

	PasswordDigest string `json:"-"`
}

// CreateUserRequest is the registration payload. Password arrives in
// plaintext and is hashed before anything is stored.
type CreateUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Disabled bool   `json:"disabled"`
	Password string `json:"password"`
}

func (r *CreateUserRequest) Normalize() {
	r.Username = strings.TrimSpace(r.Username)
	r.Email = strings.TrimSpace(r.Email)
	r.FullName = strings.TrimSpace(r.FullName)
}

func (r *CreateUserRequest) Validate() error {
	if r.Username == "" {
		return dErrors.New(dErrors.CodeBadRequest, "username is required")
	}
	if len(r.Username) > 255 {
		return dErrors.New(dErrors.CodeBadRequest, "username too long")
	}
	if r.Email == "" {
		return dErrors.New(dErrors.CodeBadRequest, "email is required")
	}
	if r.Password == "" {
		return dErrors.New(dErrors.CodeBadRequest, "password is required")
	}
	return nil
}

// ReplaceUserRequest is the full-replacement payload for PUT. Password is
// optional: when absent the stored digest is preserved, never overwritten
// with an empty value.
type ReplaceUserRequest struct {
	Email    string  `json:"email"`
	FullName string  `json:"full_name"`
	Disabled bool    `json:"disabled"`
	Password *string `json:"password,omitempty"`
}

func (r *ReplaceUserRequest) Validate() error {
	if strings.TrimSpace(r.Email) == "" {
		return dErrors.New(dErrors.CodeBadRequest, "email is required")
	}
	if r.Password != nil && *r.Password == "" {
		return dErrors.New(dErrors.CodeBadRequest, "password must not be empty")
	}
	return nil
}

// Fields is a tagged partial update: only non-nil fields are written.
// Password is the plaintext from the request; the service converts it to
// PasswordDigest before the store sees it.
type Fields struct {
	Email    *string
	FullName *string
	Disabled *bool
	Password *string

	PasswordDigest *string
}

// IsEmpty reports whether the update carries no fields at all.
func (f Fields) IsEmpty() bool {
	return f.Email == nil && f.FullName == nil && f.Disabled == nil &&
		f.Password == nil && f.PasswordDigest == nil
}

// FieldsFromMap converts a request body mapping into a tagged update.
// Unknown keys and wrongly-typed values are rejected; usernames are
// immutable.
func FieldsFromMap(m map[string]any) (Fields, error) {
	var f Fields
	for key, value := range m {
		switch key {
		case "email":
			s, ok := value.(string)
			if !ok {
				return Fields{}, dErrors.New(dErrors.CodeBadRequest, "email must be a string")
			}
			f.Email = &s
		case "full_name":
			s, ok := value.(string)
			if !ok {
				return Fields{}, dErrors.New(dErrors.CodeBadRequest, "full_name must be a string")
			}
			f.FullName = &s
		case "disabled":
			b, ok := value.(bool)
			if !ok {
				return Fields{}, dErrors.New(dErrors.CodeBadRequest, "disabled must be a boolean")
			}
			f.Disabled = &b
		case "password":
			s, ok := value.(string)
			if !ok || s == "" {
				return Fields{}, dErrors.New(dErrors.CodeBadRequest, "password must be a non-empty string")
			}
			f.Password = &s
		case "username":
			return Fields{}, dErrors.New(dErrors.CodeBadRequest, "username cannot be changed")
		default:
			return Fields{}, dErrors.New(dErrors.CodeBadRequest, "unknown field: "+key)
		}
	}
	return f, nil
}
