// Package audit records security-relevant account events (registration,
// login, deletion) and ships them to a sink without blocking request
// handling.
package audit

import (
	"time"

	"github.com/google/uuid"
	"github.com/mssola/useragent"
)

// Actions emitted by this service.
const (
	ActionUserCreated = "user.created"
	ActionUserUpdated = "user.updated"
	ActionUserDeleted = "user.deleted"
	ActionLogin       = "user.login"
	ActionLoginFailed = "user.login_failed"
	ActionLockout     = "user.lockout"
)

// Event is a single audit record. Username identifies the subject account;
// request metadata is best effort and may be empty.
type Event struct {
	ID        string    `json:"id"`
	Action    string    `json:"action"`
	Username  string    `json:"username"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
	IP        string    `json:"ip,omitempty"`
	Browser   string    `json:"browser,omitempty"`
	OS        string    `json:"os,omitempty"`
}

// RequestMeta carries per-request attribution for audit events.
type RequestMeta struct {
	RequestID string
	IP        string
	UserAgent string
}

// NewEvent builds an event for an action and subject, parsing browser and
// OS out of the raw User-Agent header.
func NewEvent(action, username string, meta RequestMeta) Event {
	e := Event{
		ID:        uuid.NewString(),
		Action:    action,
		Username:  username,
		Timestamp: time.Now(),
		RequestID: meta.RequestID,
		IP:        meta.IP,
	}
	if meta.UserAgent != "" {
		ua := useragent.New(meta.UserAgent)
		name, version := ua.Browser()
		if name != "" {
			e.Browser = name + " " + version
		}
		e.OS = ua.OS()
	}
	return e
}
