package backend

import (
	"encoding"
	"fmt"
)

// Backend tags a SessionId/CommandId's owning transport variant. Opaque
// identifiers are never compared across backends.
type Backend string

const (
	BackendThrift Backend = "thrift"
	BackendSEA    Backend = "sea"
)

// SessionID is the opaque identifier for a logical server session, created
// by OpenSession and destroyed by CloseSession. Carries a backend tag, a
// primary GUID, and — Thrift only — a secret GUID never logged or displayed.
// The zero value is not a valid session.
type SessionID struct {
	Backend   Backend
	GUID      string
	SecretGUID string // thrift only; empty for SEA
}

// String renders a log/display-safe form: the secret GUID is never included.
func (s SessionID) String() string {
	return fmt.Sprintf("%s:%s", s.Backend, s.GUID)
}

// IsZero reports whether this is an unset session identifier.
func (s SessionID) IsZero() bool { return s.GUID == "" }

// CommandID is the opaque identifier for a submitted statement, created by
// Execute (sync or async) and destroyed by CloseCommand. Shares its
// session's backend tag.
type CommandID struct {
	Backend Backend
	GUID    string
	// SecretGUID, thrift only, is required to address the operation handle
	// on the wire but — like SessionID's — is never logged.
	SecretGUID string
}

func (c CommandID) String() string {
	return fmt.Sprintf("%s:%s", c.Backend, c.GUID)
}

func (c CommandID) IsZero() bool { return c.GUID == "" }

var (
	_ fmt.Stringer             = SessionID{}
	_ fmt.Stringer             = CommandID{}
	_ encoding.TextMarshaler   = SessionID{}
	_ encoding.TextUnmarshaler = (*SessionID)(nil)
)

// MarshalText renders the session ID for logging contexts (e.g. structured
// log fields) — never includes SecretGUID.
func (s SessionID) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText is supported only for the log-safe "backend:guid" form; it
// cannot reconstruct SecretGUID and must not be used to rehydrate a live
// session — it exists solely so SessionID satisfies slog.LogValuer-adjacent
// text-marshaling conventions used elsewhere in the module.
func (s *SessionID) UnmarshalText(text []byte) error {
	str := string(text)

	for i := len(str) - 1; i >= 0; i-- {
		if str[i] == ':' {
			s.Backend = Backend(str[:i])
			s.GUID = str[i+1:]

			return nil
		}
	}

	return fmt.Errorf("backend: malformed session id %q", str)
}
