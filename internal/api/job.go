package api

import (
	"context"

	"github.com/pictor-board/pictor/internal/access"
	"github.com/pictor-board/pictor/internal/auth"
)

// Job is a single typed, validated, authorized unit of backend work. A job
// declares what it needs; the Runner decides whether and how it runs. Jobs
// receive read-only access to the argument set and caller identity and must
// not retain them past the invocation.
type Job interface {
	// Name identifies the job type in the registry and the HTTP surface.
	Name() string

	// RequiredArguments declares the argument combinator checked before
	// anything else happens. A nil requirement means no arguments.
	RequiredArguments() Requirement

	// MainPrivilege is the privilege gating the job as a whole. The zero
	// value declares none.
	MainPrivilege() access.Privilege

	// SubPrivilege derives a resource-scoped privilege from the concrete
	// arguments, checked in addition to the main one. The zero value
	// declares none.
	SubPrivilege(args ArgumentSet, actor *auth.Context) access.Privilege

	// AuthenticationRequired reports whether anonymous callers are rejected.
	AuthenticationRequired() bool

	// ConfirmedEmailRequired reports whether callers without a confirmed
	// email are rejected.
	ConfirmedEmailRequired() bool

	// Execute performs the state change. It runs inside one transaction
	// owned by the Runner; returned errors abort and roll back.
	Execute(ctx context.Context, args ArgumentSet, actor *auth.Context) (any, error)

	// AuditEntry renders the single audit record for a successful run as a
	// template with named placeholders plus its field values.
	AuditEntry(args ArgumentSet, actor *auth.Context, result any) (string, map[string]string)
}
