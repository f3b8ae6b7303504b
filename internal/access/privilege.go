package access

import (
	"fmt"
	"strings"
)

// Privilege names a permission resolved to a minimum rank through
// configuration. A privilege may be scoped by a sub-privilege context, joined
// with a colon (e.g. "users:edit-email:own").
type Privilege string

// Privileges known to the job layer.
const (
	PrivRegisterAccount  Privilege = "users:register"
	PrivChangeAccessRank Privilege = "users:change-access-rank"
	PrivMergeTags        Privilege = "tags:merge"
	PrivReverseSearch    Privilege = "posts:reverse-search"
	// PrivSkipEmailConfirm is a policy slot, not a gate on the caller: it is
	// evaluated against the rank of the account whose email is being set.
	PrivSkipEmailConfirm Privilege = "users:edit-email-no-confirm"
)

// Sub derives a sub-privilege scoped by context.
func (p Privilege) Sub(context string) Privilege {
	return Privilege(string(p) + ":" + context)
}

// Resolver answers privilege checks against the configured policy table.
// The table is loaded once at startup and treated as read-only.
type Resolver struct {
	policies map[Privilege]Policy
}

// NewResolver parses a privilege table of name -> rank-or-selector values.
func NewResolver(table map[string]string) (*Resolver, error) {
	policies := make(map[Privilege]Policy, len(table))
	for name, value := range table {
		p, err := ParsePolicy(value)
		if err != nil {
			return nil, fmt.Errorf("access: privilege %q: %w", name, err)
		}
		policies[Privilege(name)] = p
	}
	return &Resolver{policies: policies}, nil
}

// Resolve returns the policy for a privilege. A sub-privilege with no
// dedicated entry falls back to its parent; a name with no entry at all
// resolves to Nobody, so unconfigured privileges fail closed.
func (r *Resolver) Resolve(p Privilege) Policy {
	name := string(p)
	for {
		if policy, ok := r.policies[Privilege(name)]; ok {
			return policy
		}
		idx := strings.LastIndex(name, ":")
		if idx < 0 {
			return Nobody()
		}
		name = name[:idx]
	}
}

// Allows reports whether the given rank passes the privilege's policy.
func (r *Resolver) Allows(p Privilege, rank Rank) bool {
	return r.Resolve(p).Allows(rank)
}
