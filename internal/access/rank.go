package access

import "fmt"

// Rank is the global, totally ordered privilege level of a user.
type Rank int

const (
	// Anonymous is an unauthenticated visitor.
	Anonymous Rank = iota
	// Restricted is a registered account with reduced rights.
	Restricted
	// Registered is the default rank for a new account.
	Registered
	// PowerUser can perform bulk content operations.
	PowerUser
	// Moderator can manage other users' content.
	Moderator
	// Admin can do everything, including granting ranks.
	Admin
)

var rankNames = map[Rank]string{
	Anonymous:  "anonymous",
	Restricted: "restricted",
	Registered: "registered",
	PowerUser:  "power-user",
	Moderator:  "moderator",
	Admin:      "admin",
}

var ranksByName = func() map[string]Rank {
	m := make(map[string]Rank, len(rankNames))
	for r, n := range rankNames {
		m[n] = r
	}
	return m
}()

func (r Rank) String() string {
	if n, ok := rankNames[r]; ok {
		return n
	}
	return fmt.Sprintf("rank(%d)", int(r))
}

// AtLeast reports whether r meets the given minimum.
func (r Rank) AtLeast(min Rank) bool {
	return r >= min
}

// ParseRank resolves a kebab-case rank name.
func ParseRank(name string) (Rank, error) {
	r, ok := ranksByName[name]
	if !ok {
		return Anonymous, fmt.Errorf("access: unknown rank %q", name)
	}
	return r, nil
}
