package access

import "fmt"

// Policy decides which ranks pass a configured gate. Besides plain rank
// thresholds the configuration accepts two selectors: "nobody" (no rank
// passes) and "anonymous" (every rank passes, anonymous included).
type Policy struct {
	kind policyKind
	min  Rank
}

type policyKind int

const (
	policyNobody policyKind = iota
	policyEveryone
	policyAtLeast
)

// Nobody is the policy under which no rank passes. It is the zero value, so
// an unset policy fails closed.
func Nobody() Policy { return Policy{kind: policyNobody} }

// Everyone is the policy under which every rank passes.
func Everyone() Policy { return Policy{kind: policyEveryone} }

// AtLeast is the policy admitting the given rank and above.
func AtLeast(min Rank) Policy { return Policy{kind: policyAtLeast, min: min} }

// ParsePolicy resolves a configuration value: a rank name or one of the
// "nobody"/"anonymous" selectors.
func ParsePolicy(value string) (Policy, error) {
	switch value {
	case "nobody":
		return Nobody(), nil
	case "anonymous":
		return Everyone(), nil
	}
	r, err := ParseRank(value)
	if err != nil {
		return Policy{}, fmt.Errorf("access: invalid policy value %q", value)
	}
	return AtLeast(r), nil
}

// Allows reports whether the given rank passes the policy.
func (p Policy) Allows(r Rank) bool {
	switch p.kind {
	case policyEveryone:
		return true
	case policyAtLeast:
		return r.AtLeast(p.min)
	default:
		return false
	}
}

func (p Policy) String() string {
	switch p.kind {
	case policyEveryone:
		return "anonymous"
	case policyAtLeast:
		return p.min.String()
	default:
		return "nobody"
	}
}
