package api

// Requirement is a combinator tree describing which arguments a job needs.
// Evaluation is total and deterministic: it yields a verdict, never an error.
type Requirement interface {
	Evaluate(args ArgumentSet) Verdict
}

// Verdict is the outcome of evaluating a Requirement.
type Verdict struct {
	Satisfied bool
	// Missing holds the unmet leaf keys, complete rather than first-failure,
	// so one round trip reports everything the caller left out.
	Missing []string
}

type leaf struct {
	key string
}

func (l leaf) Evaluate(args ArgumentSet) Verdict {
	if args.Has(l.key) {
		return Verdict{Satisfied: true}
	}
	return Verdict{Missing: []string{l.key}}
}

type conjunction struct {
	children []Requirement
}

// A conjunction fails closed: any unmet child fails the group, and all
// missing keys are collected.
func (c conjunction) Evaluate(args ArgumentSet) Verdict {
	verdict := Verdict{Satisfied: true}
	for _, child := range c.children {
		v := child.Evaluate(args)
		if !v.Satisfied {
			verdict.Satisfied = false
			verdict.Missing = appendMissing(verdict.Missing, v.Missing)
		}
	}
	return verdict
}

type disjunction struct {
	children []Requirement
}

// A disjunction succeeds when any branch is fully satisfied; when none is,
// it reports the union of every branch's missing keys.
func (d disjunction) Evaluate(args ArgumentSet) Verdict {
	if len(d.children) == 0 {
		return Verdict{Satisfied: true}
	}
	var missing []string
	for _, child := range d.children {
		v := child.Evaluate(args)
		if v.Satisfied {
			return Verdict{Satisfied: true}
		}
		missing = appendMissing(missing, v.Missing)
	}
	return Verdict{Missing: missing}
}

// Arg requires a single argument key.
func Arg(key string) Requirement {
	return leaf{key: key}
}

// Conjunction requires every child requirement.
func Conjunction(children ...Requirement) Requirement {
	return conjunction{children: children}
}

// Disjunction requires at least one child requirement.
func Disjunction(children ...Requirement) Requirement {
	return disjunction{children: children}
}

// AllArgs is shorthand for a conjunction of plain keys.
func AllArgs(keys ...string) Requirement {
	children := make([]Requirement, len(keys))
	for i, key := range keys {
		children[i] = Arg(key)
	}
	return Conjunction(children...)
}

func appendMissing(dst, src []string) []string {
	for _, key := range src {
		seen := false
		for _, have := range dst {
			if have == key {
				seen = true
				break
			}
		}
		if !seen {
			dst = append(dst, key)
		}
	}
	return dst
}
