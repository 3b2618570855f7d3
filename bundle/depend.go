package bundle

import "github.com/Masterminds/semver/v3"

// Depend is a predicate a plugin declares against another: an id and a
// semver range. A Depend matches a Bundle iff ids are equal and the range
// admits the bundle's version.
type Depend struct {
	ID    string
	Range *semver.Constraints
}

// NewDepend parses a semver constraint string (e.g. "^1.2.0", "~1.2",
// ">=1.0.0, <2.0.0") into a Depend against id.
func NewDepend(id, constraint string) (Depend, error) {
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return Depend{}, err
	}
	return Depend{ID: id, Range: c}, nil
}

// Matches reports whether b satisfies d: same id and the range admits b's
// version.
func (d Depend) Matches(b Bundle) bool {
	if d.ID != b.ID {
		return false
	}
	return d.Range.Check(b.Version)
}

// BestMatch returns the index into candidates of the highest-version Bundle
// that matches d, or -1 if none match. This implements the "highest
// matching version" rule used throughout the dependency solver.
func BestMatch(d Depend, candidates []Bundle) int {
	best := -1
	for i, b := range candidates {
		if !d.Matches(b) {
			continue
		}
		if best == -1 || candidates[best].Version.LessThan(b.Version) {
			best = i
		}
	}
	return best
}
