package engine

import "github.com/GoCodeAlone/pluginrt/bundle"

// bestMatch returns the Plugin among candidates whose bundle matches d and
// has the greatest version, implementing the "highest matching version"
// rule that is re-derived at every dependency lookup.
func bestMatch(d bundle.Depend, candidates []*Plugin) (*Plugin, bool) {
	var best *Plugin
	for _, p := range candidates {
		b := p.Bundle()
		if !d.Matches(b) {
			continue
		}
		if best == nil || best.Bundle().Version.LessThan(b.Version) {
			best = p
		}
	}
	return best, best != nil
}

// matches reports whether p is the authoritative match for d among
// candidates: d admits p's bundle, and no other candidate both admits d and
// has a strictly higher version.
func matches(d bundle.Depend, p *Plugin, candidates []*Plugin) bool {
	if !d.Matches(p.Bundle()) {
		return false
	}
	best, ok := bestMatch(d, candidates)
	return ok && best == p
}

// isHighestForID reports whether p has the greatest version among all
// plugins in all sharing its bundle id: the predicate behind the
// used/unused partition and CallRequest's "not superseded" filter.
func isHighestForID(p *Plugin, all []*Plugin) bool {
	for _, other := range all {
		if other == p || other.Bundle().ID != p.Bundle().ID {
			continue
		}
		if p.Bundle().Version.LessThan(other.Bundle().Version) {
			return false
		}
	}
	return true
}

func allDepends(p *Plugin) []bundle.Depend {
	meta := p.Metadata()
	out := make([]bundle.Depend, 0, len(meta.Depends())+len(meta.OptionalDepends()))
	out = append(out, meta.Depends()...)
	out = append(out, meta.OptionalDepends()...)
	return out
}

// isDependencyTargetWithin reports whether p is the best-match target of
// some Depend belonging to another member of subset.
func isDependencyTargetWithin(p *Plugin, subset, all []*Plugin) bool {
	for _, other := range subset {
		if other == p {
			continue
		}
		for _, d := range allDepends(other) {
			if matches(d, p, all) {
				return true
			}
		}
	}
	return false
}

// dependsOn reports whether p transitively depends on target, resolving
// each Depend to its best match within all.
func dependsOn(p, target *Plugin, all []*Plugin) bool {
	seen := make(map[*Plugin]bool)
	var walk func(q *Plugin) bool
	walk = func(q *Plugin) bool {
		if seen[q] {
			return false
		}
		seen[q] = true
		for _, d := range allDepends(q) {
			best, ok := bestMatch(d, all)
			if !ok {
				continue
			}
			if best == target || walk(best) {
				return true
			}
		}
		return false
	}
	return walk(p)
}

// topoSort orders subset such that, processed left-to-right, no plugin
// appears before something that (transitively, within subset) depends on
// it. all is the full plugin list the best-match lookups are evaluated
// against. A DFS with skip-on-already-picked, used for teardown ordering
// (dependents before dependencies).
func topoSort(all, subset []*Plugin) []*Plugin {
	inSubset := make(map[*Plugin]bool, len(subset))
	for _, p := range subset {
		inSubset[p] = true
	}

	picked := make(map[*Plugin]bool, len(subset))
	output := make([]*Plugin, 0, len(subset))

	var sortPick func(p *Plugin)
	sortPick = func(p *Plugin) {
		if picked[p] {
			return
		}
		picked[p] = true
		output = append(output, p)
		for _, d := range allDepends(p) {
			best, ok := bestMatch(d, all)
			if !ok || picked[best] || !inSubset[best] {
				continue
			}
			// A shared dependency stays unpicked until every other subset
			// member that transitively needs it has been picked; the last
			// such dependent pulls it in, so no dependent is ever ordered
			// after it.
			shared := false
			for _, q := range subset {
				if picked[q] || q == best {
					continue
				}
				if dependsOn(q, best, all) {
					shared = true
					break
				}
			}
			if shared {
				continue
			}
			sortPick(best)
		}
	}

	for _, p := range subset {
		if picked[p] || isDependencyTargetWithin(p, subset, all) {
			continue
		}
		sortPick(p)
	}
	return output
}

// usedUnused partitions candidates into the plugins that are the highest
// version for their id ("used") and everything superseded ("unused").
func usedUnused(candidates []*Plugin) (used, unused []*Plugin) {
	for _, p := range candidates {
		if isHighestForID(p, candidates) {
			used = append(used, p)
		} else {
			unused = append(unused, p)
		}
	}
	return used, unused
}
