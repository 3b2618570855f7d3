// Package bundle implements plugin identity: the (id, version, format)
// triple parsed from a plugin directory's leaf name, and the Depend
// predicate used to express dependencies between bundles.
package bundle

import (
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Bundle is the identity triple of a plugin: an id, a semantic version, and
// the format (file extension) its manager is registered under. Its
// canonical textual form is "id-v{version}.{format}".
type Bundle struct {
	ID      string
	Version *semver.Version
	Format  string
}

// String renders the canonical textual form of b.
func (b Bundle) String() string {
	return b.ID + "-v" + b.Version.String() + "." + b.Format
}

// Equal reports whether b and other share the same id, version, and format.
func (b Bundle) Equal(other Bundle) bool {
	return b.ID == other.ID && b.Format == other.Format && b.Version.Equal(other.Version)
}

// Less orders Bundles by (id, version). Cross-id ordering is arbitrary but
// stable (lexical on ID), matching spec's "cross-id ordering is undefined".
func (b Bundle) Less(other Bundle) bool {
	if b.ID != other.ID {
		return b.ID < other.ID
	}
	return b.Version.LessThan(other.Version)
}

// Parse parses a plugin directory leaf name into a Bundle following the
// grammar: everything after the last '.' is the format; of the remainder,
// everything after the last "-v" is the version; everything before that is
// the id. All three substrings must be non-empty and the version must
// parse as valid SemVer.
func Parse(leaf string) (Bundle, error) {
	dot := strings.LastIndex(leaf, ".")
	if dot < 0 {
		return Bundle{}, &FromError{Stage: StageFormat, Input: leaf}
	}
	format := leaf[dot+1:]
	rest := leaf[:dot]
	if format == "" {
		return Bundle{}, &FromError{Stage: StageFormat, Input: leaf}
	}

	vIdx := strings.LastIndex(rest, "-v")
	if vIdx < 0 {
		return Bundle{}, &FromError{Stage: StageVersion, Input: leaf}
	}
	id := rest[:vIdx]
	versionStr := rest[vIdx+2:]
	if id == "" {
		return Bundle{}, &FromError{Stage: StageID, Input: leaf}
	}
	if versionStr == "" {
		return Bundle{}, &FromError{Stage: StageVersion, Input: leaf}
	}

	v, err := semver.StrictNewVersion(versionStr)
	if err != nil {
		return Bundle{}, &FromError{Stage: StageParseVersion, Input: leaf, Cause: err}
	}

	return Bundle{ID: id, Version: v, Format: format}, nil
}
