// SPDX-License-Identifier: MPL-2.0

package python

import (
	"fmt"
	"strconv"
	"strings"

	pep440 "github.com/aquasecurity/go-pep440-version"
)

// Version is a parsed PEP 440 version. The zero Version is unknown and
// orders before every parsed version.
type Version struct {
	// Release holds the numeric release segments, e.g. [3 12 4].
	Release []int

	pep pep440.Version
}

// ParseVersion parses s as a PEP 440 version.
func ParseVersion(s string) (Version, error) {
	pv, err := pep440.Parse(strings.TrimSpace(s))
	if err != nil {
		return Version{}, fmt.Errorf("invalid version %q: %w", s, err)
	}
	release, err := releaseSegments(pv.String())
	if err != nil {
		return Version{}, fmt.Errorf("invalid version %q: %w", s, err)
	}
	return Version{Release: release, pep: pv}, nil
}

// MustParseVersion is ParseVersion for constants. It panics on error.
func MustParseVersion(s string) Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}
	return v
}

// releaseSegments reads the release part of a normalized version, which
// follows the optional epoch and ends at the first non-numeric segment.
func releaseSegments(normalized string) ([]int, error) {
	if _, after, ok := strings.Cut(normalized, "!"); ok {
		normalized = after
	}
	end := strings.IndexFunc(normalized, func(r rune) bool { return r != '.' && (r < '0' || r > '9') })
	if end >= 0 {
		normalized = normalized[:end]
	}
	var release []int
	for part := range strings.SplitSeq(strings.TrimSuffix(normalized, "."), ".") {
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, err
		}
		release = append(release, n)
	}
	return release, nil
}

func (v Version) known() bool { return len(v.Release) > 0 }

// String renders the normalized form of v.
func (v Version) String() string {
	if !v.known() {
		return ""
	}
	return v.pep.String()
}

// Minor returns the first two release segments, e.g. 3.12 for 3.12.4.
func (v Version) Minor() string {
	return fmt.Sprintf("%d.%d", v.segment(0), v.segment(1))
}

func (v Version) segment(i int) int {
	if i < len(v.Release) {
		return v.Release[i]
	}
	return 0
}

// Compare returns -1, 0 or +1 following PEP 440 ordering.
func (v Version) Compare(o Version) int {
	switch {
	case !v.known() && !o.known():
		return 0
	case !v.known():
		return -1
	case !o.known():
		return 1
	}
	return v.pep.Compare(o.pep)
}
