// SPDX-License-Identifier: MPL-2.0

package python

import (
	"slices"
	"testing"
)

func TestParseVersion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"3.12", "3.12"},
		{"v1.0", "1.0"},
		{"1!2.0", "1!2.0"},
		{"1.0alpha1", "1.0a1"},
		{"1.0-beta.2", "1.0b2"},
		{"1.0c1", "1.0rc1"},
		{"1.0rc", "1.0rc0"},
		{"1.0-1", "1.0.post1"},
		{"1.0.post2.dev3", "1.0.post2.dev3"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			v, err := ParseVersion(tt.in)
			if err != nil {
				t.Fatalf("ParseVersion(%q) error: %v", tt.in, err)
			}
			if got := v.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}

	for _, bad := range []string{"", "abc", "1..0", "1.0+"} {
		if _, err := ParseVersion(bad); err == nil {
			t.Errorf("ParseVersion(%q) expected error", bad)
		}
	}
}

func TestVersionCompare_Ordering(t *testing.T) {
	t.Parallel()

	ordered := []string{
		"1.0.dev0",
		"1.0a1.dev1",
		"1.0a1",
		"1.0b1",
		"1.0rc1",
		"1.0",
		"1.0+local",
		"1.0.post1.dev1",
		"1.0.post1",
		"1.0.1",
		"1.1",
		"2!0.1",
	}
	parsed := make([]Version, len(ordered))
	for i, s := range ordered {
		parsed[i] = MustParseVersion(s)
	}
	shuffled := slices.Clone(parsed)
	slices.Reverse(shuffled)
	slices.SortFunc(shuffled, Version.Compare)
	for i := range parsed {
		if shuffled[i].String() != parsed[i].String() {
			t.Fatalf("position %d: got %s, want %s", i, shuffled[i], parsed[i])
		}
	}

	if MustParseVersion("3.12").Compare(MustParseVersion("3.12.0")) != 0 {
		t.Error("trailing zeros must compare equal")
	}
}

func TestSpecifierSet_Contains(t *testing.T) {
	t.Parallel()

	tests := []struct {
		spec    string
		version string
		want    bool
	}{
		{">=3.8", "3.12.1", true},
		{">=3.8,<3.12", "3.12.1", false},
		{"<3.13", "3.12.7", true},
		{"<3.13", "3.13.0rc1", false},
		{">9000", "3.12", false},
		{"==3.12.*", "3.12.4", true},
		{"==3.12.*", "3.13.0", false},
		{"!=3.11.*", "3.11.2", false},
		{"~=3.10", "3.11", true},
		{"~=3.10.2", "3.11", false},
		{"~=3.10.2", "3.10.9", true},
		{"==1.0", "1.0+local", true},
		{">1.0", "1.0.post1", false},
		{"===1.0", "1.0", true},
		{"", "0.1", true},
	}

	for _, tt := range tests {
		t.Run(tt.spec+" "+tt.version, func(t *testing.T) {
			t.Parallel()

			set, err := ParseSpecifierSet(tt.spec)
			if err != nil {
				t.Fatalf("ParseSpecifierSet(%q) error: %v", tt.spec, err)
			}
			if got := set.Contains(MustParseVersion(tt.version)); got != tt.want {
				t.Errorf("Contains(%s) = %v, want %v", tt.version, got, tt.want)
			}
		})
	}
}

func TestParseSpecifierSet_Errors(t *testing.T) {
	t.Parallel()

	for _, bad := range []string{"3.12", "==abc", ">=", "=>3.8"} {
		if _, err := ParseSpecifierSet(bad); err == nil {
			t.Errorf("ParseSpecifierSet(%q) expected error", bad)
		}
	}
}

func TestVersion_Release(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in        string
		want      []int
		wantMinor string
	}{
		{"3.12.4", []int{3, 12, 4}, "3.12"},
		{"3", []int{3}, "3.0"},
		{"1!2.0rc1", []int{2, 0}, "2.0"},
		{"3.13.0.dev2", []int{3, 13, 0}, "3.13"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			v := MustParseVersion(tt.in)
			if !slices.Equal(v.Release, tt.want) {
				t.Errorf("Release = %v, want %v", v.Release, tt.want)
			}
			if got := v.Minor(); got != tt.wantMinor {
				t.Errorf("Minor() = %q, want %q", got, tt.wantMinor)
			}
		})
	}
}

func TestVersion_Unknown(t *testing.T) {
	t.Parallel()

	var unknown Version
	if unknown.Compare(MustParseVersion("0.0.1")) >= 0 {
		t.Error("an unknown version must order before parsed versions")
	}
	if unknown.Compare(Version{}) != 0 {
		t.Error("unknown versions must compare equal")
	}
	set, err := ParseSpecifierSet("<3.13")
	if err != nil {
		t.Fatalf("ParseSpecifierSet() error: %v", err)
	}
	if set.Contains(unknown) {
		t.Error("an unknown version must not satisfy a constraint")
	}
	if !SpecifierSet(nil).Contains(unknown) {
		t.Error("the empty set admits every version")
	}
}
