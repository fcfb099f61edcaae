// SPDX-License-Identifier: MPL-2.0

package selection

import (
	"errors"
	"slices"
	"testing"

	"github.com/envrun/envrun/internal/matrix"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		args        []string
		wantInclude []Filter
		wantExclude []Filter
		wantRest    []string
	}{
		{
			name:     "no tokens",
			args:     []string{"test:python", "-c", "pass"},
			wantRest: []string{"test:python", "-c", "pass"},
		},
		{
			name:        "inclusion",
			args:        []string{"+version=9000", "test:python", "-c", "pass"},
			wantInclude: []Filter{{Name: "version", Values: []string{"9000"}}},
			wantRest:    []string{"test:python", "-c", "pass"},
		},
		{
			name:        "exclusion with and without values",
			args:        []string{"-version=9000,42", "-feature", "cmd"},
			wantExclude: []Filter{{Name: "version", Values: []string{"9000", "42"}}, {Name: "feature"}},
			wantRest:    []string{"cmd"},
		},
		{
			name:        "py alias canonicalized",
			args:        []string{"+py=3.12", "-python=3.11", "cmd"},
			wantInclude: []Filter{{Name: "python", Values: []string{"3.12"}}},
			wantExclude: []Filter{{Name: "python", Values: []string{"3.11"}}},
			wantRest:    []string{"cmd"},
		},
		{
			name:        "only tokens",
			args:        []string{"+version=9000"},
			wantInclude: []Filter{{Name: "version", Values: []string{"9000"}}},
			wantRest:    []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			sel, rest, err := Parse(tt.args)
			if err != nil {
				t.Fatalf("Parse() error: %v", err)
			}
			if !equalFilters(sel.Include, tt.wantInclude) {
				t.Errorf("Include = %+v, want %+v", sel.Include, tt.wantInclude)
			}
			if !equalFilters(sel.Exclude, tt.wantExclude) {
				t.Errorf("Exclude = %+v, want %+v", sel.Exclude, tt.wantExclude)
			}
			if !slices.Equal(rest, tt.wantRest) {
				t.Errorf("rest = %q, want %q", rest, tt.wantRest)
			}
		})
	}
}

func TestParse_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		args    []string
		wantErr error
		wantMsg string
	}{
		{
			name:    "duplicate inclusion",
			args:    []string{"+version=9000", "+version=42", "cmd"},
			wantErr: ErrDuplicateVariable,
			wantMsg: "Duplicate included variable: version",
		},
		{
			name:    "duplicate exclusion",
			args:    []string{"-version=9000", "-version=42", "cmd"},
			wantErr: ErrDuplicateVariable,
			wantMsg: "Duplicate excluded variable: version",
		},
		{
			name:    "duplicate through alias",
			args:    []string{"+py=9000", "+python=42", "cmd"},
			wantErr: ErrDuplicateVariable,
			wantMsg: "Duplicate included variable: python",
		},
		{
			name:    "empty name",
			args:    []string{"+=1", "cmd"},
			wantErr: ErrMalformedToken,
		},
		{
			name:    "empty values",
			args:    []string{"-version=", "cmd"},
			wantErr: ErrMalformedToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, _, err := Parse(tt.args)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Parse() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantMsg != "" && err.Error() != tt.wantMsg {
				t.Errorf("message = %q, want %q", err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestParse_SameVariableIncludedAndExcluded(t *testing.T) {
	t.Parallel()

	sel, _, err := Parse([]string{"+version=1", "-version=2", "cmd"})
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(sel.Include) != 1 || len(sel.Exclude) != 1 {
		t.Errorf("unexpected selection %+v", sel)
	}
}

func TestApply(t *testing.T) {
	t.Parallel()

	instances := []matrix.Instance{
		testInstance("version1", "9000", "version2", "3.14"),
		testInstance("version1", "42", "version2", "3.14"),
		testInstance("feature", "foo"),
	}

	tests := []struct {
		name string
		sel  Selection
		want []string
	}{
		{
			name: "empty selection keeps everything",
			want: []string{"test.9000-3.14", "test.42-3.14", "test.foo"},
		},
		{
			name: "inclusion by value",
			sel:  Selection{Include: []Filter{{Name: "version1", Values: []string{"9000"}}}},
			want: []string{"test.9000-3.14"},
		},
		{
			name: "inclusion without value requires the variable",
			sel:  Selection{Include: []Filter{{Name: "feature"}}},
			want: []string{"test.foo"},
		},
		{
			name: "exclusion by value",
			sel:  Selection{Exclude: []Filter{{Name: "version1", Values: []string{"9000"}}}},
			want: []string{"test.42-3.14", "test.foo"},
		},
		{
			name: "exclusion without value drops carriers",
			sel:  Selection{Exclude: []Filter{{Name: "version2"}}},
			want: []string{"test.foo"},
		},
		{
			name: "inclusions combine",
			sel: Selection{Include: []Filter{
				{Name: "version1", Values: []string{"9000", "42"}},
				{Name: "version2", Values: []string{"3.14"}},
			}},
			want: []string{"test.9000-3.14", "test.42-3.14"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Apply("test", true, instances, tt.sel)
			if err != nil {
				t.Fatalf("Apply() error: %v", err)
			}
			var names []string
			for _, inst := range got {
				names = append(names, inst.Name)
			}
			if !slices.Equal(names, tt.want) {
				t.Errorf("Apply() = %v, want %v", names, tt.want)
			}
		})
	}
}

func TestApply_PythonAlias(t *testing.T) {
	t.Parallel()

	instances := []matrix.Instance{
		testInstance("py", "3.11"),
		testInstance("py", "3.12"),
	}
	sel, _, err := Parse([]string{"+python=3.12", "cmd"})
	if err != nil {
		t.Fatal(err)
	}
	got, err := Apply("test", true, instances, sel)
	if err != nil {
		t.Fatalf("Apply() error: %v", err)
	}
	if len(got) != 1 || got[0].Name != "test.py3.12" {
		t.Errorf("Apply() = %+v", got)
	}
}

func TestApply_Errors(t *testing.T) {
	t.Parallel()

	instances := []matrix.Instance{testInstance("version", "9000"), testInstance("version", "42")}

	_, err := Apply("default", false, []matrix.Instance{{Base: "default", Name: "default"}},
		Selection{Include: []Filter{{Name: "version", Values: []string{"9000"}}}})
	if !errors.Is(err, ErrUnsupportedSelection) {
		t.Fatalf("expected ErrUnsupportedSelection, got %v", err)
	}
	if err.Error() != "Variable selection is unsupported for non-matrix environments: default" {
		t.Errorf("message = %q", err.Error())
	}

	_, err = Apply("test", true, instances, Selection{Exclude: []Filter{{Name: "version"}}})
	if !errors.Is(err, ErrNoEnvironmentsSelected) {
		t.Errorf("exclude all: expected ErrNoEnvironmentsSelected, got %v", err)
	}

	_, err = Apply("test", true, instances, Selection{Include: []Filter{{Name: "version", Values: []string{"3.14"}}}})
	if !errors.Is(err, ErrNoEnvironmentsSelected) {
		t.Errorf("include none: expected ErrNoEnvironmentsSelected, got %v", err)
	}
}

func testInstance(pairs ...string) matrix.Instance {
	var assignment []matrix.Assignment
	for i := 0; i+1 < len(pairs); i += 2 {
		assignment = append(assignment, matrix.Assignment{Variable: pairs[i], Value: pairs[i+1]})
	}
	return matrix.Instance{
		Base:       "test",
		Name:       matrix.InstanceName("test", assignment),
		Assignment: assignment,
		Settings:   matrix.DefaultSettings(),
	}
}

func equalFilters(a, b []Filter) bool {
	return slices.EqualFunc(a, b, func(x, y Filter) bool {
		return x.Name == y.Name && slices.Equal(x.Values, y.Values)
	})
}
