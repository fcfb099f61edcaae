// SPDX-License-Identifier: MPL-2.0

package compat

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/envrun/envrun/internal/matrix"
	"github.com/envrun/envrun/pkg/platform"
)

type fakeLocator map[string]bool

func (f fakeLocator) Available(_ context.Context, python string) bool { return f[python] }

type fakeCandidate struct {
	name    string
	exists  bool
	verdict Verdict
	checked *int
}

func (f fakeCandidate) Name() string { return f.name }
func (f fakeCandidate) Exists() bool { return f.exists }
func (f fakeCandidate) CheckCompatibility(context.Context) error {
	if f.checked != nil {
		*f.checked++
	}
	return f.verdict.Err()
}

func TestChecker_Check(t *testing.T) {
	t.Parallel()

	c := &Checker{Platform: platform.NameLinux, Python: fakeLocator{"3.12": true}}

	tests := []struct {
		name     string
		settings matrix.Settings
		want     Verdict
	}{
		{
			name:     "unrestricted",
			settings: matrix.DefaultSettings(),
			want:     Verdict{Compatible: true},
		},
		{
			name:     "platform excluded",
			settings: matrix.Settings{Type: matrix.TypeVirtual, Platforms: []string{"foo"}, Python: "9000"},
			want:     Verdict{Reason: ReasonUnsupportedPlatform},
		},
		{
			name:     "platform included",
			settings: matrix.Settings{Type: matrix.TypeVirtual, Platforms: []string{"windows", "Linux"}},
			want:     Verdict{Compatible: true},
		},
		{
			name:     "python found",
			settings: matrix.Settings{Type: matrix.TypeVirtual, Python: "3.12"},
			want:     Verdict{Compatible: true},
		},
		{
			name:     "python missing",
			settings: matrix.Settings{Type: matrix.TypeVirtual, Python: "9000"},
			want:     Verdict{Reason: "cannot locate Python: 9000"},
		},
		{
			name:     "system environment ignores python",
			settings: matrix.Settings{Type: matrix.TypeSystem, Python: "9000"},
			want:     Verdict{Compatible: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := c.Check(t.Context(), tt.settings); got != tt.want {
				t.Errorf("Check() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestPartition_SingleIncompatibleIsFatal(t *testing.T) {
	t.Parallel()

	_, _, err := Partition(t.Context(), []fakeCandidate{
		{name: "test", verdict: Verdict{Reason: ReasonUnsupportedPlatform}},
	})
	if !errors.Is(err, ErrIncompatible) {
		t.Fatalf("Partition() error = %v, want ErrIncompatible", err)
	}
	if err.Error() != "Environment `test` is incompatible: unsupported platform" {
		t.Errorf("message = %q", err.Error())
	}
}

func TestPartition_MatrixSkips(t *testing.T) {
	t.Parallel()

	runnable, skipped, err := Partition(t.Context(), []fakeCandidate{
		{name: "test.9000", verdict: Verdict{Reason: ReasonUnsupportedPlatform}},
		{name: "test.42", verdict: Verdict{Compatible: true}},
		{name: "test.py9000", verdict: Verdict{Reason: "cannot locate Python: 9000"}},
	})
	if err != nil {
		t.Fatalf("Partition() error: %v", err)
	}
	if len(runnable) != 1 || runnable[0].name != "test.42" {
		t.Errorf("runnable = %+v", runnable)
	}
	want := []Skip{
		{Name: "test.9000", Reason: ReasonUnsupportedPlatform},
		{Name: "test.py9000", Reason: "cannot locate Python: 9000"},
	}
	if !slices.Equal(skipped, want) {
		t.Errorf("skipped = %+v, want %+v", skipped, want)
	}
}

func TestPartition_AllSkipped(t *testing.T) {
	t.Parallel()

	runnable, skipped, err := Partition(t.Context(), []fakeCandidate{
		{name: "test.9000", verdict: Verdict{Reason: ReasonUnsupportedPlatform}},
		{name: "test.42", verdict: Verdict{Reason: ReasonUnsupportedPlatform}},
	})
	if err != nil {
		t.Fatalf("Partition() error: %v", err)
	}
	if len(runnable) != 0 || len(skipped) != 2 {
		t.Errorf("runnable=%v skipped=%v", runnable, skipped)
	}
}

func TestPartition_ExistingEnvironmentIsNotChecked(t *testing.T) {
	t.Parallel()

	checked := 0
	runnable, _, err := Partition(t.Context(), []fakeCandidate{
		{name: "default", exists: true, verdict: Verdict{Reason: ReasonUnsupportedPlatform}, checked: &checked},
	})
	if err != nil {
		t.Fatalf("Partition() error: %v", err)
	}
	if len(runnable) != 1 || checked != 0 {
		t.Errorf("runnable=%v checked=%d", runnable, checked)
	}
}
