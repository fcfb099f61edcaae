// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"strings"
	"testing"
)

func TestValues_OrderedAndComplete(t *testing.T) {
	t.Parallel()

	values := Values()
	if len(values) != int(PermissionDeniedId) {
		t.Fatalf("len(Values()) = %d, want %d", len(values), PermissionDeniedId)
	}
	for i, v := range values {
		if v.Id() != Id(i+1) {
			t.Errorf("Values()[%d].Id() = %d, want %d", i, v.Id(), i+1)
		}
		if Get(v.Id()) != v {
			t.Errorf("Get(%d) does not return the catalog entry", v.Id())
		}
	}
}

func TestGet_Unknown(t *testing.T) {
	t.Parallel()

	if Get(0) != nil || Get(PermissionDeniedId+1) != nil {
		t.Error("Get() should return nil for unknown ids")
	}
}

func TestAllIssuesHaveContent(t *testing.T) {
	t.Parallel()

	for _, v := range Values() {
		msg := strings.TrimSpace(string(v.MarkdownMsg()))
		if !strings.HasPrefix(msg, "# ") {
			t.Errorf("issue %d should start with a heading, got %q", v.Id(), msg)
		}
	}
}

func TestIssue_LinksAreCopies(t *testing.T) {
	t.Parallel()

	i := Get(ProjectNotFoundId)
	links := i.ExtLinks()
	if len(links) == 0 {
		t.Fatal("ProjectNotFound should carry an external link")
	}
	links[0] = "mutated"
	if i.ExtLinks()[0] == "mutated" {
		t.Error("ExtLinks() must return a copy")
	}
}

func TestIssue_Render(t *testing.T) {
	t.Parallel()

	out, err := Get(ProjectNotFoundId).Render("notty")
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	for _, want := range []string{"No project found", "See also", "packaging.python.org"} {
		if !strings.Contains(out, want) {
			t.Errorf("Render() missing %q:\n%s", want, out)
		}
	}
}

func TestAllIssuesAreRenderable(t *testing.T) {
	t.Parallel()

	for _, v := range Values() {
		if _, err := v.Render("notty"); err != nil {
			t.Errorf("issue %d: Render() error = %v", v.Id(), err)
		}
	}
}
