package envvar_test

import (
	"slices"
	"testing"

	"github.com/JaimeStill/docket/pkg/envvar"
)

func TestOverrides(t *testing.T) {
	t.Setenv("TEST_STR", "value")
	t.Setenv("TEST_INT", "42")
	t.Setenv("TEST_FLOAT", "0.85")
	t.Setenv("TEST_BOOL", "true")
	t.Setenv("TEST_LIST", "a, b,,c ")

	s := "default"
	envvar.String(&s, "TEST_STR")
	if s != "value" {
		t.Errorf("String: got %q", s)
	}

	n := 1
	envvar.Int(&n, "TEST_INT")
	if n != 42 {
		t.Errorf("Int: got %d", n)
	}

	f := 0.5
	envvar.Float(&f, "TEST_FLOAT")
	if f != 0.85 {
		t.Errorf("Float: got %v", f)
	}

	b := false
	envvar.Bool(&b, "TEST_BOOL")
	if !b {
		t.Error("Bool: got false")
	}

	var l []string
	envvar.List(&l, "TEST_LIST")
	if !slices.Equal(l, []string{"a", "b", "c"}) {
		t.Errorf("List: got %v", l)
	}
}

func TestIgnoresUnsetAndInvalid(t *testing.T) {
	t.Setenv("TEST_BAD_INT", "nope")

	n := 7
	envvar.Int(&n, "TEST_BAD_INT")
	envvar.Int(&n, "TEST_UNSET_INT")
	envvar.Int(&n, "")
	if n != 7 {
		t.Errorf("got %d, want 7", n)
	}
}
