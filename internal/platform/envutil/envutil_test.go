package envutil

import (
	"testing"
	"time"
)

func TestString(t *testing.T) {
	t.Setenv("ENVUTIL_TEST_STR", "  value  ")
	if got := String("ENVUTIL_TEST_STR", "def"); got != "value" {
		t.Fatalf("String = %q, want trimmed value", got)
	}
	if got := String("ENVUTIL_TEST_STR_UNSET", "def"); got != "def" {
		t.Fatalf("String unset = %q, want default", got)
	}
}

func TestBool(t *testing.T) {
	cases := []struct {
		value string
		want  bool
	}{
		{"1", true}, {"true", true}, {"YES", true}, {"on", true},
		{"0", false}, {"false", false}, {"no", false}, {"off", false},
		{"garbage", true}, // falls back to the default
	}
	for _, tc := range cases {
		t.Setenv("ENVUTIL_TEST_BOOL", tc.value)
		if got := Bool("ENVUTIL_TEST_BOOL", true); got != tc.want {
			t.Fatalf("Bool(%q) = %v, want %v", tc.value, got, tc.want)
		}
	}
	if got := Bool("ENVUTIL_TEST_BOOL_UNSET", true); !got {
		t.Fatal("Bool unset must return the default")
	}
}

func TestDuration(t *testing.T) {
	t.Setenv("ENVUTIL_TEST_DUR", "90s")
	if got := Duration("ENVUTIL_TEST_DUR", time.Minute); got != 90*time.Second {
		t.Fatalf("Duration = %v, want 90s", got)
	}
	t.Setenv("ENVUTIL_TEST_DUR", "not-a-duration")
	if got := Duration("ENVUTIL_TEST_DUR", time.Minute); got != time.Minute {
		t.Fatalf("Duration invalid = %v, want default", got)
	}
}
