package digipinmapper

import (
	"errors"
	"slices"
	"sort"
	"testing"

	"github.com/mohammed-shakir/digipin/pkg/digipin"
)

func TestHierarchy_RoundTrip_ParentChildren(t *testing.T) {
	m := New()

	code, err := digipin.Encode(28.622788, 77.213033, 8)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	parent, err := m.ToParent(code, 6)
	if err != nil {
		t.Fatalf("ToParent: %v", err)
	}
	if parent != code[:6] {
		t.Fatalf("parent=%s want %s", parent, code[:6])
	}

	children, err := m.ToChildren(parent, 8)
	if err != nil {
		t.Fatalf("ToChildren: %v", err)
	}
	if len(children) != 256 {
		t.Fatalf("children=%d want 256", len(children))
	}
	if !slices.Contains(children, code) {
		t.Fatalf("children at level 8 did not include original cell %s", code)
	}
	if !sort.StringsAreSorted([]string(children)) {
		t.Fatalf("children must be sorted")
	}
}

func TestToChildren_SameLevelAndLimits(t *testing.T) {
	m := New()

	same, err := m.ToChildren("39j4", 4)
	if err != nil || len(same) != 1 || same[0] != "39J4" {
		t.Fatalf("same level=%v err=%v", same, err)
	}

	cases := []struct {
		code  string
		level int
	}{
		{"39J4", 3},
		{"39J4", 7},
		{"39J49LL8T4", 11},
	}
	for _, tc := range cases {
		if _, err := m.ToChildren(tc.code, tc.level); !errors.Is(err, digipin.ErrDomain) {
			t.Fatalf("ToChildren(%s, %d) err=%v want ErrDomain", tc.code, tc.level, err)
		}
	}
	if _, err := m.ToChildren("AB", 3); !errors.Is(err, digipin.ErrInvalidCode) {
		t.Fatalf("bad code err=%v", err)
	}
}
