package core

import "testing"

func TestVersionCompare(t *testing.T) {
	cases := []struct {
		a, b Version
		want int
	}{
		{Version{1, 0, 0}, Version{1, 0, 0}, 0},
		{Version{1, 0, 0}, Version{1, 0, 1}, -1},
		{Version{1, 1, 0}, Version{1, 0, 9}, 1},
		{Version{2, 0, 0}, Version{1, 9, 9}, 1},
	}
	for _, c := range cases {
		if got := c.a.Compare(c.b); got != c.want {
			t.Errorf("%s.Compare(%s) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}

func TestVersionIsImmediateSuccessor(t *testing.T) {
	if !(Version{1, 0, 1}).IsImmediateSuccessor(Version{1, 0, 0}) {
		t.Fatal("1.0.1 should be the immediate successor of 1.0.0")
	}
	if (Version{1, 1, 0}).IsImmediateSuccessor(Version{1, 0, 0}) {
		t.Fatal("1.1.0 should not be treated as an immediate successor of 1.0.0 (not a patch step)")
	}
	if (Version{1, 0, 2}).IsImmediateSuccessor(Version{1, 0, 0}) {
		t.Fatal("a gap of two patches should not count as an immediate successor")
	}
}

func TestHashColumnsStableAndSensitive(t *testing.T) {
	cols := []Column{{Name: "id", Type: ColumnString, IsPrimary: true}}
	h1 := HashColumns(cols)
	h2 := HashColumns(cols)
	if h1 != h2 {
		t.Fatal("HashColumns should be deterministic for the same input")
	}

	changed := []Column{{Name: "id", Type: ColumnInt, IsPrimary: true}}
	if HashColumns(changed) == h1 {
		t.Fatal("HashColumns should change when a column's type changes")
	}
}

func TestVersionSyncKey(t *testing.T) {
	a := VersionSync{SourceModel: "PageView", Source: Version{1, 0, 0}, TargetModel: "PageView", Target: Version{1, 0, 1}}
	b := VersionSync{SourceModel: "PageView", Source: Version{1, 0, 0}, TargetModel: "PageView", Target: Version{1, 0, 1}}
	if a.Key() != b.Key() {
		t.Fatal("two VersionSyncs with identical fields should produce identical keys")
	}

	c := VersionSync{SourceModel: "PageView", Source: Version{1, 0, 0}, TargetModel: "PageView", Target: Version{1, 0, 2}}
	if a.Key() == c.Key() {
		t.Fatal("VersionSyncs targeting different versions should produce different keys")
	}
}
