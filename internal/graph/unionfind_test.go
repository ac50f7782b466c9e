package graph

import (
	"strconv"
	"testing"
)

func TestUnionFind_SingletonsStartSeparate(t *testing.T) {
	uf := NewUnionFind([]string{"A", "B", "C"})
	if uf.Connected("A", "B") {
		t.Error("A and B should start in separate components")
	}
	if uf.Size("A") != 1 {
		t.Errorf("expected size 1, got %d", uf.Size("A"))
	}
}

func TestUnionFind_UnionMerges(t *testing.T) {
	uf := NewUnionFind(nil)
	if !uf.Union("A", "B") {
		t.Fatal("first union of A,B should report a merge")
	}
	if !uf.Union("B", "C") {
		t.Fatal("union of B,C should report a merge")
	}
	if !uf.Connected("A", "C") {
		t.Error("A and C should be connected through B")
	}
	if uf.Size("C") != 3 {
		t.Errorf("expected component size 3, got %d", uf.Size("C"))
	}
}

func TestUnionFind_UnionSameComponentReportsCycle(t *testing.T) {
	uf := NewUnionFind(nil)
	uf.Union("A", "B")
	uf.Union("B", "C")
	if uf.Union("C", "A") {
		t.Error("closing A-B-C-A should not merge anything")
	}
	if uf.Union("A", "A") {
		t.Error("self union should not merge anything")
	}
}

func TestUnionFind_UnknownID(t *testing.T) {
	uf := NewUnionFind(nil)
	if got := uf.Find("ghost"); got != "ghost" {
		t.Errorf("unknown id should be its own root, got %s", got)
	}
	if uf.Size("ghost") != 0 {
		t.Errorf("unknown id should have size 0, got %d", uf.Size("ghost"))
	}
}

func TestUnionFind_LongChainCompresses(t *testing.T) {
	uf := NewUnionFind(nil)
	prev := "n0"
	for i := 1; i < 10_000; i++ {
		id := "n" + strconv.Itoa(i)
		uf.Union(prev, id)
		prev = id
	}
	if !uf.Connected("n0", "n9999") {
		t.Error("chain ends should be connected")
	}
	if uf.Size("n5000") != 10_000 {
		t.Errorf("expected size 10000, got %d", uf.Size("n5000"))
	}
}
