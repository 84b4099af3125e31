package session

import (
	"fmt"
	"slices"
	"testing"
)

func TestHistoryPushFront(t *testing.T) {
	h := NewHistory(3)
	h.Push("a")
	h.Push("b")
	if got := h.Items(); !slices.Equal(got, []string{"b", "a"}) {
		t.Fatalf("items = %v", got)
	}
}

func TestHistoryDropsOldest(t *testing.T) {
	h := NewHistory(3)
	for i := range 5 {
		h.Push(fmt.Sprint(i))
	}
	if got := h.Items(); !slices.Equal(got, []string{"4", "3", "2"}) {
		t.Fatalf("items = %v", got)
	}
	if h.Len() != 3 {
		t.Fatalf("len = %d", h.Len())
	}
}

func TestHistoryDefaultCapacity(t *testing.T) {
	if c := NewHistory(0).Cap(); c != HistoryCapacity {
		t.Fatalf("cap = %d, want %d", c, HistoryCapacity)
	}
}

func TestHistoryItemsCopy(t *testing.T) {
	h := NewHistory(2)
	h.Push("a")
	items := h.Items()
	items[0] = "x"
	if h.Items()[0] != "a" {
		t.Fatal("Items exposed internal storage")
	}
}

func TestHistoryDuplicatesKept(t *testing.T) {
	h := NewHistory(3)
	h.Push("a")
	h.Push("a")
	if h.Len() != 2 {
		t.Fatalf("len = %d, want 2", h.Len())
	}
}
