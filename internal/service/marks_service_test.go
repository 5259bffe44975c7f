package service

import (
	"testing"

	"schoolcal/internal/domain"
)

func TestMarksServiceMarkUnmark(t *testing.T) {
	store := testStore(t)
	marks := NewMarksService(store, testLogger())

	key := domain.ManualMarkKey("123", "20250910T0825")
	if marks.IsMarked(key) {
		t.Fatal("fresh store should have no marks")
	}

	if err := marks.Mark("123", "20250910T0825"); err != nil {
		t.Fatalf("Mark: %v", err)
	}
	if !marks.IsMarked(key) {
		t.Fatal("mark not visible after Mark")
	}
	// Marking twice is a no-op.
	if err := marks.Mark("123", "20250910T0825"); err != nil {
		t.Fatalf("second Mark: %v", err)
	}

	// A different occurrence of the same item is independent.
	if marks.IsMarked(domain.ManualMarkKey("123", "20250917T0825")) {
		t.Fatal("other occurrence should not be marked")
	}

	if err := marks.Unmark("123", "20250910T0825"); err != nil {
		t.Fatalf("Unmark: %v", err)
	}
	if marks.IsMarked(key) {
		t.Fatal("mark still visible after Unmark")
	}
	// Unmarking an absent key succeeds.
	if err := marks.Unmark("123", "20250910T0825"); err != nil {
		t.Fatalf("second Unmark: %v", err)
	}
}

func TestMarksServicePersistsAcrossRestart(t *testing.T) {
	store := testStore(t)

	marks := NewMarksService(store, testLogger())
	if err := marks.Mark("55", ""); err != nil {
		t.Fatalf("Mark: %v", err)
	}

	reloaded := NewMarksService(store, testLogger())
	if !reloaded.IsMarked("55") {
		t.Fatal("mark lost after reload")
	}
}

func TestMarksServiceHasAnyFor(t *testing.T) {
	store := testStore(t)
	marks := NewMarksService(store, testLogger())

	if err := marks.Mark("123", "20250910T0825"); err != nil {
		t.Fatalf("Mark: %v", err)
	}

	if !marks.HasAnyFor("123") {
		t.Error("scoped mark should count for the item")
	}
	// "12" is a prefix of "123" but not the same item.
	if marks.HasAnyFor("12") {
		t.Error("prefix of another id should not match")
	}

	if err := marks.Mark("77", ""); err != nil {
		t.Fatalf("Mark: %v", err)
	}
	if !marks.HasAnyFor("77") {
		t.Error("unscoped mark should count for the item")
	}
}
