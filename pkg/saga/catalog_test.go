package saga

import (
	"errors"
	"testing"
)

func TestNewCatalogRejectsEmptyStepList(t *testing.T) {
	_, err := NewCatalog("order", nil)
	if !errors.Is(err, ErrEmptyCatalog) {
		t.Fatalf("NewCatalog() error = %v, want ErrEmptyCatalog", err)
	}
}

func TestNewCatalogRejectsDuplicateStepNames(t *testing.T) {
	_, err := NewCatalog("order", []StepDefinition{
		{Name: "Reserve", Compensable: true},
		{Name: "Charge", Compensable: true},
		{Name: "Reserve", Compensable: false},
	})

	var dup *DuplicateStepNameError
	if !errors.As(err, &dup) {
		t.Fatalf("NewCatalog() error = %v, want DuplicateStepNameError", err)
	}
	if dup.Name != "Reserve" {
		t.Fatalf("duplicate name = %q, want Reserve", dup.Name)
	}
}

func TestCatalogLookups(t *testing.T) {
	catalog, err := NewCatalog("order", []StepDefinition{
		{Name: "Reserve", Compensable: true},
		{Name: "Charge", Compensable: true},
		{Name: "Ship", Compensable: false},
	})
	if err != nil {
		t.Fatalf("NewCatalog() error = %v", err)
	}

	if got := catalog.First().Name; got != "Reserve" {
		t.Fatalf("First() = %q, want Reserve", got)
	}
	if pos, ok := catalog.Position("Ship"); !ok || pos != 2 {
		t.Fatalf("Position(Ship) = %d, %v", pos, ok)
	}
	if _, ok := catalog.Position("Refund"); ok {
		t.Fatal("Position(Refund) should not resolve")
	}
	if next, ok := catalog.Next(0); !ok || next.Name != "Charge" {
		t.Fatalf("Next(0) = %q, %v", next.Name, ok)
	}
	if _, ok := catalog.Next(2); ok {
		t.Fatal("Next(last) should report no further step")
	}
	if _, ok := catalog.At(3); ok {
		t.Fatal("At(3) should be out of range")
	}
}

func TestCompensationWalk(t *testing.T) {
	catalog, err := NewCatalog("order", []StepDefinition{
		{Name: "A", Compensable: true},
		{Name: "B", Compensable: false},
		{Name: "C", Compensable: true},
	})
	if err != nil {
		t.Fatalf("NewCatalog() error = %v", err)
	}

	if pos, ok := catalog.CompensableAtOrBefore(2); !ok || pos != 2 {
		t.Fatalf("CompensableAtOrBefore(2) = %d, %v, want 2", pos, ok)
	}
	// B is skipped, the inclusive walk from B lands on A.
	if pos, ok := catalog.CompensableAtOrBefore(1); !ok || pos != 0 {
		t.Fatalf("CompensableAtOrBefore(1) = %d, %v, want 0", pos, ok)
	}
	if pos, ok := catalog.PreviousCompensable(2); !ok || pos != 0 {
		t.Fatalf("PreviousCompensable(2) = %d, %v, want 0", pos, ok)
	}
	if _, ok := catalog.PreviousCompensable(0); ok {
		t.Fatal("PreviousCompensable(0) should be exhausted")
	}
}

func TestCompensationWalkExhaustedWhenNothingCompensable(t *testing.T) {
	catalog, err := NewCatalog("order", []StepDefinition{
		{Name: "A", Compensable: false},
		{Name: "B", Compensable: false},
	})
	if err != nil {
		t.Fatalf("NewCatalog() error = %v", err)
	}
	if _, ok := catalog.CompensableAtOrBefore(1); ok {
		t.Fatal("walk should be exhausted for a catalog with no compensable steps")
	}
}
