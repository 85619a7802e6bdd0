package alerts

import (
	"context"
	"errors"
	"testing"

	"github.com/manny2375/2020realtorsblue-sub000/internal/core"
	"github.com/manny2375/2020realtorsblue-sub000/internal/storage"
)

func newTestService(t *testing.T) (*Service, Store) {
	t.Helper()
	db, err := storage.NewSQLiteInMemory()
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store, err := NewStore(db)
	if err != nil {
		t.Fatalf("failed to create alerts store: %v", err)
	}
	return NewService(store, nil, nil), store
}

func assertErrorType(t *testing.T, err error, want core.ErrorType) {
	t.Helper()
	var apiErr *core.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T: %v", err, err)
	}
	if apiErr.Type != want {
		t.Errorf("expected error type %q, got %q", want, apiErr.Type)
	}
}

func TestCreateAndList(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	alert := &core.PriceAlert{City: "Springfield", MaxPriceCents: 50_000_000}
	if err := svc.Create(ctx, "u1", alert); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if alert.ID == "" || !alert.Active {
		t.Errorf("expected generated id and active flag, got %+v", alert)
	}

	list, err := svc.List(ctx, "u1")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 1 || list[0].City != "Springfield" {
		t.Errorf("unexpected alerts: %+v", list)
	}

	other, err := svc.List(ctx, "u2")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("expected no alerts for other user, got %+v", other)
	}
}

func TestCreateValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		alert core.PriceAlert
	}{
		{"no criteria", core.PriceAlert{}},
		{"negative bound", core.PriceAlert{City: "Springfield", MinPriceCents: -1}},
		{"inverted bounds", core.PriceAlert{MinPriceCents: 200, MaxPriceCents: 100}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := svc.Create(ctx, "u1", &tc.alert)
			if err == nil {
				t.Fatal("expected validation error")
			}
			assertErrorType(t, err, core.ErrorTypeValidation)
		})
	}
}

func TestUpdateOwnership(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	alert := &core.PriceAlert{City: "Springfield"}
	if err := svc.Create(ctx, "u1", alert); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	alert.Active = false
	if err := svc.Update(ctx, "u1", alert); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	list, _ := svc.List(ctx, "u1")
	if list[0].Active {
		t.Error("expected alert to be deactivated")
	}

	err := svc.Update(ctx, "intruder", alert)
	if err == nil {
		t.Fatal("expected forbidden error")
	}
	assertErrorType(t, err, core.ErrorTypeForbidden)

	missing := &core.PriceAlert{ID: "no-such-alert"}
	err = svc.Update(ctx, "u1", missing)
	if err == nil {
		t.Fatal("expected not-found error")
	}
	assertErrorType(t, err, core.ErrorTypeNotFound)
}

func TestDelete(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	alert := &core.PriceAlert{City: "Springfield"}
	if err := svc.Create(ctx, "u1", alert); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	err := svc.Delete(ctx, "intruder", alert.ID)
	if err == nil {
		t.Fatal("expected forbidden error")
	}
	assertErrorType(t, err, core.ErrorTypeForbidden)

	if err := svc.Delete(ctx, "u1", alert.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	list, _ := svc.List(ctx, "u1")
	if len(list) != 0 {
		t.Errorf("expected no alerts after delete, got %+v", list)
	}
}

func TestListActiveMatching(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	seed := []core.PriceAlert{
		{City: "Springfield", MaxPriceCents: 60_000_000},
		{City: "springfield"},
		{City: "Shelbyville", MaxPriceCents: 60_000_000},
		{PropertyType: "condo"},
		{MinPriceCents: 70_000_000, MaxPriceCents: 90_000_000},
	}
	for i := range seed {
		if err := svc.Create(ctx, "u1", &seed[i]); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}
	// Deactivated alerts never match.
	seed[0].Active = false
	if err := svc.Update(ctx, "u1", &seed[0]); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	property := &core.Property{
		ID:           "p1",
		City:         "Springfield",
		PropertyType: "house",
		PriceCents:   55_000_000,
	}
	matches, err := store.ListActiveMatching(ctx, property)
	if err != nil {
		t.Fatalf("ListActiveMatching failed: %v", err)
	}

	// Only the case-insensitive unbounded Springfield alert matches:
	// the first is inactive, Shelbyville is the wrong city, condo the
	// wrong type, and the last has a floor above the price.
	if len(matches) != 1 || matches[0].ID != seed[1].ID {
		t.Errorf("unexpected matches: %+v", matches)
	}
}
