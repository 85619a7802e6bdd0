package inquiry

import (
	"context"
	"errors"
	"testing"

	"github.com/manny2375/2020realtorsblue-sub000/internal/core"
	"github.com/manny2375/2020realtorsblue-sub000/internal/storage"
)

type fakeProperties struct {
	known map[string]*core.Property
}

func (f *fakeProperties) GetProperty(_ context.Context, id string) (*core.Property, error) {
	if p, ok := f.known[id]; ok {
		return p, nil
	}
	return nil, errors.New("not found")
}

func newTestService(t *testing.T) (*Service, Store) {
	t.Helper()
	db, err := storage.NewSQLiteInMemory()
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store, err := NewStore(db)
	if err != nil {
		t.Fatalf("failed to create inquiry store: %v", err)
	}

	properties := &fakeProperties{known: map[string]*core.Property{
		"p1": {ID: "p1", Title: "Bungalow", Address: "12 Oak St", City: "Springfield"},
	}}
	return NewService(store, nil, properties), store
}

func errorType(t *testing.T, err error) core.ErrorType {
	t.Helper()
	var apiErr *core.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T: %v", err, err)
	}
	return apiErr.Type
}

func TestSubmitInquiry(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	inq := &core.Inquiry{
		Name:    "  Alex Reed  ",
		Email:   "alex@example.com",
		Message: "Is the bungalow still available?",
	}
	if err := svc.SubmitInquiry(ctx, inq); err != nil {
		t.Fatalf("SubmitInquiry failed: %v", err)
	}
	if inq.ID == "" {
		t.Error("expected a generated id")
	}
	if inq.Name != "Alex Reed" {
		t.Errorf("expected trimmed name, got %q", inq.Name)
	}

	list, err := store.ListInquiries(ctx, 10)
	if err != nil {
		t.Fatalf("ListInquiries failed: %v", err)
	}
	if len(list) != 1 || list[0].Message != inq.Message {
		t.Errorf("unexpected stored inquiries: %+v", list)
	}
}

func TestSubmitInquiryValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name string
		inq  core.Inquiry
	}{
		{"missing name", core.Inquiry{Email: "a@b.co", Message: "hi"}},
		{"missing email", core.Inquiry{Name: "Alex", Message: "hi"}},
		{"invalid email", core.Inquiry{Name: "Alex", Email: "not-an-address", Message: "hi"}},
		{"missing message", core.Inquiry{Name: "Alex", Email: "a@b.co"}},
		{"whitespace only", core.Inquiry{Name: " ", Email: "a@b.co", Message: " "}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := svc.SubmitInquiry(ctx, &tc.inq)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if got := errorType(t, err); got != core.ErrorTypeValidation {
				t.Errorf("expected validation error type, got %q", got)
			}
		})
	}
}

func TestSubmitTourRequest(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	req := &core.TourRequest{
		PropertyID:    "p1",
		Name:          "Alex Reed",
		Email:         "alex@example.com",
		PreferredDate: "2026-09-12",
	}
	if err := svc.SubmitTourRequest(ctx, req); err != nil {
		t.Fatalf("SubmitTourRequest failed: %v", err)
	}

	list, err := store.ListTourRequests(ctx, 10)
	if err != nil {
		t.Fatalf("ListTourRequests failed: %v", err)
	}
	if len(list) != 1 || list[0].PropertyID != "p1" {
		t.Errorf("unexpected stored tour requests: %+v", list)
	}
}

func TestSubmitTourRequestUnknownProperty(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	req := &core.TourRequest{
		PropertyID:    "no-such-listing",
		Name:          "Alex Reed",
		Email:         "alex@example.com",
		PreferredDate: "2026-09-12",
	}
	err := svc.SubmitTourRequest(ctx, req)
	if err == nil {
		t.Fatal("expected not-found error")
	}
	if got := errorType(t, err); got != core.ErrorTypeNotFound {
		t.Errorf("expected not_found error type, got %q", got)
	}

	list, err := store.ListTourRequests(ctx, 10)
	if err != nil {
		t.Fatalf("ListTourRequests failed: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("expected nothing stored, got %+v", list)
	}
}

func TestSubmitTourRequestValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name string
		req  core.TourRequest
	}{
		{"missing property", core.TourRequest{Name: "Alex", Email: "a@b.co", PreferredDate: "2026-09-12"}},
		{"missing date", core.TourRequest{PropertyID: "p1", Name: "Alex", Email: "a@b.co"}},
		{"invalid email", core.TourRequest{PropertyID: "p1", Name: "Alex", Email: "nope", PreferredDate: "2026-09-12"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := svc.SubmitTourRequest(ctx, &tc.req)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if got := errorType(t, err); got != core.ErrorTypeValidation {
				t.Errorf("expected validation error type, got %q", got)
			}
		})
	}
}
