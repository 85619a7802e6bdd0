package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/manny2375/2020realtorsblue-sub000/internal/alerts"
	"github.com/manny2375/2020realtorsblue-sub000/internal/analytics"
	"github.com/manny2375/2020realtorsblue-sub000/internal/auth"
	"github.com/manny2375/2020realtorsblue-sub000/internal/cache"
	"github.com/manny2375/2020realtorsblue-sub000/internal/catalog"
	"github.com/manny2375/2020realtorsblue-sub000/internal/core"
	"github.com/manny2375/2020realtorsblue-sub000/internal/email"
	"github.com/manny2375/2020realtorsblue-sub000/internal/favorites"
	"github.com/manny2375/2020realtorsblue-sub000/internal/inquiry"
	"github.com/manny2375/2020realtorsblue-sub000/internal/kv"
	"github.com/manny2375/2020realtorsblue-sub000/internal/ratelimit"
	"github.com/manny2375/2020realtorsblue-sub000/internal/storage"
)

// testServer wires the full stack over in-memory backends.
type testServer struct {
	srv          *Server
	recorder     *email.Recorder
	catalogStore catalog.Store
	authStore    auth.Store
	kvStore      kv.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	backend, err := storage.NewSQLiteInMemory()
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	t.Cleanup(func() { backend.Close() })

	kvStore := kv.NewMemoryStore()
	sharedCache := cache.New(kvStore)

	authStore, err := auth.NewStore(backend)
	if err != nil {
		t.Fatalf("failed to create auth store: %v", err)
	}
	sessions := auth.NewSessionCache(sharedCache, 0)
	authenticator := auth.NewAuthenticator(authStore, sessions, 0)

	catalogStore, err := catalog.NewStore(backend)
	if err != nil {
		t.Fatalf("failed to create catalog store: %v", err)
	}
	catalogSvc := catalog.NewService(catalogStore, sharedCache)

	favStore, err := favorites.NewStore(backend)
	if err != nil {
		t.Fatalf("failed to create favorites store: %v", err)
	}

	emailStore, err := email.NewStore(backend)
	if err != nil {
		t.Fatalf("failed to create email store: %v", err)
	}
	recorder := email.NewRecorder(emailStore, email.RecorderConfig{BufferSize: 64, FlushInterval: time.Hour})
	t.Cleanup(func() { recorder.Close() })
	emailSvc := email.NewService(email.LogSender{}, emailStore, recorder, "Test Realty")

	inquiryStore, inquiryErr := inquiry.NewStore(backend)
	inquirySvc := inquiry.NewService(mustStore(t, inquiryStore, inquiryErr), emailSvc, catalogSvc)

	alertStore, err := alerts.NewStore(backend)
	if err != nil {
		t.Fatalf("failed to create alerts store: %v", err)
	}
	alertSvc := alerts.NewService(alertStore, emailSvc, authStore)

	analyticsStore, err := analytics.NewStore(backend)
	if err != nil {
		t.Fatalf("failed to create analytics store: %v", err)
	}
	analyticsSvc := analytics.NewService(analyticsStore, sharedCache)

	srv := New(Deps{
		Auth:      authenticator,
		Catalog:   catalogSvc,
		Favorites: favStore,
		Inquiries: inquirySvc,
		Alerts:    alertSvc,
		Email:     emailSvc,
		Analytics: analyticsSvc,
		Limiter:   ratelimit.New(kvStore),
		KV:        kvStore,
	}, nil)

	return &testServer{
		srv:          srv,
		recorder:     recorder,
		catalogStore: catalogStore,
		authStore:    authStore,
		kvStore:      kvStore,
	}
}

func mustStore(t *testing.T, store inquiry.Store, err error) inquiry.Store {
	t.Helper()
	if err != nil {
		t.Fatalf("failed to create inquiry store: %v", err)
	}
	return store
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, map[string]json.RawMessage) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echoHeaderContentType, "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	ts.srv.ServeHTTP(rec, req)

	fields := map[string]json.RawMessage{}
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &fields); err != nil {
			t.Fatalf("response is not a JSON object: %v\n%s", err, rec.Body.String())
		}
	}
	return rec, fields
}

const echoHeaderContentType = "Content-Type"

func (ts *testServer) registerAndLogin(t *testing.T, emailAddr string) string {
	t.Helper()

	rec, _ := ts.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":     emailAddr,
		"password":  "hunter2hunter2",
		"firstName": "Alex",
		"lastName":  "Reed",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register returned %d: %s", rec.Code, rec.Body.String())
	}

	rec, fields := ts.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    emailAddr,
		"password": "hunter2hunter2",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login returned %d: %s", rec.Code, rec.Body.String())
	}

	var token string
	if err := json.Unmarshal(fields["sessionToken"], &token); err != nil || token == "" {
		t.Fatalf("login response has no session token: %s", rec.Body.String())
	}
	return token
}

func (ts *testServer) seedProperty(t *testing.T, mutate func(*core.Property)) *core.Property {
	t.Helper()
	p := &core.Property{
		ID:           fmt.Sprintf("prop-%d", time.Now().UnixNano()),
		Title:        "Test Listing",
		Address:      "12 Oak St",
		City:         "Springfield",
		State:        "IL",
		PriceCents:   75_000_000,
		PropertyType: "house",
		Status:       core.StatusActive,
		Bedrooms:     3,
		Bathrooms:    2,
		CreatedAt:    time.Now().UTC(),
	}
	if mutate != nil {
		mutate(p)
	}
	if err := ts.catalogStore.CreateProperty(context.Background(), p); err != nil {
		t.Fatalf("failed to seed property: %v", err)
	}
	return p
}

// staffToken creates a user with the given role directly in the store and
// opens a session for it, bypassing the public register flow.
func (ts *testServer) staffToken(t *testing.T, role string) string {
	t.Helper()
	ctx := context.Background()

	user := &core.User{
		ID:        fmt.Sprintf("staff-%d", time.Now().UnixNano()),
		Email:     fmt.Sprintf("%s-%d@example.com", role, time.Now().UnixNano()),
		FirstName: "Staff",
		LastName:  "Member",
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}
	if err := ts.authStore.CreateUser(ctx, user, "unused-hash"); err != nil {
		t.Fatalf("failed to create staff user: %v", err)
	}

	token := fmt.Sprintf("staff-token-%d", time.Now().UnixNano())
	if err := ts.authStore.CreateSession(ctx, token, user.ID, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("failed to create staff session: %v", err)
	}
	return token
}

func TestEndToEndScenario(t *testing.T) {
	ts := newTestServer(t)

	ts.seedProperty(t, func(p *core.Property) { p.ID = "in-band"; p.PriceCents = 75_000_000 })
	ts.seedProperty(t, func(p *core.Property) { p.ID = "too-cheap"; p.PriceCents = 30_000_000 })
	ts.seedProperty(t, func(p *core.Property) { p.ID = "too-dear"; p.PriceCents = 150_000_000 })

	// Fresh registration succeeds.
	rec, fields := ts.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":     "buyer@example.com",
		"password":  "hunter2hunter2",
		"firstName": "Alex",
		"lastName":  "Reed",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register returned %d: %s", rec.Code, rec.Body.String())
	}
	if _, ok := fields["userId"]; !ok {
		t.Fatalf("register response missing userId: %s", rec.Body.String())
	}

	// Same email again conflicts.
	rec, fields = ts.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":     "buyer@example.com",
		"password":  "hunter2hunter2",
		"firstName": "Alex",
		"lastName":  "Reed",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate register returned %d: %s", rec.Code, rec.Body.String())
	}
	var errMsg string
	if err := json.Unmarshal(fields["error"], &errMsg); err != nil || errMsg == "" {
		t.Fatalf("duplicate register has no error message: %s", rec.Body.String())
	}

	// Correct password logs in.
	rec, fields = ts.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "buyer@example.com",
		"password": "hunter2hunter2",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login returned %d: %s", rec.Code, rec.Body.String())
	}
	if string(fields["success"]) != "true" {
		t.Fatalf("login response not successful: %s", rec.Body.String())
	}

	// Price band filter returns only the in-band listing, compared in cents.
	rec, fields = ts.do(t, http.MethodGet, "/api/properties?minPrice=50000000&maxPrice=100000000", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("properties returned %d: %s", rec.Code, rec.Body.String())
	}
	var properties []core.Property
	if err := json.Unmarshal(fields["properties"], &properties); err != nil {
		t.Fatalf("failed to decode properties: %v", err)
	}
	if len(properties) != 1 || properties[0].ID != "in-band" {
		t.Errorf("unexpected filtered listings: %+v", properties)
	}
}

func TestRegisterValidation(t *testing.T) {
	ts := newTestServer(t)

	cases := []struct {
		name string
		body map[string]string
	}{
		{"bad email", map[string]string{"email": "nope", "password": "hunter2hunter2", "firstName": "A", "lastName": "B"}},
		{"short password", map[string]string{"email": "a@b.co", "password": "short", "firstName": "A", "lastName": "B"}},
		{"missing names", map[string]string{"email": "a@b.co", "password": "hunter2hunter2"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, _ := ts.do(t, http.MethodPost, "/api/auth/register", "", tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	ts := newTestServer(t)
	ts.registerAndLogin(t, "known@example.com")

	rec, _ := ts.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "known@example.com",
		"password": "wrong-password",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong password: expected 401, got %d", rec.Code)
	}

	rec, _ = ts.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "unknown@example.com",
		"password": "whatever123",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("unknown email: expected 401, got %d", rec.Code)
	}
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	ts := newTestServer(t)

	rec, _ := ts.do(t, http.MethodGet, "/api/favorites", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("missing token: expected 401, got %d", rec.Code)
	}

	rec, _ = ts.do(t, http.MethodGet, "/api/favorites", "not-a-real-token", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bogus token: expected 401, got %d", rec.Code)
	}
}

func TestLogoutInvalidatesSession(t *testing.T) {
	ts := newTestServer(t)
	token := ts.registerAndLogin(t, "leaver@example.com")

	rec, fields := ts.do(t, http.MethodGet, "/api/auth/me", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("me returned %d", rec.Code)
	}
	var user core.User
	if err := json.Unmarshal(fields["user"], &user); err != nil || user.Email != "leaver@example.com" {
		t.Fatalf("unexpected me response: %s", rec.Body.String())
	}

	rec, _ = ts.do(t, http.MethodPost, "/api/auth/logout", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("logout returned %d", rec.Code)
	}

	rec, _ = ts.do(t, http.MethodGet, "/api/auth/me", token, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 after logout, got %d", rec.Code)
	}
}

func TestRegisterRateLimit(t *testing.T) {
	ts := newTestServer(t)

	for i := 0; i < registerLimit; i++ {
		rec, _ := ts.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
			"email":     fmt.Sprintf("user%d@example.com", i),
			"password":  "hunter2hunter2",
			"firstName": "A",
			"lastName":  "B",
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("request %d returned %d: %s", i, rec.Code, rec.Body.String())
		}
	}

	rec, fields := ts.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":     "overflow@example.com",
		"password":  "hunter2hunter2",
		"firstName": "A",
		"lastName":  "B",
	})
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d: %s", rec.Code, rec.Body.String())
	}
	if _, ok := fields["resetTime"]; !ok {
		t.Errorf("429 response missing resetTime: %s", rec.Body.String())
	}

	// The login bucket is separate and still open.
	rec, _ = ts.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "user0@example.com",
		"password": "hunter2hunter2",
	})
	if rec.Code != http.StatusOK {
		t.Errorf("login should not share the register bucket, got %d", rec.Code)
	}
}

func TestFavoritesFlow(t *testing.T) {
	ts := newTestServer(t)
	token := ts.registerAndLogin(t, "collector@example.com")

	rec, _ := ts.do(t, http.MethodPost, "/api/favorites", token, map[string]string{"propertyId": "p1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("add returned %d", rec.Code)
	}
	// Adding again is a no-op.
	rec, _ = ts.do(t, http.MethodPost, "/api/favorites", token, map[string]string{"propertyId": "p1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("repeat add returned %d", rec.Code)
	}

	// Sync twice with the same list stays idempotent.
	for i := 0; i < 2; i++ {
		rec, _ = ts.do(t, http.MethodPost, "/api/favorites/sync", token, map[string][]string{
			"favoriteIds": {"p1", "p2", "p3"},
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("sync returned %d", rec.Code)
		}
	}

	rec, fields := ts.do(t, http.MethodGet, "/api/favorites", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list returned %d", rec.Code)
	}
	var ids []string
	if err := json.Unmarshal(fields["favorites"], &ids); err != nil {
		t.Fatalf("failed to decode favorites: %v", err)
	}
	if len(ids) != 3 {
		t.Errorf("expected 3 favorites, got %v", ids)
	}

	rec, _ = ts.do(t, http.MethodDelete, "/api/favorites/p2", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("remove returned %d", rec.Code)
	}
	rec, fields = ts.do(t, http.MethodGet, "/api/favorites", token, nil)
	if err := json.Unmarshal(fields["favorites"], &ids); err != nil {
		t.Fatalf("failed to decode favorites: %v", err)
	}
	if len(ids) != 2 {
		t.Errorf("expected 2 favorites after remove, got %v", ids)
	}
}

func TestPropertyLookups(t *testing.T) {
	ts := newTestServer(t)
	p := ts.seedProperty(t, nil)

	rec, fields := ts.do(t, http.MethodGet, "/api/properties/"+p.ID, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get returned %d", rec.Code)
	}
	var got core.Property
	if err := json.Unmarshal(fields["property"], &got); err != nil || got.ID != p.ID {
		t.Errorf("unexpected property response: %s", rec.Body.String())
	}

	rec, _ = ts.do(t, http.MethodGet, "/api/properties/no-such-listing", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}

	rec, _ = ts.do(t, http.MethodGet, "/api/properties?minPrice=abc", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad filter, got %d", rec.Code)
	}
}

func TestSearchFeedsPopularSearches(t *testing.T) {
	ts := newTestServer(t)
	ts.seedProperty(t, func(p *core.Property) { p.Title = "Lakefront Cottage" })

	rec, _ := ts.do(t, http.MethodGet, "/api/properties/search", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without q, got %d", rec.Code)
	}

	rec, fields := ts.do(t, http.MethodGet, "/api/properties/search?q=Lakefront", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("search returned %d", rec.Code)
	}
	var properties []core.Property
	if err := json.Unmarshal(fields["properties"], &properties); err != nil || len(properties) != 1 {
		t.Errorf("unexpected search results: %s", rec.Body.String())
	}

	rec, fields = ts.do(t, http.MethodGet, "/api/analytics/popular-searches", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("popular searches returned %d", rec.Code)
	}
	var terms []analytics.SearchTerm
	if err := json.Unmarshal(fields["searches"], &terms); err != nil {
		t.Fatalf("failed to decode searches: %v", err)
	}
	if len(terms) != 1 || terms[0].Term != "lakefront" {
		t.Errorf("unexpected popular searches: %+v", terms)
	}
}

func TestInquiriesAndTours(t *testing.T) {
	ts := newTestServer(t)
	p := ts.seedProperty(t, nil)

	rec, _ := ts.do(t, http.MethodPost, "/api/inquiries", "", map[string]string{
		"name":    "Alex Reed",
		"email":   "alex@example.com",
		"message": "Still available?",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("inquiry returned %d: %s", rec.Code, rec.Body.String())
	}

	rec, _ = ts.do(t, http.MethodPost, "/api/inquiries", "", map[string]string{"name": "No Email"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for invalid inquiry, got %d", rec.Code)
	}

	rec, _ = ts.do(t, http.MethodPost, "/api/tour-request", "", map[string]string{
		"propertyId":    p.ID,
		"name":          "Alex Reed",
		"email":         "alex@example.com",
		"preferredDate": "2026-09-12",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("tour request returned %d: %s", rec.Code, rec.Body.String())
	}

	rec, _ = ts.do(t, http.MethodPost, "/api/tour-request", "", map[string]string{
		"propertyId":    "no-such-listing",
		"name":          "Alex Reed",
		"email":         "alex@example.com",
		"preferredDate": "2026-09-12",
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown listing, got %d", rec.Code)
	}
}

func TestCreatePropertyRequiresStaff(t *testing.T) {
	ts := newTestServer(t)

	body := map[string]any{"title": "New Build", "priceCents": 42_000_000, "city": "Springfield"}

	userToken := ts.registerAndLogin(t, "civilian@example.com")
	rec, _ := ts.do(t, http.MethodPost, "/api/properties", userToken, body)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-staff, got %d", rec.Code)
	}

	agentToken := ts.staffToken(t, core.RoleAgent)
	rec, fields := ts.do(t, http.MethodPost, "/api/properties", agentToken, body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 for agent, got %d: %s", rec.Code, rec.Body.String())
	}
	var created core.Property
	if err := json.Unmarshal(fields["property"], &created); err != nil || created.ID == "" {
		t.Errorf("unexpected create response: %s", rec.Body.String())
	}

	// Agent creation is admin-only.
	rec, _ = ts.do(t, http.MethodPost, "/api/agents", agentToken, map[string]string{
		"firstName": "Jordan", "lastName": "Lee",
	})
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for agent creating agents, got %d", rec.Code)
	}
	adminToken := ts.staffToken(t, core.RoleAdmin)
	rec, _ = ts.do(t, http.MethodPost, "/api/agents", adminToken, map[string]string{
		"firstName": "Jordan", "lastName": "Lee",
	})
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201 for admin, got %d", rec.Code)
	}
}

func TestPriceAlertEndpoints(t *testing.T) {
	ts := newTestServer(t)
	token := ts.registerAndLogin(t, "alerts@example.com")

	rec, fields := ts.do(t, http.MethodPost, "/api/price-alerts", token, map[string]any{
		"city":          "Springfield",
		"maxPriceCents": 80_000_000,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create returned %d: %s", rec.Code, rec.Body.String())
	}
	var alert core.PriceAlert
	if err := json.Unmarshal(fields["alert"], &alert); err != nil || alert.ID == "" {
		t.Fatalf("unexpected create response: %s", rec.Body.String())
	}

	rec, fields = ts.do(t, http.MethodGet, "/api/price-alerts", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list returned %d", rec.Code)
	}
	var list []core.PriceAlert
	if err := json.Unmarshal(fields["alerts"], &list); err != nil || len(list) != 1 {
		t.Fatalf("unexpected alert list: %s", rec.Body.String())
	}

	rec, _ = ts.do(t, http.MethodPut, "/api/price-alerts/"+alert.ID, token, map[string]any{
		"city":   "Springfield",
		"active": false,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update returned %d: %s", rec.Code, rec.Body.String())
	}

	rec, _ = ts.do(t, http.MethodDelete, "/api/price-alerts/"+alert.ID, token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete returned %d", rec.Code)
	}
	rec, fields = ts.do(t, http.MethodGet, "/api/price-alerts", token, nil)
	if err := json.Unmarshal(fields["alerts"], &list); err != nil || len(list) != 0 {
		t.Errorf("expected empty alert list, got %s", rec.Body.String())
	}
}

func TestEmailNotificationLifecycle(t *testing.T) {
	ts := newTestServer(t)
	token := ts.registerAndLogin(t, "notified@example.com")

	// Push the buffered welcome-email record through to storage.
	if err := ts.recorder.Close(); err != nil {
		t.Fatalf("recorder close failed: %v", err)
	}

	rec, fields := ts.do(t, http.MethodGet, "/api/email/notifications", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("notifications returned %d", rec.Code)
	}
	var notifications []core.EmailNotification
	if err := json.Unmarshal(fields["notifications"], &notifications); err != nil {
		t.Fatalf("failed to decode notifications: %v", err)
	}
	if len(notifications) != 1 || notifications[0].Template != "welcome" {
		t.Fatalf("unexpected notifications: %+v", notifications)
	}
	if notifications[0].Status != core.EmailStatusSent {
		t.Fatalf("expected sent status, got %q", notifications[0].Status)
	}

	// A delivery event from the provider flips the stored status.
	providerID := notifications[0].ProviderID
	payload := fmt.Sprintf(`[{"sg_message_id":%q,"event":"delivered"}]`, providerID+".filter001")
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/sendgrid", bytes.NewReader([]byte(payload)))
	req.Header.Set(echoHeaderContentType, "application/json")
	wrec := httptest.NewRecorder()
	ts.srv.ServeHTTP(wrec, req)
	if wrec.Code != http.StatusOK {
		t.Fatalf("webhook returned %d: %s", wrec.Code, wrec.Body.String())
	}

	rec, fields = ts.do(t, http.MethodGet, "/api/email/notifications", token, nil)
	if err := json.Unmarshal(fields["notifications"], &notifications); err != nil {
		t.Fatalf("failed to decode notifications: %v", err)
	}
	if notifications[0].Status != core.EmailStatusDelivered {
		t.Errorf("expected delivered status, got %q", notifications[0].Status)
	}

	// Stats aggregate the same records.
	rec, fields = ts.do(t, http.MethodGet, "/api/email/stats", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("stats returned %d", rec.Code)
	}
	var stats email.Stats
	if err := json.Unmarshal(fields["stats"], &stats); err != nil || stats.Total != 1 || stats.Delivered != 1 {
		t.Errorf("unexpected stats: %s", rec.Body.String())
	}
}

func TestEmailPreferences(t *testing.T) {
	ts := newTestServer(t)
	token := ts.registerAndLogin(t, "prefs@example.com")

	rec, fields := ts.do(t, http.MethodGet, "/api/email/preferences", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get preferences returned %d", rec.Code)
	}
	var prefs core.EmailPreferences
	if err := json.Unmarshal(fields["preferences"], &prefs); err != nil || !prefs.Marketing {
		t.Fatalf("expected all-on defaults: %s", rec.Body.String())
	}

	rec, _ = ts.do(t, http.MethodPost, "/api/email/preferences", token, map[string]any{
		"marketing":        false,
		"priceAlerts":      true,
		"tourConfirmation": true,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("set preferences returned %d", rec.Code)
	}

	rec, fields = ts.do(t, http.MethodGet, "/api/email/preferences", token, nil)
	if err := json.Unmarshal(fields["preferences"], &prefs); err != nil || prefs.Marketing {
		t.Errorf("expected marketing off: %s", rec.Body.String())
	}
}

func TestHealthEndpoints(t *testing.T) {
	ts := newTestServer(t)

	rec, _ := ts.do(t, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("health returned %d", rec.Code)
	}

	rec, _ = ts.do(t, http.MethodGet, "/api/health/kv", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("kv health returned %d", rec.Code)
	}

	rec, fields := ts.do(t, http.MethodGet, "/api/analytics/metrics", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("metrics summary returned %d", rec.Code)
	}
	if _, ok := fields["requests"]; !ok {
		t.Errorf("summary missing request count: %s", rec.Body.String())
	}
}
