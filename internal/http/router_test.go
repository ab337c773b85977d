// README: Router tests covering auth gating, role gating and error mapping.
package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	kilohttp "kiloadmin/internal/http"
	"kiloadmin/internal/infra"
	"kiloadmin/internal/modules/auth"
	"kiloadmin/internal/modules/customer"
	"kiloadmin/internal/modules/driver"
	"kiloadmin/internal/modules/pricing"
	"kiloadmin/internal/types"
)

type stubVerifier struct{}

// VerifyIDToken treats the raw token as the role name.
func (stubVerifier) VerifyIDToken(_ context.Context, raw string) (*infra.Token, error) {
	if raw == "bad" {
		return nil, infra.ErrInvalidToken
	}
	return &infra.Token{UID: "uid-" + raw, Claims: map[string]interface{}{infra.RoleClaim: raw}}, nil
}

type stubAuth struct{}

func (stubAuth) SignIn(_ context.Context, phone, password string) (*auth.Session, error) {
	if phone == "0911111111" && password == "secret1" {
		return &auth.Session{Token: "tok", Role: auth.RoleAdmin, Menus: auth.Menus(auth.RoleAdmin)}, nil
	}
	return nil, auth.ErrInvalidCredentials
}

type stubDrivers struct {
	created []driver.CreateCommand
	updated []driver.UpdateCommand
}

func (s *stubDrivers) List(_ context.Context, q driver.ListQuery) ([]driver.Driver, error) {
	all := []driver.Driver{{DriverID: "7B150"}, {DriverID: "7B001"}}
	return driver.FilterByTier(all, q.Tier), nil
}

func (s *stubDrivers) Get(_ context.Context, id types.ID) (*driver.Driver, error) {
	if id != "d1" {
		return nil, driver.ErrNotFound
	}
	return &driver.Driver{ID: "d1", DriverID: "7B001"}, nil
}

func (s *stubDrivers) Create(_ context.Context, cmd driver.CreateCommand) (*driver.Driver, error) {
	if cmd.DriverID == "7B001" {
		return nil, &driver.DuplicateError{Field: "driver_id", Value: cmd.DriverID}
	}
	if cmd.Password == "" {
		return nil, &driver.ValidationError{Fields: map[string]string{"password": "required"}}
	}
	s.created = append(s.created, cmd)
	return &driver.Driver{ID: "d2", DriverID: cmd.DriverID}, nil
}

func (s *stubDrivers) Update(_ context.Context, cmd driver.UpdateCommand) (*driver.Driver, error) {
	s.updated = append(s.updated, cmd)
	return &driver.Driver{ID: cmd.ID}, nil
}

func (s *stubDrivers) Delete(_ context.Context, id types.ID) error {
	if id != "d1" {
		return driver.ErrNotFound
	}
	return nil
}

type stubCustomers struct{}

func (stubCustomers) List(context.Context) ([]customer.Customer, error) {
	return []customer.Customer{{ID: "c1", Name: "Su Su"}}, nil
}

func (stubCustomers) Get(_ context.Context, id types.ID) (*customer.Customer, error) {
	return nil, errors.New("db down")
}

type stubFees struct {
	saved  []pricing.SaveCommand
	quotes []pricing.Clock
	slots  []pricing.SlotInput
}

func (s *stubFees) List(context.Context) ([]pricing.FeeConfig, error) { return nil, nil }

func (s *stubFees) Get(_ context.Context, id types.ID) (*pricing.FeeConfig, error) {
	return nil, pricing.ErrNotFound
}

func (s *stubFees) Create(_ context.Context, cmd pricing.SaveCommand) (*pricing.FeeConfig, error) {
	s.saved = append(s.saved, cmd)
	return &pricing.FeeConfig{ID: "f-new"}, nil
}

func (s *stubFees) Save(_ context.Context, cmd pricing.SaveCommand) (*pricing.FeeConfig, error) {
	s.saved = append(s.saved, cmd)
	return &pricing.FeeConfig{ID: cmd.ID, BaseFee: cmd.BaseFee}, nil
}

func (s *stubFees) AddSlot(_ context.Context, _ types.ID, in pricing.SlotInput) (*pricing.TimeSlot, error) {
	s.slots = append(s.slots, in)
	if !in.Start.Valid() {
		return nil, &pricing.ValidationError{Fields: map[string]string{"start_hour": "Start Hour required"}}
	}
	return &pricing.TimeSlot{ID: "s1", Start: in.Start, End: in.End, Fee: in.Fee}, nil
}

func (s *stubFees) UpdateSlot(_ context.Context, in pricing.SlotInput) (*pricing.TimeSlot, error) {
	s.slots = append(s.slots, in)
	return &pricing.TimeSlot{ID: in.ID}, nil
}

func (s *stubFees) DeleteSlot(context.Context, types.ID) error { return nil }

func (s *stubFees) Quote(_ context.Context, id types.ID, at pricing.Clock) (*pricing.Quote, error) {
	s.quotes = append(s.quotes, at)
	return &pricing.Quote{ConfigID: id, At: at, Base: 100, Surcharge: 20, Total: 120}, nil
}

type fixture struct {
	router  *gin.Engine
	drivers *stubDrivers
	fees    *stubFees
}

func newFixture(ready func(context.Context) error) *fixture {
	gin.SetMode(gin.TestMode)
	f := &fixture{drivers: &stubDrivers{}, fees: &stubFees{}}
	f.router = kilohttp.NewRouter(kilohttp.RouterDeps{
		Verifier:  stubVerifier{},
		Auth:      stubAuth{},
		Drivers:   f.drivers,
		Customers: stubCustomers{},
		Fees:      f.fees,
		Ready:     ready,
	})
	return f
}

func (f *fixture) do(method, path string, body interface{}, role string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		req.Header.Set("Authorization", "Bearer "+role)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return out
}

func TestHealth(t *testing.T) {
	f := newFixture(nil)
	if w := f.do(http.MethodGet, "/health", nil, ""); w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	down := newFixture(func(context.Context) error { return errors.New("redis down") })
	if w := down.do(http.MethodGet, "/health", nil, ""); w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", w.Code)
	}
}

func TestSignIn(t *testing.T) {
	f := newFixture(nil)

	w := f.do(http.MethodPost, "/api/auth/signin", map[string]string{"phone": "0911111111", "password": "secret1"}, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got := decode(t, w)["token"]; got != "tok" {
		t.Errorf("expected token tok, got %v", got)
	}

	w = f.do(http.MethodPost, "/api/auth/signin", map[string]string{"phone": "0911111111", "password": "nope"}, "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
	if got := decode(t, w)["error"]; got != "wrong username or password" {
		t.Errorf("unexpected error %v", got)
	}
}

func TestMenus_ByRole(t *testing.T) {
	f := newFixture(nil)

	w := f.do(http.MethodGet, "/api/menus", nil, "staff")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	menus, _ := decode(t, w)["menus"].([]any)
	if len(menus) != 4 {
		t.Errorf("expected 4 staff menus, got %d", len(menus))
	}

	if w := f.do(http.MethodGet, "/api/menus", nil, ""); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", w.Code)
	}
	if w := f.do(http.MethodGet, "/api/menus", nil, "bad"); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for bad token, got %d", w.Code)
	}
}

func TestRoleGates(t *testing.T) {
	f := newFixture(nil)
	cases := []struct {
		method, path, role string
		want               int
	}{
		{http.MethodGet, "/api/drivers", "staff", http.StatusOK},
		{http.MethodGet, "/api/tiers", "staff", http.StatusOK},
		{http.MethodGet, "/api/customers", "staff", http.StatusForbidden},
		{http.MethodGet, "/api/customers", "admin", http.StatusOK},
		{http.MethodGet, "/api/fee-configs", "staff", http.StatusForbidden},
		{http.MethodGet, "/api/fee-configs", "admin", http.StatusOK},
		{http.MethodDelete, "/api/time-fees/s1", "staff", http.StatusForbidden},
		{http.MethodGet, "/api/fee-configs", "owner", http.StatusForbidden},
	}
	for _, tc := range cases {
		if w := f.do(tc.method, tc.path, nil, tc.role); w.Code != tc.want {
			t.Errorf("%s %s as %s: expected %d, got %d", tc.method, tc.path, tc.role, tc.want, w.Code)
		}
	}
}

func TestNonAdminTokensCannotWrite(t *testing.T) {
	f := newFixture(nil)
	body := map[string]any{"driver_id": "7B010", "name": "Ko Aung", "phone": "0912345678", "password": "secret1"}

	if w := f.do(http.MethodPost, "/api/drivers", body, "passenger"); w.Code != http.StatusForbidden {
		t.Errorf("create driver as passenger: expected 403, got %d", w.Code)
	}
	if w := f.do(http.MethodDelete, "/api/drivers/d1", nil, "passenger"); w.Code != http.StatusForbidden {
		t.Errorf("delete driver as passenger: expected 403, got %d", w.Code)
	}
	if w := f.do(http.MethodGet, "/api/drivers", nil, "passenger"); w.Code != http.StatusForbidden {
		t.Errorf("list drivers as passenger: expected 403, got %d", w.Code)
	}
	if w := f.do(http.MethodDelete, "/api/drivers/d1", nil, "staff"); w.Code != http.StatusNoContent {
		t.Errorf("delete driver as staff: expected 204, got %d", w.Code)
	}
}

func TestDrivers_ListQuery(t *testing.T) {
	f := newFixture(nil)

	w := f.do(http.MethodGet, "/api/drivers?tier=1", nil, "staff")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "7B001") || strings.Contains(w.Body.String(), "7B150") {
		t.Errorf("expected only tier 1 drivers, got %s", w.Body.String())
	}

	if w := f.do(http.MethodGet, "/api/drivers?order=up", nil, "staff"); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestDrivers_CreateErrors(t *testing.T) {
	f := newFixture(nil)

	w := f.do(http.MethodPost, "/api/drivers", map[string]string{"driver_id": "7B001", "password": "123456"}, "staff")
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
	body := decode(t, w)
	if body["code"] != "DUPLICATE_DRIVER_ID" || body["error"] != "Driver ID 7B001 is already in use" {
		t.Errorf("unexpected body %v", body)
	}

	w = f.do(http.MethodPost, "/api/drivers", map[string]string{"driver_id": "7B002"}, "staff")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if fields, _ := decode(t, w)["fields"].(map[string]any); fields["password"] == nil {
		t.Errorf("expected password field error, got %s", w.Body.String())
	}

	w = f.do(http.MethodPost, "/api/drivers", map[string]string{"driver_id": "7B002", "password": "123456"}, "staff")
	if w.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", w.Code)
	}
}

func TestDrivers_UpdateAndDelete(t *testing.T) {
	f := newFixture(nil)

	w := f.do(http.MethodPatch, "/api/drivers/d1", map[string]any{"disabled": true, "street": "1 Road", "city": "Bago"}, "admin")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if len(f.drivers.updated) != 1 || f.drivers.updated[0].ID != "d1" || !f.drivers.updated[0].Disabled {
		t.Fatalf("unexpected update %+v", f.drivers.updated)
	}
	if c := f.drivers.updated[0].City; c == nil || *c != "Bago" {
		t.Errorf("city not passed through")
	}

	if w := f.do(http.MethodDelete, "/api/drivers/d1", nil, "staff"); w.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", w.Code)
	}
	if w := f.do(http.MethodDelete, "/api/drivers/zz", nil, "staff"); w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestCustomers_InternalErrorHidden(t *testing.T) {
	f := newFixture(nil)

	w := f.do(http.MethodGet, "/api/customers/c1", nil, "admin")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "db down") {
		t.Errorf("internal error leaked: %s", w.Body.String())
	}
}

func TestFees_SaveDefaults(t *testing.T) {
	f := newFixture(nil)

	w := f.do(http.MethodPut, "/api/fee-configs/f1", map[string]any{
		"base_fee": 1500,
		"time_based_fees": []map[string]any{
			{"start_hour": "22:00", "end_hour": "06:00", "fee": 500},
			{"end_hour": "09:00", "fee": 100},
		},
	}, "admin")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	cmd := f.fees.saved[0]
	if cmd.ID != "f1" || cmd.BaseFee != 1500 {
		t.Errorf("unexpected command %+v", cmd)
	}
	if cmd.FreeWaitingMinute != 10 || cmd.CommissionRateType != pricing.CommissionFixed {
		t.Errorf("defaults not applied: %+v", cmd)
	}
	if cmd.TimeBasedFees[0].Start != pricing.NewClock(22, 0) {
		t.Errorf("unexpected start %v", cmd.TimeBasedFees[0].Start)
	}
	if cmd.TimeBasedFees[1].Start != pricing.NoClock {
		t.Errorf("omitted start must stay unset, got %v", cmd.TimeBasedFees[1].Start)
	}

	if w := f.do(http.MethodPut, "/api/fee-configs/f1", map[string]any{
		"time_based_fees": []map[string]any{{"start_hour": "25:00"}},
	}, "admin"); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad hour, got %d", w.Code)
	}
}

func TestFees_CreateAndGet(t *testing.T) {
	f := newFixture(nil)

	if w := f.do(http.MethodPost, "/api/fee-configs", map[string]any{"base_fee": 1000}, "admin"); w.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", w.Code)
	}
	if w := f.do(http.MethodGet, "/api/fee-configs/f9", nil, "admin"); w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
	w := f.do(http.MethodGet, "/api/fee-configs", nil, "admin")
	if strings.TrimSpace(w.Body.String()) != "[]" {
		t.Errorf("expected empty list, got %s", w.Body.String())
	}
}

func TestFees_Quote(t *testing.T) {
	f := newFixture(nil)

	w := f.do(http.MethodGet, "/api/fee-configs/f1/quote?at=13:05", nil, "admin")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if body := decode(t, w); body["total"] != float64(120) || body["at"] != "13:05" {
		t.Errorf("unexpected quote %v", body)
	}

	f.do(http.MethodGet, "/api/fee-configs/f1/quote", nil, "admin")
	if f.fees.quotes[1] != pricing.NoClock {
		t.Errorf("expected NoClock when at is omitted, got %v", f.fees.quotes[1])
	}

	if w := f.do(http.MethodGet, "/api/fee-configs/f1/quote?at=noon", nil, "admin"); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestFees_SlotMutations(t *testing.T) {
	f := newFixture(nil)

	w := f.do(http.MethodPost, "/api/fee-configs/f1/time-fees", map[string]any{"end_hour": "10:00", "fee": 50}, "admin")
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	w = f.do(http.MethodPost, "/api/fee-configs/f1/time-fees", map[string]any{"start_hour": "08:00", "end_hour": "10:00", "fee": 50}, "admin")
	if w.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", w.Code)
	}
	w = f.do(http.MethodPut, "/api/time-fees/s1", map[string]any{"id": "ignored", "start_hour": "08:00", "end_hour": "11:00", "fee": 60}, "admin")
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if last := f.fees.slots[len(f.fees.slots)-1]; last.ID != "s1" {
		t.Errorf("path id must win, got %q", last.ID)
	}
	if w := f.do(http.MethodDelete, "/api/time-fees/s1", nil, "admin"); w.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", w.Code)
	}
}

func TestServer_RunStopsOnCancel(t *testing.T) {
	srv := kilohttp.NewServer("127.0.0.1:0", http.NotFoundHandler(), time.Second, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("unexpected error %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}
