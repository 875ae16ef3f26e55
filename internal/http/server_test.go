package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tally/internal/core"
	"tally/internal/ledger"
	"tally/internal/notify"
	"tally/internal/remote"
	"tally/internal/remote/memory"
	"tally/internal/settings"
	appsync "tally/internal/sync"
)

type memPersister struct {
	snapshot []core.Transaction
}

func (p *memPersister) SaveSnapshot(ctx context.Context, list []core.Transaction) error {
	p.snapshot = append([]core.Transaction(nil), list...)
	return nil
}

func (p *memPersister) LoadSnapshot(ctx context.Context) ([]core.Transaction, error) {
	return append([]core.Transaction(nil), p.snapshot...), nil
}

type memSettingsStore struct {
	values map[string]string
}

func (s *memSettingsStore) GetSetting(ctx context.Context, key string) (string, bool, error) {
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *memSettingsStore) SetSetting(ctx context.Context, key, value string) error {
	if s.values == nil {
		s.values = make(map[string]string)
	}
	s.values[key] = value
	return nil
}

type testEnv struct {
	srv    *Server
	store  *ledger.Store
	svc    *settings.Service
	mirror *memory.Mirror
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	rec := &notify.Recorder{}
	store := ledger.NewStore(&memPersister{}, rec)
	svc := settings.NewService(&memSettingsStore{}, rec)
	mirror := memory.New(nil)
	client := appsync.NewClient(store, svc, rec, func(url string) remote.Mirror { return mirror })
	return &testEnv{
		srv:    NewServer(":0", store, svc, client),
		store:  store,
		svc:    svc,
		mirror: mirror,
	}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rr := httptest.NewRecorder()
	e.srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response: %v (body: %s)", err, rr.Body.String())
	}
	return v
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t)
	defer env.srv.Shutdown(context.Background())

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := env.do(t, http.MethodGet, path, "")
		if rr.Code != http.StatusOK {
			t.Errorf("%s status = %d, want 200", path, rr.Code)
		}
	}
}

func TestCreateAndListTransactions(t *testing.T) {
	env := newTestEnv(t)
	defer env.srv.Shutdown(context.Background())

	rr := env.do(t, http.MethodPost, "/api/transactions",
		`{"type":"expense","amount":42.50,"description":"Groceries","category":"food"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status = %d, want 201 (body: %s)", rr.Code, rr.Body.String())
	}
	created := decode[transactionJSON](t, rr)
	if created.ID == "" {
		t.Error("created transaction should have an id")
	}
	if created.Amount != 42.50 {
		t.Errorf("created amount = %v, want 42.50", created.Amount)
	}
	if created.CategoryName != "Food & Dining" || created.CategoryColor == "" {
		t.Errorf("created category metadata = %q/%q, want resolved registry entry",
			created.CategoryName, created.CategoryColor)
	}
	if _, err := time.Parse(time.RFC3339, created.Date); err != nil {
		t.Errorf("created date %q not RFC3339: %v", created.Date, err)
	}

	rr = env.do(t, http.MethodPost, "/api/transactions",
		`{"type":"income","amount":3000,"description":"Salary","category":"salary"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status = %d, want 201", rr.Code)
	}

	rr = env.do(t, http.MethodGet, "/api/transactions", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("list status = %d, want 200", rr.Code)
	}
	list := decode[[]transactionJSON](t, rr)
	if len(list) != 2 {
		t.Fatalf("list has %d entries, want 2", len(list))
	}
	// Newest first.
	if list[0].Description != "Salary" || list[1].Description != "Groceries" {
		t.Errorf("list order = %q, %q; want Salary, Groceries", list[0].Description, list[1].Description)
	}
}

func TestCreateTransactionDecimalStringAmount(t *testing.T) {
	env := newTestEnv(t)
	defer env.srv.Shutdown(context.Background())

	tests := []struct {
		name   string
		amount string
		want   float64
		status int
	}{
		{"dot separator", `"12.34"`, 12.34, http.StatusCreated},
		{"comma separator", `"12,34"`, 12.34, http.StatusCreated},
		{"rounds half up", `"12.345"`, 12.35, http.StatusCreated},
		{"not a number", `"twelve"`, 0, http.StatusUnprocessableEntity},
		{"negative string", `"-5"`, 0, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := `{"type":"expense","amount":` + tt.amount + `,"description":"x","category":"food"}`
			rr := env.do(t, http.MethodPost, "/api/transactions", body)
			if rr.Code != tt.status {
				t.Fatalf("status = %d, want %d (body: %s)", rr.Code, tt.status, rr.Body.String())
			}
			if tt.status != http.StatusCreated {
				return
			}
			created := decode[transactionJSON](t, rr)
			if created.Amount != tt.want {
				t.Errorf("amount = %v, want %v", created.Amount, tt.want)
			}
		})
	}
}

func TestCreateTransactionValidation(t *testing.T) {
	env := newTestEnv(t)
	defer env.srv.Shutdown(context.Background())

	tests := []struct {
		name string
		body string
		want int
	}{
		{"bad json", `{not json`, http.StatusBadRequest},
		{"unknown type", `{"type":"transfer","amount":5,"description":"x","category":"food"}`, http.StatusUnprocessableEntity},
		{"zero amount", `{"type":"expense","amount":0,"description":"x","category":"food"}`, http.StatusUnprocessableEntity},
		{"negative amount", `{"type":"expense","amount":-3,"description":"x","category":"food"}`, http.StatusUnprocessableEntity},
		{"empty description", `{"type":"expense","amount":5,"description":"  ","category":"food"}`, http.StatusUnprocessableEntity},
		{"empty category", `{"type":"expense","amount":5,"description":"x","category":""}`, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(t, http.MethodPost, "/api/transactions", tt.body)
			if rr.Code != tt.want {
				t.Errorf("status = %d, want %d (body: %s)", rr.Code, tt.want, rr.Body.String())
			}
		})
	}

	if env.store.Count() != 0 {
		t.Errorf("store has %d entries after rejected creates, want 0", env.store.Count())
	}
}

func TestDeleteTransaction(t *testing.T) {
	env := newTestEnv(t)
	defer env.srv.Shutdown(context.Background())

	rr := env.do(t, http.MethodPost, "/api/transactions",
		`{"type":"expense","amount":10,"description":"Bus","category":"transport"}`)
	created := decode[transactionJSON](t, rr)

	rr = env.do(t, http.MethodDelete, "/api/transactions/"+created.ID, "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", rr.Code)
	}
	if env.store.Count() != 0 {
		t.Errorf("store has %d entries after delete, want 0", env.store.Count())
	}

	rr = env.do(t, http.MethodDelete, "/api/transactions/"+created.ID, "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("repeat delete status = %d, want 404", rr.Code)
	}
}

func TestSummary(t *testing.T) {
	env := newTestEnv(t)
	defer env.srv.Shutdown(context.Background())

	env.do(t, http.MethodPost, "/api/transactions",
		`{"type":"income","amount":3000,"description":"Salary","category":"salary"}`)
	env.do(t, http.MethodPost, "/api/transactions",
		`{"type":"expense","amount":500,"description":"Rent","category":"housing"}`)
	env.do(t, http.MethodPost, "/api/transactions",
		`{"type":"expense","amount":200,"description":"Groceries","category":"food"}`)

	rr := env.do(t, http.MethodGet, "/api/summary", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("summary status = %d, want 200", rr.Code)
	}
	sum := decode[summaryJSON](t, rr)

	if sum.Totals.Income != 3000 || sum.Totals.Expenses != 700 || sum.Totals.Balance != 2300 {
		t.Errorf("totals = %+v, want income 3000, expenses 700, balance 2300", sum.Totals)
	}
	// All entries are stamped now, so month totals match full totals.
	if sum.Month != sum.Totals {
		t.Errorf("month = %+v, want %+v", sum.Month, sum.Totals)
	}
	if sum.Savings.Goal != 450 {
		t.Errorf("savings goal = %v, want 450", sum.Savings.Goal)
	}
	if len(sum.Breakdown) != 2 {
		t.Fatalf("breakdown has %d rows, want 2", len(sum.Breakdown))
	}
	if sum.Breakdown[0].CategoryID != "housing" || sum.Breakdown[0].Amount != 500 {
		t.Errorf("breakdown[0] = %+v, want housing 500", sum.Breakdown[0])
	}
	if sum.Breakdown[1].Name != "Food & Dining" && sum.Breakdown[1].CategoryID != "food" {
		t.Errorf("breakdown[1] = %+v, want food", sum.Breakdown[1])
	}
}

func TestCategories(t *testing.T) {
	env := newTestEnv(t)
	defer env.srv.Shutdown(context.Background())

	rr := env.do(t, http.MethodGet, "/api/categories", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("categories status = %d, want 200", rr.Code)
	}
	cats := decode[map[string][]categoryJSON](t, rr)
	if len(cats["income"]) == 0 || len(cats["expense"]) == 0 {
		t.Fatal("expected both income and expense category lists")
	}
	found := false
	for _, c := range cats["expense"] {
		if c.ID == "food" && c.Color != "" {
			found = true
		}
	}
	if !found {
		t.Error("expense categories should include food with a color")
	}
	if len(cats["all"]) != len(cats["income"])+len(cats["expense"]) {
		t.Errorf("combined list has %d entries, want %d",
			len(cats["all"]), len(cats["income"])+len(cats["expense"]))
	}
}

func TestSettingsUpdate(t *testing.T) {
	env := newTestEnv(t)
	defer env.srv.Shutdown(context.Background())

	rr := env.do(t, http.MethodGet, "/api/settings", "")
	got := decode[settingsJSON](t, rr)
	if got.EndpointURL != "" || got.AutoSave {
		t.Errorf("default settings = %+v, want empty url and auto-save off", got)
	}

	rr = env.do(t, http.MethodPut, "/api/settings",
		`{"endpoint_url":"https://example.com/hook","auto_save":true}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("update status = %d, want 200", rr.Code)
	}
	got = decode[settingsJSON](t, rr)
	if got.EndpointURL != "https://example.com/hook" || !got.AutoSave {
		t.Errorf("updated settings = %+v", got)
	}

	// Partial update leaves the other field alone.
	rr = env.do(t, http.MethodPut, "/api/settings", `{"auto_save":false}`)
	got = decode[settingsJSON](t, rr)
	if got.EndpointURL != "https://example.com/hook" || got.AutoSave {
		t.Errorf("partial update settings = %+v", got)
	}

	// A malformed URL is rejected and the stored one survives.
	rr = env.do(t, http.MethodPut, "/api/settings", `{"endpoint_url":"not a url"}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("bad url status = %d, want 422", rr.Code)
	}
	rr = env.do(t, http.MethodGet, "/api/settings", "")
	got = decode[settingsJSON](t, rr)
	if got.EndpointURL != "https://example.com/hook" {
		t.Errorf("endpoint after rejected update = %q", got.EndpointURL)
	}

	// Clearing the endpoint is allowed.
	rr = env.do(t, http.MethodPut, "/api/settings", `{"endpoint_url":""}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("clear url status = %d, want 200", rr.Code)
	}
	got = decode[settingsJSON](t, rr)
	if got.EndpointURL != "" {
		t.Errorf("endpoint after clear = %q", got.EndpointURL)
	}
}

func TestSyncFetchRequiresEndpoint(t *testing.T) {
	env := newTestEnv(t)
	defer env.srv.Shutdown(context.Background())

	rr := env.do(t, http.MethodPost, "/api/sync/fetch", "")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("fetch without endpoint status = %d, want 400", rr.Code)
	}
	rr = env.do(t, http.MethodPost, "/api/sync/save", "")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("save without endpoint status = %d, want 400", rr.Code)
	}
}

func TestSyncFetchOverwriteConfirmation(t *testing.T) {
	env := newTestEnv(t)
	defer env.srv.Shutdown(context.Background())

	env.svc.SetEndpointURL(context.Background(), "https://example.com/hook")

	remoteList := []core.Transaction{
		{ID: "r1", Type: core.Income, Amount: core.Money{Cents: 100000}, Description: "Remote", Category: "salary", Date: time.Now().UTC()},
	}
	if err := env.mirror.Save(context.Background(), remoteList); err != nil {
		t.Fatal(err)
	}

	env.do(t, http.MethodPost, "/api/transactions",
		`{"type":"expense","amount":5,"description":"Local","category":"food"}`)

	// Both sides non-empty without confirm: nothing changes.
	rr := env.do(t, http.MethodPost, "/api/sync/fetch", "")
	if rr.Code != http.StatusConflict {
		t.Fatalf("fetch status = %d, want 409 (body: %s)", rr.Code, rr.Body.String())
	}
	body := decode[map[string]any](t, rr)
	if body["confirmation_required"] != true {
		t.Errorf("409 body = %v, want confirmation_required", body)
	}
	if env.store.Count() != 1 || env.store.List()[0].Description != "Local" {
		t.Error("declined fetch must leave the ledger untouched")
	}

	rr = env.do(t, http.MethodPost, "/api/sync/fetch?confirm=1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("confirmed fetch status = %d, want 200 (body: %s)", rr.Code, rr.Body.String())
	}
	if env.store.Count() != 1 || env.store.List()[0].ID != "r1" {
		t.Error("confirmed fetch should replace the ledger with the remote list")
	}
}

func TestSyncFetchEmptyLocalNeedsNoConfirmation(t *testing.T) {
	env := newTestEnv(t)
	defer env.srv.Shutdown(context.Background())

	env.svc.SetEndpointURL(context.Background(), "https://example.com/hook")
	remoteList := []core.Transaction{
		{ID: "r1", Type: core.Expense, Amount: core.Money{Cents: 1250}, Description: "Remote", Category: "food", Date: time.Now().UTC()},
	}
	if err := env.mirror.Save(context.Background(), remoteList); err != nil {
		t.Fatal(err)
	}

	rr := env.do(t, http.MethodPost, "/api/sync/fetch", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("fetch status = %d, want 200 (body: %s)", rr.Code, rr.Body.String())
	}
	if env.store.Count() != 1 {
		t.Errorf("store count = %d, want 1", env.store.Count())
	}
}

func TestSyncSaveAndStatus(t *testing.T) {
	env := newTestEnv(t)
	defer env.srv.Shutdown(context.Background())

	rr := env.do(t, http.MethodGet, "/api/sync/status", "")
	st := decode[syncStatusJSON](t, rr)
	if st.Message != "Not connected." {
		t.Errorf("initial status message = %q", st.Message)
	}

	env.svc.SetEndpointURL(context.Background(), "https://example.com/hook")
	env.do(t, http.MethodPost, "/api/transactions",
		`{"type":"expense","amount":5,"description":"Coffee","category":"food"}`)

	rr = env.do(t, http.MethodPost, "/api/sync/save", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("save status = %d, want 200 (body: %s)", rr.Code, rr.Body.String())
	}
	if env.mirror.SaveCount() != 1 {
		t.Errorf("mirror saves = %d, want 1", env.mirror.SaveCount())
	}

	rr = env.do(t, http.MethodGet, "/api/sync/status", "")
	st = decode[syncStatusJSON](t, rr)
	if st.Message != "Data sent successfully." || st.Error {
		t.Errorf("status after save = %+v", st)
	}
}

func TestRateLimitOnMutations(t *testing.T) {
	env := newTestEnv(t)
	defer env.srv.Shutdown(context.Background())

	limited := false
	for i := 0; i < 70; i++ {
		rr := env.do(t, http.MethodPost, "/api/transactions",
			fmt.Sprintf(`{"type":"expense","amount":1,"description":"n%d","category":"food"}`, i))
		if rr.Code == http.StatusTooManyRequests {
			limited = true
			if rr.Header().Get("Retry-After") == "" {
				t.Error("429 response should carry Retry-After")
			}
			break
		}
	}
	if !limited {
		t.Error("expected rate limiting to kick in within 70 mutating requests")
	}
}
