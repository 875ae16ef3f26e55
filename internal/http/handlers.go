package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"tally/internal/core"
	applog "tally/internal/log"
	appsync "tally/internal/sync"
)

const maxRequestBytes = 1 << 20

// transactionJSON is the API shape of a ledger entry. Amounts travel as
// decimal currency units, matching the webhook wire format. Category
// display metadata is resolved server-side so list rows render without a
// second lookup; unknown ids fall back to the neutral Other entry.
type transactionJSON struct {
	ID            string  `json:"id"`
	Type          string  `json:"type"`
	Amount        float64 `json:"amount"`
	Description   string  `json:"description"`
	Category      string  `json:"category"`
	CategoryName  string  `json:"category_name"`
	CategoryColor string  `json:"category_color"`
	Date          string  `json:"date"`
}

func toTransactionJSON(t core.Transaction) transactionJSON {
	cat, _ := core.LookupCategory(t.Category)
	return transactionJSON{
		ID:            t.ID,
		Type:          string(t.Type),
		Amount:        t.Amount.Dollars(),
		Description:   t.Description,
		Category:      t.Category,
		CategoryName:  cat.Name,
		CategoryColor: cat.Color,
		Date:          t.Date.UTC().Format(time.RFC3339),
	}
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	list := s.store.List()
	out := make([]transactionJSON, 0, len(list))
	for _, t := range list {
		out = append(out, toTransactionJSON(t))
	}
	writeJSON(w, http.StatusOK, out)
}

type createTransactionRequest struct {
	Type        string          `json:"type"`
	Amount      json.RawMessage `json:"amount"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
}

// parseAmount accepts the amount as a JSON number of currency units or
// as a decimal string ("12.34", "12,34"), which spreadsheet-shaped
// clients tend to send.
func parseAmount(raw json.RawMessage) (core.Money, error) {
	if len(raw) == 0 {
		return core.Money{}, core.ErrInvalidAmount
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return core.Money{}, core.ErrInvalidAmount
		}
		cents, err := core.ParseDecimalToCents(s)
		if err != nil {
			return core.Money{}, err
		}
		return core.Money{Cents: cents}, nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return core.Money{}, core.ErrInvalidAmount
	}
	return core.FromDollars(f), nil
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	draft := core.Draft{
		Type:        core.TransactionType(req.Type),
		Amount:      amount,
		Description: sanitizeInput(req.Description),
		Category:    sanitizeInput(req.Category),
	}
	if err := draft.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	created := s.store.Add(r.Context(), draft)
	slog.InfoContext(r.Context(), "Transaction created",
		applog.FieldTransactionID, created.ID,
		"type", created.Type,
		applog.FieldAmountCents, created.Amount.Cents,
		applog.FieldCategory, created.Category)
	writeJSON(w, http.StatusCreated, toTransactionJSON(created))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !s.store.Remove(r.Context(), id) {
		writeError(w, http.StatusNotFound, "transaction not found")
		return
	}
	slog.InfoContext(r.Context(), "Transaction deleted", applog.FieldTransactionID, id)
	w.WriteHeader(http.StatusNoContent)
}

type totalsJSON struct {
	Income   float64 `json:"income"`
	Expenses float64 `json:"expenses"`
	Balance  float64 `json:"balance"`
}

func toTotalsJSON(t core.Totals) totalsJSON {
	return totalsJSON{
		Income:   t.Income.Dollars(),
		Expenses: t.Expenses.Dollars(),
		Balance:  t.Balance.Dollars(),
	}
}

type breakdownRowJSON struct {
	CategoryID string  `json:"category_id"`
	Name       string  `json:"name"`
	Color      string  `json:"color"`
	Amount     float64 `json:"amount"`
}

type savingsJSON struct {
	Goal    float64 `json:"goal"`
	Saved   float64 `json:"saved"`
	Percent float64 `json:"percent"`
}

type summaryJSON struct {
	Totals    totalsJSON         `json:"totals"`
	Month     totalsJSON         `json:"month"`
	Breakdown []breakdownRowJSON `json:"breakdown"`
	Savings   savingsJSON        `json:"savings"`
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	list := s.store.List()
	month := core.MonthTotals(list, time.Now())
	savings := core.ComputeSavings(month.Income, month.Expenses)

	breakdown := core.CategoryBreakdown(list)
	rows := make([]breakdownRowJSON, 0, len(breakdown))
	for _, b := range breakdown {
		rows = append(rows, breakdownRowJSON{
			CategoryID: b.CategoryID,
			Name:       b.Name,
			Color:      b.Color,
			Amount:     b.Amount.Dollars(),
		})
	}

	writeJSON(w, http.StatusOK, summaryJSON{
		Totals:    toTotalsJSON(core.ComputeTotals(list)),
		Month:     toTotalsJSON(month),
		Breakdown: rows,
		Savings: savingsJSON{
			Goal:    savings.Goal.Dollars(),
			Saved:   savings.Saved.Dollars(),
			Percent: savings.Percent,
		},
	})
}

type categoryJSON struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
	Icon  string `json:"icon"`
}

func toCategoryJSON(list []core.Category) []categoryJSON {
	out := make([]categoryJSON, 0, len(list))
	for _, c := range list {
		out = append(out, categoryJSON{ID: c.ID, Name: c.Name, Color: c.Color, Icon: c.Icon})
	}
	return out
}

// handleCategories serves the compiled-in registry: per-type lists for
// entry forms plus the combined set for rendering mixed lists.
func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]categoryJSON{
		"income":  toCategoryJSON(core.IncomeCategories),
		"expense": toCategoryJSON(core.ExpenseCategories),
		"all":     toCategoryJSON(core.AllCategories()),
	})
}

type settingsJSON struct {
	EndpointURL string `json:"endpoint_url"`
	AutoSave    bool   `json:"auto_save"`
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	cur := s.settings.Current()
	writeJSON(w, http.StatusOK, settingsJSON{EndpointURL: cur.EndpointURL, AutoSave: cur.AutoSave})
}

type updateSettingsRequest struct {
	EndpointURL *string `json:"endpoint_url"`
	AutoSave    *bool   `json:"auto_save"`
}

// handleUpdateSettings applies a partial settings update: only fields
// present in the body change.
func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req updateSettingsRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.EndpointURL != nil {
		endpoint := sanitizeInput(*req.EndpointURL)
		if endpoint != "" && !validEndpointURL(endpoint) {
			writeError(w, http.StatusUnprocessableEntity, "endpoint_url must be an absolute http or https URL")
			return
		}
		s.settings.SetEndpointURL(r.Context(), endpoint)
		if endpoint != "" {
			s.syncClient.NoteEndpointConfigured()
		}
	}
	if req.AutoSave != nil {
		s.settings.SetAutoSave(r.Context(), *req.AutoSave)
	}

	cur := s.settings.Current()
	writeJSON(w, http.StatusOK, settingsJSON{EndpointURL: cur.EndpointURL, AutoSave: cur.AutoSave})
}

type syncStatusJSON struct {
	Loading bool   `json:"loading"`
	Message string `json:"message"`
	Error   bool   `json:"error"`
}

func toSyncStatusJSON(st appsync.Status) syncStatusJSON {
	return syncStatusJSON{Loading: st.Loading, Message: st.Message, Error: st.Err}
}

// handleSyncFetch pulls the remote list. Replacing a non-empty local
// ledger with non-empty remote data needs explicit consent: without
// confirm=1 the request gets a 409 with the counts involved, so the
// caller can ask the user and retry.
func (s *Server) handleSyncFetch(w http.ResponseWriter, r *http.Request) {
	confirmGiven := r.URL.Query().Get("confirm") == "1"

	var incoming, local int
	confirm := appsync.ConfirmFunc(func(ctx context.Context, in, loc int) bool {
		incoming, local = in, loc
		return confirmGiven
	})

	err := s.syncClient.Fetch(r.Context(), confirm)
	switch {
	case errors.Is(err, appsync.ErrNoEndpoint):
		writeError(w, http.StatusBadRequest, "Please set the sync endpoint URL first.")
	case errors.Is(err, appsync.ErrCancelled):
		writeJSON(w, http.StatusConflict, map[string]any{
			"confirmation_required": true,
			"incoming":              incoming,
			"local":                 local,
			"message":               "Local data would be overwritten. Retry with confirm=1 to proceed.",
		})
	case err != nil:
		writeJSON(w, http.StatusBadGateway, toSyncStatusJSON(s.syncClient.Status()))
	default:
		writeJSON(w, http.StatusOK, map[string]any{
			"count":  s.store.Count(),
			"status": toSyncStatusJSON(s.syncClient.Status()),
		})
	}
}

func (s *Server) handleSyncSave(w http.ResponseWriter, r *http.Request) {
	err := s.syncClient.Save(r.Context(), true)
	switch {
	case errors.Is(err, appsync.ErrNoEndpoint):
		writeError(w, http.StatusBadRequest, "Please set the sync endpoint URL first.")
	case err != nil:
		writeJSON(w, http.StatusBadGateway, toSyncStatusJSON(s.syncClient.Status()))
	default:
		writeJSON(w, http.StatusOK, toSyncStatusJSON(s.syncClient.Status()))
	}
}

func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toSyncStatusJSON(s.syncClient.Status()))
}

func decodeBody(r *http.Request, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
	if err != nil {
		return err
	}
	return json.Unmarshal(body, dst)
}
