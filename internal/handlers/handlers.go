// Package handlers maps HTTP requests onto the ledger services.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/ledgerly/backend/internal/ledger"
	"github.com/ledgerly/backend/internal/logger"
	"github.com/ledgerly/backend/internal/services"
	"github.com/rs/zerolog"
)

const maxBodyBytes = 1_048_576 // 1 MB

// API groups every resource handler.
type API struct {
	Accounts     *AccountHandler
	Transactions *TransactionHandler
	Transfers    *TransferHandler
	Bills        *BillHandler
	Loans        *LoanHandler
	Goals        *GoalHandler
	Savings      *SavingsPlanHandler
	Reports      *ReportHandler
	FX           *FXHandler
}

// Routes registers the ledger endpoints on r. Authentication is applied by
// the caller.
func (a *API) Routes(r chi.Router) {
	r.Route("/accounts", func(r chi.Router) {
		r.Get("/", a.Accounts.List)
		r.Post("/", a.Accounts.Create)
		r.Get("/{id}", a.Accounts.Get)
		r.Patch("/{id}", a.Accounts.Update)
		r.Delete("/{id}", a.Accounts.Delete)
		r.Get("/{id}/statement", a.Accounts.Statement)
		r.Get("/{id}/entries", a.Accounts.Entries)
	})

	r.Route("/transactions", func(r chi.Router) {
		r.Get("/", a.Transactions.List)
		r.Post("/", a.Transactions.Create)
		r.Get("/{id}", a.Transactions.Get)
		r.Patch("/{id}", a.Transactions.Update)
		r.Delete("/{id}", a.Transactions.Delete)
	})

	r.Post("/transfers", a.Transfers.Create)

	r.Route("/bills", func(r chi.Router) {
		r.Get("/", a.Bills.List)
		r.Post("/", a.Bills.Create)
		r.Get("/{id}", a.Bills.Get)
		r.Patch("/{id}", a.Bills.Update)
		r.Delete("/{id}", a.Bills.Delete)
		r.Post("/{id}/pay", a.Bills.Pay)
	})

	r.Route("/loans", func(r chi.Router) {
		r.Get("/", a.Loans.List)
		r.Post("/", a.Loans.Create)
		r.Get("/{id}", a.Loans.Get)
		r.Delete("/{id}", a.Loans.Delete)
		r.Post("/{id}/payments", a.Loans.Pay)
		r.Get("/{id}/projection", a.Loans.Projection)
	})

	r.Route("/goals", func(r chi.Router) {
		r.Get("/", a.Goals.List)
		r.Post("/", a.Goals.Create)
		r.Put("/{id}/saved", a.Goals.UpdateSaved)
		r.Put("/{id}/status", a.Goals.SetStatus)
		r.Delete("/{id}", a.Goals.Delete)
	})

	r.Route("/savings-plans", func(r chi.Router) {
		r.Get("/", a.Savings.List)
		r.Post("/", a.Savings.Create)
		r.Get("/{id}", a.Savings.Get)
		r.Delete("/{id}", a.Savings.Delete)
		r.Post("/{id}/contributions", a.Savings.Contribute)
	})

	r.Get("/reports/monthly", a.Reports.Monthly)
	r.Get("/reports/net-worth", a.Reports.NetWorth)
	r.Get("/dashboard", a.Reports.Dashboard)
	r.Get("/fx/rate", a.FX.Rate)
}

// decodeJSON reads exactly one JSON object from the request body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return false
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		services.SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"data":    data,
	})
}

// writeError translates a service error into a status code.
func writeError(w http.ResponseWriter, r *http.Request, log zerolog.Logger, err error) {
	log = requestLog(r, log)
	switch {
	case errors.Is(err, ledger.ErrNotAuthenticated):
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
	case errors.Is(err, ledger.ErrNotFound):
		services.SendErrorResponse(w, "Not found", http.StatusNotFound, nil)
	case errors.Is(err, ledger.ErrInvalidArgument), errors.Is(err, ledger.ErrUnknownKind):
		services.SendErrorResponse(w, err.Error(), http.StatusBadRequest, err)
	case errors.Is(err, ledger.ErrConflict):
		services.SendErrorResponse(w, "The record was changed concurrently, retry the request", http.StatusConflict, nil)
	case errors.Is(err, context.DeadlineExceeded):
		services.SendErrorResponse(w, "Request timed out", http.StatusGatewayTimeout, nil)
	case errors.Is(err, ledger.ErrPartialFailure):
		log.Error().Err(err).Msg("commit outcome unknown")
		services.SendErrorResponse(w, "The change could not be confirmed, reload before retrying", http.StatusInternalServerError, nil)
	default:
		log.Error().Err(err).Msg("request failed")
		services.SendErrorResponse(w, "Internal server error", http.StatusInternalServerError, nil)
	}
}

// requestLog prefers the request-scoped logger, which carries the request id
// and path, over the handler's own.
func requestLog(r *http.Request, fallback zerolog.Logger) zerolog.Logger {
	if l := logger.FromContext(r.Context()); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return fallback.With().Str("path", r.URL.Path).Logger()
}
