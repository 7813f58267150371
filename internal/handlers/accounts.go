package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ledgerly/backend/internal/services"
	"github.com/rs/zerolog"
)

type AccountHandler struct {
	service *services.AccountService
	log     zerolog.Logger
}

func NewAccountHandler(service *services.AccountService, log zerolog.Logger) *AccountHandler {
	return &AccountHandler{service: service, log: log}
}

// @Summary List accounts
// @Description List the caller's accounts with derived balances
// @Tags accounts
// @Produce json
// @Success 200 {array} models.Account
// @Failure 401 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Security BearerAuth
// @Router /accounts [get]
func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	accts, err := h.service.List(r.Context())
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, accts)
}

// @Summary Create an account
// @Description Create a checking, savings or credit account
// @Tags accounts
// @Accept json
// @Produce json
// @Param account body services.CreateAccountRequest true "Account data"
// @Success 201 {object} models.Account
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Security BearerAuth
// @Router /accounts [post]
func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req services.CreateAccountRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	acct, err := h.service.Create(r.Context(), req)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, acct)
}

// @Summary Get account by ID
// @Description Retrieve one account
// @Tags accounts
// @Produce json
// @Param id path string true "Account ID"
// @Success 200 {object} models.Account
// @Failure 401 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Security BearerAuth
// @Router /accounts/{id} [get]
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	acct, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, acct)
}

// @Summary Update an account
// @Description Edit account details; balance edits are journaled
// @Tags accounts
// @Accept json
// @Produce json
// @Param id path string true "Account ID"
// @Param account body services.UpdateAccountRequest true "Fields to change"
// @Success 200 {object} models.Account
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Security BearerAuth
// @Router /accounts/{id} [patch]
func (h *AccountHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req services.UpdateAccountRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	acct, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, acct)
}

// @Summary Delete an account
// @Description Delete an account and its transactions
// @Tags accounts
// @Produce json
// @Param id path string true "Account ID"
// @Success 204
// @Failure 401 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Security BearerAuth
// @Router /accounts/{id} [delete]
func (h *AccountHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Statement reports the current credit statement cycle. ?today=YYYY-MM-DD
// evaluates it as of another day.
// @Summary Credit statement status
// @Description Report payments made in the current statement cycle
// @Tags accounts
// @Produce json
// @Param id path string true "Account ID"
// @Param today query string false "Evaluation day (YYYY-MM-DD)"
// @Success 200 {object} projection.Statement
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Security BearerAuth
// @Router /accounts/{id}/statement [get]
func (h *AccountHandler) Statement(w http.ResponseWriter, r *http.Request) {
	today, ok := dateParam(w, r, "today")
	if !ok {
		return
	}
	st, err := h.service.StatementStatus(r.Context(), chi.URLParam(r, "id"), today)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// @Summary Account ledger entries
// @Description List the balance journal of an account, oldest first
// @Tags accounts
// @Produce json
// @Param id path string true "Account ID"
// @Success 200 {array} models.LedgerEntry
// @Failure 401 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Security BearerAuth
// @Router /accounts/{id}/entries [get]
func (h *AccountHandler) Entries(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.LedgerEntries(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

const dateLayout = "2006-01-02"

// dateParam parses an optional YYYY-MM-DD query parameter. It writes a 400
// and reports false when the value is malformed.
func dateParam(w http.ResponseWriter, r *http.Request, name string) (time.Time, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return time.Time{}, true
	}
	t, err := time.Parse(dateLayout, v)
	if err != nil {
		services.SendErrorResponse(w, "Invalid "+name+" date, expected YYYY-MM-DD", http.StatusBadRequest, nil)
		return time.Time{}, false
	}
	return t, true
}
