package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/ledgerly/backend/internal/models"
	"github.com/ledgerly/backend/internal/services"
	"github.com/rs/zerolog"
)

type TransactionHandler struct {
	service *services.TransactionService
	log     zerolog.Logger
}

func NewTransactionHandler(service *services.TransactionService, log zerolog.Logger) *TransactionHandler {
	return &TransactionHandler{service: service, log: log}
}

// List supports accountId, type, category, from, to and limit filters.
// @Summary List transactions
// @Description List non-deleted transactions, newest first
// @Tags transactions
// @Produce json
// @Param accountId query string false "Filter by account"
// @Param type query string false "Filter by type"
// @Param category query string false "Filter by category"
// @Param from query string false "First day (YYYY-MM-DD)"
// @Param to query string false "Last day (YYYY-MM-DD)"
// @Param limit query int false "Maximum rows"
// @Success 200 {array} models.Transaction
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Security BearerAuth
// @Router /transactions [get]
func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := models.TransactionFilter{
		AccountID: q.Get("accountId"),
		Type:      models.TransactionType(q.Get("type")),
		Category:  q.Get("category"),
	}

	var ok bool
	if f.From, ok = dateParam(w, r, "from"); !ok {
		return
	}
	if f.To, ok = dateParam(w, r, "to"); !ok {
		return
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			services.SendErrorResponse(w, "Invalid limit", http.StatusBadRequest, nil)
			return
		}
		f.Limit = n
	}

	txns, err := h.service.List(r.Context(), f)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, txns)
}

// @Summary Create a transaction
// @Description Book an expense, income or payment against one account
// @Tags transactions
// @Accept json
// @Produce json
// @Param transaction body services.CreateTransactionRequest true "Transaction data"
// @Success 201 {object} models.Transaction
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Security BearerAuth
// @Router /transactions [post]
func (h *TransactionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req services.CreateTransactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	txn, err := h.service.Create(r.Context(), req)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, txn)
}

// @Summary Get transaction by ID
// @Description Retrieve one transaction
// @Tags transactions
// @Produce json
// @Param id path string true "Transaction ID"
// @Success 200 {object} models.Transaction
// @Failure 401 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Security BearerAuth
// @Router /transactions/{id} [get]
func (h *TransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	txn, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, txn)
}

// @Summary Update a transaction
// @Description Edit a transaction, reversing and reapplying its balance effect
// @Tags transactions
// @Accept json
// @Produce json
// @Param id path string true "Transaction ID"
// @Param transaction body services.UpdateTransactionRequest true "Fields to change"
// @Success 200 {object} models.Transaction
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Security BearerAuth
// @Router /transactions/{id} [patch]
func (h *TransactionHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req services.UpdateTransactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	txn, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, txn)
}

// @Summary Delete a transaction
// @Description Soft-delete a transaction and reverse its effect; transfers delete both legs
// @Tags transactions
// @Produce json
// @Param id path string true "Transaction ID"
// @Success 204
// @Failure 401 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Security BearerAuth
// @Router /transactions/{id} [delete]
func (h *TransactionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type TransferHandler struct {
	service *services.TransferService
	log     zerolog.Logger
}

func NewTransferHandler(service *services.TransferService, log zerolog.Logger) *TransferHandler {
	return &TransferHandler{service: service, log: log}
}

// @Summary Transfer between accounts
// @Description Move money between two accounts in one commit
// @Tags transfers
// @Accept json
// @Produce json
// @Param transfer body services.TransferRequest true "Transfer data"
// @Success 201 {object} services.TransferResult
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Security BearerAuth
// @Router /transfers [post]
func (h *TransferHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req services.TransferRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.service.CreateTransfer(r.Context(), req)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}
