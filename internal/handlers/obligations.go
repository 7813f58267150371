package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/ledgerly/backend/internal/services"
	"github.com/rs/zerolog"
)

type BillHandler struct {
	service *services.BillService
	log     zerolog.Logger
}

func NewBillHandler(service *services.BillService, log zerolog.Logger) *BillHandler {
	return &BillHandler{service: service, log: log}
}

// List returns bills, including one per outstanding loan, with their status
// as of ?today= (default: the current day).
// @Summary List bills
// @Description List bills and outstanding loan installments with their status
// @Tags bills
// @Produce json
// @Param today query string false "Evaluation day (YYYY-MM-DD)"
// @Success 200 {array} models.Bill
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Security BearerAuth
// @Router /bills [get]
func (h *BillHandler) List(w http.ResponseWriter, r *http.Request) {
	today, ok := dateParam(w, r, "today")
	if !ok {
		return
	}
	bills, err := h.service.List(r.Context(), today)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, bills)
}

// @Summary Create a bill
// @Description Create a one-time or recurring bill
// @Tags bills
// @Accept json
// @Produce json
// @Param bill body services.CreateBillRequest true "Bill data"
// @Success 201 {object} models.Bill
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Security BearerAuth
// @Router /bills [post]
func (h *BillHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req services.CreateBillRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	bill, err := h.service.Create(r.Context(), req)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, bill)
}

// @Summary Get bill by ID
// @Description Retrieve one bill
// @Tags bills
// @Produce json
// @Param id path string true "Bill ID"
// @Success 200 {object} models.Bill
// @Failure 401 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Security BearerAuth
// @Router /bills/{id} [get]
func (h *BillHandler) Get(w http.ResponseWriter, r *http.Request) {
	bill, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, bill)
}

// @Summary Update a bill
// @Description Edit a bill
// @Tags bills
// @Accept json
// @Produce json
// @Param id path string true "Bill ID"
// @Param bill body services.UpdateBillRequest true "Fields to change"
// @Success 200 {object} models.Bill
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Security BearerAuth
// @Router /bills/{id} [patch]
func (h *BillHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req services.UpdateBillRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	bill, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, bill)
}

// @Summary Delete a bill
// @Description Delete a bill
// @Tags bills
// @Produce json
// @Param id path string true "Bill ID"
// @Success 204
// @Failure 401 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Security BearerAuth
// @Router /bills/{id} [delete]
func (h *BillHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// @Summary Pay a bill
// @Description Pay a bill, or a loan installment listed as loan-<id>, from an account
// @Tags bills
// @Accept json
// @Produce json
// @Param id path string true "Bill ID"
// @Param payment body services.PayBillRequest true "Payment data"
// @Success 201 {object} services.BillPayment
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Security BearerAuth
// @Router /bills/{id}/pay [post]
func (h *BillHandler) Pay(w http.ResponseWriter, r *http.Request) {
	var req services.PayBillRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.service.Pay(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

type LoanHandler struct {
	service *services.LoanService
	log     zerolog.Logger
}

func NewLoanHandler(service *services.LoanService, log zerolog.Logger) *LoanHandler {
	return &LoanHandler{service: service, log: log}
}

// @Summary List loans
// @Description List the caller's loans
// @Tags loans
// @Produce json
// @Success 200 {array} models.Loan
// @Failure 401 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Security BearerAuth
// @Router /loans [get]
func (h *LoanHandler) List(w http.ResponseWriter, r *http.Request) {
	loans, err := h.service.List(r.Context())
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, loans)
}

// @Summary Create a loan
// @Description Create an amortizing loan
// @Tags loans
// @Accept json
// @Produce json
// @Param loan body services.CreateLoanRequest true "Loan data"
// @Success 201 {object} models.Loan
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Security BearerAuth
// @Router /loans [post]
func (h *LoanHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req services.CreateLoanRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	loan, err := h.service.Create(r.Context(), req)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, loan)
}

// @Summary Get loan by ID
// @Description Retrieve one loan
// @Tags loans
// @Produce json
// @Param id path string true "Loan ID"
// @Success 200 {object} models.Loan
// @Failure 401 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Security BearerAuth
// @Router /loans/{id} [get]
func (h *LoanHandler) Get(w http.ResponseWriter, r *http.Request) {
	loan, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, loan)
}

// @Summary Delete a loan
// @Description Delete a loan
// @Tags loans
// @Produce json
// @Param id path string true "Loan ID"
// @Success 204
// @Failure 401 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Security BearerAuth
// @Router /loans/{id} [delete]
func (h *LoanHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Pay records one repayment. An empty body pays the scheduled amount from the
// loan's default account.
// @Summary Pay a loan
// @Description Apply one repayment and book it against the paying account
// @Tags loans
// @Accept json
// @Produce json
// @Param id path string true "Loan ID"
// @Param payment body services.LoanPaymentRequest false "Payment data"
// @Success 201 {object} services.LoanPayment
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Security BearerAuth
// @Router /loans/{id}/payments [post]
func (h *LoanHandler) Pay(w http.ResponseWriter, r *http.Request) {
	var req services.LoanPaymentRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.service.ApplyPayment(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// @Summary Loan payoff projection
// @Description Project remaining periods, total repayment and payoff date
// @Tags loans
// @Produce json
// @Param id path string true "Loan ID"
// @Success 200 {object} projection.LoanProjection
// @Failure 401 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Security BearerAuth
// @Router /loans/{id}/projection [get]
func (h *LoanHandler) Projection(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Projection(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
