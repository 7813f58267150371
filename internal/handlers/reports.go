package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/ledgerly/backend/internal/services"
	"github.com/rs/zerolog"
)

type ReportHandler struct {
	service *services.ReportService
	now     func() time.Time
	log     zerolog.Logger
}

func NewReportHandler(service *services.ReportService, log zerolog.Logger) *ReportHandler {
	return &ReportHandler{service: service, now: time.Now, log: log}
}

// Monthly summarises ?year=&month=, defaulting to the current month.
// @Summary Monthly summary
// @Description Income, expenses and categories for one month
// @Tags reports
// @Produce json
// @Param year query int false "Year"
// @Param month query int false "Month (1-12)"
// @Success 200 {object} services.MonthlySummary
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Security BearerAuth
// @Router /reports/monthly [get]
func (h *ReportHandler) Monthly(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	year, month := now.Year(), int(now.Month())

	q := r.URL.Query()
	if v := q.Get("year"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			services.SendErrorResponse(w, "Invalid year", http.StatusBadRequest, nil)
			return
		}
		year = n
	}
	if v := q.Get("month"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 12 {
			services.SendErrorResponse(w, "Invalid month", http.StatusBadRequest, nil)
			return
		}
		month = n
	}

	sum, err := h.service.MonthlySummary(r.Context(), year, time.Month(month))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// @Summary Net worth
// @Description Assets, liabilities and net worth per currency
// @Tags reports
// @Produce json
// @Success 200 {object} services.NetWorth
// @Failure 401 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Security BearerAuth
// @Router /reports/net-worth [get]
func (h *ReportHandler) NetWorth(w http.ResponseWriter, r *http.Request) {
	nw, err := h.service.NetWorth(r.Context())
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, nw)
}

// @Summary Dashboard
// @Description Accounts, upcoming bills, goals and the current month in one call
// @Tags reports
// @Produce json
// @Param today query string false "Evaluation day (YYYY-MM-DD)"
// @Success 200 {object} services.Dashboard
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Security BearerAuth
// @Router /dashboard [get]
func (h *ReportHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	today, ok := dateParam(w, r, "today")
	if !ok {
		return
	}
	d, err := h.service.Dashboard(r.Context(), today)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

type FXHandler struct {
	rates services.RateSource
}

func NewFXHandler(rates services.RateSource) *FXHandler {
	return &FXHandler{rates: rates}
}

// Rate reports the multiplier from ?from= into ?to=.
// @Summary Exchange rate
// @Description Look up the multiplier from one currency into another
// @Tags fx
// @Produce json
// @Param from query string true "Source currency"
// @Param to query string true "Target currency"
// @Success 200 {object} fx.Rate
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Security BearerAuth
// @Router /fx/rate [get]
func (h *FXHandler) Rate(w http.ResponseWriter, r *http.Request) {
	from, to := r.URL.Query().Get("from"), r.URL.Query().Get("to")
	if len(from) != 3 || len(to) != 3 {
		services.SendErrorResponse(w, "from and to must be ISO 4217 currency codes", http.StatusBadRequest, nil)
		return
	}
	writeJSON(w, http.StatusOK, h.rates.GetRate(r.Context(), from, to))
}
