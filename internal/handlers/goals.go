package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/ledgerly/backend/internal/models"
	"github.com/ledgerly/backend/internal/services"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type GoalHandler struct {
	service *services.GoalService
	log     zerolog.Logger
}

func NewGoalHandler(service *services.GoalService, log zerolog.Logger) *GoalHandler {
	return &GoalHandler{service: service, log: log}
}

// @Summary List goals
// @Description List savings goals
// @Tags goals
// @Produce json
// @Success 200 {array} models.Goal
// @Failure 401 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Security BearerAuth
// @Router /goals [get]
func (h *GoalHandler) List(w http.ResponseWriter, r *http.Request) {
	goals, err := h.service.List(r.Context())
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, goals)
}

// @Summary Create a goal
// @Description Create a savings goal
// @Tags goals
// @Accept json
// @Produce json
// @Param goal body services.CreateGoalRequest true "Goal data"
// @Success 201 {object} models.Goal
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Security BearerAuth
// @Router /goals [post]
func (h *GoalHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req services.CreateGoalRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	goal, err := h.service.Create(r.Context(), req)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, goal)
}

// @Summary Set saved amount
// @Description Set the amount saved towards a goal
// @Tags goals
// @Accept json
// @Produce json
// @Param id path string true "Goal ID"
// @Param saved body object{amount=string} true "Saved amount"
// @Success 200 {object} models.Goal
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Security BearerAuth
// @Router /goals/{id}/saved [put]
func (h *GoalHandler) UpdateSaved(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount decimal.Decimal `json:"amount"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	goal, err := h.service.UpdateSaved(r.Context(), chi.URLParam(r, "id"), req.Amount)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, goal)
}

// @Summary Set goal status
// @Description Move a goal to active, paused or achieved
// @Tags goals
// @Accept json
// @Produce json
// @Param id path string true "Goal ID"
// @Param status body object{status=string} true "New status"
// @Success 200 {object} models.Goal
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Security BearerAuth
// @Router /goals/{id}/status [put]
func (h *GoalHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status models.GoalStatus `json:"status"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	goal, err := h.service.SetStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, goal)
}

// @Summary Delete a goal
// @Description Delete a savings goal
// @Tags goals
// @Produce json
// @Param id path string true "Goal ID"
// @Success 204
// @Failure 401 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Security BearerAuth
// @Router /goals/{id} [delete]
func (h *GoalHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type SavingsPlanHandler struct {
	service *services.SavingsPlanService
	log     zerolog.Logger
}

func NewSavingsPlanHandler(service *services.SavingsPlanService, log zerolog.Logger) *SavingsPlanHandler {
	return &SavingsPlanHandler{service: service, log: log}
}

// @Summary List savings plans
// @Description List savings plans with their next due date
// @Tags savings-plans
// @Produce json
// @Success 200 {array} models.SavingsPlan
// @Failure 401 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Security BearerAuth
// @Router /savings-plans [get]
func (h *SavingsPlanHandler) List(w http.ResponseWriter, r *http.Request) {
	plans, err := h.service.List(r.Context())
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, plans)
}

// @Summary Create a savings plan
// @Description Create a fixed-installment savings plan
// @Tags savings-plans
// @Accept json
// @Produce json
// @Param plan body services.CreateSavingsPlanRequest true "Plan data"
// @Success 201 {object} models.SavingsPlan
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Security BearerAuth
// @Router /savings-plans [post]
func (h *SavingsPlanHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req services.CreateSavingsPlanRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	plan, err := h.service.Create(r.Context(), req)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, plan)
}

// @Summary Get savings plan by ID
// @Description Retrieve one savings plan
// @Tags savings-plans
// @Produce json
// @Param id path string true "Savings plan ID"
// @Success 200 {object} models.SavingsPlan
// @Failure 401 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Security BearerAuth
// @Router /savings-plans/{id} [get]
func (h *SavingsPlanHandler) Get(w http.ResponseWriter, r *http.Request) {
	plan, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

// @Summary Delete a savings plan
// @Description Delete a savings plan
// @Tags savings-plans
// @Produce json
// @Param id path string true "Savings plan ID"
// @Success 204
// @Failure 401 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Security BearerAuth
// @Router /savings-plans/{id} [delete]
func (h *SavingsPlanHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// @Summary Contribute to a savings plan
// @Description Record one or more installments, debiting the funding account
// @Tags savings-plans
// @Accept json
// @Produce json
// @Param id path string true "Savings plan ID"
// @Param contribution body services.ContributeRequest false "Contribution data"
// @Success 201 {object} services.Contribution
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Security BearerAuth
// @Router /savings-plans/{id}/contributions [post]
func (h *SavingsPlanHandler) Contribute(w http.ResponseWriter, r *http.Request) {
	var req services.ContributeRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.service.Contribute(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}
