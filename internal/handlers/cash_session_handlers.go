package handlers

import (
	"net/http"

	"venue_pos_backend/internal/middleware"
	"venue_pos_backend/internal/models"
	"venue_pos_backend/internal/services"
	"venue_pos_backend/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type CashSessionHandler struct {
	reconciler services.CashSessionReconciler
}

func NewCashSessionHandler(reconciler services.CashSessionReconciler) *CashSessionHandler {
	return &CashSessionHandler{reconciler: reconciler}
}

type ticketsRequest struct {
	Count int64 `json:"count" binding:"required,min=1"`
}

type expenseRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description" binding:"required"`
}

type closeSessionRequest struct {
	CountedCash decimal.Decimal `json:"counted_cash"`
	Notes       *string         `json:"notes"`
}

// OpenSession starts the shift's cash session. Only one may be open at a time.
func (h *CashSessionHandler) OpenSession(c *gin.Context) {
	var req services.OpenSessionRequest
	if !bindJSON(c, &req) {
		return
	}
	session, err := h.reconciler.Open(c.Request.Context(), req, middleware.CurrentActor(c))
	if err != nil {
		respondServiceError(c, err, "open cash session")
		return
	}
	c.JSON(http.StatusCreated, session)
}

func (h *CashSessionHandler) GetCurrentSession(c *gin.Context) {
	session, err := h.reconciler.Current(c.Request.Context())
	if err != nil {
		respondServiceError(c, err, "fetch current cash session")
		return
	}
	c.JSON(http.StatusOK, session)
}

func (h *CashSessionHandler) GetSession(c *gin.Context) {
	id, ok := utils.ParseIDParam(c, "id")
	if !ok {
		return
	}
	session, err := h.reconciler.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err, "fetch cash session")
		return
	}
	c.JSON(http.StatusOK, session)
}

func (h *CashSessionHandler) RecordTickets(c *gin.Context) {
	id, ok := utils.ParseIDParam(c, "id")
	if !ok {
		return
	}
	var req ticketsRequest
	if !bindJSON(c, &req) {
		return
	}
	session, err := h.reconciler.RecordTicketsSold(c.Request.Context(), id, req.Count)
	if err != nil {
		respondServiceError(c, err, "record tickets")
		return
	}
	c.JSON(http.StatusOK, session)
}

func (h *CashSessionHandler) RecordExpense(c *gin.Context) {
	id, ok := utils.ParseIDParam(c, "id")
	if !ok {
		return
	}
	var req expenseRequest
	if !bindJSON(c, &req) {
		return
	}
	expense, err := h.reconciler.RecordExpense(c.Request.Context(), id, req.Amount, req.Description)
	if err != nil {
		respondServiceError(c, err, "record expense")
		return
	}
	c.JSON(http.StatusCreated, expense)
}

func (h *CashSessionHandler) GetExpenses(c *gin.Context) {
	id, ok := utils.ParseIDParam(c, "id")
	if !ok {
		return
	}
	expenses, err := h.reconciler.ListExpenses(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err, "fetch expenses")
		return
	}
	if expenses == nil {
		expenses = []models.CashExpense{}
	}
	c.JSON(http.StatusOK, expenses)
}

// CloseSession reconciles the counted drawer against the expected amount and closes the session.
func (h *CashSessionHandler) CloseSession(c *gin.Context) {
	id, ok := utils.ParseIDParam(c, "id")
	if !ok {
		return
	}
	var req closeSessionRequest
	if !bindJSON(c, &req) {
		return
	}
	report, err := h.reconciler.Close(c.Request.Context(), id, req.CountedCash, utils.TrimmedOrNil(req.Notes))
	if err != nil {
		respondServiceError(c, err, "close cash session")
		return
	}
	c.JSON(http.StatusOK, report)
}
