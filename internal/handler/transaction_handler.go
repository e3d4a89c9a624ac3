package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/sigayyury-ai/crmtowfirma-sub008/internal/domain"
	"github.com/sigayyury-ai/crmtowfirma-sub008/internal/service"
	"github.com/sigayyury-ai/crmtowfirma-sub008/pkg/logger"
	"github.com/sigayyury-ai/crmtowfirma-sub008/pkg/response"
)

type TransactionHandler struct {
	transactions service.TransactionService
	review       service.ReviewService
}

func NewTransactionHandler(transactions service.TransactionService, review service.ReviewService) *TransactionHandler {
	return &TransactionHandler{transactions: transactions, review: review}
}

type ApproveMatchRequest struct {
	ProformaID int `json:"proforma_id" binding:"required"`
}

// List godoc
// @Summary List transactions by status
// @Tags transactions
// @Produce json
// @Param status query string false "Effective match status" default(needs_review)
// @Param limit query int false "Row limit" default(100)
// @Success 200 {object} response.Response
// @Failure 503 {object} response.Response
// @Router /api/v1/transactions [get]
func (h *TransactionHandler) List(c *gin.Context) {
	status := domain.MatchStatus(c.DefaultQuery("status", string(domain.NeedsReview)))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	transactions, err := h.transactions.ListByStatus(c.Request.Context(), status, limit)
	if handled(c, err) {
		return
	}

	response.Success(c, http.StatusOK, "Transactions retrieved successfully", transactions)
}

// Get godoc
// @Summary Get one transaction
// @Tags transactions
// @Produce json
// @Param id path int true "Transaction ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/transactions/{id} [get]
func (h *TransactionHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	tx, err := h.transactions.GetByID(c.Request.Context(), id)
	if handled(c, err) {
		return
	}

	response.Success(c, http.StatusOK, "Transaction retrieved successfully", tx)
}

// Delete godoc
// @Summary Soft-delete a transaction
// @Description The record stays in the ledger so a statement re-import cannot resurrect it
// @Tags transactions
// @Produce json
// @Param id path int true "Transaction ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/transactions/{id} [delete]
func (h *TransactionHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.transactions.Delete(c.Request.Context(), id); handled(c, err) {
		return
	}

	response.Success(c, http.StatusOK, "Transaction deleted", nil)
}

// Approve godoc
// @Summary Approve a match suggestion
// @Description Links the transaction to a proforma and recomputes the affected paid totals
// @Tags transactions
// @Accept json
// @Produce json
// @Param id path int true "Transaction ID"
// @Param request body ApproveMatchRequest true "Approval request"
// @Success 200 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /api/v1/transactions/{id}/approve [post]
func (h *TransactionHandler) Approve(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req ApproveMatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	tx, err := h.review.ApproveMatch(c.Request.Context(), id, req.ProformaID)
	if handled(c, err) {
		return
	}

	response.Success(c, http.StatusOK, "Match approved", tx)
}

// Clear godoc
// @Summary Clear a manual match decision
// @Tags transactions
// @Produce json
// @Param id path int true "Transaction ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/transactions/{id}/clear [post]
func (h *TransactionHandler) Clear(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	tx, err := h.review.ClearMatch(c.Request.Context(), id)
	if handled(c, err) {
		return
	}

	response.Success(c, http.StatusOK, "Match cleared", tx)
}

// Refund godoc
// @Summary Mark a transaction as a refund
// @Tags transactions
// @Produce json
// @Param id path int true "Transaction ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/transactions/{id}/refund [post]
func (h *TransactionHandler) Refund(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	tx, err := h.review.MarkRefund(c.Request.Context(), id)
	if handled(c, err) {
		return
	}

	response.Success(c, http.StatusOK, "Transaction marked as refund", tx)
}

func pathID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid id", "id must be an integer")
		return 0, false
	}
	return id, true
}

// handled maps service errors to the response envelope; returns true when a
// response was written.
func handled(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}

	var validationErr *domain.ValidationError
	switch {
	case errors.Is(err, domain.ErrStorageDisabled):
		response.StorageDisabled(c)
	case errors.Is(err, domain.ErrTransactionNotFound):
		response.NotFound(c, "Transaction not found")
	case errors.Is(err, domain.ErrProformaNotFound):
		response.NotFound(c, "Proforma not found")
	case errors.As(err, &validationErr):
		response.ValidationError(c, validationErr.Message)
	default:
		logger.GetLogger().WithError(err).Error("Request failed")
		response.InternalError(c, "Request failed", err.Error())
	}
	return true
}
