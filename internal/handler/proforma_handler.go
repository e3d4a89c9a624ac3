package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sigayyury-ai/crmtowfirma-sub008/internal/service"
	"github.com/sigayyury-ai/crmtowfirma-sub008/pkg/response"
)

type ProformaHandler struct {
	review service.ReviewService
}

func NewProformaHandler(review service.ReviewService) *ProformaHandler {
	return &ProformaHandler{review: review}
}

// Recompute godoc
// @Summary Recompute a proforma's paid totals
// @Description Fully replaces payments_total from the current approved link set; safe to call repeatedly
// @Tags proformas
// @Produce json
// @Param id path int true "Proforma ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/proformas/{id}/recompute [post]
func (h *ProformaHandler) Recompute(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.review.RecomputeAggregates(c.Request.Context(), id); handled(c, err) {
		return
	}

	response.Success(c, http.StatusOK, "Aggregates recomputed", nil)
}
