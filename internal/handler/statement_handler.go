package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sigayyury-ai/crmtowfirma-sub008/internal/domain"
	"github.com/sigayyury-ai/crmtowfirma-sub008/internal/parser"
	"github.com/sigayyury-ai/crmtowfirma-sub008/internal/service"
	"github.com/sigayyury-ai/crmtowfirma-sub008/pkg/logger"
	"github.com/sigayyury-ai/crmtowfirma-sub008/pkg/response"
)

type StatementHandler struct {
	ingestion service.IngestionService
}

func NewStatementHandler(ingestion service.IngestionService) *StatementHandler {
	return &StatementHandler{ingestion: ingestion}
}

// Import godoc
// @Summary Import a bank or card statement export
// @Description Parses the uploaded export, persists new transactions idempotently and scores them against open proformas
// @Tags statements
// @Accept mpfd
// @Produce json
// @Param file formData file true "Statement export file"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 503 {object} response.Response
// @Router /api/v1/statements/import [post]
func (h *StatementHandler) Import(c *gin.Context) {
	data, err := readStatement(c)
	if err != nil {
		response.BadRequest(c, "Could not read statement file", err.Error())
		return
	}
	if len(data) == 0 {
		response.BadRequest(c, "Empty statement file", "")
		return
	}

	summary, err := h.ingestion.IngestStatement(c.Request.Context(), data)
	if err == domain.ErrStorageDisabled {
		response.StorageDisabled(c)
		return
	}
	if err != nil {
		logger.GetLogger().WithError(err).Error("Statement ingestion failed")
		response.InternalError(c, "Statement ingestion failed", err.Error())
		return
	}

	response.Success(c, http.StatusOK, "Statement imported successfully", summary)
}

// Parse godoc
// @Summary Parse a statement without persisting
// @Description Dry run: returns the transactions the parser extracts from the uploaded export
// @Tags statements
// @Accept mpfd
// @Produce json
// @Param file formData file true "Statement export file"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /api/v1/statements/parse [post]
func (h *StatementHandler) Parse(c *gin.Context) {
	data, err := readStatement(c)
	if err != nil {
		response.BadRequest(c, "Could not read statement file", err.Error())
		return
	}

	transactions := parser.ParseStatement(data)
	response.Success(c, http.StatusOK, "Statement parsed successfully", gin.H{
		"count":        len(transactions),
		"transactions": transactions,
	})
}

// readStatement accepts either a multipart "file" field or the raw request
// body.
func readStatement(c *gin.Context) ([]byte, error) {
	if file, err := c.FormFile("file"); err == nil {
		f, err := file.Open()
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return io.ReadAll(f)
	}
	return io.ReadAll(c.Request.Body)
}
