package controllers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"trading_journal/core"
	"trading_journal/models"
	"trading_journal/pkg/database"
	"trading_journal/pkg/middleware"
	dbmodels "trading_journal/pkg/models"
)

type PeriodAnalyzer interface {
	Analyze(ctx context.Context, userID string, req models.PeriodAnalysisRequest) (*models.PeriodAnalysisResponse, error)
}

type AnalysisHistory interface {
	ListAnalysisResults(ctx context.Context, userID string, page, pageSize int) ([]dbmodels.AnalysisResult, int64, error)
	GetAnalysisResult(ctx context.Context, userID, id string) (*dbmodels.AnalysisResult, error)
}

type AnalysisController struct {
	analyzer PeriodAnalyzer
	history  AnalysisHistory
}

func NewAnalysisController(analyzer PeriodAnalyzer, history AnalysisHistory) *AnalysisController {
	return &AnalysisController{analyzer: analyzer, history: history}
}

// AnalyzePeriod POST /api/v1/analysis/period
func (ac *AnalysisController) AnalyzePeriod(c *gin.Context) {
	var req models.PeriodAnalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.WithError(err).Debug("invalid analysis payload")
		respondError(c, http.StatusBadRequest, "invalid request body", "INVALID_PARAMS")
		return
	}

	user := middleware.GetCurrentUser(c)
	resp, err := ac.analyzer.Analyze(c.Request.Context(), user, req)
	if err != nil {
		var ve *core.ValidationError
		if errors.As(err, &ve) {
			respondError(c, http.StatusBadRequest, ve.Message, ve.Code)
			return
		}
		logrus.WithError(err).WithField("user", user).Error("period analysis failed")
		respondError(c, http.StatusInternalServerError, "analysis failed", "ANALYSIS_FAILED")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetAnalysisResults GET /api/v1/analysis
func (ac *AnalysisController) GetAnalysisResults(c *gin.Context) {
	page, pageSize := pagination(c)
	results, total, err := ac.history.ListAnalysisResults(c.Request.Context(), middleware.GetCurrentUser(c), page, pageSize)
	if err != nil {
		logrus.WithError(err).Error("list analysis results")
		respondError(c, http.StatusInternalServerError, "failed to fetch analysis results", "DB_ERROR")
		return
	}
	c.JSON(http.StatusOK, paged(results, total, page, pageSize))
}

// GetAnalysisByID GET /api/v1/analysis/:id
func (ac *AnalysisController) GetAnalysisByID(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		respondError(c, http.StatusBadRequest, "id is required", "INVALID_PARAMS")
		return
	}

	result, err := ac.history.GetAnalysisResult(c.Request.Context(), middleware.GetCurrentUser(c), id)
	if errors.Is(err, database.ErrNotFound) {
		respondError(c, http.StatusNotFound, "analysis not found", "NOT_FOUND")
		return
	}
	if err != nil {
		logrus.WithError(err).WithField("id", id).Error("get analysis result")
		respondError(c, http.StatusInternalServerError, "failed to fetch analysis", "DB_ERROR")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": result})
}
