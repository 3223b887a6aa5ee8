package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/quantfolio/portfolio-engine/pkg/models"
	"github.com/quantfolio/portfolio-engine/pkg/utils/errors"
)

// analysisRequest is the shared request body for risk and analyze calls.
type analysisRequest struct {
	Holdings []models.Holding `json:"holdings" binding:"required"`
	Period   string           `json:"period"`
}

type optimizeRequest struct {
	Holdings      []models.Holding `json:"holdings" binding:"required"`
	Period        string           `json:"period"`
	Objective     string           `json:"objective"`
	RiskTolerance float64          `json:"risk_tolerance"`
}

type monteCarloRequest struct {
	Holdings          []models.Holding `json:"holdings" binding:"required"`
	Period            string           `json:"period"`
	HorizonYears      float64          `json:"time_horizon_years"`
	Simulations       int              `json:"simulations"`
	InitialInvestment float64          `json:"initial_investment"`
}

type marketDataRequest struct {
	Symbols []string `json:"symbols" binding:"required"`
	Period  string   `json:"period"`
}

// analyzeResponse combines the risk profile with per-symbol market
// summaries for the dashboard view.
type analyzeResponse struct {
	RiskMetrics *models.RiskMetrics             `json:"risk_metrics"`
	MarketData  map[string]models.MarketSummary `json:"market_data"`
}

func requestPeriod(period string) models.Period {
	if period == "" {
		return models.Period1Year
	}
	return models.Period(period)
}

// statusForError maps the application error taxonomy onto HTTP status
// codes.
func statusForError(err error) int {
	switch errors.KindOf(err) {
	case errors.KindInvalidArgument, errors.KindZeroPortfolioValue, errors.KindInsufficientAssets:
		return http.StatusBadRequest
	case errors.KindNotFound, errors.KindNoMarketData:
		return http.StatusNotFound
	case errors.KindOptimizationFailed:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) abortWithError(c *gin.Context, err error) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		s.log.Errorf("Request failed: %v", err)
	}
	c.AbortWithStatusJSON(status, gin.H{
		"error": err.Error(),
		"kind":  errors.KindOf(err).String(),
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC(),
	})
}

func (s *Server) handleRisk(c *gin.Context) {
	var req analysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abortWithError(c, errors.InvalidArgument(err.Error()))
		return
	}

	start := time.Now()
	metrics, err := s.engine.AnalyzeRisk(c.Request.Context(), req.Holdings, requestPeriod(req.Period))
	if s.recorder != nil {
		s.recorder.RecordAnalysis("risk", err, time.Since(start))
	}
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, metrics)
}

func (s *Server) handleAnalyze(c *gin.Context) {
	var req analysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abortWithError(c, errors.InvalidArgument(err.Error()))
		return
	}
	period := requestPeriod(req.Period)

	start := time.Now()
	riskMetrics, err := s.engine.AnalyzeRisk(c.Request.Context(), req.Holdings, period)
	if err == nil {
		var symbols []string
		for _, h := range req.Holdings {
			symbols = append(symbols, h.Symbol)
		}

		var summaries map[string]models.MarketSummary
		summaries, err = s.engine.MarketSummaries(c.Request.Context(), symbols, period)
		if err == nil {
			if s.recorder != nil {
				s.recorder.RecordAnalysis("analyze", nil, time.Since(start))
			}
			c.JSON(http.StatusOK, analyzeResponse{RiskMetrics: riskMetrics, MarketData: summaries})
			return
		}
	}

	if s.recorder != nil {
		s.recorder.RecordAnalysis("analyze", err, time.Since(start))
	}
	s.abortWithError(c, err)
}

func (s *Server) handleOptimize(c *gin.Context) {
	var req optimizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abortWithError(c, errors.InvalidArgument(err.Error()))
		return
	}
	if req.RiskTolerance < 0 || req.RiskTolerance > 1 {
		s.abortWithError(c, errors.InvalidArgument("risk_tolerance must be between 0 and 1"))
		return
	}

	start := time.Now()
	result, err := s.engine.Optimize(c.Request.Context(), req.Holdings, requestPeriod(req.Period), req.Objective, req.RiskTolerance)
	if s.recorder != nil {
		s.recorder.RecordAnalysis("optimize", err, time.Since(start))
	}
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) handleMonteCarlo(c *gin.Context) {
	var req monteCarloRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abortWithError(c, errors.InvalidArgument(err.Error()))
		return
	}
	if req.HorizonYears <= 0 {
		req.HorizonYears = 10
	}

	start := time.Now()
	result, err := s.engine.Simulate(c.Request.Context(), req.Holdings, requestPeriod(req.Period),
		req.HorizonYears, req.Simulations, req.InitialInvestment)
	if s.recorder != nil {
		s.recorder.RecordAnalysis("monte_carlo", err, time.Since(start))
	}
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	if s.recorder != nil {
		s.recorder.RecordSimulation(result.Simulations)
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleMarketData(c *gin.Context) {
	var req marketDataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abortWithError(c, errors.InvalidArgument(err.Error()))
		return
	}

	summaries, err := s.engine.MarketSummaries(c.Request.Context(), req.Symbols, requestPeriod(req.Period))
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"market_data": summaries})
}

func (s *Server) handleListAnalyzers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"analyzers": s.registry.List()})
}

func (s *Server) handleUpsertPortfolio(c *gin.Context) {
	var p models.Portfolio
	if err := c.ShouldBindJSON(&p); err != nil {
		s.abortWithError(c, errors.InvalidArgument(err.Error()))
		return
	}

	if err := s.portfolios.Upsert(&p); err != nil {
		s.abortWithError(c, err)
		return
	}

	stored, err := s.portfolios.Get(p.ID)
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, stored)
}

func (s *Server) handleGetPortfolio(c *gin.Context) {
	p, err := s.portfolios.Get(c.Param("id"))
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) handleListPortfolios(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		s.abortWithError(c, errors.InvalidArgument("user_id query parameter is required"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"portfolios": s.portfolios.ListByUser(userID)})
}

func (s *Server) handleDeletePortfolio(c *gin.Context) {
	if err := s.portfolios.Delete(c.Param("id")); err != nil {
		s.abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
