package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/benplehn/btc-sub000/internal/engine"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// BacktestHandler handles backtest-related requests
type BacktestHandler struct {
	defaults engine.Config
	store    *runStore
	log      *logrus.Logger
}

// NewBacktestHandler serves runs configured from defaults plus request overrides.
func NewBacktestHandler(defaults engine.Config, maxStoredRuns int, log *logrus.Logger) *BacktestHandler {
	return &BacktestHandler{
		defaults: defaults,
		store:    newRunStore(maxStoredRuns),
		log:      log,
	}
}

// RunBacktest handles POST /api/v1/backtest. ?rows=false omits the per-day rows.
func (h *BacktestHandler) RunBacktest(c *gin.Context) {
	var req BacktestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "INVALID_REQUEST", err)
		return
	}

	cfg, err := h.config(&req)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "INVALID_CONFIG", err)
		return
	}
	series, err := req.series()
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "INVALID_OBSERVATIONS", err)
		return
	}

	eng, err := engine.New(cfg)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "INVALID_CONFIG", err)
		return
	}
	start := time.Now()
	res, err := eng.Run(series)
	if err != nil {
		code := "BACKTEST_FAILED"
		switch {
		case errors.Is(err, engine.ErrEmptySeries), errors.Is(err, engine.ErrUnsortedSeries):
			code = "INVALID_SERIES"
		case errors.Is(err, engine.ErrInvalidPrice), errors.Is(err, engine.ErrInvalidAllocation):
			code = "INVALID_OBSERVATIONS"
		}
		abortWithError(c, http.StatusUnprocessableEntity, code, err)
		return
	}
	if err := checkFinite(res); err != nil {
		abortWithError(c, http.StatusUnprocessableEntity, "NON_FINITE_RESULT", err)
		return
	}

	id := h.store.put(res)
	h.log.WithFields(logrus.Fields{
		"id":       id,
		"model":    res.Model,
		"days":     res.Metrics.Days,
		"cagr":     res.Metrics.CAGR,
		"duration": time.Since(start).String(),
	}).Info("backtest stored")

	c.JSON(http.StatusCreated, newBacktestResponse(id, res, c.DefaultQuery("rows", "true") != "false"))
}

// GetBacktest handles GET /api/v1/backtest/:id
func (h *BacktestHandler) GetBacktest(c *gin.Context) {
	id := c.Param("id")
	res, ok := h.store.get(id)
	if !ok {
		abortWithError(c, http.StatusNotFound, "NOT_FOUND", fmt.Errorf("backtest %s not found", id))
		return
	}
	c.JSON(http.StatusOK, newBacktestResponse(id, res, c.DefaultQuery("rows", "true") != "false"))
}

// GetBacktestCSV handles GET /api/v1/backtest/:id/csv
func (h *BacktestHandler) GetBacktestCSV(c *gin.Context) {
	id := c.Param("id")
	res, ok := h.store.get(id)
	if !ok {
		abortWithError(c, http.StatusNotFound, "NOT_FOUND", fmt.Errorf("backtest %s not found", id))
		return
	}

	var buf bytes.Buffer
	if err := engine.WriteResultCSV(&buf, res); err != nil {
		abortWithError(c, http.StatusInternalServerError, "INTERNAL_ERROR", err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=backtest-%s.csv", id))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func (h *BacktestHandler) config(req *BacktestRequest) (*engine.Config, error) {
	cfg := h.defaults
	if req.Model != "" {
		model, ok := engine.ConvertFeeModel[strings.ToLower(req.Model)]
		if !ok {
			return nil, fmt.Errorf("%w: unknown model %q", engine.ErrInvalidConfig, req.Model)
		}
		cfg.Model = model
	}
	if req.FeeBps != nil {
		cfg.FeeBps = *req.FeeBps
	}
	if req.FeeRate != nil {
		cfg.FeeRate = *req.FeeRate
	}
	if req.InitialCapital != nil {
		cfg.InitialCapital = *req.InitialCapital
	}
	if req.MaterialityThreshold != nil {
		cfg.MaterialityThreshold = *req.MaterialityThreshold
	}
	if req.ClipAllocation != nil {
		cfg.ClipAllocation = *req.ClipAllocation
	}
	return &cfg, cfg.Validate()
}

func abortWithError(c *gin.Context, status int, code string, err error) {
	c.AbortWithStatusJSON(status, ErrorResponse{
		Error: ErrorDetail{Code: code, Message: err.Error()},
	})
}
