package fithttp

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"fiberatt/internal/analysis"
	"fiberatt/internal/plot"
	"fiberatt/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"golang.org/x/time/rate"
)

// Router 暴露拟合与历史查询接口。
type Router struct {
	analyzer   *analysis.Analyzer
	runs       store.RunRepository
	limiter    *rate.Limiter
	schema     *jsonschema.Schema
	maxSamples int
	chartSize  plot.ChartSize
}

// RouterConfig 描述 Router 的依赖；Runs 为空时历史接口返回 503。
type RouterConfig struct {
	Analyzer      *analysis.Analyzer
	Runs          store.RunRepository
	RatePerMinute int
	Burst         int
	MaxSamples    int
	ChartSize     plot.ChartSize
}

func NewRouter(cfg RouterConfig) (*Router, error) {
	if cfg.Analyzer == nil {
		return nil, errors.New("fit router requires an analyzer")
	}
	schema, err := compileRequestSchema()
	if err != nil {
		return nil, err
	}
	limit := rate.Limit(float64(cfg.RatePerMinute) / 60.0)
	if cfg.RatePerMinute <= 0 {
		limit = rate.Inf
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Router{
		analyzer:   cfg.Analyzer,
		runs:       cfg.Runs,
		limiter:    rate.NewLimiter(limit, burst),
		schema:     schema,
		maxSamples: cfg.MaxSamples,
		chartSize:  cfg.ChartSize,
	}, nil
}

// Register 将 /api/fits 路由挂载到给定分组下。
func (r *Router) Register(group *gin.RouterGroup) {
	if group == nil {
		return
	}
	group.POST("/fits", r.handleCreateFit)
	group.GET("/fits", r.handleListFits)
	group.GET("/fits/:id", r.handleGetFit)
	group.GET("/fits/:id/chart", r.handleChart)
}

func (r *Router) handleCreateFit(c *gin.Context) {
	if !r.limiter.Allow() {
		abort(c, http.StatusTooManyRequests, codeRateLimited, errors.New("too many fit requests"))
		return
	}
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		abort(c, http.StatusBadRequest, codeInvalidRequest, err)
		return
	}
	if code, err := r.validateRequest(raw); err != nil {
		status := http.StatusBadRequest
		if code == codeTooManySamples {
			status = http.StatusRequestEntityTooLarge
		}
		abort(c, status, code, err)
		return
	}
	var req FitRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		abort(c, http.StatusBadRequest, codeInvalidRequest, err)
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = "api"
	}
	res, err := r.analyzer.Analyze(c.Request.Context(), name, req.Samples)
	if err != nil {
		if code := analysis.FitErrorCode(err); code != "" {
			abort(c, http.StatusUnprocessableEntity, code, err)
			return
		}
		abort(c, http.StatusInternalServerError, codeInternal, err)
		return
	}
	status := http.StatusOK
	if res.RunID != "" && r.runs != nil {
		status = http.StatusCreated
	}
	c.JSON(status, FitResponse{RunID: res.RunID, Summary: res.Summary()})
}

func (r *Router) handleListFits(c *gin.Context) {
	if !r.requireStore(c) {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	runs, err := r.runs.List(c.Request.Context(), limit)
	if err != nil {
		abort(c, http.StatusInternalServerError, codeInternal, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (r *Router) handleGetFit(c *gin.Context) {
	run, ok := r.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, run)
}

func (r *Router) handleChart(c *gin.Context) {
	domain, err := plot.ParseDomain(c.Query("domain"))
	if err != nil {
		abort(c, http.StatusBadRequest, codeInvalidRequest, err)
		return
	}
	run, ok := r.lookup(c)
	if !ok {
		return
	}
	figs, err := r.analyzer.Replot(run)
	if err != nil {
		abort(c, http.StatusInternalServerError, codeInternal, err)
		return
	}
	fig, _ := plot.FigureFor(figs, domain)
	page, err := plot.RenderHTML(fig, r.chartSize)
	if err != nil {
		abort(c, http.StatusInternalServerError, codeInternal, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", page)
}

func (r *Router) lookup(c *gin.Context) (store.Run, bool) {
	if !r.requireStore(c) {
		return store.Run{}, false
	}
	run, err := r.runs.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, store.ErrRunNotFound) {
		abort(c, http.StatusNotFound, codeNotFound, err)
		return store.Run{}, false
	}
	if err != nil {
		abort(c, http.StatusInternalServerError, codeInternal, err)
		return store.Run{}, false
	}
	return run, true
}

func (r *Router) requireStore(c *gin.Context) bool {
	if r.runs == nil {
		abort(c, http.StatusServiceUnavailable, codeStoreDisabled, errors.New("run store is disabled"))
		return false
	}
	return true
}

func abort(c *gin.Context, status int, code string, err error) {
	c.AbortWithStatusJSON(status, errorResponse{Error: err.Error(), Code: code})
}
