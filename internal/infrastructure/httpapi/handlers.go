package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"RingsideSync/internal/classifier"
	"RingsideSync/internal/domain"
	"RingsideSync/internal/quality"
	"RingsideSync/internal/usecase"
)

// errorResponse is the body of every 4xx/5xx reply.
type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

type articlesResponse struct {
	Success bool             `json:"success"`
	Data    []domain.Article `json:"data"`
	Count   int              `json:"count"`
}

type domainOutcome struct {
	Domain domain.SyncDomain `json:"domain"`
	Stats  domain.CycleStats `json:"stats"`
	Error  string            `json:"error,omitempty"`
}

type passResponse struct {
	State   domain.SyncState    `json:"state"`
	Offline bool                `json:"offline"`
	Skipped []domain.SyncDomain `json:"skipped,omitempty"`
	Results []domainOutcome     `json:"results"`
}

type syncStatusResponse struct {
	State     domain.SyncState        `json:"state"`
	Online    bool                    `json:"online"`
	Pending   []domain.PendingMarker  `json:"pending"`
	Schedules []domain.DomainSchedule `json:"schedules"`
	LastPass  passResponse            `json:"lastPass"`
}

type triggerRequest struct {
	Domains []string `json:"domains"`
}

type intervalRequest struct {
	Interval string `json:"interval" binding:"required"`
}

type connectivityRequest struct {
	Online *bool `json:"online" binding:"required"`
}

type reliabilityRequest struct {
	Reliability *float64 `json:"reliability" binding:"required"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"online":    s.sync.Online(),
		"state":     s.sync.State(),
		"timestamp": s.now(),
	})
}

func (s *Server) listArticles(c *gin.Context) {
	var filter usecase.ArticleFilter

	if v := c.Query("domain"); v != "" {
		d, err := domain.ParseSyncDomain(v)
		if err != nil {
			badRequest(c, err)
			return
		}
		filter.Domain = d
	}
	if v := c.Query("category"); v != "" {
		category, err := classifier.ParseCategory(v)
		if err != nil {
			badRequest(c, err)
			return
		}
		filter.Category = category
	}
	filter.Promotion = c.Query("promotion")
	if v := c.Query("breaking"); v != "" {
		breaking, err := strconv.ParseBool(v)
		if err != nil {
			badRequest(c, err)
			return
		}
		filter.Breaking = &breaking
	}
	if v := c.Query("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			badRequest(c, errors.New("limit must be a non-negative integer"))
			return
		}
		filter.Limit = limit
	}

	articles := s.articles.Query(filter)
	if articles == nil {
		articles = []domain.Article{}
	}
	c.JSON(http.StatusOK, articlesResponse{Success: true, Data: articles, Count: len(articles)})
}

func (s *Server) addEngagement(c *gin.Context) {
	d, err := domain.ParseSyncDomain(c.Param("domain"))
	if err != nil {
		badRequest(c, err)
		return
	}
	var delta domain.Engagement
	if err := c.ShouldBindJSON(&delta); err != nil {
		badRequest(c, err)
		return
	}

	updated, err := s.articles.AddEngagement(d, c.Param("id"), delta)
	if err != nil {
		if errors.Is(err, usecase.ErrArticleNotFound) {
			notFound(c, err)
			return
		}
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (s *Server) syncStatus(c *gin.Context) {
	pending := s.sync.Pending()
	if pending == nil {
		pending = []domain.PendingMarker{}
	}
	c.JSON(http.StatusOK, syncStatusResponse{
		State:     s.sync.State(),
		Online:    s.sync.Online(),
		Pending:   pending,
		Schedules: s.sync.Schedules(),
		LastPass:  toPassResponse(s.sync.LastPass()),
	})
}

func (s *Server) triggerSync(c *gin.Context) {
	var req triggerRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}

	domains := make([]domain.SyncDomain, 0, len(req.Domains))
	for _, v := range req.Domains {
		d, err := domain.ParseSyncDomain(v)
		if err != nil {
			badRequest(c, err)
			return
		}
		domains = append(domains, d)
	}

	pass, err := s.sync.Trigger(c.Request.Context(), domains...)
	if err != nil {
		badRequest(c, err)
		return
	}
	status := http.StatusOK
	if pass.Offline {
		status = http.StatusAccepted
	}
	c.JSON(status, toPassResponse(pass))
}

func (s *Server) setInterval(c *gin.Context) {
	d, err := domain.ParseSyncDomain(c.Param("domain"))
	if err != nil {
		badRequest(c, err)
		return
	}
	var req intervalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	interval, err := time.ParseDuration(req.Interval)
	if err != nil {
		badRequest(c, err)
		return
	}
	if err := s.sync.SetInterval(d, interval); err != nil {
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"domain": d, "interval": interval.String()})
}

func (s *Server) setConnectivity(c *gin.Context) {
	var req connectivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	s.sync.SetOnline(*req.Online)
	c.JSON(http.StatusOK, gin.H{"online": s.sync.Online()})
}

func (s *Server) qualityMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, s.quality.Metrics())
}

func (s *Server) qualityAlerts(c *gin.Context) {
	active := false
	if v := c.Query("active"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			badRequest(c, err)
			return
		}
		active = parsed
	}
	c.JSON(http.StatusOK, s.quality.Alerts(active))
}

func (s *Server) resolveAlert(c *gin.Context) {
	if err := s.quality.Resolve(c.Param("id")); err != nil {
		if errors.Is(err, quality.ErrAlertNotFound) {
			notFound(c, err)
			return
		}
		badRequest(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) qualityReport(c *gin.Context) {
	c.JSON(http.StatusOK, s.quality.GenerateReport())
}

func (s *Server) setReliability(c *gin.Context) {
	var req reliabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	source := c.Param("source")
	if err := s.quality.SetReliability(source, *req.Reliability); err != nil {
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"source": source, "reliability": *req.Reliability})
}

func toPassResponse(pass domain.PassResult) passResponse {
	out := passResponse{
		State:   pass.State,
		Offline: pass.Offline,
		Skipped: pass.Skipped,
		Results: make([]domainOutcome, 0, len(pass.Results)),
	}
	for _, r := range pass.Results {
		outcome := domainOutcome{Domain: r.Domain, Stats: r.Stats}
		if r.Err != nil {
			outcome.Error = r.Err.Error()
		}
		out.Results = append(out.Results, outcome)
	}
	return out
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: "bad_request", Message: err.Error()})
}

func notFound(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusNotFound, errorResponse{Error: "not_found", Message: err.Error()})
}
