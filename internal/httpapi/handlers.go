package httpapi

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/matsen/works/internal/logger"
	"github.com/matsen/works/internal/openalex"
	"github.com/matsen/works/internal/pipeline"
	"github.com/matsen/works/internal/work"
)

// listResponse is the envelope for record listings.
type listResponse struct {
	Results []work.Work `json:"results"`
	Total   int         `json:"total"`
}

// UpdateResponse is the body of a successful POST /update.
type UpdateResponse struct {
	Status   string                   `json:"status"`
	RunID    string                   `json:"run_id"`
	Fetched  int                      `json:"fetched"`
	Affected int64                    `json:"affected"`
	Skipped  []pipeline.RecordFailure `json:"skipped"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Status   string `json:"status,omitempty"`
	Category string `json:"category,omitempty"`
	Detail   string `json:"detail"`
	RunID    string `json:"run_id,omitempty"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) listRecords(c *gin.Context) {
	limit, ok := intQuery(c, "limit")
	if !ok {
		return
	}
	works, err := s.store.ListAll(c.Request.Context(), derefInt(limit))
	if err != nil {
		s.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, listResponse{Results: works, Total: len(works)})
}

func (s *Server) getRecord(c *gin.Context) {
	id := strings.TrimPrefix(c.Param("id"), "/")
	if strings.HasPrefix(id, "http") {
		id = openalex.ExtractID(id)
	}

	w, err := s.store.GetByID(c.Request.Context(), id)
	if err != nil {
		s.storeError(c, err)
		return
	}
	if w == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Detail: "record not found"})
		return
	}
	c.JSON(http.StatusOK, w)
}

func (s *Server) searchRecords(c *gin.Context) {
	year, ok := intQuery(c, "year")
	if !ok {
		return
	}
	limit, ok := intQuery(c, "limit")
	if !ok {
		return
	}

	f := work.Filter{
		Keyword:  c.Query("keyword"),
		Year:     year,
		Language: c.Query("language"),
		Limit:    derefInt(limit),
	}
	works, err := s.store.Search(c.Request.Context(), f)
	if err != nil {
		s.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, listResponse{Results: works, Total: len(works)})
}

// requireToken rejects update requests without the configured API key.
func (s *Server) requireToken(c *gin.Context) {
	key := c.GetHeader(APIKeyHeader)
	if s.token == "" || subtle.ConstantTimeCompare([]byte(key), []byte(s.token)) != 1 {
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
			Category: string(pipeline.KindUnauthorized),
			Detail:   "Unauthorized",
		})
		return
	}
	c.Next()
}

func (s *Server) update(c *gin.Context) {
	res, err := s.runner.Run(c.Request.Context())
	if err != nil {
		resp := ErrorResponse{Status: "error", Category: "internal", Detail: err.Error()}
		var syncErr *pipeline.Error
		if errors.As(err, &syncErr) {
			resp.Category = string(syncErr.Kind)
			resp.Detail = syncErr.Detail()
		}
		if res != nil {
			resp.RunID = res.RunID
		}
		logger.FromGin(c).Error("Sync failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, resp)
		return
	}

	skipped := res.Skipped
	if skipped == nil {
		skipped = []pipeline.RecordFailure{}
	}
	c.JSON(http.StatusOK, UpdateResponse{
		Status:   "success",
		RunID:    res.RunID,
		Fetched:  res.Fetched,
		Affected: res.Affected,
		Skipped:  skipped,
	})
}

func (s *Server) storeError(c *gin.Context, err error) {
	logger.FromGin(c).Error("Store query failed", zap.Error(err))
	c.JSON(http.StatusInternalServerError, ErrorResponse{Detail: "store unavailable"})
}

// intQuery parses an optional integer query parameter, writing a 400 when
// it is present but not an integer.
func intQuery(c *gin.Context, name string) (*int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Detail: name + " must be an integer"})
		return nil, false
	}
	return &n, true
}

func derefInt(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
