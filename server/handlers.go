package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	msgQueryRequired = "Query parameter is required."
	msgSearchFailed  = "Search failed."
	msgLabelsFailed  = "Could not list labels."
)

// search handles POST /api/search. A missing query is the only client
// error; everything else is logged and reported as a server error.
func (s *Server) search(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.logger.Debug("unreadable search body", "err", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: msgQueryRequired})
		return
	}
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: msgQueryRequired})
		return
	}

	results, err := s.searcher.Search(c.Request.Context(), req.Query, req.Filter())
	if err != nil {
		s.logger.Error("search failed", "query", req.Query, "err", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: msgSearchFailed})
		return
	}

	body := make([]GameResult, len(results))
	for i, r := range results {
		body[i] = NewGameResult(r)
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) categories(c *gin.Context) {
	labels, err := s.labels.Categories(c.Request.Context())
	s.writeLabels(c, labels, err)
}

func (s *Server) genres(c *gin.Context) {
	labels, err := s.labels.Genres(c.Request.Context())
	s.writeLabels(c, labels, err)
}

func (s *Server) writeLabels(c *gin.Context, labels []string, err error) {
	if err != nil {
		s.logger.Error("listing labels failed", "path", c.FullPath(), "err", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: msgLabelsFailed})
		return
	}
	c.JSON(http.StatusOK, nonNil(labels))
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
