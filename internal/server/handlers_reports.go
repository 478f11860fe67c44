package server

import (
	"errors"
	"net/http"
	"time"

	"da-vinci/internal/analytics"

	"github.com/gin-gonic/gin"
)

type limitQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=100"`
}

func (q limitQuery) or(fallback int) int {
	if q.Limit > 0 {
		return q.Limit
	}
	return fallback
}

type dailyQuery struct {
	From string `form:"from" binding:"omitempty,isodate"`
	To   string `form:"to" binding:"omitempty,isodate"`
}

type wordURI struct {
	Word string `uri:"word" binding:"required,max=128"`
}

var (
	limitMessages = bindMessages{
		"Limit": {
			"min": "limit must be at least 1",
			"max": "limit must be 100 or fewer",
		},
	}
	dailyMessages = bindMessages{
		"From": {"isodate": "from must be YYYY-MM-DD"},
		"To":   {"isodate": "to must be YYYY-MM-DD"},
	}
)

func (s *Server) handleLeaderboard(c *gin.Context) {
	var query limitQuery
	if !bindQuery(c, &query, limitMessages) {
		return
	}
	board, err := s.reports.Leaderboard(c.Request.Context(), query.or(10))
	if err != nil {
		s.respondError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"leaderboard": board})
}

func (s *Server) handleDailyAnalytics(c *gin.Context) {
	var query dailyQuery
	if !bindQuery(c, &query, dailyMessages) {
		return
	}
	from, to, ok := s.reportRange(query)
	if !ok {
		writeError(c, http.StatusBadRequest, "invalid date range")
		return
	}
	days, err := s.reports.Daily(c.Request.Context(), from, to)
	if err != nil {
		s.respondError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"from": from, "to": to, "days": days})
}

// reportRange defaults to the last week in the game's time zone and caps
// the span.
func (s *Server) reportRange(query dailyQuery) (string, string, bool) {
	const layout = "2006-01-02"
	today := time.Now().In(s.cfg.Location())
	to := today
	if query.To != "" {
		to, _ = time.ParseInLocation(layout, query.To, today.Location())
	}
	from := to.AddDate(0, 0, -(defaultReportDays - 1))
	if query.From != "" {
		from, _ = time.ParseInLocation(layout, query.From, today.Location())
	}
	if from.After(to) || to.Sub(from) > maxReportDays*24*time.Hour {
		return "", "", false
	}
	return from.Format(layout), to.Format(layout), true
}

func (s *Server) handleHardestWords(c *gin.Context) {
	var query limitQuery
	if !bindQuery(c, &query, limitMessages) {
		return
	}
	words, err := s.reports.HardestWords(c.Request.Context(), query.or(10))
	if err != nil {
		s.respondError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"words": words})
}

func (s *Server) handleWordAnalytics(c *gin.Context) {
	var uri wordURI
	if !bindURI(c, &uri) {
		return
	}
	word, err := s.reports.Word(c.Request.Context(), uri.Word)
	if errors.Is(err, analytics.ErrWordNotFound) {
		writeError(c, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		s.respondError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, word)
}

func (s *Server) handleRecentLogs(c *gin.Context) {
	var query limitQuery
	if !bindQuery(c, &query, limitMessages) {
		return
	}
	logs, err := s.reports.RecentLogs(c.Request.Context(), query.or(20))
	if err != nil {
		s.respondError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"logs": logs})
}
