package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/50zero/HL-trade-ledger/internal/gateway/model"
	"github.com/50zero/HL-trade-ledger/internal/gateway/service"
	"github.com/50zero/HL-trade-ledger/pkg/utils"
)

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "active",
		"service": "hl-trade-ledger",
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthProbeTimeout)
	defer cancel()

	timestamp := time.Now().UTC().Format(time.RFC3339)
	if err := s.ds.Ping(ctx); err != nil {
		s.tl.Warn("Health probe failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":     "unhealthy",
			"datasource": s.ds.Name(),
			"timestamp":  timestamp,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "healthy",
		"datasource": s.ds.Name(),
		"timestamp":  timestamp,
	})
}

func (s *Server) handleTrades(c *gin.Context) {
	user, err := requireAddressParam(c, "user")
	if err != nil {
		s.respondError(c, err)
		return
	}
	fromMs, toMs, err := parseWindow(c)
	if err != nil {
		s.respondError(c, err)
		return
	}
	builderOnly, err := parseBoolParam(c, "builderOnly")
	if err != nil {
		s.respondError(c, err)
		return
	}
	collapseBy, err := parseCollapseBy(c)
	if err != nil {
		s.respondError(c, err)
		return
	}

	trades, err := s.trades.GetTrades(c.Request.Context(), service.TradeParams{
		User:        user,
		Coin:        c.Query("coin"),
		FromMs:      fromMs,
		ToMs:        toMs,
		BuilderOnly: builderOnly,
		CollapseBy:  collapseBy,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"trades": trades})
}

func (s *Server) handlePositionHistory(c *gin.Context) {
	user, err := requireAddressParam(c, "user")
	if err != nil {
		s.respondError(c, err)
		return
	}
	fromMs, toMs, err := parseWindow(c)
	if err != nil {
		s.respondError(c, err)
		return
	}
	builderOnly, err := parseBoolParam(c, "builderOnly")
	if err != nil {
		s.respondError(c, err)
		return
	}

	positions, err := s.positions.GetPositionHistory(c.Request.Context(), service.PositionParams{
		User:         user,
		Coin:         c.Query("coin"),
		FromMs:       fromMs,
		ToMs:         toMs,
		BuilderOnly:  builderOnly,
		IncludePrior: true,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	if positions == nil {
		positions = []model.PositionState{}
	}

	c.JSON(http.StatusOK, gin.H{"positions": positions})
}

func (s *Server) handlePnl(c *gin.Context) {
	user, err := requireAddressParam(c, "user")
	if err != nil {
		s.respondError(c, err)
		return
	}
	fromMs, toMs, err := parseWindow(c)
	if err != nil {
		s.respondError(c, err)
		return
	}
	builderOnly, err := parseBoolParam(c, "builderOnly")
	if err != nil {
		s.respondError(c, err)
		return
	}
	maxStartCapital, err := parseFloatParam(c, "maxStartCapital", 0)
	if err != nil {
		s.respondError(c, err)
		return
	}

	result, err := s.pnl.CalculatePnl(c.Request.Context(), service.PnlParams{
		User:            user,
		Coin:            c.Query("coin"),
		FromMs:          fromMs,
		ToMs:            toMs,
		BuilderOnly:     builderOnly,
		MaxStartCapital: maxStartCapital,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) handleLeaderboard(c *gin.Context) {
	metric, err := parseMetric(c)
	if err != nil {
		s.respondError(c, err)
		return
	}
	fromMs, toMs, err := parseWindow(c)
	if err != nil {
		s.respondError(c, err)
		return
	}
	builderOnly, err := parseBoolParam(c, "builderOnly")
	if err != nil {
		s.respondError(c, err)
		return
	}
	maxStartCapital, err := parseFloatParam(c, "maxStartCapital", 0)
	if err != nil {
		s.respondError(c, err)
		return
	}
	limit, err := parseLimit(c)
	if err != nil {
		s.respondError(c, err)
		return
	}

	result, err := s.leaderboard.GetLeaderboard(c.Request.Context(), service.LeaderboardParams{
		Metric:          metric,
		Coin:            c.Query("coin"),
		FromMs:          fromMs,
		ToMs:            toMs,
		BuilderOnly:     builderOnly,
		MaxStartCapital: maxStartCapital,
		Limit:           limit,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) handleListUsers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"users": s.reg.List()})
}

type registerUserRequest struct {
	User string `json:"user"`
}

func (s *Server) handleRegisterUser(c *gin.Context) {
	var req registerUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, model.NewValidationError("user", "body must be JSON with a user field"))
		return
	}

	addr := utils.NormalizeAddress(strings.TrimSpace(req.User))
	if addr == "" {
		s.respondError(c, model.NewValidationError("user", "must be a 0x-prefixed 20-byte hex address"))
		return
	}

	if s.reg.Register(addr) {
		c.JSON(http.StatusCreated, gin.H{"success": true, "user": addr})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"user":    addr,
		"message": "User already registered",
	})
}

func (s *Server) handleUnregisterUser(c *gin.Context) {
	addr := utils.NormalizeAddress(strings.TrimSpace(c.Param("user")))
	if addr == "" {
		s.respondError(c, model.NewValidationError("user", "must be a 0x-prefixed 20-byte hex address"))
		return
	}

	if !s.reg.Unregister(addr) {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"user":    addr,
			"message": "User not found",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": addr})
}
