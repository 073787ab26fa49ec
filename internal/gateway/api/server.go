package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/50zero/HL-trade-ledger/internal/gateway/datasource"
	"github.com/50zero/HL-trade-ledger/internal/gateway/model"
	"github.com/50zero/HL-trade-ledger/internal/gateway/registry"
	"github.com/50zero/HL-trade-ledger/internal/gateway/service"
)

const healthProbeTimeout = 5 * time.Second

// Server 对外 HTTP 服务
type Server struct {
	httpServer  *http.Server
	tl          *zap.Logger
	ds          datasource.Datasource
	trades      *service.TradeService
	positions   *service.PositionService
	pnl         *service.PnlService
	leaderboard *service.LeaderboardService
	reg         *registry.Registry
}

// NewServer 组装路由
func NewServer(
	port int,
	logger *zap.Logger,
	ds datasource.Datasource,
	trades *service.TradeService,
	positions *service.PositionService,
	pnl *service.PnlService,
	leaderboard *service.LeaderboardService,
	reg *registry.Registry,
) *Server {
	s := &Server{
		tl:          logger,
		ds:          ds,
		trades:      trades,
		positions:   positions,
		pnl:         pnl,
		leaderboard: leaderboard,
		reg:         reg,
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(ginzap.Ginzap(logger, time.RFC3339, true))
	router.Use(ginzap.RecoveryWithZap(logger, true))
	router.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}))

	router.GET("/", s.handleRoot)
	router.GET("/health", s.handleHealth)

	v1 := router.Group("/v1")
	{
		v1.GET("/trades", s.handleTrades)
		v1.GET("/positions/history", s.handlePositionHistory)
		v1.GET("/pnl", s.handlePnl)
		v1.GET("/leaderboard", s.handleLeaderboard)
		v1.GET("/users", s.handleListUsers)
		v1.POST("/users", s.handleRegisterUser)
		v1.DELETE("/users/:user", s.handleUnregisterUser)
	}

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler 暴露给测试使用
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run 阻塞式启动
func (s *Server) Run() error {
	s.tl.Info("HTTP server listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown 优雅停机
func (s *Server) Shutdown(ctx context.Context) error {
	s.httpServer.SetKeepAlivesEnabled(false)
	return s.httpServer.Shutdown(ctx)
}

// respondError 错误种类映射为 HTTP 状态码
func (s *Server) respondError(c *gin.Context, err error) {
	var validationErr *model.ValidationError
	if errors.As(err, &validationErr) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": validationErr.Error(),
		})
		return
	}

	var notFoundErr *model.NotFoundError
	if errors.As(err, &notFoundErr) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": notFoundErr.Error(),
		})
		return
	}

	var upstreamErr *model.UpstreamError
	if errors.As(err, &upstreamErr) {
		// 不向调用方透出传输层细节
		s.tl.Error("Upstream failure", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "upstream_error",
			"message": "upstream exchange request failed",
		})
		return
	}

	s.tl.Error("Unhandled error", zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":   "internal_error",
		"message": "internal server error",
	})
}
