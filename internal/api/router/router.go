package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"icodses/backend/config"
	"icodses/backend/internal/api/handler"
	"icodses/backend/internal/api/middleware"
	"icodses/backend/pkg/jwt"
	"icodses/backend/pkg/redis"
)

// 登录与注册的限流阈值
const (
	authRateLimit  = 10
	authRateWindow = time.Minute
)

// uploadOverhead multipart 表单中除摘要文件外的字段余量
const uploadOverhead = 1 << 20

// Pinger 健康检查依赖的数据库探活
type Pinger interface {
	Ping(ctx context.Context) error
}

// Setup 初始化并返回 Gin 路由引擎
// rdb 为 nil 时 Token 黑名单与限流降级为放行
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, db Pinger, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	// 避免把 typed nil 装进接口
	var (
		tokens  middleware.TokenChecker
		limiter middleware.RateLimiter
	)
	if rdb != nil {
		tokens = rdb
		limiter = rdb
	}

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.Timeout(cfg.Server.RequestTimeout))
	r.Use(middleware.BodyLimit(cfg.Upload.MaxAbstractBytes + uploadOverhead))

	// ── 健康检查与指标 ──
	r.GET("/health", func(c *gin.Context) {
		if err := db.Ping(c.Request.Context()); err != nil {
			logger.Warn("健康检查失败", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	authRequired := middleware.JWTAuth(jwtMgr, tokens)

	// ── 认证模块 ──
	auth := api.Group("/auth")
	{
		throttle := middleware.RateLimit(limiter, authRateLimit, authRateWindow)
		auth.POST("/signup", throttle, h.Auth.Signup)
		auth.POST("/login", throttle, h.Auth.Login)
		auth.POST("/change-password", authRequired, h.Auth.ChangePassword)
		auth.POST("/logout", authRequired, h.Auth.Logout)
	}

	// ── 投稿 ──
	api.POST("/registration", authRequired, middleware.RoleAuth("user"), h.Paper.Submit)

	// ── 管理端 ──
	admin := api.Group("/admin")
	admin.Use(authRequired)
	{
		adminOnly := middleware.RoleAuth("admin")
		reviewerOnly := middleware.RoleAuth("reviewer")

		// 审稿分配
		admin.POST("/assign-reviewer", adminOnly, h.Assignment.Assign)
		admin.GET("/assignments", adminOnly, h.Assignment.List)
		admin.GET("/assignments/export", adminOnly, h.Assignment.Export)
		admin.PUT("/assignment/:paperId", adminOnly, h.Assignment.Update)
		admin.DELETE("/assignment/:paperId", adminOnly, h.Assignment.Delete)

		// 论文
		admin.GET("/unassigned-papers", adminOnly, h.Paper.ListUnassigned)
		admin.GET("/registrations-with-assignments", adminOnly, h.Paper.ListRegistrations)
		admin.GET("/registration-analytics", adminOnly, h.Paper.Analytics)
		admin.POST("/send-status-email", adminOnly, h.Paper.SendStatusEmail)
		admin.GET("/paper-status/:userId", h.Paper.ListStatusForUser) // 任意已登录用户
		admin.GET("/latest-review/:paperId", adminOnly, h.Review.Latest)

		// 审稿人管理
		admin.POST("/create-reviewer", adminOnly, h.Reviewer.Create)
		admin.GET("/reviewers", adminOnly, h.Reviewer.List)
		admin.GET("/reviewers-with-assignments", adminOnly, h.Reviewer.ListWithAssignments)
		admin.DELETE("/delete-reviewer/:id", adminOnly, h.Reviewer.Delete)

		// 审稿人
		admin.POST("/reviewer/update-status", reviewerOnly, h.Review.UpdateStatus)
		admin.GET("/reviewer/assigned-papers", reviewerOnly, h.Review.AssignedPapers)
	}

	return r
}
