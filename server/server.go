// Package server 用 gin 暴露 carkit 的 HTTP JSON 接口。
//
// 路由：
//
//	GET  /health
//	GET  /metrics
//	GET  /api/v1/cars                       目录检索
//	GET  /api/v1/cars/:id
//	GET  /api/v1/cars/companies
//	GET  /api/v1/cars/models?company_name=
//	GET  /api/v1/cars/engines?company_name=&car_name=
//	POST /api/v1/recommendations/similar     参考车型相似推荐
//	POST /api/v1/recommendations/preference  区间偏好推荐
//	GET  /api/v1/recommendations/popular
//	GET  /api/v1/users/:id/recommendations   协同过滤推荐
//	GET  /api/v1/users/:id/ratings
//	POST /api/v1/users/:id/ratings
//	GET  /api/v1/quiz?n=
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rushteam/carkit/pkg/logging"
	"github.com/rushteam/carkit/service"
)

// Config HTTP 服务配置
type Config struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// Mode gin 模式：debug, release, test
	Mode string
}

// Server 是 carkit 的 HTTP 服务
type Server struct {
	rec    *service.Recommender
	engine *gin.Engine
	http   *http.Server
}

// New 创建服务并注册路由
func New(rec *service.Recommender, cfg Config) *Server {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery(), requestID(), accessLog(), prometheusMetrics())

	s := &Server{
		rec:    rec,
		engine: engine,
		http: &http.Server{
			Addr:         cfg.Addr,
			Handler:      engine,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := s.engine.Group("/api/v1")
	{
		v1.GET("/cars", s.searchCars)
		v1.GET("/cars/companies", s.companies)
		v1.GET("/cars/models", s.models)
		v1.GET("/cars/engines", s.engines)
		v1.GET("/cars/:id", s.getCar)

		v1.POST("/recommendations/similar", s.similar)
		v1.POST("/recommendations/preference", s.preference)
		v1.GET("/recommendations/popular", s.popular)

		v1.GET("/users/:id/recommendations", s.collaborative)
		v1.GET("/users/:id/ratings", s.userRatings)
		v1.POST("/users/:id/ratings", s.submitRatings)

		v1.GET("/quiz", s.quiz)
	}
}

// Handler 返回 http.Handler（测试中直接使用）
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start 开始监听，Shutdown 后返回 nil
func (s *Server) Start() error {
	logging.Info().Str("addr", s.http.Addr).Msg("http server listening")
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown 优雅关闭
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
