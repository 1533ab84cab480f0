// Package server 提供提取引擎的HTTP接口
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/RecoveryAshes/ThreadCrawl/internal/core"
	"github.com/RecoveryAshes/ThreadCrawl/internal/formatter"
	"github.com/RecoveryAshes/ThreadCrawl/internal/models"
	"github.com/RecoveryAshes/ThreadCrawl/internal/utils"
)

// maxBodyBytes 请求体上限
const maxBodyBytes = 64 * 1024

// StatsProvider 提供池和缓存状态
type StatsProvider interface {
	Stats() core.EngineStats
}

// ResourceChecker 检查主机资源是否允许创建新实例
type ResourceChecker interface {
	CheckResourceAvailability() (bool, string)
}

// Server HTTP服务
type Server struct {
	extractor core.Extractor
	stats     StatsProvider
	resources ResourceChecker
	redactor  *utils.HeaderRedactor
	router    *chi.Mux
}

// Option 服务配置项
type Option func(*Server)

// WithStats /healthz 输出引擎状态
func WithStats(stats StatsProvider) Option {
	return func(s *Server) {
		s.stats = stats
	}
}

// WithResourceChecker /healthz 输出主机资源状态
func WithResourceChecker(checker ResourceChecker) Option {
	return func(s *Server) {
		s.resources = checker
	}
}

// New 创建HTTP服务
func New(extractor core.Extractor, opts ...Option) *Server {
	s := &Server{
		extractor: extractor,
		redactor:  utils.NewHeaderRedactor(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", s.handleHealth)
	r.Get("/extract", s.handleExtractQuery)
	r.Post("/extract", s.handleExtractBody)

	s.router = r
	return s
}

// Handler 返回路由
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe 监听地址直到ctx取消,然后在shutdownTimeout内优雅关闭
func (s *Server) ListenAndServe(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		utils.Infof("🌐 HTTP服务已启动: %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("HTTP服务异常退出: %w", err)
	case <-ctx.Done():
	}

	utils.Info("正在关闭HTTP服务...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("关闭HTTP服务失败: %w", err)
	}
	return nil
}

// extractRequest POST /extract 请求体
// 未识别的字段被忽略
type extractRequest struct {
	URL    string `json:"url"`
	Format string `json:"format,omitempty"`
	models.ExtractOptions
}

// errorResponse 错误响应
type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// healthResponse /healthz 响应
type healthResponse struct {
	Status    string            `json:"status"`
	Engine    *core.EngineStats `json:"engine,omitempty"`
	Resources *resourceStatus   `json:"resources,omitempty"`
}

type resourceStatus struct {
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{Status: "ok"}
	if s.stats != nil {
		stats := s.stats.Stats()
		resp.Engine = &stats
	}
	if s.resources != nil {
		ok, reason := s.resources.CheckResourceAvailability()
		resp.Resources = &resourceStatus{Available: ok, Reason: reason}
		if !ok {
			resp.Status = "degraded"
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleExtractQuery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := extractRequest{
		URL:    q.Get("url"),
		Format: q.Get("format"),
	}
	req.TimeoutMs = queryInt(q.Get("timeoutMs"))
	req.MaxPosts = queryInt(q.Get("maxPosts"))
	s.extract(w, r, req)
}

func (s *Server) handleExtractBody(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", fmt.Errorf("请求体解析失败: %w", err))
		return
	}
	s.extract(w, r, req)
}

func (s *Server) extract(w http.ResponseWriter, r *http.Request, req extractRequest) {
	format := req.Format
	if format == "" {
		format = formatter.FormatJSON
	}
	if !formatter.IsValid(format) {
		writeError(w, http.StatusBadRequest, "invalid_input", fmt.Errorf("不支持的输出格式: %s", format))
		return
	}

	result, err := s.extractor.Extract(r.Context(), req.URL, req.ExtractOptions)
	if err != nil {
		writeError(w, statusFor(err), models.ErrorKind(err), err)
		return
	}

	if format == formatter.FormatJSON {
		writeJSON(w, http.StatusOK, result)
		return
	}
	data, err := formatter.Render(result, format)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err)
		return
	}
	contentType := "text/plain; charset=utf-8"
	if format == formatter.FormatMarkdown {
		contentType = "text/markdown; charset=utf-8"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// statusFor 错误分类到HTTP状态码
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidTarget):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrEmptyExtraction):
		return http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrNavigation):
		return http.StatusBadGateway
	case errors.Is(err, models.ErrPoolExhausted), errors.Is(err, models.ErrPoolClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

// requestLogger 记录请求,敏感头部脱敏
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			log.Info().
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("elapsed", time.Since(start)).
				Msg("HTTP请求")
			log.Debug().
				Str("request_id", middleware.GetReqID(r.Context())).
				Interface("headers", s.redactor.Redact(r.Header)).
				Msg("请求头")
		}()
		next.ServeHTTP(ww, r)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, kind string, err error) {
	writeJSON(w, code, errorResponse{Error: err.Error(), Kind: kind})
}

func queryInt(s string) int {
	if s == "" {
		return 0
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return v
}
