// Package site serves the portfolio: the home page, carousel fragments for
// HTMX navigation and the image resolution endpoint.
package site

import (
	"embed"
	"errors"
	"html/template"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Zachkp/folio/internal/asset"
	"github.com/Zachkp/folio/internal/carousel"
	"github.com/Zachkp/folio/internal/content"
)

//go:embed templates/*.html
var templatesFS embed.FS

type Options struct {
	Content    *content.Content
	Resolver   *asset.Resolver
	Logger     *zap.Logger
	ImagesDir  string
	StaticDir  string
	Gatherer   prometheus.Gatherer
	Middleware []gin.HandlerFunc
}

type Server struct {
	engine   *gin.Engine
	content  *content.Content
	resolver *asset.Resolver
	logger   *zap.Logger
}

func templates() *template.Template {
	funcs := template.FuncMap{
		"placement": placementStyle,
		"inc":       func(i int) int { return i + 1 },
	}
	return template.Must(template.New("").Funcs(funcs).ParseFS(templatesFS, "templates/*.html"))
}

func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))
	r.Use(opts.Middleware...)
	r.SetHTMLTemplate(templates())

	if opts.ImagesDir != "" {
		r.Static("/images", opts.ImagesDir)
	}
	if opts.StaticDir != "" {
		if fi, err := os.Stat(opts.StaticDir); err == nil && fi.IsDir() {
			r.Static("/static", opts.StaticDir)
		}
	}

	s := &Server{
		engine:   r,
		content:  opts.Content,
		resolver: opts.Resolver,
		logger:   logger,
	}

	r.GET("/", s.handleIndex)
	r.GET("/gallery/:name", s.handleGallery)
	r.GET("/resolve", s.handleResolve)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if opts.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}
	return s
}

// Engine exposes the router so callers can mount more routes.
func (s *Server) Engine() *gin.Engine { return s.engine }

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.engine.ServeHTTP(w, r)
}

func (s *Server) handleIndex(c *gin.Context) {
	page, err := buildPage(c.Request.Context(), s.resolver, s.content)
	if err != nil {
		s.logger.Error("build page", zap.Error(err))
		c.String(http.StatusInternalServerError, "Something went wrong rendering this page.")
		return
	}
	c.HTML(http.StatusOK, "index.html", page)
}

// handleGallery renders one carousel after applying a navigation op to the
// focus index carried in the query string.
func (s *Server) handleGallery(c *gin.Context) {
	name := c.Param("name")
	g, err := s.content.Gallery(name)
	if err != nil {
		c.String(http.StatusNotFound, "Unknown gallery.")
		return
	}

	car := newCarousel(s.resolver, g)
	car.SetFocus(queryInt(c, "focus", 0))

	switch op := c.Query("op"); op {
	case "":
	case "prev":
		car.Previous()
	case "next":
		car.Next()
	case "select", "click":
		idx, err := strconv.Atoi(c.Query("index"))
		if err != nil {
			c.String(http.StatusBadRequest, "Missing index.")
			return
		}
		if op == "select" {
			err = car.Select(idx)
		} else {
			err = car.Click(idx)
		}
		switch {
		case errors.Is(err, carousel.ErrIndexOutOfRange):
			c.String(http.StatusBadRequest, "Index out of range.")
			return
		case errors.Is(err, carousel.ErrNotVisible):
			c.String(http.StatusConflict, "Item is not visible.")
			return
		}
	default:
		c.String(http.StatusBadRequest, "Unknown operation %q.", op)
		return
	}

	if err := car.Resolve(c.Request.Context(), s.resolver); err != nil {
		s.logger.Warn("resolve gallery", zap.String("gallery", name), zap.Error(err))
		c.String(http.StatusServiceUnavailable, "Gallery unavailable.")
		return
	}
	c.HTML(http.StatusOK, "carousel.html", CarouselView{Gallery: name, View: car.View()})
}

// handleResolve exposes RenderImage: GET /resolve?ref=/logo&ext=svg,png
func (s *Server) handleResolve(c *gin.Context) {
	var exts []string
	if raw := c.Query("ext"); raw != "" {
		exts = strings.Split(raw, ",")
	}
	res, err := s.resolver.RenderImage(c.Request.Context(), c.Query("ref"), exts)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	if res.Source == "" {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"reference": res.Reference,
		"source":    res.Source,
		"extension": res.Extension,
		"tried":     res.Tried,
		"exhausted": res.Exhausted,
	})
}

func queryInt(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return v
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client", c.ClientIP()))
	}
}
