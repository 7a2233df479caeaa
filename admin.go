// admin.go - visitor tracking and the admin dashboard
package main

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Zachkp/folio/internal/asset"
	"github.com/Zachkp/folio/internal/store"
)

// visitorRetention is how long hashed visitor records are kept.
const visitorRetention = 12 * 30 * 24 * time.Hour

type admin struct {
	store    *store.Store
	purger   asset.Purger
	logger   *zap.Logger
	username string
	password string
	token    string
	salt     string
	now      func() time.Time
}

func newAdmin(st *store.Store, purger asset.Purger, username, password string, logger *zap.Logger) (*admin, error) {
	token, err := randomToken()
	if err != nil {
		return nil, err
	}
	salt, err := randomToken()
	if err != nil {
		return nil, err
	}
	return &admin{
		store:    st,
		purger:   purger,
		logger:   logger,
		username: username,
		password: password,
		token:    token,
		salt:     salt,
		now:      time.Now,
	}, nil
}

func randomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// hashIP hashes an address with the per-process salt, truncated for storage.
func (a *admin) hashIP(ip string) string {
	sum := sha256.Sum256([]byte(ip + a.salt))
	return hex.EncodeToString(sum[:])[:16]
}

func (a *admin) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie("admin_token")
		if err != nil || subtle.ConstantTimeCompare([]byte(token), []byte(a.token)) != 1 {
			c.Redirect(http.StatusFound, "/admin/login")
			c.Abort()
			return
		}
		c.Next()
	}
}

var untrackedPrefixes = []string{"/static/", "/images/", "/admin/", "/gallery/", "/favicon", "/privacy", "/healthz", "/metrics", "/resolve"}

// trackingMiddleware records page views with hashed IPs, honouring DNT.
func (a *admin) trackingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, prefix := range untrackedPrefixes {
			if strings.HasPrefix(path, prefix) {
				c.Next()
				return
			}
		}
		if c.GetHeader("DNT") == "1" {
			c.Next()
			return
		}

		hashed, ua, at := a.hashIP(c.ClientIP()), c.GetHeader("User-Agent"), a.now()
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := a.store.TrackVisitor(ctx, hashed, ua, path, at); err != nil {
				a.logger.Warn("record visitor", zap.Error(err))
			}
		}()
		c.Next()
	}
}

func (a *admin) cleanup(ctx context.Context) {
	n, err := a.store.CleanupVisitors(ctx, a.now().Add(-visitorRetention))
	if err != nil {
		a.logger.Warn("visitor cleanup", zap.Error(err))
		return
	}
	if n > 0 {
		a.logger.Info("privacy cleanup", zap.Int64("removed", n))
	}
}

// runCleanup prunes old visitor data once a day until ctx is done.
func (a *admin) runCleanup(ctx context.Context) error {
	a.cleanup(ctx)
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			a.cleanup(ctx)
		}
	}
}

func (a *admin) register(r *gin.Engine) {
	r.GET("/privacy", func(c *gin.Context) {
		c.HTML(http.StatusOK, "privacy.html", gin.H{"title": "Privacy Policy"})
	})

	r.GET("/admin/login", func(c *gin.Context) {
		c.HTML(http.StatusOK, "admin-login.html", gin.H{})
	})

	r.POST("/admin/login", func(c *gin.Context) {
		user := c.PostForm("username")
		pass := c.PostForm("password")
		userOK := subtle.ConstantTimeCompare([]byte(user), []byte(a.username)) == 1
		passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(a.password)) == 1
		if !userOK || !passOK {
			a.logger.Warn("failed admin login", zap.String("client", a.hashIP(c.ClientIP())))
			c.HTML(http.StatusUnauthorized, "admin-login.html", gin.H{"error": "Invalid credentials"})
			return
		}
		c.SetCookie("admin_token", a.token, 3600*24, "/admin", "", false, true)
		a.logger.Info("admin login", zap.String("client", a.hashIP(c.ClientIP())))
		c.Redirect(http.StatusFound, "/admin/dashboard")
	})

	r.GET("/admin/logout", func(c *gin.Context) {
		c.SetCookie("admin_token", "", -1, "/admin", "", false, true)
		c.Redirect(http.StatusFound, "/admin/login")
	})

	g := r.Group("/admin")
	g.Use(a.authMiddleware())

	g.GET("/dashboard", func(c *gin.Context) {
		stats, err := a.store.Stats(c.Request.Context(), a.now())
		if err != nil {
			a.logger.Error("load admin stats", zap.Error(err))
			c.HTML(http.StatusInternalServerError, "admin-error.html", gin.H{"error": "Failed to load statistics"})
			return
		}
		c.HTML(http.StatusOK, "admin-dashboard.html", gin.H{"stats": stats})
	})

	g.GET("/api/stats", func(c *gin.Context) {
		stats, err := a.store.Stats(c.Request.Context(), a.now())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, stats)
	})

	g.GET("/failures", func(c *gin.Context) {
		failures, err := a.store.Failures(c.Request.Context(), 200)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, failures)
	})

	// Clearing a failure also drops cached resolutions so the next render probes again.
	g.DELETE("/failures", func(c *gin.Context) {
		ref := c.Query("ref")
		ok, err := a.store.ClearFailure(c.Request.Context(), ref)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear failure"})
			return
		}
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "Reference not found"})
			return
		}
		a.purger.Purge()
		c.JSON(http.StatusOK, gin.H{"message": "Failure cleared"})
	})

	g.POST("/privacy/cleanup", func(c *gin.Context) {
		a.cleanup(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"message": "Privacy cleanup done"})
	})

	g.GET("/export/stats", func(c *gin.Context) {
		stats, err := a.store.Stats(c.Request.Context(), a.now())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Header("Content-Disposition", "attachment; filename=admin-stats.json")
		c.JSON(http.StatusOK, stats)
	})
}
