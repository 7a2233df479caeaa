package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Zachkp/folio/internal/asset"
	"github.com/Zachkp/folio/internal/content"
	"github.com/Zachkp/folio/internal/site"
	"github.com/Zachkp/folio/internal/store"
)

type purgeCounter struct{ n atomic.Int32 }

func (p *purgeCounter) Purge() { p.n.Add(1) }

type adminFixture struct {
	handler http.Handler
	store   *store.Store
	admin   *admin
	purger  *purgeCounter
}

func newAdminFixture(t *testing.T) *adminFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	st, err := store.Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	c, err := content.Parse([]byte("name: Admin Test\nhero: /hero\n"))
	require.NoError(t, err)
	resolver, err := asset.NewResolver(asset.FSLoader{FS: os.DirFS(t.TempDir()), Prefix: "/images"}, 0,
		asset.WithResolverPublicURL("/images"), asset.WithReporter(st))
	require.NoError(t, err)

	p := &purgeCounter{}
	adm, err := newAdmin(st, p, "owner", "hunter2", zap.NewNop())
	require.NoError(t, err)

	srv := site.New(site.Options{
		Content:    c,
		Resolver:   resolver,
		Middleware: []gin.HandlerFunc{adm.trackingMiddleware()},
	})
	adm.register(srv.Engine())
	return &adminFixture{handler: srv, store: st, admin: adm, purger: p}
}

func (f *adminFixture) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)
	return rr
}

func (f *adminFixture) login(t *testing.T) *http.Cookie {
	t.Helper()
	form := url.Values{"username": {"owner"}, "password": {"hunter2"}}
	req := httptest.NewRequest(http.MethodPost, "/admin/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := f.do(t, req)
	require.Equal(t, http.StatusFound, rr.Code)
	for _, c := range rr.Result().Cookies() {
		if c.Name == "admin_token" {
			return c
		}
	}
	t.Fatal("no admin_token cookie")
	return nil
}

func TestAdmin_LoginRequired(t *testing.T) {
	f := newAdminFixture(t)
	rr := f.do(t, httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil))
	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "/admin/login", rr.Header().Get("Location"))
}

func TestAdmin_BadCredentials(t *testing.T) {
	f := newAdminFixture(t)
	form := url.Values{"username": {"owner"}, "password": {"nope"}}
	req := httptest.NewRequest(http.MethodPost, "/admin/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := f.do(t, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Contains(t, rr.Body.String(), "Invalid credentials")
}

func TestAdmin_DashboardShowsFailuresAndVisitors(t *testing.T) {
	f := newAdminFixture(t)
	cookie := f.login(t)

	// The hero has no file on disk, so rendering the page records a terminal failure.
	rr := f.do(t, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	assert.Eventually(t, func() bool {
		stats, err := f.store.Stats(context.Background(), time.Now())
		return err == nil && stats.TotalVisitors == 1
	}, 2*time.Second, 10*time.Millisecond)

	req := httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil)
	req.AddCookie(cookie)
	rr = f.do(t, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(rr.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, "1", doc.Find(`[data-stat="total"]`).Text())
	assert.Equal(t, "1", doc.Find(`[data-stat="failing"]`).Text())
	assert.Contains(t, doc.Find(".failure td").First().Text(), "/hero")
	assert.Equal(t, 1, doc.Find(".visitor").Length())
}

func TestAdmin_ClearFailurePurgesResolver(t *testing.T) {
	f := newAdminFixture(t)
	cookie := f.login(t)
	require.NoError(t, f.store.RecordTerminalFailure(context.Background(), "/gone", []string{"png"}))

	req := httptest.NewRequest(http.MethodDelete, "/admin/failures?ref=/gone", nil)
	req.AddCookie(cookie)
	rr := f.do(t, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.EqualValues(t, 1, f.purger.n.Load())

	req = httptest.NewRequest(http.MethodDelete, "/admin/failures?ref=/gone", nil)
	req.AddCookie(cookie)
	assert.Equal(t, http.StatusNotFound, f.do(t, req).Code)
}

func TestAdmin_StatsAPI(t *testing.T) {
	f := newAdminFixture(t)
	cookie := f.login(t)

	req := httptest.NewRequest(http.MethodGet, "/admin/api/stats", nil)
	req.AddCookie(cookie)
	rr := f.do(t, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var stats store.Stats
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &stats))
	assert.Zero(t, stats.TotalVisitors)
}

func TestTracking_RespectsDNTAndSkipsAssets(t *testing.T) {
	f := newAdminFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("DNT", "1")
	f.do(t, req)
	f.do(t, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	f.do(t, httptest.NewRequest(http.MethodGet, "/privacy", nil))

	time.Sleep(50 * time.Millisecond)
	stats, err := f.store.Stats(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Zero(t, stats.TotalVisitors)
}

func TestHashIP_StableAndTruncated(t *testing.T) {
	f := newAdminFixture(t)
	h := f.admin.hashIP("203.0.113.7")
	assert.Len(t, h, 16)
	assert.Equal(t, h, f.admin.hashIP("203.0.113.7"))
	assert.NotEqual(t, h, f.admin.hashIP("203.0.113.8"))
}

func TestResolveCommand(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "logo.svg"),
		[]byte(`<svg xmlns="http://www.w3.org/2000/svg"></svg>`), 0o644))
	t.Setenv("PORT", "")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"resolve", "/logo", "--images-dir", dir})
	t.Cleanup(func() { rootCmd.SetArgs(nil); rootCmd.SetOut(nil) })

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "source:    /images/logo.svg")
	assert.Contains(t, out.String(), "tried:     png")
	assert.Contains(t, out.String(), "exhausted: false")
}
