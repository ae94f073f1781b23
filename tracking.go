package main

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Zachkp/parcoursup-portfolio/internal/logging"
	"github.com/Zachkp/parcoursup-portfolio/internal/store"
)

const (
	recordTimeout = 5 * time.Second

	// topPaths and recentViews bound the stats payload.
	topPaths    = 10
	recentViews = 50
)

// trackedPrefixes are the paths counted as a dashboard view. Health, metrics
// and the stats endpoint itself are never recorded.
var trackedPrefixes = []string{"/api/insights/", "/api/export/"}

// tracker records privacy-conscious view events: client addresses are hashed
// with a per-process salt before they reach the store, and DNT is honoured.
type tracker struct {
	store   *store.Store
	logger  *slog.Logger
	metrics *metrics
	salt    []byte

	// recent is how many raw view events /api/stats lists; 0 hides them.
	recent int
	wg     sync.WaitGroup
}

func newTracker(st *store.Store, logger *slog.Logger, m *metrics) (*tracker, error) {
	salt := make([]byte, 32)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate hashing salt: %w", err)
	}
	logger.Info("view tracking enabled with hashed client addresses")
	return &tracker{store: st, logger: logger, metrics: m, salt: salt}, nil
}

// hashIP is stable for one process and truncated for storage.
func (t *tracker) hashIP(ip string) string {
	h := sha256.New()
	h.Write(t.salt)
	h.Write([]byte(ip))
	return hex.EncodeToString(h.Sum(nil))[:16]
}

func tracked(path string) bool {
	for _, p := range trackedPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

func (t *tracker) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		c.Next()
		if c.Request.Method != http.MethodGet || !tracked(path) || c.GetHeader("DNT") == "1" {
			return
		}
		if status := c.Writer.Status(); status < 200 || status >= 300 {
			return
		}
		t.record(c.ClientIP(), c.GetHeader("User-Agent"), path)
	}
}

// record writes the view in the background; wait drains pending writes.
func (t *tracker) record(ip, userAgent, path string) {
	hashed := t.hashIP(ip)
	t.goTracked(func(ctx context.Context) {
		if err := t.store.RecordView(ctx, hashed, userAgent, path); err != nil {
			t.metrics.dropped.Inc()
			t.logger.Warn("record view", "path", path, "error", err)
			return
		}
		t.metrics.views.Inc()
	})
}

// cleanup removes views older than the retention window.
func (t *tracker) cleanup(retention time.Duration) {
	if retention <= 0 {
		return
	}
	t.goTracked(func(ctx context.Context) {
		n, err := t.store.Cleanup(ctx, retention)
		if err != nil {
			t.logger.Error("view retention cleanup", "error", err)
			return
		}
		if n > 0 {
			t.logger.Info("view retention cleanup", "removed", n, "retention", retention.String())
		}
	})
}

func (t *tracker) goTracked(fn func(ctx context.Context)) {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()
		fn(ctx)
	}()
}

func (t *tracker) wait() {
	t.wg.Wait()
}

func (t *tracker) stats(c *gin.Context) {
	stats, err := t.store.Stats(c.Request.Context(), topPaths, t.recent)
	if err != nil {
		logging.FromContext(c, t.logger).Error("load view stats", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load statistics", "code": "internal"})
		return
	}
	c.JSON(http.StatusOK, stats)
}
