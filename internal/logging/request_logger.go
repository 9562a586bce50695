package logging

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"gopkg.in/natefinch/lumberjack.v2"
)

const requestBodyLogLimit = 4096

// RequestLogger appends one line per handled request to a rotating file.
// It captures method, path, status, latency and a truncated request body;
// response bodies are intentionally not captured since chat completions
// stream indefinitely.
type RequestLogger struct {
	mu      sync.Mutex
	enabled bool
	writer  *lumberjack.Logger
}

// NewRequestLogger creates a request logger writing to dir/request.log.
func NewRequestLogger(enabled bool, dir string) *RequestLogger {
	return &RequestLogger{
		enabled: enabled,
		writer: &lumberjack.Logger{
			Filename:   filepath.Join(dir, "request.log"),
			MaxSize:    10,
			MaxBackups: 3,
		},
	}
}

// SetEnabled toggles request logging at runtime.
func (l *RequestLogger) SetEnabled(enabled bool) {
	l.mu.Lock()
	l.enabled = enabled
	l.mu.Unlock()
}

// IsEnabled reports whether request logging is active.
func (l *RequestLogger) IsEnabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.enabled
}

// Middleware returns a Gin middleware recording each request. When logging
// is disabled the middleware is a passthrough with no overhead.
func (l *RequestLogger) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.IsEnabled() {
			c.Next()
			return
		}

		var body []byte
		if c.Request.Body != nil {
			body, _ = io.ReadAll(io.LimitReader(c.Request.Body, requestBodyLogLimit))
			rest, _ := io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(io.MultiReader(bytes.NewReader(body), bytes.NewReader(rest)))
		}

		start := time.Now()
		c.Next()

		l.record(c, start, body)
	}
}

func (l *RequestLogger) record(c *gin.Context, start time.Time, body []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.enabled || l.writer == nil {
		return
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s | %s %s | %s | %d | %s\n",
		start.Format("2006-01-02 15:04:05"),
		c.Request.Method,
		c.Request.URL.RequestURI(),
		c.ClientIP(),
		c.Writer.Status(),
		bytes.ReplaceAll(body, []byte("\n"), []byte(" ")),
	)
	_, _ = l.writer.Write(buf.Bytes())
}
