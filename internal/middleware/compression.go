package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
)

// CompressionConfig holds configuration for response compression
type CompressionConfig struct {
	MinSize          int      // Minimum response size to compress (bytes)
	CompressionLevel int      // Gzip level, gzip.HuffmanOnly..gzip.BestCompression
	ContentTypes     []string // Content types to compress

	// OnCompressed receives the body size before and after compression
	// for every compressed response.
	OnCompressed func(raw, compressed int)
}

// DefaultCompressionConfig compresses HTML pages and JSON bodies of 1KB or more.
// The result page embeds the PDF report as a data URL, so it is the main
// beneficiary.
func DefaultCompressionConfig() CompressionConfig {
	return CompressionConfig{
		MinSize:          1024,
		CompressionLevel: 6,
		ContentTypes: []string{
			"text/html",
			"application/json",
			"text/plain",
		},
	}
}

// Compression gzips eligible responses for clients that accept it
type Compression struct {
	config CompressionConfig
	pool   sync.Pool
}

// NewCompression creates the middleware; an invalid level falls back to
// gzip.DefaultCompression.
func NewCompression(config CompressionConfig) *Compression {
	level := config.CompressionLevel
	if level < gzip.HuffmanOnly || level > gzip.BestCompression {
		level = gzip.DefaultCompression
	}
	if config.MinSize < 0 {
		config.MinSize = 0
	}
	return &Compression{
		config: config,
		pool: sync.Pool{
			New: func() interface{} {
				gz, _ := gzip.NewWriterLevel(io.Discard, level)
				return gz
			},
		},
	}
}

// Handler returns the Gin middleware
func (cm *Compression) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodHead || !acceptsGzip(c.Request.Header.Get("Accept-Encoding")) {
			c.Next()
			return
		}

		c.Writer.Header().Add("Vary", "Accept-Encoding")
		gw := &gzipWriter{ResponseWriter: c.Writer, cm: cm}
		c.Writer = gw
		c.Next()
		gw.finish()
		c.Writer = gw.ResponseWriter
	}
}

func (cm *Compression) shouldCompress(contentType string) bool {
	mediaType, _, _ := strings.Cut(contentType, ";")
	mediaType = strings.TrimSpace(strings.ToLower(mediaType))
	for _, ct := range cm.config.ContentTypes {
		if mediaType == ct {
			return true
		}
	}
	return false
}

// acceptsGzip honours q=0 exclusions in Accept-Encoding.
func acceptsGzip(header string) bool {
	for _, part := range strings.Split(header, ",") {
		name, params, _ := strings.Cut(part, ";")
		name = strings.TrimSpace(name)
		if name != "gzip" && name != "*" {
			continue
		}
		params = strings.TrimSpace(params)
		if q, ok := strings.CutPrefix(params, "q="); ok {
			if v, err := strconv.ParseFloat(q, 64); err == nil && v == 0 {
				continue
			}
		}
		return true
	}
	return false
}

type writerState int

const (
	stateBuffering writerState = iota
	statePassthrough
	stateCompressing
)

// gzipWriter holds the body back until MinSize bytes arrive, so small
// responses go out unchanged and headers stay editable until the decision.
type gzipWriter struct {
	gin.ResponseWriter
	cm    *Compression
	state writerState
	buf   []byte
	gz    *gzip.Writer
	out   countingWriter
	raw   int
}

type countingWriter struct {
	w io.Writer
	n int
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += n
	return n, err
}

func (gw *gzipWriter) Write(p []byte) (int, error) {
	switch gw.state {
	case statePassthrough:
		return gw.ResponseWriter.Write(p)
	case stateCompressing:
		gw.raw += len(p)
		return gw.gz.Write(p)
	}

	gw.buf = append(gw.buf, p...)
	if len(gw.buf) >= gw.cm.config.MinSize {
		if err := gw.decide(true); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

func (gw *gzipWriter) WriteString(s string) (int, error) {
	return gw.Write([]byte(s))
}

// WriteHeaderNow commits headers, so compression is no longer possible.
func (gw *gzipWriter) WriteHeaderNow() {
	if gw.state == stateBuffering {
		_ = gw.decide(false)
	}
	gw.ResponseWriter.WriteHeaderNow()
}

func (gw *gzipWriter) Written() bool {
	return len(gw.buf) > 0 || gw.ResponseWriter.Written()
}

func (gw *gzipWriter) Flush() {
	if gw.state == stateBuffering {
		_ = gw.decide(len(gw.buf) >= gw.cm.config.MinSize)
	}
	if gw.state == stateCompressing {
		_ = gw.gz.Flush()
	}
	gw.ResponseWriter.Flush()
}

func (gw *gzipWriter) eligible() bool {
	if gw.ResponseWriter.Written() {
		return false
	}
	status := gw.ResponseWriter.Status()
	if status < http.StatusOK || status == http.StatusNoContent || status == http.StatusNotModified {
		return false
	}
	h := gw.Header()
	if h.Get("Content-Encoding") != "" {
		return false
	}
	return gw.cm.shouldCompress(h.Get("Content-Type"))
}

func (gw *gzipWriter) decide(large bool) error {
	buf := gw.buf
	gw.buf = nil

	if !large || !gw.eligible() {
		gw.state = statePassthrough
		if len(buf) == 0 {
			return nil
		}
		_, err := gw.ResponseWriter.Write(buf)
		return err
	}

	h := gw.Header()
	h.Del("Content-Length")
	h.Set("Content-Encoding", "gzip")

	gw.state = stateCompressing
	gw.out = countingWriter{w: gw.ResponseWriter}
	gw.gz = gw.cm.pool.Get().(*gzip.Writer)
	gw.gz.Reset(&gw.out)
	gw.raw = len(buf)
	_, err := gw.gz.Write(buf)
	return err
}

func (gw *gzipWriter) finish() {
	switch gw.state {
	case stateBuffering:
		_ = gw.decide(false)
	case stateCompressing:
		_ = gw.gz.Close()
		gw.cm.pool.Put(gw.gz)
		gw.gz = nil
		if gw.cm.config.OnCompressed != nil {
			gw.cm.config.OnCompressed(gw.raw, gw.out.n)
		}
	}
}
