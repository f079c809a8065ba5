package viewserver

import (
	"fmt"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/ridge/redchat/tlog"
	"go.uber.org/zap"
	"time"
)

// cors allows browsers on any origin to read the views
var cors = handlers.CORS(
	handlers.AllowedMethods([]string{http.MethodGet, http.MethodOptions}),
	handlers.AllowedHeaders([]string{"Cache-Control", "Content-Type", "X-Requested-With"}),
	handlers.ExposedHeaders([]string{"Content-Length"}),
	handlers.AllowedOrigins([]string{"*"}),
)

// logRequests logs before and after handling of each request and puts the
// request logger into the request context
func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		ctx := tlog.With(r.Context(),
			zap.String("method", r.Method),
			zap.String("url", r.URL.String()),
		)
		logger := tlog.Get(ctx)
		logger.Debug("HTTP request handling started")
		var status int
		next.ServeHTTP(captureStatus(w, &status), r.WithContext(ctx))
		logger.Debug("HTTP request handling ended", zap.Int("statusCode", status), zap.Duration("elapsed", time.Since(started)))
	})
}

// recoverPanics turns a panicking handler into a 500 response
func recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if p := recover(); p != nil {
				if p == http.ErrAbortHandler {
					panic(p)
				}
				tlog.Get(r.Context()).Error("Panic in HTTP handler", zap.Error(fmt.Errorf("panic: %v", p)), zap.Stack("stack"))
				w.WriteHeader(http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// captureStatus wraps a http.ResponseWriter to write the response status code
// into *status. Hijacking keeps working for WebSocket upgrades.
func captureStatus(w http.ResponseWriter, status *int) http.ResponseWriter {
	cs := statusWriter{ResponseWriter: w, status: status}
	if h, ok := w.(http.Hijacker); ok {
		cs.Hijacker = h
	}
	return cs
}

type statusWriter struct {
	http.ResponseWriter
	http.Hijacker
	status *int
}

func (cs statusWriter) Write(b []byte) (int, error) {
	if *cs.status == 0 {
		*cs.status = http.StatusOK
	}
	return cs.ResponseWriter.Write(b)
}

func (cs statusWriter) WriteHeader(statusCode int) {
	*cs.status = statusCode
	cs.ResponseWriter.WriteHeader(statusCode)
}
