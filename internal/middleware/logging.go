package middleware

import (
	"log"
	"net/http"
	"time"
)

// slowRequestThreshold marks requests worth a separate warning line.
const slowRequestThreshold = 2 * time.Second

// LoggingMiddleware logs every request with its outcome and client context.
type LoggingMiddleware struct {
	logger *log.Logger
}

// NewLoggingMiddleware creates a new logging middleware
func NewLoggingMiddleware(logger *log.Logger) *LoggingMiddleware {
	return &LoggingMiddleware{logger: logger}
}

// LogRequests wraps a handler with access logging.
func (lm *LoggingMiddleware) LogRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(recorder, r)

		duration := time.Since(start)
		clientIP := ClientIP(r)

		lm.logger.Printf("%s %s %d %dB %v - IP: %s, User-Agent: %s",
			r.Method, r.RequestURI, recorder.status, recorder.bytes, duration,
			clientIP, r.UserAgent())

		if duration > slowRequestThreshold {
			lm.logger.Printf("SLOW: %s %s took %v", r.Method, r.RequestURI, duration)
		}
		switch recorder.status {
		case http.StatusTooManyRequests:
			lm.logger.Printf("SECURITY: Rate limit exceeded for IP: %s", clientIP)
		case http.StatusRequestTimeout:
			lm.logger.Printf("SECURITY: Request timeout for IP: %s", clientIP)
		}
	})
}

// statusRecorder captures the response status and size for the access log.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(p []byte) (int, error) {
	n, err := sr.ResponseWriter.Write(p)
	sr.bytes += n
	return n, err
}
