package middleware

import (
	"net/http"
	"time"

	"github.com/andresmejia3/faceguard/internal/logger"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// RequestLogger logs one structured line per request. Bodies are never
// logged since they carry face images.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r, _ = withRequestInfo(r)
		ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		fields := []logger.LoggerOptions{
			{Key: "request_id", Data: chiMiddleware.GetReqID(r.Context())},
			{Key: "method", Data: r.Method},
			{Key: "path", Data: r.URL.Path},
			{Key: "status", Data: status},
			{Key: "client", Data: ClientFromContext(r.Context())},
			{Key: "bytes", Data: ww.BytesWritten()},
			{Key: "duration", Data: time.Since(start)},
		}
		if status >= http.StatusInternalServerError {
			logger.Error("http request", fields...)
			return
		}
		logger.Info("http request", fields...)
	})
}
