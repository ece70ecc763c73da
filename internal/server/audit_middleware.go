package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
)

func (s *Server) auditLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		entry := &AuditLogEntry{
			Timestamp: start.UTC(),
			Method:    r.Method,
			Path:      r.URL.Path,
			Handler:   handlerName(r),
		}

		vars := mux.Vars(r)
		if strings.HasPrefix(r.URL.Path, "/boxes/") {
			entry.BoxID = vars["id"]
		}
		entry.InvitationID = vars["inviteId"]
		if username, _, ok := r.BasicAuth(); ok {
			entry.UserID = username
		}

		rec := newStatusRecorder(w)
		next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), auditKey{}, entry)))

		entry.StatusCode = rec.StatusCode()
		entry.Duration = time.Since(start)
		s.AuditManager.LogEntry(*entry)
	})
}

func handlerName(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if name := route.GetName(); name != "" {
			return name
		}
	}
	return "unknown"
}
