package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/irsalhamdi/pos-kiosk/api/web"
	"github.com/irsalhamdi/pos-kiosk/core/kiosk"
	"github.com/sirupsen/logrus"
	"github.com/zenazn/goji/web/mutil"
)

// Logger writes one line per request. Kiosk requests carry a short prefix
// of the session key so a terminal can be followed without logging the key.
func Logger(log logrus.FieldLogger) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			entry := log.WithFields(logrus.Fields{
				"req_id":     ContextRequestID(ctx),
				"method":     r.Method,
				"route":      routeOf(r),
				"remoteaddr": r.RemoteAddr,
			})
			if key := r.Header.Get(kiosk.SessionHeader); key != "" {
				entry = entry.WithField("kiosk", sessionTag(key))
			}

			entry.Debug("started")
			start := time.Now()

			lw := mutil.WrapWriter(w)
			err := handler(ctx, lw, r)

			entry.WithFields(logrus.Fields{
				"statuscode": lw.Status(),
				"bytes":      lw.BytesWritten(),
				"since":      time.Since(start).String(),
			}).Info("completed")

			return err
		}
		return h
	}
	return m
}

// routeOf returns the matched route template, falling back to the raw path.
func routeOf(r *http.Request) string {
	if cr := mux.CurrentRoute(r); cr != nil {
		if tpl, err := cr.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return r.URL.Path
}

func sessionTag(key string) string {
	if len(key) > 8 {
		return key[:8]
	}
	return key
}
