package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/irsalhamdi/pos-kiosk/api/web"
	"github.com/irsalhamdi/pos-kiosk/metrics"
	"github.com/zenazn/goji/web/mutil"
)

// Metrics counts requests per route template so ids in paths do not blow up
// label cardinality.
func Metrics(m *metrics.Metrics) web.Middleware {
	mw := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			route := routeOf(r)
			start := time.Now()
			lw := mutil.WrapWriter(w)
			err := handler(ctx, lw, r)

			status := lw.Status()
			if status == 0 {
				status = http.StatusOK
			}
			m.Requests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
			m.Latency.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())

			return err
		}
		return h
	}
	return mw
}
