package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"github.com/irsalhamdi/pos-kiosk/api/web"
	"github.com/irsalhamdi/pos-kiosk/api/weberr"
	"github.com/irsalhamdi/pos-kiosk/rate"
)

// RateLimit rejects callers whose remote address ran out of tokens.
func RateLimit(lim *rate.Limiter) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			client := clientAddr(r)
			if !lim.Check(client) {
				return weberr.TooManyRequests(
					fmt.Errorf("rate limit exceeded for %s", client),
					weberr.WithField("client", client),
				)
			}
			return handler(ctx, w, r)
		}
		return h
	}
	return m
}

func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
