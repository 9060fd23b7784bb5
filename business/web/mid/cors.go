package mid

import (
	"context"
	"net/http"
	"strings"

	"github.com/ardanlabs/rewardchain/foundation/web"
)

// corsHeaders are the request headers wallets and viewers may send.
var corsHeaders = strings.Join([]string{
	"Origin", "Accept", "Content-Type", "Content-Length", "Accept-Encoding",
}, ", ")

// Cors sets the response headers needed for Cross-Origin Resource Sharing.
// An empty origin accepts any origin.
func Cors(origin string) web.Middleware {
	if origin == "" {
		origin = "*"
	}

	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			hdr := w.Header()
			hdr.Set("Access-Control-Allow-Origin", origin)
			hdr.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			hdr.Set("Access-Control-Allow-Headers", corsHeaders)
			hdr.Set("Access-Control-Max-Age", "86400")

			if origin != "*" {
				hdr.Add("Vary", "Origin")
			}

			return handler(ctx, w, r)
		}

		return h
	}

	return m
}
