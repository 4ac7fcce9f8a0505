package middleware

import (
	"net"
	"net/http"
	"net/netip"
	"strings"

	"github.com/frahmantamala/company-authz/internal"
	chiMiddleware "github.com/go-chi/chi/middleware"
)

// ClientIP resolves the caller's address. Forwarding headers are honored only
// when the socket peer is one of the trusted proxies; anyone else could write
// whatever they like into them.
type ClientIP struct {
	trusted []netip.Prefix
}

func NewClientIP(trusted []netip.Prefix) *ClientIP {
	return &ClientIP{trusted: trusted}
}

// Resolve returns the socket peer unless it is a trusted proxy. Behind a
// trusted proxy it walks X-Forwarded-For from the right, skipping further
// trusted hops, and returns the first address no proxy of ours vouches for.
func (c *ClientIP) Resolve(r *http.Request) string {
	peer := remoteHost(r.RemoteAddr)
	addr, err := netip.ParseAddr(peer)
	if err != nil || !c.isTrusted(addr) {
		return peer
	}

	if fwd := r.Header.Values("X-Forwarded-For"); len(fwd) > 0 {
		hops := strings.Split(strings.Join(fwd, ","), ",")
		client := ""
		for i := len(hops) - 1; i >= 0; i-- {
			hop, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
			if err != nil {
				break
			}
			client = hop.Unmap().String()
			if !c.isTrusted(hop) {
				break
			}
		}
		if client != "" {
			return client
		}
	}
	if xr, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP"))); err == nil {
		return xr.Unmap().String()
	}
	return peer
}

func (c *ClientIP) isTrusted(addr netip.Addr) bool {
	addr = addr.Unmap()
	for _, p := range c.trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// Origin records who is calling so audit entries can carry it.
func Origin(ips *ClientIP) func(http.Handler) http.Handler {
	if ips == nil {
		ips = NewClientIP(nil)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := internal.ContextWithOrigin(r.Context(), internal.Origin{
				IPAddress: ips.Resolve(r),
				UserAgent: r.UserAgent(),
				RequestID: chiMiddleware.GetReqID(r.Context()),
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func remoteHost(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
