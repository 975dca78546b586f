// Package httpclient provides the outbound HTTP client shared by the search,
// page fetching, and robots.txt clients.
package httpclient

import (
	"net"
	"net/http"
	"time"
)

// New returns an HTTP client tuned for high parallelism across many
// concurrent outbound fetches (search, page extraction, robots.txt) without
// client-side throttling beyond the caller's own concurrency caps.
func New() *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          0,
		MaxIdleConnsPerHost:   1024,
		MaxConnsPerHost:       0,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   60 * time.Second,
	}
}
