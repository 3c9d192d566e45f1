package transport

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// PublicHTTPClient returns an instrumented client that refuses to connect to
// loopback, private or link-local addresses. Use it for hosted providers whose
// base URL comes from untrusted configuration; it cannot reach a local TEI
// router.
func PublicHTTPClient() *http.Client {
	return &http.Client{
		Transport: otelhttp.NewTransport(publicTransport()),
	}
}

func publicTransport() *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.DialContext = dialPublic
	return t
}

// dialPublic checks the connected address rather than the resolved name, so a
// DNS answer that changes between lookup and dial cannot bypass it.
func dialPublic(ctx context.Context, network, addr string) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}
	conn, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}

	host, _, _ := net.SplitHostPort(conn.RemoteAddr().String())
	ip := net.ParseIP(host)
	if ip == nil {
		conn.Close()
		return nil, fmt.Errorf("failed to parse remote IP for %q", addr)
	}
	if !isPublic(ip) {
		conn.Close()
		return nil, fmt.Errorf("access to non-public address %s is denied", ip)
	}
	return conn, nil
}

func isPublic(ip net.IP) bool {
	return !(ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsUnspecified())
}
