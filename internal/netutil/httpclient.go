package netutil

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	_ "github.com/bdandy/go-socks4" // registers the socks4 scheme with x/net/proxy
	"golang.org/x/net/proxy"
)

// NewHTTPClient returns a client that goes through proxyStr when it is set.
// Supported schemes: http, https, socks5, socks4.
func NewHTTPClient(proxyStr string, timeout time.Duration) (*http.Client, error) {
	if proxyStr == "" {
		return &http.Client{Timeout: timeout}, nil
	}

	proxyURL, err := url.Parse(proxyStr)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy url: %w", err)
	}

	base := &net.Dialer{Timeout: 10 * time.Second, KeepAlive: 10 * time.Second}

	var transport *http.Transport
	switch proxyURL.Scheme {
	case "http", "https":
		transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}

	case "socks5":
		var auth *proxy.Auth
		if proxyURL.User != nil {
			auth = &proxy.Auth{User: proxyURL.User.Username()}
			if pass, ok := proxyURL.User.Password(); ok {
				auth.Password = pass
			}
		}
		dialer, err := proxy.SOCKS5("tcp", proxyURL.Host, auth, base)
		if err != nil {
			return nil, fmt.Errorf("socks5 dialer: %w", err)
		}
		transport = &http.Transport{DialContext: dialContext(dialer)}

	case "socks4":
		dialer, err := proxy.FromURL(proxyURL, base)
		if err != nil {
			return nil, fmt.Errorf("socks4 dialer: %w", err)
		}
		transport = &http.Transport{DialContext: dialContext(dialer)}

	default:
		return nil, fmt.Errorf("unsupported proxy scheme %q", proxyURL.Scheme)
	}

	return &http.Client{Timeout: timeout, Transport: transport}, nil
}

func dialContext(d proxy.Dialer) func(ctx context.Context, network, addr string) (net.Conn, error) {
	if cd, ok := d.(proxy.ContextDialer); ok {
		return cd.DialContext
	}
	return func(_ context.Context, network, addr string) (net.Conn, error) {
		return d.Dial(network, addr)
	}
}
