package util

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/plumbline/plumbline/internal/model"
)

// ProxyFunc builds the transport proxy selector for audit requests. With no
// explicit proxies configured it defers entirely to the process environment;
// otherwise hosts on the no-proxy list connect direct, https requests prefer
// the https proxy, and everything else falls through to the http proxy.
func ProxyFunc(cfg model.AuditConfig) func(*http.Request) (*url.URL, error) {
	if cfg.HTTPProxy == "" && cfg.HTTPSProxy == "" {
		return http.ProxyFromEnvironment
	}

	bypass := splitHostList(cfg.NoProxy)

	return func(req *http.Request) (*url.URL, error) {
		if hostBypassed(req.URL.Hostname(), bypass) {
			return nil, nil
		}
		if req.URL.Scheme == "https" && cfg.HTTPSProxy != "" {
			return url.Parse(cfg.HTTPSProxy)
		}
		if cfg.HTTPProxy != "" {
			return url.Parse(cfg.HTTPProxy)
		}
		return http.ProxyFromEnvironment(req)
	}
}

// splitHostList parses a comma-separated no-proxy list into host suffixes
func splitHostList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		host := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(part, ".")))
		if host != "" {
			out = append(out, host)
		}
	}
	return out
}

// hostBypassed matches a host exactly or as a subdomain of a bypass entry
func hostBypassed(host string, bypass []string) bool {
	host = strings.ToLower(host)
	for _, b := range bypass {
		if host == b || strings.HasSuffix(host, "."+b) {
			return true
		}
	}
	return false
}
