package util

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/plumbline/plumbline/internal/model"
)

func proxyRequest(t *testing.T, rawURL string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodHead, rawURL, nil)
	return req
}

func TestProxyFunc_SchemeSelection(t *testing.T) {
	selector := ProxyFunc(model.AuditConfig{
		HTTPProxy:  "http://proxy.internal:3128",
		HTTPSProxy: "http://secure-proxy.internal:3129",
	})

	u, err := selector(proxyRequest(t, "https://example.com/x"))
	if err != nil {
		t.Fatalf("https select: %v", err)
	}
	if u == nil || u.Host != "secure-proxy.internal:3129" {
		t.Errorf("expected the https proxy for https requests, got %v", u)
	}

	u, err = selector(proxyRequest(t, "http://example.com/x"))
	if err != nil {
		t.Fatalf("http select: %v", err)
	}
	if u == nil || u.Host != "proxy.internal:3128" {
		t.Errorf("expected the http proxy for http requests, got %v", u)
	}
}

func TestProxyFunc_HTTPProxyCoversHTTPSWhenAlone(t *testing.T) {
	selector := ProxyFunc(model.AuditConfig{HTTPProxy: "http://proxy.internal:3128"})

	u, err := selector(proxyRequest(t, "https://example.com/x"))
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if u == nil || u.Host != "proxy.internal:3128" {
		t.Errorf("expected fallback to the http proxy, got %v", u)
	}
}

func TestProxyFunc_NoProxyBypass(t *testing.T) {
	selector := ProxyFunc(model.AuditConfig{
		HTTPProxy: "http://proxy.internal:3128",
		NoProxy:   "localhost, .example.com",
	})

	cases := []struct {
		url    string
		direct bool
	}{
		{"http://localhost:8080/x", true},
		{"http://example.com/x", true},
		{"http://news.example.com/x", true},
		{"http://notexample.com/x", false},
		{"http://other.org/x", false},
	}
	for _, tc := range cases {
		u, err := selector(proxyRequest(t, tc.url))
		if err != nil {
			t.Fatalf("select %s: %v", tc.url, err)
		}
		if got := u == nil; got != tc.direct {
			t.Errorf("%s: expected direct=%v, got proxy %v", tc.url, tc.direct, u)
		}
	}
}
