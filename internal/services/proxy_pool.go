package services

import (
	"bufio"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"
)

const (
	defaultUpstreamTimeout = 10 * time.Second
	browserUserAgent       = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// ProxyPool is an http.RoundTripper that sends each request through the next
// egress proxy in round-robin order. With no proxies it connects directly.
type ProxyPool struct {
	mu         sync.Mutex
	proxies    []*url.URL
	transports []http.RoundTripper
	direct     http.RoundTripper
	next       int
}

// NewProxyPool builds a pool from proxy URLs. Invalid entries are logged and skipped.
func NewProxyPool(proxyURLs []string) *ProxyPool {
	p := &ProxyPool{direct: http.DefaultTransport}
	for _, raw := range proxyURLs {
		u, err := url.Parse(strings.TrimSpace(raw))
		if err != nil || u.Host == "" {
			log.Printf("Steam scheduler: ignoring invalid proxy %q", raw)
			continue
		}
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.Proxy = http.ProxyURL(u)
		p.proxies = append(p.proxies, u)
		p.transports = append(p.transports, transport)
	}
	return p
}

// LoadProxyList merges proxies from the environment value with those in
// path (one per line, '#' starts a comment). A missing file is not an error.
func LoadProxyList(fromEnv []string, path string) ([]string, error) {
	proxies := append([]string(nil), fromEnv...)
	if path == "" {
		return proxies, nil
	}

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return proxies, nil
	}
	if err != nil {
		return proxies, fmt.Errorf("failed to open proxies file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		proxies = append(proxies, line)
	}
	if err := scanner.Err(); err != nil {
		return proxies, fmt.Errorf("failed to read proxies file: %w", err)
	}
	return proxies, nil
}

// Len returns the number of usable proxies
func (p *ProxyPool) Len() int {
	return len(p.transports)
}

// nextTransport returns the transport for the next request and the proxy
// host it uses ("direct" when there are none)
func (p *ProxyPool) nextTransport() (http.RoundTripper, string) {
	if len(p.transports) == 0 {
		return p.direct, "direct"
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	i := p.next
	p.next = (p.next + 1) % len(p.transports)
	return p.transports[i], p.proxies[i].Host
}

func (p *ProxyPool) RoundTrip(req *http.Request) (*http.Response, error) {
	rt, _ := p.nextTransport()
	return rt.RoundTrip(req)
}
