package proxy

import (
	"bufio"
	"fmt"
	"io"
	"math/rand/v2"
	"net/url"
	"os"
	"strings"
)

// Pool is a fixed list of egress proxies. Selection is a random draw with no
// health bookkeeping, so a Pool is immutable after construction and can be
// shared across concurrent harvests.
type Pool struct {
	proxies []*url.URL
}

// NewPool parses raw proxy URLs. A missing scheme defaults to http.
func NewPool(rawURLs ...string) (*Pool, error) {
	p := &Pool{}
	for _, raw := range rawURLs {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if !strings.Contains(raw, "://") {
			raw = "http://" + raw
		}
		u, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("proxy: parse %q: %w", raw, err)
		}
		if u.Host == "" {
			return nil, fmt.Errorf("proxy: %q has no host", raw)
		}
		p.proxies = append(p.proxies, u)
	}
	return p, nil
}

// LoadFile reads proxies from a file, expecting one URL per line.
// Lines starting with '#' or empty lines are ignored.
func LoadFile(path string) (*Pool, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("proxy: %w", err)
	}
	defer file.Close()
	return Load(file)
}

// Load reads proxies from r in the LoadFile format.
func Load(r io.Reader) (*Pool, error) {
	scanner := bufio.NewScanner(r)
	var urls []string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("proxy: %w", err)
	}
	return NewPool(urls...)
}

// Next returns a random proxy, or nil when the pool is empty.
func (p *Pool) Next() *url.URL {
	if p == nil || len(p.proxies) == 0 {
		return nil
	}
	u := *p.proxies[rand.IntN(len(p.proxies))]
	return &u
}

// Len reports the number of configured proxies.
func (p *Pool) Len() int {
	if p == nil {
		return 0
	}
	return len(p.proxies)
}
