package codeskills

import (
	"net/url"
	"os"
	"strings"

	"github.com/gobwas/glob"
	"github.com/pkg/errors"
)

// AllowedDomainsEnvVar restricts web-scraper to a comma-separated list of
// hosts or glob patterns such as "*.example.com".
const AllowedDomainsEnvVar = "SKILLET_SCRAPER_ALLOWED_DOMAINS"

// DomainFilter decides which hosts may be fetched. An empty filter allows
// every host; loopback hosts are always allowed.
type DomainFilter struct {
	exact    map[string]bool
	patterns []glob.Glob
}

// NewDomainFilter compiles patterns. Entries may be bare hosts, URLs, glob
// patterns, or comma-separated lists of those.
func NewDomainFilter(patterns ...string) (*DomainFilter, error) {
	f := &DomainFilter{exact: make(map[string]bool)}
	for _, entry := range patterns {
		for _, raw := range strings.Split(entry, ",") {
			host := hostOf(strings.TrimSpace(raw))
			if host == "" {
				continue
			}
			if !strings.ContainsAny(host, "*?[{") {
				f.exact[host] = true
				continue
			}
			g, err := glob.Compile(host)
			if err != nil {
				return nil, errors.Wrapf(err, "invalid domain pattern %q", raw)
			}
			f.patterns = append(f.patterns, g)
		}
	}
	return f, nil
}

// Empty reports whether the filter allows every host.
func (f *DomainFilter) Empty() bool {
	return len(f.exact) == 0 && len(f.patterns) == 0
}

// Allowed reports whether target's host passes the filter.
func (f *DomainFilter) Allowed(target *url.URL) bool {
	host := strings.ToLower(target.Hostname())
	if f.Empty() || isLoopback(host) || f.exact[host] {
		return true
	}
	for _, p := range f.patterns {
		if p.Match(host) {
			return true
		}
	}
	return false
}

func scraperFilter(extra []string) (*DomainFilter, error) {
	patterns := append([]string{os.Getenv(AllowedDomainsEnvVar)}, extra...)
	return NewDomainFilter(patterns...)
}

func hostOf(raw string) string {
	if raw == "" {
		return ""
	}
	if u, err := url.Parse(raw); err == nil && u.Hostname() != "" {
		return strings.ToLower(u.Hostname())
	}
	host := strings.TrimPrefix(strings.TrimPrefix(raw, "https://"), "http://")
	if i := strings.IndexByte(host, '/'); i >= 0 {
		host = host[:i]
	}
	return strings.ToLower(host)
}

func isLoopback(host string) bool {
	switch host {
	case "localhost", "::1", "0.0.0.0":
		return true
	}
	return strings.HasPrefix(host, "127.")
}
