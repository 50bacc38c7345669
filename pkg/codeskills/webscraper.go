package codeskills

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/pkg/errors"
)

const (
	defaultScrapeTimeout  = 30
	defaultScrapeMaxBytes = 2 << 20
	scraperUserAgent      = "skillet-web-scraper/1.0"
)

// WebScraperArgs is the argument shape of the web-scraper skill.
type WebScraperArgs struct {
	URL            string `mapstructure:"input"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	MaxBytes       int64  `mapstructure:"max_bytes"`
	Raw            bool   `mapstructure:"raw"`

	// AllowedDomains are allowed in addition to SKILLET_SCRAPER_ALLOWED_DOMAINS.
	AllowedDomains []string `mapstructure:"allowed_domains"`
}

// WebScraperEntry fetches a page and returns it as markdown.
func WebScraperEntry() *Entry {
	return NewEntry("web-scraper", "Fetch a web page and convert it to markdown", scrape)
}

func scrape(ctx context.Context, args *WebScraperArgs) (any, error) {
	target := strings.TrimSpace(args.URL)
	parsed, err := url.Parse(target)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, errors.Errorf("web-scraper expects an http(s) URL as input, got %q", target)
	}
	filter, err := scraperFilter(args.AllowedDomains)
	if err != nil {
		return nil, err
	}
	if !filter.Allowed(parsed) {
		return nil, errors.Errorf("web-scraper is not allowed to fetch %s (see %s)", parsed.Hostname(), AllowedDomainsEnvVar)
	}

	timeout := args.TimeoutSeconds
	if timeout <= 0 {
		timeout = defaultScrapeTimeout
	}
	maxBytes := args.MaxBytes
	if maxBytes <= 0 {
		maxBytes = defaultScrapeMaxBytes
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(timeout)*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("User-Agent", scraperUserAgent)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch %s", target)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, errors.Errorf("failed to fetch %s: HTTP %d", target, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response body")
	}

	contentType := resp.Header.Get("Content-Type")
	if args.Raw || !strings.Contains(contentType, "html") {
		return string(body), nil
	}

	converter := md.NewConverter("", true, nil)
	markdown, err := converter.ConvertString(string(body))
	if err != nil {
		return nil, errors.Wrap(err, "failed to convert HTML to markdown")
	}
	return strings.TrimSpace(markdown), nil
}
