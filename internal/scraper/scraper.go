package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ottie-ai/scrapequeue/internal/domain"
)

// Executor turns a listing URL into structured property data or an error.
// It is a pure function of the URL and has no queue awareness.
type Executor interface {
	Scrape(ctx context.Context, sourceURL string) (*domain.PropertyData, error)
}

// SiteScraper extracts property data from one known listing site
type SiteScraper interface {
	// Provider names the scraper in results and logs
	Provider() string
	// Matches reports whether this scraper handles the given hostname
	Matches(host string) bool
	// Scrape fetches and parses a single listing page
	Scrape(ctx context.Context, client *http.Client, sourceURL string) (*domain.PropertyData, error)
}

// Router routes a URL to a site-specific scraper when one is registered for
// its hostname and falls back to the general scraper otherwise.
type Router struct {
	client   *http.Client
	sites    []SiteScraper
	fallback SiteScraper
	logger   *slog.Logger
}

// NewRouter creates a router with the built-in site scrapers registered
func NewRouter(logger *slog.Logger) *Router {
	return &Router{
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		sites: []SiteScraper{
			newPortalzukScraper(),
		},
		fallback: newGeneralScraper(),
		logger:   logger,
	}
}

// Scrape implements Executor
func (r *Router) Scrape(ctx context.Context, sourceURL string) (*domain.PropertyData, error) {
	parsed, err := url.Parse(sourceURL)
	if err != nil || parsed.Host == "" {
		return nil, fmt.Errorf("invalid source url %q: %w", sourceURL, err)
	}

	host := strings.ToLower(parsed.Hostname())

	site := r.fallback
	for _, s := range r.sites {
		if s.Matches(host) {
			site = s
			break
		}
	}

	r.logger.Debug("Routing scrape request",
		slog.String("host", host),
		slog.String("provider", site.Provider()),
	)

	data, err := site.Scrape(ctx, r.client, sourceURL)
	if err != nil {
		return nil, fmt.Errorf("provider %s failed: %w", site.Provider(), err)
	}

	return data, nil
}

// fetchDocument performs the GET request shared by all scrapers
func fetchDocument(ctx context.Context, client *http.Client, sourceURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", "ottie-scrape-queue/1.0")

	res, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page: %w", err)
	}

	if res.StatusCode != http.StatusOK {
		res.Body.Close()
		return nil, fmt.Errorf("status code error: %d", res.StatusCode)
	}

	return res, nil
}
