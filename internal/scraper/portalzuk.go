package scraper

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ottie-ai/scrapequeue/internal/domain"
)

// portalzukScraper parses listing pages from the Portal Zuk auction site,
// which exposes structured listing markup instead of OpenGraph metadata.
type portalzukScraper struct{}

func newPortalzukScraper() *portalzukScraper {
	return &portalzukScraper{}
}

func (p *portalzukScraper) Provider() string {
	return "portalzuk"
}

func (p *portalzukScraper) Matches(host string) bool {
	return host == "portalzuk.com.br" || strings.HasSuffix(host, ".portalzuk.com.br")
}

func (p *portalzukScraper) Scrape(ctx context.Context, client *http.Client, sourceURL string) (*domain.PropertyData, error) {
	res, err := fetchDocument(ctx, client, sourceURL)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	doc, err := goquery.NewDocumentFromReader(res.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}

	card := doc.Find(".property-detail")
	if card.Length() == 0 {
		return nil, fmt.Errorf("page at %s has no property detail section", sourceURL)
	}

	data := &domain.PropertyData{
		SourceURL:   sourceURL,
		Provider:    p.Provider(),
		Title:       strings.TrimSpace(card.Find(".title").First().Text()),
		Price:       strings.TrimSpace(card.Find(".price").First().Text()),
		Address:     strings.TrimSpace(card.Find(".address").First().Text()),
		Description: strings.TrimSpace(card.Find(".description").First().Text()),
	}

	card.Find(".gallery img").Each(func(_ int, s *goquery.Selection) {
		if src, ok := s.Attr("src"); ok && src != "" {
			data.ImageURLs = append(data.ImageURLs, src)
		}
	})

	if data.Title == "" {
		return nil, fmt.Errorf("listing at %s is missing a title", sourceURL)
	}

	return data, nil
}
