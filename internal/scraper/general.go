package scraper

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ottie-ai/scrapequeue/internal/domain"
)

// generalScraper handles listing sites without a dedicated scraper by
// reading OpenGraph tags, standard meta tags, and schema.org microdata.
type generalScraper struct{}

func newGeneralScraper() *generalScraper {
	return &generalScraper{}
}

func (g *generalScraper) Provider() string {
	return "general"
}

// Matches always returns false; the router uses this scraper only as the
// fallback, never by hostname.
func (g *generalScraper) Matches(host string) bool {
	return false
}

func (g *generalScraper) Scrape(ctx context.Context, client *http.Client, sourceURL string) (*domain.PropertyData, error) {
	res, err := fetchDocument(ctx, client, sourceURL)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	doc, err := goquery.NewDocumentFromReader(res.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}

	data := &domain.PropertyData{
		SourceURL: sourceURL,
		Provider:  g.Provider(),
	}

	data.Title = metaContent(doc, `meta[property="og:title"]`)
	if data.Title == "" {
		data.Title = strings.TrimSpace(doc.Find("title").First().Text())
	}

	data.Description = metaContent(doc, `meta[property="og:description"]`)
	if data.Description == "" {
		data.Description = metaContent(doc, `meta[name="description"]`)
	}

	if img := metaContent(doc, `meta[property="og:image"]`); img != "" {
		data.ImageURLs = append(data.ImageURLs, img)
	}

	data.Price = metaContent(doc, `meta[property="product:price:amount"]`)
	if data.Price == "" {
		data.Price = itempropText(doc, "price")
	}

	data.Address = itempropText(doc, "address")
	data.Bedrooms = itempropInt(doc, "numberOfRooms")

	if data.Title == "" {
		return nil, fmt.Errorf("page at %s has no recognizable listing metadata", sourceURL)
	}

	return data, nil
}

// metaContent returns the content attribute of the first matching meta tag
func metaContent(doc *goquery.Document, selector string) string {
	content, _ := doc.Find(selector).First().Attr("content")
	return strings.TrimSpace(content)
}

// itempropText returns the text of the first element carrying the given
// schema.org itemprop
func itempropText(doc *goquery.Document, prop string) string {
	sel := doc.Find(fmt.Sprintf(`[itemprop=%q]`, prop)).First()
	if content, ok := sel.Attr("content"); ok {
		return strings.TrimSpace(content)
	}
	return strings.TrimSpace(sel.Text())
}

func itempropInt(doc *goquery.Document, prop string) int {
	n, err := strconv.Atoi(itempropText(doc, prop))
	if err != nil {
		return 0
	}
	return n
}
