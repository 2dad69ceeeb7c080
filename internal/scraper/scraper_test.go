package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ottie-ai/scrapequeue/shared/logger"
)

const generalListingHTML = `<!DOCTYPE html>
<html>
<head>
  <title>Fallback Title</title>
  <meta property="og:title" content="Sunny 3BR Townhouse">
  <meta property="og:description" content="Renovated townhouse near the park.">
  <meta property="og:image" content="https://cdn.example.com/photo1.jpg">
  <meta property="product:price:amount" content="450000">
</head>
<body>
  <span itemprop="address">12 Elm Street, Springfield</span>
  <span itemprop="numberOfRooms">3</span>
</body>
</html>`

const portalzukListingHTML = `<!DOCTYPE html>
<html>
<body>
  <div class="property-detail">
    <h1 class="title">Apartamento 80m2 - Centro</h1>
    <span class="price">R$ 320.000</span>
    <span class="address">Rua das Flores, 100</span>
    <p class="description">Apartamento em leilao.</p>
    <div class="gallery">
      <img src="https://img.portalzuk.com.br/1.jpg">
      <img src="https://img.portalzuk.com.br/2.jpg">
    </div>
  </div>
</body>
</html>`

func newTestRouter(t *testing.T, ts *httptest.Server) *Router {
	t.Helper()

	r := NewRouter(logger.NewDefault().Logger)
	r.client = ts.Client()
	return r
}

func TestRouter_GeneralScraper(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(generalListingHTML))
	}))
	defer ts.Close()

	r := newTestRouter(t, ts)

	data, err := r.Scrape(context.Background(), ts.URL+"/listing/1")
	require.NoError(t, err)

	assert.Equal(t, "general", data.Provider)
	assert.Equal(t, "Sunny 3BR Townhouse", data.Title)
	assert.Equal(t, "Renovated townhouse near the park.", data.Description)
	assert.Equal(t, "450000", data.Price)
	assert.Equal(t, "12 Elm Street, Springfield", data.Address)
	assert.Equal(t, 3, data.Bedrooms)
	assert.Equal(t, []string{"https://cdn.example.com/photo1.jpg"}, data.ImageURLs)
}

func TestRouter_GeneralScraperFallsBackToTitleTag(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head><title>Plain Listing</title></head><body></body></html>`))
	}))
	defer ts.Close()

	r := newTestRouter(t, ts)

	data, err := r.Scrape(context.Background(), ts.URL)
	require.NoError(t, err)
	assert.Equal(t, "Plain Listing", data.Title)
}

func TestRouter_GeneralScraperNoMetadata(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><p>nothing here</p></body></html>`))
	}))
	defer ts.Close()

	r := newTestRouter(t, ts)

	_, err := r.Scrape(context.Background(), ts.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no recognizable listing metadata")
}

func TestRouter_Non200Surfaces(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	r := newTestRouter(t, ts)

	_, err := r.Scrape(context.Background(), ts.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status code error: 404")
}

func TestRouter_InvalidURL(t *testing.T) {
	r := NewRouter(logger.NewDefault().Logger)

	_, err := r.Scrape(context.Background(), "not a url")
	require.Error(t, err)
}

func TestPortalzukScraper(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(portalzukListingHTML))
	}))
	defer ts.Close()

	s := newPortalzukScraper()

	data, err := s.Scrape(context.Background(), ts.Client(), ts.URL+"/imovel/123")
	require.NoError(t, err)

	assert.Equal(t, "portalzuk", data.Provider)
	assert.Equal(t, "Apartamento 80m2 - Centro", data.Title)
	assert.Equal(t, "R$ 320.000", data.Price)
	assert.Equal(t, "Rua das Flores, 100", data.Address)
	assert.Len(t, data.ImageURLs, 2)
}

func TestPortalzukScraper_Matches(t *testing.T) {
	s := newPortalzukScraper()

	assert.True(t, s.Matches("portalzuk.com.br"))
	assert.True(t, s.Matches("www.portalzuk.com.br"))
	assert.False(t, s.Matches("example.com"))
	assert.False(t, s.Matches("notportalzuk.com.br"))
}
