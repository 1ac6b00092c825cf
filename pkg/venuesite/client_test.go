package venuesite

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venuescraper/pkg/config"
	errs "venuescraper/pkg/errors"
	"venuescraper/pkg/logger"
)

const listingHTML = `<!DOCTYPE html>
<html><body>
<div class="grid">
  <div class="p-4 bg-white rounded">
    <h3><a href="/marketplace_merchants/cafe-kranz">Cafe Kranz</a></h3>
    <p class="text-gray-600 text-sm">Kollwitzstr. 12, 10405 Berlin</p>
    <span class="inline-block rounded bg-gray-100">Cafe</span>
    <span class="inline-block rounded bg-gray-100">Breakfast</span>
  </div>
  <div class="p-4 bg-white rounded">
    <h3><a href="/marketplace_merchants/buchladen-mitte?ref=list">Buchladen Mitte</a></h3>
    <p class="text-gray-600 text-sm">Torstr. 99, 10119 Berlin</p>
    <span class="inline-block rounded bg-gray-100">Books</span>
  </div>
  <div class="p-4 bg-white rounded">
    <h3>Not a venue</h3>
    <p class="text-gray-600">Some footer block</p>
  </div>
</div>
</body></html>`

const detailHTML = `<!DOCTYPE html>
<html><body>
<h1>Cafe Kranz</h1>
<h3>About</h3>
<p>A neighborhood cafe in Prenzlauer Berg serving breakfast and cake since 1998, with outdoor seating in summer.</p>
<a href="https://atentogutschein.de/somewhere">internal</a>
<a href="https://cafekranz.example">Visit website</a>
</body></html>`

func mustParse(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func testClient(t *testing.T, serverURL string) *Client {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Site.BaseURL = serverURL
	cfg.Site.ListingPath = "/en/communities/test?q=Berlin"
	return NewClient(cfg, logger.NewTestLogger())
}

func TestPageURL(t *testing.T) {
	client := testClient(t, "https://example.test")

	assert.Equal(t, "https://example.test/en/communities/test?q=Berlin", client.PageURL(1))
	assert.Equal(t, "https://example.test/en/communities/test?q=Berlin&page=2", client.PageURL(2))
	assert.Equal(t, "https://example.test/en/communities/test?q=Berlin&page=17", client.PageURL(17))
}

func TestFetchPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		fmt.Fprint(w, listingHTML)
	}))
	defer server.Close()

	client := testClient(t, server.URL)
	venues, err := client.FetchPage(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, venues, 2)

	assert.Equal(t, "Cafe Kranz", venues[0].Name)
	assert.Equal(t, "cafe-kranz", venues[0].Slug)
	assert.Equal(t, "Kollwitzstr. 12, 10405 Berlin", venues[0].Address)
	assert.Equal(t, []string{"Cafe", "Breakfast"}, venues[0].Tags)
	assert.Equal(t, server.URL+"/marketplace_merchants/cafe-kranz", venues[0].DetailURL)

	// Query parameters are stripped from the slug but kept in the URL
	assert.Equal(t, "buchladen-mitte", venues[1].Slug)
	assert.Contains(t, venues[1].DetailURL, "?ref=list")
}

func TestFetchPageEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body><div class='grid'></div></body></html>")
	}))
	defer server.Close()

	client := testClient(t, server.URL)
	venues, err := client.FetchPage(context.Background(), 3)
	require.NoError(t, err)
	assert.Empty(t, venues)
}

func TestFetchPageServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := testClient(t, server.URL)
	_, err := client.FetchPage(context.Background(), 1)
	require.Error(t, err)
	assert.Equal(t, errs.ErrorTypeTransient, errs.TypeOf(err))
}

func TestFetchPageNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := testClient(t, server.URL)
	_, err := client.FetchPage(context.Background(), 1)
	require.Error(t, err)
	assert.Equal(t, errs.ErrorTypePermanent, errs.TypeOf(err))
}

func TestFetchDetails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, detailHTML)
	}))
	defer server.Close()

	client := testClient(t, server.URL)

	venues := extractVenues(mustParse(t, listingHTML), server.URL)
	require.NotEmpty(t, venues)
	v := venues[0]
	v.DetailURL = server.URL + "/marketplace_merchants/cafe-kranz"

	require.NoError(t, client.FetchDetails(context.Background(), &v))
	require.NotNil(t, v.About)
	assert.Contains(t, *v.About, "neighborhood cafe")
	require.NotNil(t, v.Website)
	assert.Equal(t, "https://cafekranz.example", *v.Website)
}

func TestExtractVenuesFallbackSelectors(t *testing.T) {
	// No p-4 utility classes at all, only the structural shape
	html := `<html><body>
	<div><h3><a href="/marketplace_merchants/spaeti-nord">Spaeti Nord</a></h3>
	<p>Brunnenstr. 5, 13355 Berlin</p></div>
	</body></html>`

	venues := extractVenues(mustParse(t, html), "https://example.test")
	require.Len(t, venues, 1)
	assert.Equal(t, "Spaeti Nord", venues[0].Name)
	assert.Equal(t, "Brunnenstr. 5, 13355 Berlin", venues[0].Address)
}

func TestExtractAddressStripsIconGlyphs(t *testing.T) {
	html := `<html><body><div class="p-4">
	<h3><a href="/marketplace_merchants/x">X</a></h3>
	<p class="text-gray-600">· Oranienstr. 1, 10997 Berlin</p>
	</div></body></html>`

	venues := extractVenues(mustParse(t, html), "")
	require.Len(t, venues, 1)
	assert.Equal(t, "Oranienstr. 1, 10997 Berlin", venues[0].Address)
}

func TestExtractTagsFiltering(t *testing.T) {
	html := `<html><body><div class="p-4">
	<h3><a href="/marketplace_merchants/x">My Venue</a></h3>
	<p class="text-gray-600">Teststr. 1, 10115 Berlin</p>
	<span class="inline-block">My Venue</span>
	<span class="inline-block">Berlin</span>
	<span class="inline-block">Cafe</span>
	<span class="inline-block">Cafe</span>
	<span class="inline-block">` + strings.Repeat("x", 40) + `</span>
	</div></body></html>`

	venues := extractVenues(mustParse(t, html), "")
	require.Len(t, venues, 1)
	// Name echoes, address substrings, duplicates and overlong spans are dropped
	assert.Equal(t, []string{"Cafe"}, venues[0].Tags)
}
