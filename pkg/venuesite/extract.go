package venuesite

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"venuescraper/pkg/models"
)

const merchantPathMarker = "/marketplace_merchants/"

// extractVenues pulls venue entries out of a listing page. Venue cards are
// padded container divs holding an h3 with a merchant link; the selector
// chain degrades from the primary class pattern to a structural fallback
// because the site's utility classes shift between deploys.
func extractVenues(doc *goquery.Document, baseURL string) []models.Venue {
	containers := doc.Find("div.p-4")
	if containers.Length() == 0 {
		containers = doc.Find("div[class*='p-4']")
	}
	if containers.Length() == 0 {
		containers = doc.Find("div").FilterFunction(func(_ int, s *goquery.Selection) bool {
			return s.ChildrenFiltered("h3").Length() > 0 && findMerchantLink(s).Length() > 0
		})
	}

	var venues []models.Venue
	containers.Each(func(_ int, s *goquery.Selection) {
		if v, ok := extractVenue(s, baseURL); ok {
			venues = append(venues, v)
		}
	})

	return venues
}

func findMerchantLink(s *goquery.Selection) *goquery.Selection {
	return s.Find("h3 a[href*='" + merchantPathMarker + "']").First()
}

// extractVenue reads one venue card. Cards without a merchant link are not
// venues and are skipped.
func extractVenue(s *goquery.Selection, baseURL string) (models.Venue, bool) {
	link := findMerchantLink(s)
	if link.Length() == 0 {
		return models.Venue{}, false
	}

	name := strings.TrimSpace(link.Text())
	href := link.AttrOr("href", "")
	slug := models.SlugFromDetailPath(href)
	if name == "" || slug == "" {
		return models.Venue{}, false
	}

	address := extractAddress(s)

	venue := models.Venue{
		Name:      name,
		Slug:      slug,
		Address:   address,
		Tags:      extractTags(s, name, address),
		DetailURL: baseURL + href,
	}

	return venue, true
}

func extractAddress(s *goquery.Selection) string {
	addressSel := s.Find("p.text-gray-600").First()
	if addressSel.Length() == 0 {
		addressSel = s.Find("p[class*='text-gray']").First()
	}
	if addressSel.Length() == 0 {
		// Fallback: any paragraph that looks like a Berlin street address
		s.Find("p").EachWithBreak(func(_ int, p *goquery.Selection) bool {
			text := strings.ToLower(p.Text())
			if strings.Contains(text, "berlin") &&
				(strings.Contains(text, "str") || strings.Contains(text, "platz") || strings.Contains(text, "allee")) {
				addressSel = p
				return false
			}
			return true
		})
	}

	address := strings.TrimSpace(addressSel.Text())
	// Strip leading icon glyphs and punctuation before the street name
	return strings.TrimLeft(address, " \t\n ·•,;:-")
}

func extractTags(s *goquery.Selection, name, address string) []string {
	tagSel := s.Find("span.inline-block")
	if tagSel.Length() == 0 {
		tagSel = s.Find("span[class*='rounded']")
	}

	seen := make(map[string]bool)
	var tags []string
	tagSel.Each(func(_ int, span *goquery.Selection) {
		tag := strings.TrimSpace(span.Text())
		if tag == "" || len(tag) >= 30 || tag == name || seen[tag] {
			return
		}
		if address != "" && strings.Contains(address, tag) {
			return
		}
		seen[tag] = true
		tags = append(tags, tag)
	})

	return tags
}

// extractDetails reads the about text and external website URL from a venue
// detail page.
func extractDetails(doc *goquery.Document) (about, website string) {
	doc.Find("h3").EachWithBreak(func(_ int, h *goquery.Selection) bool {
		if !strings.Contains(h.Text(), "About") {
			return true
		}
		// The about copy is the next sibling with substantial text
		h.NextAll().EachWithBreak(func(_ int, sib *goquery.Selection) bool {
			text := strings.TrimSpace(sib.Text())
			if len(text) > 50 {
				about = text
				return false
			}
			return true
		})
		return false
	})

	doc.Find("a[href^='http']").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href := a.AttrOr("href", "")
		if strings.Contains(href, "atentogutschein.de") {
			return true
		}
		if strings.Contains(strings.ToLower(a.Text()), "website") {
			website = href
			return false
		}
		return true
	})

	return about, website
}
