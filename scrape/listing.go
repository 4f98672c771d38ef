package scrape

import (
	"encoding/json"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// jsonLDItemList mirrors the slice of a JSON-LD ItemList block we care
// about: the ordered article URLs on a listing page.
type jsonLDItemList struct {
	Type     string `json:"@type"`
	Elements []struct {
		Type string `json:"@type"`
		URL  string `json:"url"`
	} `json:"itemListElement"`
}

// ExtractListingURLs returns the article URLs found on a listing page, in
// document order. Embedded JSON-LD structured data is preferred; when no
// ItemList block yields URLs the card markup is scanned instead. An empty
// result is valid, not an error. Relative links are resolved against origin.
func ExtractListingURLs(doc *goquery.Document, origin string) []string {
	if urls := extractJSONLDURLs(doc); len(urls) > 0 {
		return urls
	}
	return extractCardURLs(doc, origin)
}

// extractJSONLDURLs scans script[type="application/ld+json"] blocks for an
// ItemList and returns the URLs of its ListItem entries. Blocks that fail to
// decode are skipped; the first block with a non-empty URL list wins.
func extractJSONLDURLs(doc *goquery.Document) []string {
	var urls []string

	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var list jsonLDItemList
		if err := json.Unmarshal([]byte(s.Text()), &list); err != nil {
			return true // malformed block, keep scanning
		}
		if list.Type != "ItemList" {
			return true
		}

		var found []string
		for _, elem := range list.Elements {
			if elem.Type == "ListItem" && elem.URL != "" {
				found = append(found, elem.URL)
			}
		}
		if len(found) > 0 {
			urls = found
			return false
		}
		return true
	})

	return urls
}

// cardSelectors are tried in order until one matches a non-empty set of
// article cards.
var cardSelectors = []string{".b-archive-posts article", ".b-post-box", "article"}

// extractCardURLs is the DOM fallback: find article cards, pull the link out
// of each, and keep only cards with a usable title. The article body is
// never taken from the listing page; callers fetch each returned URL.
func extractCardURLs(doc *goquery.Document, origin string) []string {
	var cards *goquery.Selection
	for _, selector := range cardSelectors {
		if s := doc.Find(selector); s.Length() > 0 {
			cards = s
			break
		}
	}
	if cards == nil {
		return nil
	}

	var urls []string
	cards.Each(func(_ int, card *goquery.Selection) {
		link := card.Find("a.b-post-box__link").First()
		if link.Length() == 0 {
			link = card.Find("a").First()
		}
		href, _ := link.Attr("href")
		if href == "" {
			return
		}

		title := card.Find(".b-post-box__title").First()
		if title.Length() == 0 {
			title = card.Find("h1, h2, h3").First()
		}
		if utf8.RuneCountInString(strings.TrimSpace(title.Text())) <= 3 {
			return
		}

		urls = append(urls, resolveURL(origin, href))
	})

	return urls
}

// resolveURL makes a relative href absolute against the site origin.
func resolveURL(origin, href string) string {
	if strings.HasPrefix(href, "http") {
		return href
	}
	base, err := url.Parse(origin)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
