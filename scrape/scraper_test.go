package scrape

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Test helper: build a scraper against a test server origin
func newTestScraper(origin string, workers int) *Scraper {
	return NewScraper(newTestFetcher(), origin, workers, zap.NewNop())
}

// listingHTML renders a listing page whose JSON-LD ItemList points at the
// given absolute article URLs.
func listingHTML(urls ...string) string {
	elements := ""
	for i, u := range urls {
		if i > 0 {
			elements += ","
		}
		elements += fmt.Sprintf(`{"@type":"ListItem","url":"%s"}`, u)
	}
	return fmt.Sprintf(`<html><head>
	<script type="application/ld+json">{"@type":"ItemList","itemListElement":[%s]}</script>
	</head><body></body></html>`, elements)
}

const articleWithContainer = `<html><body>
<h1 class="b-post__title">Article with container</h1>
<div class="b-content">
	<p>First paragraph of the contained article body.</p>
	<p>Second paragraph of the contained article body.</p>
</div>
</body></html>`

const articleWithLooseParagraphs = `<html><body>
<h1>Article with loose paragraphs</h1>
<p>Loose paragraph number one, easily longer than thirty characters.</p>
<p>Loose paragraph number two, easily longer than thirty characters.</p>
<p>Loose paragraph number three, easily longer than thirty characters.</p>
<p>Loose paragraph number four, easily longer than thirty characters.</p>
<p>Loose paragraph number five, easily longer than thirty characters.</p>
</body></html>`

// TestListingURL verifies topic and page pass through into the URL path
func TestListingURL(t *testing.T) {
	s := newTestScraper("https://digiato.com", 1)
	assert.Equal(t, "https://digiato.com/topic/tech/page/3", s.ListingURL(3, "tech"))
	assert.Equal(t, "https://digiato.com/topic/games/page/1", s.ListingURL(1, "games"))
}

// TestScrape_EndToEnd verifies a full pipeline run over a fixture listing
// page and two fixture articles
func TestScrape_EndToEnd(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/topic/tech/page/1", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(listingHTML(server.URL+"/article-one", server.URL+"/article-two")))
	})
	mux.HandleFunc("/article-one", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(articleWithContainer))
	})
	mux.HandleFunc("/article-two", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(articleWithLooseParagraphs))
	})

	items, err := newTestScraper(server.URL, 5).Scrape(context.Background(), 1, "tech")

	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "Article with container", items[0].Title)
	assert.Equal(t, server.URL+"/article-one", items[0].Source)
	assert.Contains(t, items[0].Text, "First paragraph of the contained article body.")

	assert.Equal(t, "Article with loose paragraphs", items[1].Title)
	assert.Contains(t, items[1].Text, "Loose paragraph number five")
	assert.NotEqual(t, noContentPlaceholder, items[0].Text)
	assert.NotEqual(t, noContentPlaceholder, items[1].Text)
}

// TestScrape_ListingFetchFailure verifies a failed listing fetch yields an
// empty result, not an error
func TestScrape_ListingFetchFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	items, err := newTestScraper(server.URL, 2).Scrape(context.Background(), 1, "tech")

	require.NoError(t, err)
	assert.Empty(t, items)
}

// TestScrape_SkipsFailedArticles verifies one bad URL never aborts the batch
func TestScrape_SkipsFailedArticles(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/topic/tech/page/1", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(listingHTML(server.URL+"/missing", server.URL+"/good", server.URL+"/untitled")))
	})
	mux.HandleFunc("/good", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(articleWithContainer))
	})
	mux.HandleFunc("/untitled", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><p>No heading on this page at all, just text.</p></body></html>`))
	})

	items, err := newTestScraper(server.URL, 3).Scrape(context.Background(), 1, "tech")

	require.NoError(t, err)
	require.Len(t, items, 1, "404 and title-less articles should be skipped")
	assert.Equal(t, "Article with container", items[0].Title)
}

// TestScrape_PreservesDiscoveryOrder verifies results follow listing order
// even when fetches complete out of order
func TestScrape_PreservesDiscoveryOrder(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	var urls []string
	for i := 1; i <= 4; i++ {
		urls = append(urls, fmt.Sprintf("%s/article-%d", server.URL, i))
	}
	mux.HandleFunc("/topic/tech/page/1", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(listingHTML(urls...)))
	})
	for i := 1; i <= 4; i++ {
		delay := time.Duration(4-i) * 30 * time.Millisecond // earlier URLs finish last
		title := fmt.Sprintf("Ordered article %d", i)
		mux.HandleFunc(fmt.Sprintf("/article-%d", i), func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(delay)
			fmt.Fprintf(w, `<html><body><h1>%s</h1><div class="b-content"><p>Body text long enough to keep.</p></div></body></html>`, title)
		})
	}

	items, err := newTestScraper(server.URL, 4).Scrape(context.Background(), 1, "tech")

	require.NoError(t, err)
	require.Len(t, items, 4)
	for i, item := range items {
		assert.Equal(t, fmt.Sprintf("Ordered article %d", i+1), item.Title)
	}
}

// TestScrape_ContextCancellation verifies cancellation stops the run and
// surfaces the context error
func TestScrape_ContextCancellation(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/topic/tech/page/1", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(listingHTML(server.URL+"/slow-article")))
	})
	mux.HandleFunc("/slow-article", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
		w.Write([]byte(articleWithContainer))
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	items, err := newTestScraper(server.URL, 2).Scrape(ctx, 1, "tech")

	assert.Error(t, err)
	assert.Empty(t, items)
}
