package scrape

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mohammd-1819/TechNews/news"
)

// Scraper drives one pipeline run: fetch a topic listing page, discover
// article URLs, then fetch and extract each article. Scrapers hold no state
// between runs; concurrent runs are independent.
type Scraper struct {
	fetcher *Fetcher
	baseURL string
	workers int
	log     *zap.Logger
}

// NewScraper creates a scraper for the site at baseURL. Workers caps the
// number of simultaneous article fetches.
func NewScraper(fetcher *Fetcher, baseURL string, workers int, log *zap.Logger) *Scraper {
	if workers < 1 {
		workers = 1
	}
	return &Scraper{
		fetcher: fetcher,
		baseURL: baseURL,
		workers: workers,
		log:     log,
	}
}

// ListingURL builds the listing page URL for a topic and page number. Both
// values pass through verbatim; validation is the caller's job.
func (s *Scraper) ListingURL(page int, topic string) string {
	return fmt.Sprintf("%s/topic/%s/page/%d", s.baseURL, topic, page)
}

// Scrape runs one full pipeline pass and returns the extracted items in
// listing discovery order. A failed listing fetch yields an empty result,
// not an error; a failed article fetch or extraction skips that one URL.
// Cancelling the context stops in-flight fetches.
func (s *Scraper) Scrape(ctx context.Context, page int, topic string) ([]news.Item, error) {
	listingURL := s.ListingURL(page, topic)
	s.log.Info("starting scrape", zap.String("url", listingURL))

	doc, err := s.fetcher.Fetch(ctx, listingURL)
	if err != nil {
		s.log.Error("listing fetch failed", zap.String("url", listingURL), zap.Error(err))
		return []news.Item{}, nil
	}

	urls := ExtractListingURLs(doc, s.baseURL)
	s.log.Info("discovered article urls", zap.Int("count", len(urls)))
	if len(urls) == 0 {
		return []news.Item{}, nil
	}

	items := s.fetchArticles(ctx, urls)
	if err := ctx.Err(); err != nil {
		return items, err
	}
	return items, nil
}

// fetchArticles fans the URL list out over a bounded worker pool. Results
// land in a slot per input index so the returned order matches discovery
// order regardless of fetch completion order.
func (s *Scraper) fetchArticles(ctx context.Context, urls []string) []news.Item {
	slots := make([]*news.Item, len(urls))
	sem := make(chan struct{}, s.workers)
	var wg sync.WaitGroup

	for i, u := range urls {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		go func(i int, u string) {
			defer wg.Done()
			defer func() { <-sem }()

			doc, err := s.fetcher.Fetch(ctx, u)
			if err != nil {
				s.log.Warn("skipping article", zap.String("url", u), zap.Error(err))
				return
			}

			item, ok := ExtractArticle(doc, u, time.Now())
			if !ok {
				s.log.Warn("no title found, skipping article", zap.String("url", u))
				return
			}
			slots[i] = &item
		}(i, u)
	}

	wg.Wait()

	items := make([]news.Item, 0, len(urls))
	for _, slot := range slots {
		if slot != nil {
			items = append(items, *slot)
		}
	}
	return items
}
