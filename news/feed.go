package news

import (
	"context"
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"
)

// FeedImporter pulls RSS/Atom feed entries into the news store. The gofeed
// library detects and normalizes both formats.
type FeedImporter struct {
	store *Store
	log   *zap.Logger
}

// NewFeedImporter creates a feed importer backed by the given store.
func NewFeedImporter(store *Store, log *zap.Logger) *FeedImporter {
	return &FeedImporter{store: store, log: log}
}

// Import fetches the feed at the given URL and stores each entry as a news
// record tagged with the feed title. Entries without a title or link are
// skipped. Returns the number of records created.
func (f *FeedImporter) Import(ctx context.Context, feedURL string) (int, error) {
	parser := gofeed.NewParser()
	feed, err := parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to parse feed: %w", err)
	}

	var tags []string
	if name := strings.TrimSpace(feed.Title); name != "" {
		tags = []string{name}
	}

	imported := 0
	for _, entry := range feed.Items {
		if entry.Title == "" || entry.Link == "" {
			f.log.Warn("skipping feed entry without title or link", zap.String("feed", feedURL))
			continue
		}

		text := entry.Content
		if text == "" {
			text = entry.Description
		}

		if _, err := f.store.Create(entry.Title, text, entry.Link, tags); err != nil {
			return imported, fmt.Errorf("failed to store feed entry %q: %w", entry.Title, err)
		}
		imported++
	}

	f.log.Info("imported feed", zap.String("feed", feedURL), zap.Int("count", imported))
	return imported, nil
}
