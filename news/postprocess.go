package news

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// FilterOptions holds the keyword filters applied to a scraped item list.
// Include filters run before exclude filters; when several are present they
// compose as a logical AND of the individual stages.
type FilterOptions struct {
	Keyword         string // single substring, matched against title or text
	Keywords        string // comma-separated; item kept if any keyword matches
	ExcludeKeyword  string // drop if present in title or text
	ExcludeKeywords string // comma-separated; drop if any is present
}

// matchesKeyword reports whether the keyword appears, case-insensitively, in
// the item's title or body text.
func matchesKeyword(item Item, keyword string) bool {
	k := strings.ToLower(keyword)
	return strings.Contains(strings.ToLower(item.Title), k) ||
		strings.Contains(strings.ToLower(item.Text), k)
}

// splitKeywords splits a comma-separated keyword list, trimming whitespace
// and dropping empty entries.
func splitKeywords(s string) []string {
	var keywords []string
	for _, k := range strings.Split(s, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keywords = append(keywords, k)
		}
	}
	return keywords
}

// Filter applies include and exclude keyword filters, in that fixed order,
// and returns the surviving items.
func Filter(items []Item, opts FilterOptions) []Item {
	filtered := items

	if opts.Keyword != "" {
		kept := make([]Item, 0, len(filtered))
		for _, item := range filtered {
			if matchesKeyword(item, opts.Keyword) {
				kept = append(kept, item)
			}
		}
		filtered = kept
	}

	if keywords := splitKeywords(opts.Keywords); len(keywords) > 0 {
		kept := make([]Item, 0, len(filtered))
		for _, item := range filtered {
			for _, k := range keywords {
				if matchesKeyword(item, k) {
					kept = append(kept, item)
					break
				}
			}
		}
		filtered = kept
	}

	if opts.ExcludeKeyword != "" {
		kept := make([]Item, 0, len(filtered))
		for _, item := range filtered {
			if !matchesKeyword(item, opts.ExcludeKeyword) {
				kept = append(kept, item)
			}
		}
		filtered = kept
	}

	if keywords := splitKeywords(opts.ExcludeKeywords); len(keywords) > 0 {
		kept := make([]Item, 0, len(filtered))
		for _, item := range filtered {
			excluded := false
			for _, k := range keywords {
				if matchesKeyword(item, k) {
					excluded = true
					break
				}
			}
			if !excluded {
				kept = append(kept, item)
			}
		}
		filtered = kept
	}

	return filtered
}

// sortFields maps a recognized ordering field to a string key extractor.
// Articles carry no separately parsed publish time, so published_at orders
// by the extraction timestamp like created_at. Time fields compare by their
// RFC 3339 form, which orders chronologically.
var sortFields = map[string]func(Item) string{
	"created_at":   func(i Item) string { return i.CreatedAt.Format("2006-01-02T15:04:05.000000000Z07:00") },
	"updated_at":   func(i Item) string { return i.UpdatedAt.Format("2006-01-02T15:04:05.000000000Z07:00") },
	"published_at": func(i Item) string { return i.CreatedAt.Format("2006-01-02T15:04:05.000000000Z07:00") },
	"title":        func(i Item) string { return i.Title },
}

// Sort orders items by the given ordering parameter. A leading "-" sorts
// descending. An unrecognized or empty ordering falls back to the default,
// newest first. The input slice is sorted in place and returned.
func Sort(items []Item, ordering string) []Item {
	descending := false
	field := ordering
	if strings.HasPrefix(field, "-") {
		descending = true
		field = field[1:]
	}

	key, ok := sortFields[field]
	if !ok {
		key = sortFields["created_at"]
		descending = true
	}

	sort.SliceStable(items, func(a, b int) bool {
		if descending {
			return key(items[a]) > key(items[b])
		}
		return key(items[a]) < key(items[b])
	})

	return items
}

// PageResult is one page of a filtered, sorted item list in the shape the
// API serves: total count plus absolute next/previous page links, null at
// the boundaries.
type PageResult struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []Item  `json:"results"`
}

// pageURL returns the request URL with its page query parameter rewritten.
func pageURL(requestURL *url.URL, page int) *string {
	u := *requestURL
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()
	s := u.String()
	return &s
}

// Paginate slices out one page of items and builds next/previous links from
// the request URL. Page and pageSize are assumed validated by the caller.
func Paginate(items []Item, page, pageSize int, requestURL *url.URL) PageResult {
	total := len(items)
	totalPages := (total + pageSize - 1) / pageSize

	start := (page - 1) * pageSize
	end := start + pageSize
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	result := PageResult{
		Count:   total,
		Results: items[start:end],
	}
	if result.Results == nil {
		result.Results = []Item{}
	}

	if page < totalPages {
		result.Next = pageURL(requestURL, page+1)
	}
	if page > 1 {
		result.Previous = pageURL(requestURL, page-1)
	}

	return result
}
