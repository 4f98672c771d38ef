package scrape

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/mohammd-1819/TechNews/news"
)

// noContentPlaceholder is returned as the article body when every extraction
// strategy comes up empty. The scraped site is Persian-language, so the
// placeholder is too.
const noContentPlaceholder = "محتوای مقاله یافت نشد."

// boilerplateSelectors match page chrome stripped from a content container
// before its text is collected: ads, share widgets, tag lists, navigation,
// related posts, comments, sidebars, and scripts.
const boilerplateSelectors = ".ads-container, .b-advert, script, .b-shortcode, " +
	".b-post__share, .b-post__tags, .navigation, .related-posts, .comments, " +
	"aside, nav, footer, header, .sidebar"

// Minimum trimmed text lengths for collected blocks.
const (
	minBlockTextLen     = 10 // paragraph-like blocks inside a chosen container
	minLooseParagraphLen = 30 // loose page-wide paragraphs in the last resort
)

// ExtractArticle extracts the title and full body text of a single article
// page. It returns ok=false when no title can be found, in which case the
// URL yields no item. The body may be a placeholder string when no content
// is found, but extraction itself never fails an entire batch.
func ExtractArticle(doc *goquery.Document, articleURL string, extractedAt time.Time) (news.Item, bool) {
	title := strings.TrimSpace(doc.Find("h1.b-post__title").First().Text())
	if title == "" {
		title = strings.TrimSpace(doc.Find("h1").First().Text())
	}
	if title == "" {
		return news.Item{}, false
	}

	return news.NewItem(title, extractBody(doc), articleURL, extractedAt), true
}

// extractBody runs the body-extraction cascade over the page and returns the
// article text as paragraph blocks joined by blank lines.
func extractBody(doc *goquery.Document) string {
	container := findContentContainer(doc)
	if container == nil {
		// No container matched anywhere; collect loose paragraphs from the
		// whole page as a last resort.
		var parts []string
		doc.Find("p").Each(func(_ int, p *goquery.Selection) {
			text := strings.TrimSpace(p.Text())
			if utf8.RuneCountInString(text) > minLooseParagraphLen {
				parts = append(parts, text)
			}
		})
		if len(parts) > 0 {
			return strings.Join(parts, "\n\n")
		}
		return noContentPlaceholder
	}

	// Strip boilerplate before reading any text; the removal is destructive
	// on the parsed tree.
	container.Find(boilerplateSelectors).Remove()

	var parts []string
	container.Find("p, h2, h3, h4, ul, ol, blockquote").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if utf8.RuneCountInString(text) > minBlockTextLen {
			parts = append(parts, text)
		}
	})
	if len(parts) > 0 {
		return strings.Join(parts, "\n\n")
	}

	// No paragraph-like blocks survived; fall back to the container's raw
	// text with whitespace collapsed.
	return strings.Join(strings.Fields(container.Text()), " ")
}

// findContentContainer tries a prioritized cascade of strategies to locate
// the element holding the article body. Each step runs only when the
// previous produced nothing; the first match wins.
func findContentContainer(doc *goquery.Document) *goquery.Selection {
	for _, selector := range []string{".b-content", ".entry-content", "article .post-content"} {
		if s := doc.Find(selector).First(); s.Length() > 0 {
			return s
		}
	}

	// Scan block containers whose class mentions content or article and that
	// hold a meaningful number of paragraphs.
	var found *goquery.Selection
	doc.Find("div, section").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		class := strings.ToLower(s.AttrOr("class", ""))
		if !strings.Contains(class, "content") && !strings.Contains(class, "article") {
			return true
		}
		if s.Find("p").Length() > 3 {
			found = s
			return false
		}
		return true
	})
	if found != nil {
		return found
	}

	for _, selector := range []string{"main", "article"} {
		if s := doc.Find(selector).First(); s.Length() > 0 {
			return s
		}
	}

	return nil
}
