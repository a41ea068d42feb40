package sources

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"BloomFeed/internal/domain"
	"BloomFeed/internal/source"
)

// WebScanAdapter scrapes listing pages of sites without a feed. The CSS
// selectors come from the source options:
//
//	item_selector    - one node per article card (required)
//	title_selector   - title text inside the card (required)
//	link_selector    - anchor inside the card; defaults to title_selector
//	excerpt_selector - teaser text inside the card (optional)
//	image_selector   - img inside the card (optional)
type WebScanAdapter struct {
	client *http.Client
	clock  func() time.Time
	logger *slog.Logger
}

var _ source.Adapter = (*WebScanAdapter)(nil)

func NewWebScanAdapter(client *http.Client, logger *slog.Logger) *WebScanAdapter {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &WebScanAdapter{client: client, clock: time.Now, logger: logger}
}

func (a *WebScanAdapter) Name() string {
	return "webscan"
}

// Fetch scrapes every configured page with the source's selector set.
func (a *WebScanAdapter) Fetch(ctx context.Context, req source.Request) source.Result {
	var res source.Result

	itemSel := req.Options["item_selector"]
	titleSel := req.Options["title_selector"]
	if itemSel == "" || titleSel == "" {
		res.Errors = append(res.Errors,
			fmt.Sprintf("source %s: webscan requires item_selector and title_selector options", req.SourceName))
		return res
	}

	for _, feed := range req.Feeds {
		items, err := a.scrapePage(ctx, req, feed)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("source %s feed %s: %v", req.SourceName, feed.Name, err))
			if a.logger != nil {
				a.logger.Warn("webscan page failed", "source", req.SourceName, "feed", feed.Name, "error", err)
			}
			continue
		}
		res.Items = append(res.Items, items...)
	}

	return res
}

func (a *WebScanAdapter) scrapePage(ctx context.Context, req source.Request, feed source.Feed) ([]domain.RawItem, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, feed.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("User-Agent", "BloomFeed/1.0")

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}

	base, err := url.Parse(feed.URL)
	if err != nil {
		return nil, fmt.Errorf("parse page URL: %w", err)
	}

	linkSel := req.Options["link_selector"]
	if linkSel == "" {
		linkSel = req.Options["title_selector"]
	}

	var items []domain.RawItem
	doc.Find(req.Options["item_selector"]).Each(func(_ int, card *goquery.Selection) {
		title := strings.TrimSpace(card.Find(req.Options["title_selector"]).First().Text())
		href, _ := card.Find(linkSel).First().Attr("href")
		if title == "" || href == "" {
			return
		}

		link := resolveURL(base, href)

		var excerpt string
		if sel := req.Options["excerpt_selector"]; sel != "" {
			excerpt = strings.TrimSpace(card.Find(sel).First().Text())
		}

		var image string
		if sel := req.Options["image_selector"]; sel != "" {
			if src, ok := card.Find(sel).First().Attr("src"); ok {
				image = resolveURL(base, src)
			}
		}

		items = append(items, domain.RawItem{
			Title:       title,
			Excerpt:     excerpt,
			URL:         link,
			ImageURL:    image,
			SourceName:  req.SourceName,
			PublishedAt: a.clock(),
			Adapter:     a.Name(),
		})
	})

	return items, nil
}

func resolveURL(base *url.URL, href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
