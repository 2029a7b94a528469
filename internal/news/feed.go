package news

import (
	"context"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"cargoport/internal/config"
	"cargoport/internal/services"
)

const (
	defaultTimeout  = 30 * time.Second
	maxFeedBytes    = 4 << 20
	maxSummaryRunes = 280
)

// HTTPDoer describes the HTTP client used by the fetcher.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Fetcher downloads and parses a feed.
type Fetcher struct {
	feedURL  string
	maxItems int
	client   HTTPDoer
	now      func() time.Time
}

// NewFetcher builds a fetcher from configuration.
func NewFetcher(cfg config.News) *Fetcher {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return NewHTTPFetcher(cfg.FeedURL, cfg.MaxItems, &http.Client{Timeout: timeout})
}

// NewHTTPFetcher builds a fetcher with an explicit HTTP doer.
func NewHTTPFetcher(feedURL string, maxItems int, client HTTPDoer) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &Fetcher{
		feedURL:  strings.TrimSpace(feedURL),
		maxItems: maxItems,
		client:   client,
		now:      time.Now,
	}
}

// rssDocument covers RSS 2.0 and Atom; whichever root matches is filled.
type rssDocument struct {
	XMLName xml.Name
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
	Entries []atomEntry `xml:"entry"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	GUID        string `xml:"guid"`
	Description string `xml:"description"`
	PubDate     string `xml:"pubDate"`
}

type atomEntry struct {
	Title   string `xml:"title"`
	Summary string `xml:"summary"`
	Updated string `xml:"updated"`
	Links   []struct {
		Href string `xml:"href,attr"`
		Rel  string `xml:"rel,attr"`
	} `xml:"link"`
}

// Fetch downloads the feed and returns at most maxItems entries with a link.
func (f *Fetcher) Fetch(ctx context.Context) ([]Item, error) {
	if f == nil || f.feedURL == "" {
		return nil, services.Wrap(services.ErrConfiguration, "news", "fetch", "news feed_url is empty", nil)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build feed request: %w", err)
	}
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, services.Wrap(services.ErrTransient, "news", "fetch", "request failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, services.Wrap(services.ErrExternalTool, "news", "fetch", fmt.Sprintf("feed returned %d", resp.StatusCode), nil)
	}
	return f.parse(io.LimitReader(resp.Body, maxFeedBytes))
}

func (f *Fetcher) parse(r io.Reader) ([]Item, error) {
	var doc rssDocument
	decoder := xml.NewDecoder(r)
	decoder.Strict = false
	if err := decoder.Decode(&doc); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "news", "decode", "invalid feed", err)
	}

	fetchedAt := f.now().UTC()
	items := make([]Item, 0, len(doc.Channel.Items)+len(doc.Entries))
	for _, entry := range doc.Channel.Items {
		link := strings.TrimSpace(entry.Link)
		if link == "" {
			link = strings.TrimSpace(entry.GUID)
		}
		items = append(items, Item{
			Link:        link,
			Title:       cleanText(entry.Title),
			Summary:     summarize(entry.Description),
			PublishedAt: parseDate(entry.PubDate, fetchedAt),
			FetchedAt:   fetchedAt,
		})
	}
	for _, entry := range doc.Entries {
		items = append(items, Item{
			Link:        atomLink(entry),
			Title:       cleanText(entry.Title),
			Summary:     summarize(entry.Summary),
			PublishedAt: parseDate(entry.Updated, fetchedAt),
			FetchedAt:   fetchedAt,
		})
	}

	kept := items[:0]
	for _, item := range items {
		if item.Link == "" || item.Title == "" {
			continue
		}
		kept = append(kept, item)
		if f.maxItems > 0 && len(kept) == f.maxItems {
			break
		}
	}
	return kept, nil
}

func atomLink(entry atomEntry) string {
	for _, link := range entry.Links {
		if link.Rel == "" || link.Rel == "alternate" {
			return strings.TrimSpace(link.Href)
		}
	}
	if len(entry.Links) > 0 {
		return strings.TrimSpace(entry.Links[0].Href)
	}
	return ""
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

func cleanText(value string) string {
	value = tagPattern.ReplaceAllString(value, " ")
	value = html.UnescapeString(value)
	return strings.Join(strings.Fields(value), " ")
}

func summarize(value string) string {
	text := cleanText(value)
	runes := []rune(text)
	if len(runes) <= maxSummaryRunes {
		return text
	}
	return strings.TrimSpace(string(runes[:maxSummaryRunes])) + "…"
}

var dateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC3339,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
}

func parseDate(value string, fallback time.Time) time.Time {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed.UTC()
		}
	}
	return fallback
}
