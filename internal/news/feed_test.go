package news_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cargoport/internal/news"
	"cargoport/internal/services"
)

const rssFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>Port</title>
<item><title>Rocket &amp; cargo</title><link>https://news.test/a</link>
<description>&lt;p&gt;Launch window &lt;b&gt;opens&lt;/b&gt;&lt;/p&gt;</description>
<pubDate>Mon, 05 Oct 2026 08:00:00 +0000</pubDate></item>
<item><title>No link</title><description>dropped</description></item>
<item><title>Second</title><guid>https://news.test/b</guid><pubDate>not a date</pubDate></item>
<item><title>Third</title><link>https://news.test/c</link></item>
</channel></rss>`

const atomFeed = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
<entry><title>Atom entry</title><link rel="alternate" href="https://news.test/atom"/>
<summary>Short</summary><updated>2026-10-01T12:00:00Z</updated></entry>
</feed>`

func serveFeed(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchRSS(t *testing.T) {
	srv := serveFeed(t, http.StatusOK, rssFeed)
	items, err := news.NewHTTPFetcher(srv.URL, 2, srv.Client()).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "https://news.test/a", items[0].Link)
	assert.Equal(t, "Rocket & cargo", items[0].Title)
	assert.Equal(t, "Launch window opens", items[0].Summary)
	assert.True(t, time.Date(2026, 10, 5, 8, 0, 0, 0, time.UTC).Equal(items[0].PublishedAt))

	assert.Equal(t, "https://news.test/b", items[1].Link, "guid is used when link is absent")
	assert.Equal(t, items[1].FetchedAt, items[1].PublishedAt, "unparseable dates fall back to fetch time")
}

func TestFetchAtom(t *testing.T) {
	srv := serveFeed(t, http.StatusOK, atomFeed)
	items, err := news.NewHTTPFetcher(srv.URL, 0, srv.Client()).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "https://news.test/atom", items[0].Link)
	assert.Equal(t, "Short", items[0].Summary)
}

func TestFetchErrors(t *testing.T) {
	srv := serveFeed(t, http.StatusServiceUnavailable, "")
	_, err := news.NewHTTPFetcher(srv.URL, 0, srv.Client()).Fetch(context.Background())
	assert.ErrorIs(t, err, services.ErrExternalTool)

	_, err = news.NewHTTPFetcher("", 0, nil).Fetch(context.Background())
	assert.ErrorIs(t, err, services.ErrConfiguration)
}
