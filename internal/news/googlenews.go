package news

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"MarketAnalyst/internal/model"
)

const (
	defaultGoogleNewsURL = "https://news.google.com/rss/search"
	maxArticles          = 10
)

// Source fetches recent articles about a symbol.
type Source interface {
	FetchArticles(ctx context.Context, symbol string, days int) ([]model.Article, error)
}

// GoogleNewsSource searches the Google News RSS feed.
type GoogleNewsSource struct {
	BaseURL string
	Client  *http.Client
	log     *zap.Logger
	now     func() time.Time
}

func NewGoogleNewsSource(baseURL string, timeout time.Duration, log *zap.Logger) *GoogleNewsSource {
	if baseURL == "" {
		baseURL = defaultGoogleNewsURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &GoogleNewsSource{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: timeout},
		log:     log,
		now:     time.Now,
	}
}

type rssFeed struct {
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	PubDate     string `xml:"pubDate"`
	Source      string `xml:"source"`
}

func queriesFor(symbol string) []string {
	return []string{symbol, symbol + " stock", symbol + " earnings"}
}

// FetchArticles runs the symbol's search queries and returns at most ten
// distinct articles, newest first. Articles older than days are dropped;
// articles with an unreadable date are kept. It fails only when every query
// fails.
func (g *GoogleNewsSource) FetchArticles(ctx context.Context, symbol string, days int) ([]model.Article, error) {
	articles, err := g.collect(ctx, queriesFor(symbol), days)
	if err != nil {
		return nil, fmt.Errorf("news %s: %w", symbol, err)
	}
	return articles, nil
}

// marketQueries cover broad market headlines rather than one company.
var marketQueries = []string{"stock market", "Wall Street", "S&P 500"}

// FetchMarketNews returns general market headlines under the same rules as
// FetchArticles.
func (g *GoogleNewsSource) FetchMarketNews(ctx context.Context, days int) ([]model.Article, error) {
	articles, err := g.collect(ctx, marketQueries, days)
	if err != nil {
		return nil, fmt.Errorf("market news: %w", err)
	}
	return articles, nil
}

func (g *GoogleNewsSource) collect(ctx context.Context, queries []string, days int) ([]model.Article, error) {
	var (
		all  []model.Article
		errs []error
	)
	for _, q := range queries {
		items, err := g.search(ctx, q)
		if err != nil {
			g.log.Warn("news query failed", zap.String("query", q), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		all = append(all, items...)
	}
	if len(errs) == len(queries) {
		return nil, errors.Join(errs...)
	}

	var cutoff time.Time
	if days > 0 {
		cutoff = g.now().AddDate(0, 0, -days)
	}
	return selectArticles(all, cutoff), nil
}

func (g *GoogleNewsSource) search(ctx context.Context, query string) ([]model.Article, error) {
	params := url.Values{
		"q":    {query},
		"hl":   {"en-US"},
		"gl":   {"US"},
		"ceid": {"US:en"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := g.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return nil, fmt.Errorf("fetch feed: status %d, body: %s", resp.StatusCode, string(body))
	}

	var feed rssFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("decode feed: %w", err)
	}

	out := make([]model.Article, 0, len(feed.Channel.Items))
	for _, it := range feed.Channel.Items {
		title := cleanText(it.Title)
		if title == "" {
			continue
		}
		publisher := strings.TrimSpace(it.Source)
		if publisher == "" {
			publisher = publisherFromTitle(title)
		}
		out = append(out, model.Article{
			Title:       title,
			Description: cleanText(it.Description),
			Link:        strings.TrimSpace(it.Link),
			Source:      publisher,
			PublishedAt: parsePubDate(it.PubDate),
		})
	}
	return out, nil
}

// cleanText strips markup and collapses whitespace.
func cleanText(s string) string {
	if strings.ContainsAny(s, "<&") {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(s)); err == nil {
			s = doc.Text()
		}
	}
	return strings.Join(strings.Fields(s), " ")
}

// publisherFromTitle takes the "Headline - Publisher" suffix Google appends.
func publisherFromTitle(title string) string {
	if i := strings.LastIndex(title, " - "); i >= 0 {
		return strings.TrimSpace(title[i+3:])
	}
	return "Google News"
}

func parsePubDate(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC1123, time.RFC1123Z, time.RFC822, time.RFC822Z, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// selectArticles drops articles published before cutoff, removes duplicate
// titles, orders newest first and keeps the first ten.
func selectArticles(in []model.Article, cutoff time.Time) []model.Article {
	seen := make(map[string]bool, len(in))
	out := make([]model.Article, 0, len(in))
	for _, a := range in {
		if !cutoff.IsZero() && !a.PublishedAt.IsZero() && a.PublishedAt.Before(cutoff) {
			continue
		}
		key := strings.ToLower(a.Title)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PublishedAt.After(out[j].PublishedAt)
	})
	if len(out) > maxArticles {
		out = out[:maxArticles]
	}
	return out
}
