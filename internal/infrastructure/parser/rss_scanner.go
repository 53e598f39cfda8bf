package parser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"NewsVideoPipeline/internal/domain"
	"NewsVideoPipeline/internal/scanner"
)

const (
	userAgent        = "NewsVideoPipeline/1.0"
	summaryRuneLimit = 500
)

// RSSScanner reads RSS/Atom feeds such as Google News topic feeds.
type RSSScanner struct {
	client *http.Client
	logger *slog.Logger
}

// NewRSSScanner wires an HTTP client; a nil client gets a 20s timeout.
func NewRSSScanner(client *http.Client, logger *slog.Logger) *RSSScanner {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RSSScanner{client: client, logger: logger.With("component", "rss-scanner")}
}

// Name identifies the strategy inside the registry.
func (s *RSSScanner) Name() string {
	return "rss"
}

// Scan reads every feed of the request in order. A feed that cannot be
// fetched or parsed is skipped; the scan fails only when all feeds fail.
func (s *RSSScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.Article, error) {
	if len(req.Feeds) == 0 {
		return nil, fmt.Errorf("no feeds provided for site %s", req.SiteName)
	}

	var (
		results []domain.Article
		errs    []error
	)
	for _, feed := range req.Feeds {
		items, err := s.fetchFeed(ctx, feed.URL)
		if err != nil {
			s.logger.Warn("feed skipped", "site", req.SiteName, "feed", feed.Name, "error", err)
			errs = append(errs, fmt.Errorf("feed %s: %w", feed.Name, err))
			continue
		}
		for _, item := range items {
			article := itemToArticle(item)
			if article.Title == "" {
				continue
			}
			results = append(results, article)
		}
		if req.Limit > 0 && len(results) >= req.Limit {
			break
		}
	}

	if len(results) == 0 && len(errs) == len(req.Feeds) {
		return nil, errors.Join(errs...)
	}
	return results, nil
}

func (s *RSSScanner) fetchFeed(ctx context.Context, url string) ([]*gofeed.Item, error) {
	fp := gofeed.NewParser()
	fp.Client = s.client
	fp.UserAgent = userAgent

	feed, err := fp.ParseURLWithContext(url, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	return feed.Items, nil
}

func itemToArticle(item *gofeed.Item) domain.Article {
	title, source := splitSource(strings.TrimSpace(item.Title))

	summary := item.Description
	if summary == "" {
		summary = item.Content
	}

	return domain.Article{
		Title:     title,
		Summary:   truncateRunes(stripHTML(summary), summaryRuneLimit),
		Source:    source,
		URL:       strings.TrimSpace(item.Link),
		Published: item.Published,
	}
}

// splitSource separates the "Headline - Publisher" suffix Google News appends.
func splitSource(title string) (string, string) {
	idx := strings.LastIndex(title, " - ")
	if idx < 0 {
		return title, ""
	}
	return strings.TrimSpace(title[:idx]), strings.TrimSpace(title[idx+3:])
}

func stripHTML(fragment string) string {
	if !strings.Contains(fragment, "<") {
		return strings.TrimSpace(fragment)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.TrimSpace(fragment)
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
