package parser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/vartanbeno/go-reddit/v2/reddit"

	"NewsVideoPipeline/internal/domain"
	"NewsVideoPipeline/internal/scanner"
)

const (
	redditBaseURL      = "https://www.reddit.com"
	defaultRedditLimit = 25
)

// postLister returns listing posts for a subreddit.
type postLister func(ctx context.Context, subreddit, sort, period string, limit int) ([]*reddit.Post, error)

// RedditScanner reads subreddit listings (for example r/worldnews top of the day).
// Feed URLs are subreddit names; options "sort" (top, hot, new) and "time" apply to all feeds.
type RedditScanner struct {
	list   postLister
	logger *slog.Logger
}

// NewRedditScanner creates an anonymous, read-only Reddit client.
func NewRedditScanner(client *http.Client, logger *slog.Logger) (*RedditScanner, error) {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	rc, err := reddit.NewReadonlyClient(reddit.WithHTTPClient(client), reddit.WithUserAgent(userAgent))
	if err != nil {
		return nil, fmt.Errorf("create reddit client: %w", err)
	}
	return newRedditScanner(readonlyLister(rc), logger), nil
}

func newRedditScanner(list postLister, logger *slog.Logger) *RedditScanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedditScanner{list: list, logger: logger.With("component", "reddit-scanner")}
}

func readonlyLister(rc *reddit.Client) postLister {
	return func(ctx context.Context, subreddit, sort, period string, limit int) ([]*reddit.Post, error) {
		var (
			posts []*reddit.Post
			err   error
		)
		switch sort {
		case "hot":
			posts, _, err = rc.Subreddit.HotPosts(ctx, subreddit, &reddit.ListOptions{Limit: limit})
		case "new":
			posts, _, err = rc.Subreddit.NewPosts(ctx, subreddit, &reddit.ListOptions{Limit: limit})
		default:
			posts, _, err = rc.Subreddit.TopPosts(ctx, subreddit, &reddit.ListPostOptions{
				ListOptions: reddit.ListOptions{Limit: limit},
				Time:        period,
			})
		}
		return posts, err
	}
}

// Name identifies the strategy inside the registry.
func (s *RedditScanner) Name() string {
	return "reddit"
}

// Scan lists each configured subreddit. Stickied and NSFW posts are ignored.
func (s *RedditScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.Article, error) {
	if len(req.Feeds) == 0 {
		return nil, fmt.Errorf("no subreddits provided for site %s", req.SiteName)
	}

	sort := strings.ToLower(req.Options["sort"])
	period := req.Options["time"]
	if period == "" {
		period = "day"
	}
	limit := defaultRedditLimit
	if raw := req.Options["limit"]; raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	var (
		results []domain.Article
		errs    []error
	)
	for _, feed := range req.Feeds {
		subreddit := strings.TrimPrefix(strings.TrimSpace(feed.URL), "r/")
		posts, err := s.list(ctx, subreddit, sort, period, limit)
		if err != nil {
			s.logger.Warn("subreddit skipped", "site", req.SiteName, "subreddit", subreddit, "error", err)
			errs = append(errs, fmt.Errorf("subreddit %s: %w", subreddit, err))
			continue
		}
		for _, post := range posts {
			if post == nil || post.Stickied || post.NSFW {
				continue
			}
			results = append(results, postToArticle(post))
		}
	}

	if len(results) == 0 && len(errs) == len(req.Feeds) {
		return nil, errors.Join(errs...)
	}
	return results, nil
}

func postToArticle(post *reddit.Post) domain.Article {
	link := post.URL
	if post.IsSelfPost || link == "" {
		link = post.Permalink
		if strings.HasPrefix(link, "/") {
			link = redditBaseURL + link
		}
	}

	var published string
	if post.Created != nil {
		published = post.Created.UTC().Format(time.RFC1123)
	}

	return domain.Article{
		Title:     strings.TrimSpace(post.Title),
		Summary:   truncateRunes(strings.TrimSpace(post.Body), summaryRuneLimit),
		Source:    post.SubredditNamePrefixed,
		URL:       link,
		Published: published,
	}
}
