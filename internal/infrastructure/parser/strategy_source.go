package parser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"NewsVideoPipeline/internal/config"
	"NewsVideoPipeline/internal/domain"
	"NewsVideoPipeline/internal/ports"
	"NewsVideoPipeline/internal/scanner"
)

// StrategySource implements ArticleSource via registered scanner strategies.
type StrategySource struct {
	registry *scanner.Registry
	sites    []config.SiteConfig
	logger   *slog.Logger
}

var _ ports.ArticleSource = (*StrategySource)(nil)

// NewStrategySource wires scanner registry with config-defined sites.
func NewStrategySource(reg *scanner.Registry, sites []config.SiteConfig, log *slog.Logger) *StrategySource {
	if log == nil {
		log = slog.Default()
	}
	return &StrategySource{
		registry: reg,
		sites:    sites,
		logger:   log.With("component", "news-source"),
	}
}

// Fetch runs the sites in config order and returns at most maxCount unique
// headlines. A failing site is skipped; an unknown strategy is a config error.
func (s *StrategySource) Fetch(ctx context.Context, maxCount int) ([]domain.Article, error) {
	if s.registry == nil || len(s.sites) == 0 {
		return nil, &domain.ConfigError{Setting: "news.sites", Hint: "configure at least one feed"}
	}

	s.logger.Debug("fetch news", "sites", len(s.sites), "max", maxCount)

	var (
		aggregated []domain.Article
		errs       []error
		seen       = map[string]struct{}{}
	)
	for _, site := range s.sites {
		if maxCount > 0 && len(aggregated) >= maxCount {
			break
		}
		s.logger.Debug("process site", "site", site.Name, "scanner", site.Scanner, "feeds", len(site.Feeds))
		strategy, err := s.registry.Resolve(site.Scanner)
		if err != nil {
			return nil, &domain.ConfigError{Setting: "news.sites." + site.Name + ".scanner", Hint: err.Error()}
		}

		req := scanner.Request{
			SiteName: site.Name,
			Options:  site.Options,
			Feeds:    toScannerFeeds(site.Feeds),
			Limit:    maxCount - len(aggregated),
		}

		results, err := strategy.Scan(ctx, req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.logger.Warn("site skipped", "site", site.Name, "error", err)
			errs = append(errs, fmt.Errorf("site %s: %w", site.Name, err))
			continue
		}

		added := 0
		for _, article := range results {
			key := article.NormalizedTitle()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			if article.Source == "" {
				article.Source = site.Name
			}
			aggregated = append(aggregated, article)
			added++
			if maxCount > 0 && len(aggregated) >= maxCount {
				break
			}
		}
		s.logger.Debug("site produced articles", "site", site.Name, "count", added)
	}

	if len(aggregated) == 0 && len(errs) > 0 {
		return nil, domain.Unavailable("news feeds", errors.Join(errs...))
	}

	s.logger.Info("news fetched", "unique_articles", len(aggregated))
	if aggregated == nil {
		aggregated = []domain.Article{}
	}
	return aggregated, nil
}

func toScannerFeeds(cfg []config.FeedConfig) []scanner.Feed {
	feeds := make([]scanner.Feed, 0, len(cfg))
	for _, feed := range cfg {
		feeds = append(feeds, scanner.Feed{
			Name: feed.Name,
			URL:  feed.URL,
		})
	}
	return feeds
}
