package service

import (
	"context"

	"github.com/heimaolst/shortlink/internal/model"
	"github.com/heimaolst/shortlink/internal/util"
)

const statsListSize = 5

// StatsService 每次请求都直接从数据库聚合，不走缓存
type StatsService struct {
	store LinkStore
	links *LinkService
}

func NewStatsService(store LinkStore, links *LinkService) *StatsService {
	return &StatsService{store: store, links: links}
}

func (s *StatsService) Stats(ctx context.Context, ownerID string) (*model.Stats, error) {
	raw, err := s.store.Stats(ctx, ownerID, statsListSize)
	if err != nil {
		return nil, util.Internal(err)
	}
	return &model.Stats{
		TotalURLs:   raw.Total,
		ActiveURLs:  raw.Active,
		TotalClicks: raw.Clicks,
		RecentURLs:  s.summaries(raw.Recent),
		TopURLs:     s.summaries(raw.Top),
	}, nil
}

func (s *StatsService) summaries(links []model.Link) []model.LinkSummary {
	out := make([]model.LinkSummary, 0, len(links))
	for _, link := range links {
		out = append(out, model.LinkSummary{
			ID:          link.ID,
			Title:       link.Title,
			OriginalURL: link.OriginalURL,
			ShortCode:   link.ShortCode,
			ShortURL:    s.links.ShortURL(link.ShortCode),
			Clicks:      link.Clicks,
			CreatedAt:   link.CreatedAt,
		})
	}
	return out
}
