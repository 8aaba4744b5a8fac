package service

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/msomdec/feedline/internal/domain"
)

// FeedService merges the messages of followed identities into one feed.
type FeedService struct {
	records domain.RecordRepository
}

// NewFeedService creates a new FeedService.
func NewFeedService(records domain.RecordRepository) *FeedService {
	return &FeedService{records: records}
}

// Aggregate reads every followed record and returns all their messages
// ordered by timestamp. Follows without a stored record are skipped.
//
// Follows are deduplicated and visited in identity order, and the sort is
// stable, so equal timestamps from different authors come out ordered by
// author identity and then by each author's own posting order.
func (s *FeedService) Aggregate(ctx context.Context, follows []string) ([]domain.FeedEntry, error) {
	ids := slices.Clone(follows)
	slices.Sort(ids)
	ids = slices.Compact(ids)

	entries := []domain.FeedEntry{}
	for _, id := range ids {
		rec, err := s.records.Load(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				slog.Debug("feed follow skipped", "identity", id)
				continue
			}
			return nil, fmt.Errorf("load %s: %w", id, err)
		}
		for _, m := range rec.Messages {
			entries = append(entries, domain.FeedEntry{
				Author:    rec.DisplayName,
				Identity:  rec.Identity,
				Timestamp: m.Timestamp,
				Text:      m.Text,
			})
		}
	}

	slices.SortStableFunc(entries, func(a, b domain.FeedEntry) int {
		return cmp.Compare(a.Timestamp, b.Timestamp)
	})
	return entries, nil
}
