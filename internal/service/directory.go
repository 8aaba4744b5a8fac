package service

import (
	"context"
	"fmt"
	"slices"

	"github.com/msomdec/feedline/internal/domain"
)

// DirectoryService enumerates known identities.
type DirectoryService struct {
	records domain.RecordRepository
}

// NewDirectoryService creates a new DirectoryService.
func NewDirectoryService(records domain.RecordRepository) *DirectoryService {
	return &DirectoryService{records: records}
}

// ListIdentities returns every stored identity except excluding. An
// excluded identity that is not stored is simply ignored.
func (s *DirectoryService) ListIdentities(ctx context.Context, excluding string) ([]string, error) {
	ids, err := s.records.Identities(ctx)
	if err != nil {
		return nil, fmt.Errorf("list identities: %w", err)
	}
	ids = slices.DeleteFunc(ids, func(id string) bool { return id == excluding })
	slices.Sort(ids)
	return ids, nil
}
