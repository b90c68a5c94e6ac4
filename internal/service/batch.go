// TrackGraph - Listening History Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackgraph

package service

import (
	"context"
	"strings"

	"github.com/tomtom215/trackgraph/internal/models"
)

// ParseIDs splits a comma separated id list, dropping empties and
// duplicates while keeping first-seen order.
func ParseIDs(raw string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, id := range strings.Split(raw, ",") {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// TracksBatch returns track entities for ids, cache first. A cached track
// counts only when it lists at least one artist.
func (s *Service) TracksBatch(ctx context.Context, ids []string) (*models.TracksBatchResponse, error) {
	entities, err := s.batch(ctx, ids, func(e *models.Entity) bool { return len(e.Artists) > 0 },
		func(ctx context.Context, missing []string) ([]models.Entity, error) {
			return s.catalog.FetchTracks(ctx, missing)
		})
	if err != nil {
		return nil, err
	}
	return &models.TracksBatchResponse{Tracks: entities}, nil
}

// ArtistsBatch returns artist entities for ids, cache first.
func (s *Service) ArtistsBatch(ctx context.Context, ids []string) (*models.ArtistsBatchResponse, error) {
	entities, err := s.batch(ctx, ids, func(e *models.Entity) bool { return e.ID != "" },
		func(ctx context.Context, missing []string) ([]models.Entity, error) {
			return s.catalog.FetchArtists(ctx, missing)
		})
	if err != nil {
		return nil, err
	}
	return &models.ArtistsBatchResponse{Artists: entities}, nil
}

func (s *Service) batch(
	ctx context.Context,
	ids []string,
	hit func(*models.Entity) bool,
	fetch func(context.Context, []string) ([]models.Entity, error),
) ([]models.Entity, error) {
	byID := make(map[string]*models.Entity, len(ids))
	var missing []string
	for _, id := range ids {
		if e, ok := s.meta.Get(id); ok && hit(e) {
			byID[id] = e
			continue
		}
		missing = append(missing, id)
	}

	if len(missing) > 0 && s.catalog != nil && s.catalog.Configured() && !s.demoMode {
		fetched, err := fetch(ctx, missing)
		if err != nil {
			return nil, err
		}
		for _, e := range fetched {
			if e.ID == "" {
				continue
			}
			entity := e
			byID[e.ID] = &entity
			s.meta.Put(e.ID, &entity)
		}
		if len(fetched) > 0 {
			s.meta.Flush(context.WithoutCancel(ctx))
		}
	}

	out := make([]models.Entity, 0, len(ids))
	for _, id := range ids {
		if e, ok := byID[id]; ok {
			out = append(out, *e)
		}
	}
	return out, nil
}
