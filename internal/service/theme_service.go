package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/stemsi/exstem-practice/internal/config"
	"github.com/stemsi/exstem-practice/internal/model"
)

// ThemeService serves the theme directory, cached in Redis.
type ThemeService struct {
	directory ThemeDirectory
	rdb       *redis.Client
	ttl       time.Duration
	log       zerolog.Logger
}

// NewThemeService creates a new ThemeService. A nil rdb disables caching.
func NewThemeService(directory ThemeDirectory, rdb *redis.Client, ttl time.Duration, log zerolog.Logger) *ThemeService {
	return &ThemeService{
		directory: directory,
		rdb:       rdb,
		ttl:       ttl,
		log:       log.With().Str("component", "theme_service").Logger(),
	}
}

// List returns every theme ordered by part, then by order.
func (s *ThemeService) List(ctx context.Context) ([]model.Theme, error) {
	if themes, ok := s.cached(ctx); ok {
		return themes, nil
	}

	themes, err := s.directory.ListThemes(ctx)
	if err != nil {
		return nil, err
	}
	sortThemes(themes)
	s.store(ctx, themes)
	return themes, nil
}

// ListByPart returns the themes of a single part.
func (s *ThemeService) ListByPart(ctx context.Context, part model.ThemePart) ([]model.Theme, error) {
	themes, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.Theme, 0, len(themes))
	for _, t := range themes {
		if t.Part == part {
			out = append(out, t)
		}
	}
	return out, nil
}

// Invalidate drops the cached directory.
func (s *ThemeService) Invalidate(ctx context.Context) error {
	if s.rdb == nil {
		return nil
	}
	if err := s.rdb.Del(ctx, config.CacheKey.ThemeDirectoryKey()).Err(); err != nil {
		return fmt.Errorf("invalidate themes: %w", err)
	}
	return nil
}

func (s *ThemeService) cached(ctx context.Context) ([]model.Theme, bool) {
	if s.rdb == nil {
		return nil, false
	}
	data, err := s.rdb.Get(ctx, config.CacheKey.ThemeDirectoryKey()).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.log.Warn().Err(err).Msg("Theme cache read failed")
		}
		return nil, false
	}

	var themes []model.Theme
	if err := json.Unmarshal(data, &themes); err != nil {
		s.log.Warn().Err(err).Msg("Theme cache corrupt, refetching")
		return nil, false
	}
	return themes, true
}

func (s *ThemeService) store(ctx context.Context, themes []model.Theme) {
	if s.rdb == nil || s.ttl <= 0 {
		return
	}
	data, err := json.Marshal(themes)
	if err != nil {
		return
	}
	if err := s.rdb.Set(ctx, config.CacheKey.ThemeDirectoryKey(), data, s.ttl).Err(); err != nil {
		s.log.Warn().Err(err).Msg("Theme cache write failed")
	}
}

func sortThemes(themes []model.Theme) {
	partRank := func(p model.ThemePart) int {
		if p == model.ThemePartGeneral {
			return 0
		}
		return 1
	}
	sort.SliceStable(themes, func(i, j int) bool {
		pi, pj := partRank(themes[i].Part), partRank(themes[j].Part)
		if pi != pj {
			return pi < pj
		}
		return themes[i].Order < themes[j].Order
	})
}
