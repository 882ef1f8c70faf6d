// Package groups manages per-group moderation settings.
package groups

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shelfmark/shelfmark/internal/models"
)

// ErrNotFound is returned when a group is unknown or disabled tracking.
var ErrNotFound = errors.New("group not found")

// Service provides group settings storage.
type Service struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewService creates a group settings service.
func NewService(log *slog.Logger, pool *pgxpool.Pool) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		pool:   pool,
		logger: log.With(slog.String("service", "groups")),
	}
}

const groupColumns = "id, name, request_limit_per_day, audiobook_days_wait, english_audiobook_days_wait, allowed_sources, no_repeat_sources, enabled"

// Get returns the group by chat id.
func (s *Service) Get(ctx context.Context, id int64) (models.Group, error) {
	row := s.pool.QueryRow(ctx, "SELECT "+groupColumns+" FROM groups WHERE id = $1", id)
	group, err := scanGroup(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Group{}, ErrNotFound
	}
	return group, err
}

// GetEnabled returns the group only when it exists and tracking is enabled.
func (s *Service) GetEnabled(ctx context.Context, id int64) (models.Group, error) {
	group, err := s.Get(ctx, id)
	if err != nil {
		return models.Group{}, err
	}
	if !group.Enabled {
		return models.Group{}, ErrNotFound
	}
	return group, nil
}

// ListEnabled returns every group with tracking enabled.
func (s *Service) ListEnabled(ctx context.Context) ([]models.Group, error) {
	rows, err := s.pool.Query(ctx, "SELECT "+groupColumns+" FROM groups WHERE enabled ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()

	var result []models.Group
	for rows.Next() {
		group, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, group)
	}
	return result, rows.Err()
}

// Enable turns tracking on, creating the group row on first use.
func (s *Service) Enable(ctx context.Context, id int64, name string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO groups (id, name, enabled) VALUES ($1, $2, TRUE)
		 ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, enabled = TRUE`,
		id, name,
	)
	if err != nil {
		return fmt.Errorf("enable group: %w", err)
	}
	s.logger.Info("group enabled", slog.Int64("group", id), slog.String("name", name))
	return nil
}

// Disable turns tracking off without dropping settings.
func (s *Service) Disable(ctx context.Context, id int64) error {
	return s.set(ctx, id, "enabled = FALSE")
}

// SetRequestLimit updates the per-user daily submission cap.
func (s *Service) SetRequestLimit(ctx context.Context, id int64, limit int) error {
	if limit < 1 {
		return fmt.Errorf("request limit must be at least 1")
	}
	return s.set(ctx, id, "request_limit_per_day = $2", limit)
}

// SetAudiobookDaysWait updates the default audiobook cooldown in days.
func (s *Service) SetAudiobookDaysWait(ctx context.Context, id int64, days int) error {
	if days < 0 {
		return fmt.Errorf("days wait must not be negative")
	}
	return s.set(ctx, id, "audiobook_days_wait = $2", days)
}

// SetEnglishAudiobookDaysWait updates the english-variant audiobook cooldown.
func (s *Service) SetEnglishAudiobookDaysWait(ctx context.Context, id int64, days int) error {
	if days < 0 {
		return fmt.Errorf("days wait must not be negative")
	}
	return s.set(ctx, id, "english_audiobook_days_wait = $2", days)
}

// SetAllowedSources replaces the source allow-list.
func (s *Service) SetAllowedSources(ctx context.Context, id int64, sources []models.Source) error {
	return s.set(ctx, id, "allowed_sources = $2", models.JoinSources(sources))
}

// SetNoRepeatSources replaces the set of sources subject to the duplicate check.
func (s *Service) SetNoRepeatSources(ctx context.Context, id int64, sources []models.Source) error {
	return s.set(ctx, id, "no_repeat_sources = $2", models.JoinSources(sources))
}

func (s *Service) set(ctx context.Context, id int64, assignment string, args ...any) error {
	tag, err := s.pool.Exec(ctx,
		"UPDATE groups SET "+assignment+" WHERE id = $1",
		append([]any{id}, args...)...,
	)
	if err != nil {
		return fmt.Errorf("update group: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanGroup(row pgx.Row) (models.Group, error) {
	var (
		group    models.Group
		allowed  string
		noRepeat string
	)
	err := row.Scan(
		&group.ID, &group.Name, &group.RequestLimitPerDay,
		&group.AudiobookDaysWait, &group.EnglishAudiobookDaysWait,
		&allowed, &noRepeat, &group.Enabled,
	)
	if err != nil {
		return models.Group{}, err
	}
	// stored lists are trusted; parse errors would mean a corrupted row
	group.AllowedSources, err = models.ParseSources(allowed)
	if err != nil {
		return models.Group{}, fmt.Errorf("group %d allowed_sources: %w", group.ID, err)
	}
	group.NoRepeatSources, err = models.ParseSources(noRepeat)
	if err != nil {
		return models.Group{}, fmt.Errorf("group %d no_repeat_sources: %w", group.ID, err)
	}
	return group, nil
}
