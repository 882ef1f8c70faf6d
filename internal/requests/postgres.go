package requests

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shelfmark/shelfmark/internal/db"
	"github.com/shelfmark/shelfmark/internal/models"
	"github.com/shelfmark/shelfmark/internal/quota"
)

// PGStore is the PostgreSQL Store implementation.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore creates a request store over the given pool.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

const requestColumns = "message_id, group_id, user_id, status, format, source, other_tags, link, content, request_date, resolved_date, contributor"

func (s *PGStore) Get(ctx context.Context, key models.RequestKey) (models.Request, error) {
	row := s.pool.QueryRow(ctx,
		"SELECT "+requestColumns+" FROM requests WHERE message_id = $1 AND group_id = $2",
		key.MessageID, key.GroupID,
	)
	request, err := scanRequest(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Request{}, ErrNotFound
	}
	return request, err
}

func (s *PGStore) Create(ctx context.Context, request models.Request) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO requests (`+requestColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		request.Key.MessageID, request.Key.GroupID, request.UserID,
		string(request.Status), string(request.Format), string(request.Source),
		request.OtherTags, request.Link, request.Content,
		request.RequestDate, nullableTime(request.ResolvedDate), request.Contributor,
	)
	if db.IsUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

func (s *PGStore) Update(ctx context.Context, request models.Request) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE requests
		 SET status = $3, format = $4, source = $5, other_tags = $6, link = $7,
		     content = $8, resolved_date = $9, contributor = $10
		 WHERE message_id = $1 AND group_id = $2`,
		request.Key.MessageID, request.Key.GroupID,
		string(request.Status), string(request.Format), string(request.Source),
		request.OtherTags, request.Link, request.Content,
		nullableTime(request.ResolvedDate), request.Contributor,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) Delete(ctx context.Context, key models.RequestKey) error {
	tag, err := s.pool.Exec(ctx,
		"DELETE FROM requests WHERE message_id = $1 AND group_id = $2",
		key.MessageID, key.GroupID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) List(ctx context.Context, filter ListFilter, limit, offset int) ([]models.Request, error) {
	var (
		conditions []string
		args       []any
	)
	arg := func(value any) string {
		args = append(args, value)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.GroupID != 0 {
		conditions = append(conditions, "group_id = "+arg(filter.GroupID))
	}
	if filter.Status != "" {
		conditions = append(conditions, "status = "+arg(string(filter.Status)))
	}
	if filter.Format != "" {
		conditions = append(conditions, "format = "+arg(string(filter.Format)))
	}
	if filter.Source != "" {
		conditions = append(conditions, "source = "+arg(string(filter.Source)))
	}

	query := "SELECT " + requestColumns + " FROM requests"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY request_date"
	if filter.Descending {
		query += " DESC"
	}
	if limit > 0 {
		query += " LIMIT " + arg(limit) + " OFFSET " + arg(offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	defer rows.Close()

	var result []models.Request
	for rows.Next() {
		request, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, request)
	}
	return result, rows.Err()
}

func (s *PGStore) AppendAudit(ctx context.Context, row models.UserRequest) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO user_requests (id, user_id, message_id, group_id, role, action, date)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		row.ID, row.UserID, row.Request.MessageID, row.Request.GroupID,
		string(row.Role), row.Action, row.Date,
	)
	return err
}

func (s *PGStore) CountCreatedSince(ctx context.Context, userID, groupID int64, since time.Time) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM user_requests
		 WHERE user_id = $1 AND group_id = $2 AND role = $3 AND date >= $4`,
		userID, groupID, string(models.AuditCreator), since,
	).Scan(&count)
	return count, err
}

func (s *PGStore) LastAudiobook(ctx context.Context, userID, groupID int64) (*quota.LastRequest, error) {
	var (
		date      time.Time
		otherTags string
	)
	err := s.pool.QueryRow(ctx,
		`SELECT u.date, r.other_tags
		 FROM user_requests u
		 JOIN requests r ON r.message_id = u.message_id AND r.group_id = u.group_id
		 WHERE u.user_id = $1 AND u.group_id = $2 AND u.role = $3 AND r.format = $4
		 ORDER BY u.date DESC
		 LIMIT 1`,
		userID, groupID, string(models.AuditCreator), string(models.FormatAudiobook),
	).Scan(&date, &otherTags)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &quota.LastRequest{Date: date, OtherTags: otherTags}, nil
}

func (s *PGStore) OpenDuplicateExists(ctx context.Context, groupID int64, link string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM requests
		   WHERE group_id = $1 AND link = $2 AND status IN ($3, $4)
		 )`,
		groupID, link, string(models.StatusPending), string(models.StatusPaused),
	).Scan(&exists)
	return exists, err
}

func scanRequest(row pgx.Row) (models.Request, error) {
	var (
		request      models.Request
		status       string
		format       string
		source       string
		resolvedDate pgtype.Timestamptz
		contributor  *int64
	)
	err := row.Scan(
		&request.Key.MessageID, &request.Key.GroupID, &request.UserID,
		&status, &format, &source, &request.OtherTags, &request.Link,
		&request.Content, &request.RequestDate, &resolvedDate, &contributor,
	)
	if err != nil {
		return models.Request{}, err
	}
	request.Status = models.Status(status)
	request.Format = models.Format(format)
	request.Source = models.Source(source)
	if resolvedDate.Valid {
		t := resolvedDate.Time
		request.ResolvedDate = &t
	}
	request.Contributor = contributor
	return request, nil
}

func nullableTime(value *time.Time) pgtype.Timestamptz {
	if value == nil {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: *value, Valid: true}
}
