// Package store persists audit requests. Payload and configuration are
// serialized to JSON only here; callers see typed records.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"auditflow/internal/audits/models"
	"auditflow/internal/platform/database"
	"auditflow/pkg/domain"
	"auditflow/pkg/platform/sentinel"
)

// SQLStore reads and writes the "audits" table.
type SQLStore struct {
	db *database.DB
}

// New constructs a SQL-backed audit store.
func New(db *database.DB) *SQLStore {
	return &SQLStore{db: db}
}

const auditColumns = `a.id, a.title, a.type, a.assigned_to, a.created_by, a.config, a.purchase_data,
	a.status, a.admin_notes, a.submitted_at, a.reviewed_at, a.reviewed_by, a.created_at`

// Create inserts audit and sets its ID.
func (s *SQLStore) Create(ctx context.Context, audit *models.AuditRequest) error {
	cfg, err := json.Marshal(audit.Config)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	data, err := json.Marshal(audit.PurchaseData)
	if err != nil {
		return fmt.Errorf("encode purchase data: %w", err)
	}

	query := s.db.Rebind(`
		INSERT INTO audits (title, type, assigned_to, created_by, config, purchase_data, status, submitted_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`)

	var id int64
	err = s.db.Conn(ctx).QueryRowContext(ctx, query,
		audit.Title,
		audit.Type,
		nullableID(audit.AssignedTo),
		int64(audit.CreatedBy),
		string(cfg),
		string(data),
		string(audit.Status),
		nullableTime(audit.SubmittedAt),
		audit.CreatedAt.UTC(),
	).Scan(&id)
	if err != nil {
		return fmt.Errorf("insert audit: %w", err)
	}
	audit.ID = domain.AuditID(id)
	return nil
}

// GetByID returns the stored record or sentinel.ErrNotFound.
func (s *SQLStore) GetByID(ctx context.Context, id domain.AuditID) (*models.AuditRequest, error) {
	query := s.db.Rebind(`SELECT ` + auditColumns + ` FROM audits a WHERE a.id = ?`)
	row := s.db.Conn(ctx).QueryRowContext(ctx, query, int64(id))

	audit, err := scanAudit(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get audit: %w", err)
	}
	return audit, nil
}

// List returns records matching filter, newest first, enriched with display
// names. A dangling user reference shows models.UnknownName.
func (s *SQLStore) List(ctx context.Context, filter models.ListFilter) ([]*models.AuditView, error) {
	var (
		where []string
		args  []any
	)
	if filter.CreatedBy != nil {
		where = append(where, "a.created_by = ?")
		args = append(args, int64(*filter.CreatedBy))
	}
	if filter.AssignedTo != nil {
		where = append(where, "a.assigned_to = ?")
		args = append(args, int64(*filter.AssignedTo))
	}

	query := `SELECT ` + auditColumns + `,
			COALESCE(auditor.username, ?) AS auditor_name,
			COALESCE(creator.username, ?) AS creator_name
		FROM audits a
		LEFT JOIN users auditor ON a.assigned_to = auditor.id
		LEFT JOIN users creator ON a.created_by = creator.id`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY a.created_at DESC, a.id DESC"
	args = append([]any{models.UnknownName, models.UnknownName}, args...)

	rows, err := s.db.Conn(ctx).QueryContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list audits: %w", err)
	}
	defer rows.Close()

	views := make([]*models.AuditView, 0)
	for rows.Next() {
		var view models.AuditView
		audit, err := scanAudit(func(dest ...any) error {
			return rows.Scan(append(dest, &view.AuditorName, &view.CreatorName)...)
		})
		if err != nil {
			return nil, fmt.Errorf("scan audit: %w", err)
		}
		view.AuditRequest = *audit
		views = append(views, &view)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audits: %w", err)
	}
	return views, nil
}

// ApplyReview stores a decision if the record is still in one of the
// reviewable states. Otherwise it returns sentinel.ErrStale.
func (s *SQLStore) ApplyReview(ctx context.Context, id domain.AuditID, update models.ReviewUpdate) error {
	from := models.ReviewableFrom()
	query := s.db.Rebind(`
		UPDATE audits
		SET status = ?, admin_notes = ?, reviewed_at = ?, reviewed_by = ?
		WHERE id = ? AND status IN (` + placeholders(len(from)) + `)`)

	args := []any{string(update.Status), update.Notes, update.ReviewedAt.UTC(), int64(update.ReviewerID), int64(id)}
	args = append(args, statusArgs(from)...)
	return s.execConditional(ctx, "review audit", query, args...)
}

// Resubmit replaces the payload of a record owned by owner and returns it to
// review. Assignee, notes and timestamps are untouched.
func (s *SQLStore) Resubmit(ctx context.Context, id domain.AuditID, owner domain.UserID, data models.PurchaseData) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode purchase data: %w", err)
	}
	from := models.ResubmittableFrom()
	query := s.db.Rebind(`
		UPDATE audits
		SET purchase_data = ?, status = ?
		WHERE id = ? AND created_by = ? AND status IN (` + placeholders(len(from)) + `)`)

	args := []any{string(raw), string(models.StatusPendingReview), int64(id), int64(owner)}
	args = append(args, statusArgs(from)...)
	return s.execConditional(ctx, "resubmit audit", query, args...)
}

// ReviewerLoads returns every auditor with their PENDING_REVIEW count,
// ordered by id.
func (s *SQLStore) ReviewerLoads(ctx context.Context) ([]models.ReviewerLoad, error) {
	query := s.db.Rebind(`
		SELECT u.id, COUNT(a.id) AS pending_count
		FROM users u
		LEFT JOIN audits a ON a.assigned_to = u.id AND a.status = ?
		WHERE u.role = ?
		GROUP BY u.id
		ORDER BY u.id ASC`)

	rows, err := s.db.Conn(ctx).QueryContext(ctx, query, string(models.StatusPendingReview), string(domain.RoleAuditor))
	if err != nil {
		return nil, fmt.Errorf("reviewer loads: %w", err)
	}
	defer rows.Close()

	var loads []models.ReviewerLoad
	for rows.Next() {
		var id int64
		var pending int
		if err := rows.Scan(&id, &pending); err != nil {
			return nil, fmt.Errorf("scan reviewer load: %w", err)
		}
		loads = append(loads, models.ReviewerLoad{ReviewerID: domain.UserID(id), Pending: pending})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reviewer loads: %w", err)
	}
	return loads, nil
}

// Username resolves a display name; sentinel.ErrNotFound if the user is gone.
func (s *SQLStore) Username(ctx context.Context, id domain.UserID) (string, error) {
	var name string
	err := s.db.Conn(ctx).QueryRowContext(ctx, s.db.Rebind(`SELECT username FROM users WHERE id = ?`), int64(id)).Scan(&name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", sentinel.ErrNotFound
		}
		return "", fmt.Errorf("lookup username: %w", err)
	}
	return name, nil
}

func (s *SQLStore) execConditional(ctx context.Context, op, query string, args ...any) error {
	res, err := s.db.Conn(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return sentinel.ErrStale
	}
	return nil
}

func scanAudit(scan func(dest ...any) error) (*models.AuditRequest, error) {
	var (
		a           models.AuditRequest
		id          int64
		typ         sql.NullString
		assignedTo  sql.NullInt64
		createdBy   int64
		cfg         sql.NullString
		data        sql.NullString
		status      string
		notes       sql.NullString
		submittedAt database.NullTime
		reviewedAt  database.NullTime
		reviewedBy  sql.NullInt64
		createdAt   database.NullTime
	)
	if err := scan(&id, &a.Title, &typ, &assignedTo, &createdBy, &cfg, &data,
		&status, &notes, &submittedAt, &reviewedAt, &reviewedBy, &createdAt); err != nil {
		return nil, err
	}

	a.ID = domain.AuditID(id)
	a.Type = typ.String
	a.AssignedTo = userIDPtr(assignedTo)
	a.CreatedBy = domain.UserID(createdBy)
	a.Config = models.DecodeConfig(cfg.String)
	a.PurchaseData = models.DecodePurchaseData(data.String)
	a.Status = models.Status(status)
	if notes.Valid {
		n := notes.String
		a.AdminNotes = &n
	}
	a.SubmittedAt = submittedAt.Ptr()
	a.ReviewedAt = reviewedAt.Ptr()
	a.ReviewedBy = userIDPtr(reviewedBy)
	a.CreatedAt = createdAt.Time
	return &a, nil
}

func userIDPtr(v sql.NullInt64) *domain.UserID {
	if !v.Valid {
		return nil
	}
	id := domain.UserID(v.Int64)
	return &id
}

func nullableID(id *domain.UserID) any {
	if id == nil {
		return nil
	}
	return int64(*id)
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func statusArgs(states []models.Status) []any {
	out := make([]any, len(states))
	for i, st := range states {
		out[i] = string(st)
	}
	return out
}
