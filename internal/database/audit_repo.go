package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"echochat-backend/internal/models"
)

// AuditRepo handles audit log database operations
type AuditRepo struct {
	db *sql.DB
}

// NewAuditRepo creates a new audit repository
func NewAuditRepo(db *sql.DB) *AuditRepo {
	return &AuditRepo{db: db}
}

// Create creates a new audit log entry
func (r *AuditRepo) Create(ctx context.Context, log *models.AuditLog) error {
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_logs (timestamp, user_id, username, action, target, details, ip_address)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, log.Timestamp.UTC(), nullUserID(log.UserID), log.Username, log.Action, log.Target, log.Details, log.IPAddress)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	log.ID = id
	return nil
}

// Log is a convenience method to create an audit log entry with current timestamp
func (r *AuditRepo) Log(ctx context.Context, userID int64, username, action, target string, details any, ipAddress string) error {
	var detailsJSON string
	if details != nil {
		b, err := json.Marshal(details)
		if err != nil {
			detailsJSON = "{}"
		} else {
			detailsJSON = string(b)
		}
	}

	return r.Create(ctx, &models.AuditLog{
		Timestamp: time.Now(),
		UserID:    userID,
		Username:  username,
		Action:    action,
		Target:    target,
		Details:   detailsJSON,
		IPAddress: ipAddress,
	})
}

// List retrieves audit logs, newest first, with pagination and optional filters
func (r *AuditRepo) List(ctx context.Context, filter models.AuditFilter) ([]*models.AuditLog, int, error) {
	baseQuery := "FROM audit_logs WHERE 1=1"
	args := []any{}

	if filter.UserID != nil {
		baseQuery += " AND user_id = ?"
		args = append(args, *filter.UserID)
	}
	if filter.Action != "" {
		baseQuery += " AND action = ?"
		args = append(args, filter.Action)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) "+baseQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := "SELECT id, timestamp, user_id, username, action, target, details, ip_address " + baseQuery
	query += " ORDER BY id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	logs := []*models.AuditLog{}
	for rows.Next() {
		log := &models.AuditLog{}
		var userID sql.NullInt64
		var username, target, details, ipAddress sql.NullString

		err := rows.Scan(
			&log.ID, &log.Timestamp, &userID, &username,
			&log.Action, &target, &details, &ipAddress,
		)
		if err != nil {
			return nil, 0, err
		}

		log.UserID = userID.Int64
		log.Username = username.String
		log.Target = target.String
		log.Details = details.String
		log.IPAddress = ipAddress.String

		logs = append(logs, log)
	}

	return logs, total, rows.Err()
}
