package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/parleyhq/parley/store"
)

func (d *DB) CreateEvent(ctx context.Context, create *store.Event) (*store.Event, error) {
	fields := []string{"session_id", "from_type", "to_type", "content", "status", "metadata", "created_ts"}
	args := []any{create.SessionID, string(create.FromType), string(create.ToType), create.Content, string(create.Status), create.Metadata, create.CreatedTs}

	stmt := `INSERT INTO event (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(args)) + `)
		RETURNING id`
	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(&create.ID); err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	return create, nil
}

func (d *DB) ListEvents(ctx context.Context, find *store.FindEvent) ([]*store.Event, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.SessionID != nil {
		where, args = append(where, "session_id = "+placeholder(len(args)+1)), append(args, *find.SessionID)
	}
	if find.AfterID != nil {
		where, args = append(where, "id > "+placeholder(len(args)+1)), append(args, *find.AfterID)
	}

	query := `SELECT id, session_id, from_type, to_type, content, status, metadata, created_ts FROM event WHERE ` +
		strings.Join(where, " AND ")
	if find.LastN != nil {
		query = `SELECT * FROM (` + query + ` ORDER BY created_ts DESC, id DESC LIMIT ` + placeholder(len(args)+1) + `) AS recent ORDER BY created_ts ASC, id ASC`
		args = append(args, *find.LastN)
	} else {
		query += ` ORDER BY created_ts ASC, id ASC`
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	list := make([]*store.Event, 0)
	for rows.Next() {
		e := &store.Event{}
		var fromType, toType, status string
		if err := rows.Scan(&e.ID, &e.SessionID, &fromType, &toType, &e.Content, &status, &e.Metadata, &e.CreatedTs); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.FromType = store.ParticipantKind(fromType)
		e.ToType = store.ParticipantKind(toType)
		e.Status = store.EventStatus(status)
		list = append(list, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}

	return list, nil
}

func (d *DB) MaxEventTimestamp(ctx context.Context, sessionID string) (int64, error) {
	var max int64
	err := d.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(created_ts), 0) FROM event WHERE session_id = $1`, sessionID,
	).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("failed to read max event timestamp: %w", err)
	}
	return max, nil
}
