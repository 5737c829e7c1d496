package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/parleyhq/parley/store"
)

func (d *DB) CreateSession(ctx context.Context, create *store.Session) (*store.Session, error) {
	fields := []string{"id", "pair_key", "user_id", "agent_id", "created_ts", "last_active_ts"}
	args := []any{create.ID, create.PairKey, create.UserID, create.AgentID, create.CreatedTs, create.LastActiveTs}

	// A concurrent first contact loses the insert but still resolves to the
	// persisted row below.
	stmt := `INSERT INTO session (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(args)) + `)
		ON CONFLICT (pair_key) DO NOTHING`
	if _, err := d.db.ExecContext(ctx, stmt, args...); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	list, err := d.ListSessions(ctx, &store.FindSession{PairKey: &create.PairKey})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("session not found after create: %s", create.PairKey)
	}
	return list[0], nil
}

func (d *DB) ListSessions(ctx context.Context, find *store.FindSession) ([]*store.Session, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}
	if find.PairKey != nil {
		where, args = append(where, "pair_key = "+placeholder(len(args)+1)), append(args, *find.PairKey)
	}
	if find.ParticipantID != nil {
		where = append(where, "(user_id = "+placeholder(len(args)+1)+" OR agent_id = "+placeholder(len(args)+2)+")")
		args = append(args, *find.ParticipantID, *find.ParticipantID)
	}

	query := `SELECT id, pair_key, user_id, agent_id, created_ts, last_active_ts FROM session WHERE ` +
		strings.Join(where, " AND ") + ` ORDER BY last_active_ts DESC`
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	list := make([]*store.Session, 0)
	for rows.Next() {
		s := &store.Session{}
		if err := rows.Scan(&s.ID, &s.PairKey, &s.UserID, &s.AgentID, &s.CreatedTs, &s.LastActiveTs); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		list = append(list, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sessions: %w", err)
	}

	return list, nil
}

func (d *DB) UpdateSessionActivity(ctx context.Context, update *store.UpdateSessionActivity) error {
	stmt := `UPDATE session SET last_active_ts = GREATEST(last_active_ts, $1) WHERE id = $2`
	if _, err := d.db.ExecContext(ctx, stmt, update.LastActiveTs, update.ID); err != nil {
		return fmt.Errorf("failed to update session activity: %w", err)
	}
	return nil
}
