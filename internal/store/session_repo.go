package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

type sessionRepo struct {
	s *Store
}

func (r *sessionRepo) Load(ctx context.Context, token string) ([]byte, bool, error) {
	query, args := r.s.builder().Select("data").
		From(entsql.Table(tableSessions)).
		Where(entsql.EQ("token", token)).
		Query()

	var data string
	err := r.s.db.QueryRowContext(ctx, query, args...).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load session: %w", err)
	}
	return []byte(data), true, nil
}

func (r *sessionRepo) Save(ctx context.Context, token string, data []byte) error {
	ins := r.s.builder().Insert(tableSessions).
		Columns("token", "data", "updated_at").
		Values(token, string(data), time.Now().UTC()).
		OnConflict(entsql.ConflictColumns("token"), entsql.ResolveWithNewValues())
	if _, err := r.s.exec(ctx, ins); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (r *sessionRepo) Delete(ctx context.Context, token string) error {
	del := r.s.builder().Delete(tableSessions).Where(entsql.EQ("token", token))
	if _, err := r.s.exec(ctx, del); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
