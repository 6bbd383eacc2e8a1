// Package userdb implements the user store on top of PostgreSQL.
package userdb

import (
	"bytes"
	"context"
	"fmt"

	usrbus "github.com/hamidoujand/usersadmin/internal/domains/user/bus"
	"github.com/hamidoujand/usersadmin/internal/errs"
	"github.com/hamidoujand/usersadmin/internal/order"
	"github.com/hamidoujand/usersadmin/internal/page"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel/trace"
)

type Store struct {
	db     *sqlx.DB
	tracer trace.Tracer
}

func NewStore(db *sqlx.DB, tracer trace.Tracer) *Store {
	return &Store{
		db:     db,
		tracer: tracer,
	}
}

// Create inserts usr and returns it with the id assigned by the database.
func (s *Store) Create(ctx context.Context, usr usrbus.User) (usrbus.User, error) {
	const q = `
	INSERT INTO users (first_name,last_name,email,initials,status,created_at,updated_at)
	VALUES (:first_name,:last_name,:email,:initials,:status,:created_at,:updated_at)
	RETURNING id
	`

	ctx, span := s.tracer.Start(ctx, "user.store.create")
	defer span.End()

	rows, err := s.db.NamedQueryContext(ctx, q, fromBusUser(usr))
	if err != nil {
		return usrbus.User{}, fmt.Errorf("namedQueryContext: %w: %w", errs.ErrPersistence, err)
	}
	defer rows.Close()

	if !rows.Next() {
		return usrbus.User{}, fmt.Errorf("no id returned: %w: %w", errs.ErrPersistence, rows.Err())
	}

	if err := rows.Scan(&usr.ID); err != nil {
		return usrbus.User{}, fmt.Errorf("scan: %w: %w", errs.ErrPersistence, err)
	}

	usr.Email.Name = usr.FullName()
	return usr, nil
}

func (s *Store) Update(ctx context.Context, usr usrbus.User) error {
	const q = `
	UPDATE users
	SET
		first_name = :first_name,
		last_name = :last_name,
		email = :email,
		initials = :initials,
		status = :status,
		updated_at = :updated_at
	WHERE
		id = :id;
	`
	ctx, span := s.tracer.Start(ctx, "user.store.update")
	defer span.End()

	res, err := s.db.NamedExecContext(ctx, q, fromBusUser(usr))
	if err != nil {
		return fmt.Errorf("namedExecContext: %w: %w", errs.ErrPersistence, err)
	}

	return checkAffected(res.RowsAffected())
}

// Delete removes the user, its addresses are removed by the foreign key cascade.
func (s *Store) Delete(ctx context.Context, usr usrbus.User) error {
	const q = `
	DELETE FROM users WHERE id = :id;
	`
	ctx, span := s.tracer.Start(ctx, "user.store.delete")
	defer span.End()

	res, err := s.db.NamedExecContext(ctx, q, fromBusUser(usr))
	if err != nil {
		return fmt.Errorf("namedExecContext: %w: %w", errs.ErrPersistence, err)
	}

	return checkAffected(res.RowsAffected())
}

func (s *Store) QueryByID(ctx context.Context, id int64) (usrbus.User, error) {
	data := map[string]any{
		"id": id,
	}

	const q = `
	SELECT id,first_name,last_name,email,initials,status,created_at,updated_at
	FROM users WHERE id = :id`

	ctx, span := s.tracer.Start(ctx, "user.store.queryByID")
	defer span.End()

	rows, err := s.db.NamedQueryContext(ctx, q, data)
	if err != nil {
		return usrbus.User{}, fmt.Errorf("namedQueryContext: %w: %w", errs.ErrPersistence, err)
	}
	defer rows.Close()

	// returns "true" if it was able to move to first row, false if not and means there is no rows
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return usrbus.User{}, fmt.Errorf("next: %w: %w", errs.ErrPersistence, err)
		}
		return usrbus.User{}, usrbus.ErrUserNotFound
	}

	var usr user
	if err := rows.StructScan(&usr); err != nil {
		return usrbus.User{}, fmt.Errorf("structScan: %w: %w", errs.ErrPersistence, err)
	}

	return toBusUser(usr), nil
}

func (s *Store) Query(ctx context.Context, filter usrbus.QueryFilter, orderBy order.Field, page page.Page) ([]usrbus.User, error) {
	data := map[string]any{
		"offset":        page.Offset(),
		"rows_per_page": page.Rows,
	}

	const q = `
	SELECT id,first_name,last_name,email,initials,status,created_at,updated_at
	FROM users`
	buf := bytes.NewBufferString(q)

	applyFilters(filter, data, buf)

	orderClause, err := orderByClause(orderBy)
	if err != nil {
		return nil, fmt.Errorf("orderByClause: %w", err)
	}

	buf.WriteString(orderClause)
	buf.WriteString(" OFFSET :offset ROWS FETCH NEXT :rows_per_page ROWS ONLY;")

	ctx, span := s.tracer.Start(ctx, "user.store.query")
	defer span.End()

	rows, err := s.db.NamedQueryContext(ctx, buf.String(), data)
	if err != nil {
		return nil, fmt.Errorf("namedQueryContext: %w: %w", errs.ErrPersistence, err)
	}
	defer rows.Close()

	var usrs []user
	for rows.Next() {
		var usr user
		if err := rows.StructScan(&usr); err != nil {
			return nil, fmt.Errorf("structScan: %w: %w", errs.ErrPersistence, err)
		}
		usrs = append(usrs, usr)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("preparing next row to scan: %w: %w", errs.ErrPersistence, err)
	}

	return toBusUsers(usrs), nil
}

func (s *Store) Count(ctx context.Context, filter usrbus.QueryFilter) (int, error) {
	const q = `SELECT COUNT(1) AS count FROM users`

	ctx, span := s.tracer.Start(ctx, "user.store.count")
	defer span.End()

	buf := bytes.NewBufferString(q)
	data := map[string]any{}
	applyFilters(filter, data, buf)

	rows, err := s.db.NamedQueryContext(ctx, buf.String(), data)
	if err != nil {
		return 0, fmt.Errorf("namedQueryContext: %w: %w", errs.ErrPersistence, err)
	}
	defer rows.Close()

	if !rows.Next() {
		return 0, fmt.Errorf("moving cursor to next row: %w: %w", errs.ErrPersistence, rows.Err())
	}

	var count struct {
		Count int `db:"count"`
	}

	if err := rows.StructScan(&count); err != nil {
		return 0, fmt.Errorf("structScan: %w: %w", errs.ErrPersistence, err)
	}

	return count.Count, nil
}

func checkAffected(n int64, err error) error {
	if err != nil {
		return fmt.Errorf("rowsAffected: %w: %w", errs.ErrPersistence, err)
	}

	if n == 0 {
		return usrbus.ErrUserNotFound
	}

	return nil
}
