// Package addressdb implements the address store on top of PostgreSQL.
package addressdb

import (
	"context"
	"fmt"
	"time"

	addrbus "github.com/hamidoujand/usersadmin/internal/domains/address/bus"
	usrbus "github.com/hamidoujand/usersadmin/internal/domains/user/bus"
	"github.com/hamidoujand/usersadmin/internal/errs"
	"github.com/hamidoujand/usersadmin/internal/sqldb"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel/trace"
)

const columns = `user_id,address_type,valid_from,post_code,city,country_code,street,building_number,created_at,updated_at`

type Store struct {
	db     sqlx.ExtContext
	conn   *sqlx.DB
	tracer trace.Tracer
}

func NewStore(db *sqlx.DB, tracer trace.Tracer) *Store {
	return &Store{
		db:     db,
		conn:   db,
		tracer: tracer,
	}
}

// InTx runs fn against a store bound to one transaction. Nested calls reuse
// the running transaction.
func (s *Store) InTx(ctx context.Context, fn func(s addrbus.Storer) error) error {
	if _, ok := s.db.(*sqlx.Tx); ok {
		return fn(s)
	}

	return sqldb.WithTx(ctx, s.conn, func(tx *sqlx.Tx) error {
		return fn(&Store{
			db:     tx,
			conn:   s.conn,
			tracer: s.tracer,
		})
	})
}

// LockVersions takes a transaction scoped advisory lock on the
// (user, address type) pair, so concurrent creates for it run one at a time.
func (s *Store) LockVersions(ctx context.Context, userID int64, addrType addrbus.AddressType) error {
	const q = `SELECT pg_advisory_xact_lock(hashtextextended(:lock_key, 0))`

	ctx, span := s.tracer.Start(ctx, "address.store.lockVersions")
	defer span.End()

	data := map[string]any{
		"lock_key": fmt.Sprintf("user_addresses:%d:%s", userID, addrType),
	}

	if _, err := sqlx.NamedExecContext(ctx, s.db, q, data); err != nil {
		return fmt.Errorf("namedExecContext: %w: %w", errs.ErrPersistence, err)
	}

	return nil
}

func (s *Store) Create(ctx context.Context, addr addrbus.Address) error {
	const q = `
	INSERT INTO user_addresses (` + columns + `)
	VALUES (:user_id,:address_type,:valid_from,:post_code,:city,:country_code,:street,:building_number,:created_at,:updated_at)
	`

	ctx, span := s.tracer.Start(ctx, "address.store.create")
	defer span.End()

	if _, err := sqlx.NamedExecContext(ctx, s.db, q, fromBusAddress(addr)); err != nil {
		return classify(err)
	}

	return nil
}

func (s *Store) Update(ctx context.Context, k addrbus.Key, addr addrbus.Address) error {
	const q = `
	UPDATE user_addresses
	SET
		valid_from = :valid_from,
		post_code = :post_code,
		city = :city,
		country_code = :country_code,
		street = :street,
		building_number = :building_number,
		updated_at = :updated_at
	WHERE
		user_id = :key_user_id AND
		address_type = :key_address_type AND
		valid_from = :key_valid_from
	`

	ctx, span := s.tracer.Start(ctx, "address.store.update")
	defer span.End()

	data := struct {
		address
		key
	}{
		address: fromBusAddress(addr),
		key:     fromBusKey(k),
	}

	res, err := sqlx.NamedExecContext(ctx, s.db, q, data)
	if err != nil {
		return classify(err)
	}

	return checkAffected(res.RowsAffected())
}

func (s *Store) Delete(ctx context.Context, k addrbus.Key) error {
	const q = `
	DELETE FROM user_addresses
	WHERE
		user_id = :key_user_id AND
		address_type = :key_address_type AND
		valid_from = :key_valid_from
	`

	ctx, span := s.tracer.Start(ctx, "address.store.delete")
	defer span.End()

	res, err := sqlx.NamedExecContext(ctx, s.db, q, fromBusKey(k))
	if err != nil {
		return fmt.Errorf("namedExecContext: %w: %w", errs.ErrPersistence, err)
	}

	return checkAffected(res.RowsAffected())
}

func (s *Store) QueryByKey(ctx context.Context, k addrbus.Key) (addrbus.Address, error) {
	const q = `
	SELECT ` + columns + `
	FROM user_addresses
	WHERE
		user_id = :key_user_id AND
		address_type = :key_address_type AND
		valid_from = :key_valid_from
	`

	ctx, span := s.tracer.Start(ctx, "address.store.queryByKey")
	defer span.End()

	return s.queryOne(ctx, q, fromBusKey(k))
}

func (s *Store) QueryByUser(ctx context.Context, userID int64) ([]addrbus.Address, error) {
	const q = `
	SELECT ` + columns + `
	FROM user_addresses
	WHERE user_id = :user_id
	ORDER BY address_type ASC, valid_from DESC
	`

	ctx, span := s.tracer.Start(ctx, "address.store.queryByUser")
	defer span.End()

	data := map[string]any{
		"user_id": userID,
	}

	rows, err := sqlx.NamedQueryContext(ctx, s.db, q, data)
	if err != nil {
		return nil, fmt.Errorf("namedQueryContext: %w: %w", errs.ErrPersistence, err)
	}
	defer rows.Close()

	addrs := []addrbus.Address{}
	for rows.Next() {
		var addr address
		if err := rows.StructScan(&addr); err != nil {
			return nil, fmt.Errorf("structScan: %w: %w", errs.ErrPersistence, err)
		}
		addrs = append(addrs, toBusAddress(addr))
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("preparing next row to scan: %w: %w", errs.ErrPersistence, err)
	}

	return addrs, nil
}

// QueryLatest returns the version of the given type with the latest valid_from.
func (s *Store) QueryLatest(ctx context.Context, userID int64, addrType addrbus.AddressType) (addrbus.Address, error) {
	const q = `
	SELECT ` + columns + `
	FROM user_addresses
	WHERE user_id = :user_id AND address_type = :address_type
	ORDER BY valid_from DESC
	LIMIT 1
	`

	ctx, span := s.tracer.Start(ctx, "address.store.queryLatest")
	defer span.End()

	data := map[string]any{
		"user_id":      userID,
		"address_type": addrType.String(),
	}

	return s.queryOne(ctx, q, data)
}

// QueryLatestBefore returns the latest version of the given type with
// valid_from on or before date.
func (s *Store) QueryLatestBefore(ctx context.Context, userID int64, addrType addrbus.AddressType, date time.Time) (addrbus.Address, error) {
	const q = `
	SELECT ` + columns + `
	FROM user_addresses
	WHERE user_id = :user_id AND address_type = :address_type AND valid_from <= :date
	ORDER BY valid_from DESC
	LIMIT 1
	`

	ctx, span := s.tracer.Start(ctx, "address.store.queryLatestBefore")
	defer span.End()

	data := map[string]any{
		"user_id":      userID,
		"address_type": addrType.String(),
		"date":         addrbus.DateOf(date),
	}

	return s.queryOne(ctx, q, data)
}

func (s *Store) queryOne(ctx context.Context, q string, data any) (addrbus.Address, error) {
	rows, err := sqlx.NamedQueryContext(ctx, s.db, q, data)
	if err != nil {
		return addrbus.Address{}, fmt.Errorf("namedQueryContext: %w: %w", errs.ErrPersistence, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return addrbus.Address{}, fmt.Errorf("next: %w: %w", errs.ErrPersistence, err)
		}
		return addrbus.Address{}, addrbus.ErrAddressNotFound
	}

	var addr address
	if err := rows.StructScan(&addr); err != nil {
		return addrbus.Address{}, fmt.Errorf("structScan: %w: %w", errs.ErrPersistence, err)
	}

	return toBusAddress(addr), nil
}

// classify maps constraint violations of a write onto domain errors.
func classify(err error) error {
	switch {
	case sqldb.IsUniqueViolation(err):
		return addrbus.ErrAddressConflict
	case sqldb.IsForeignKeyViolation(err):
		return usrbus.ErrUserNotFound
	default:
		return fmt.Errorf("namedExecContext: %w: %w", errs.ErrPersistence, err)
	}
}

func checkAffected(n int64, err error) error {
	if err != nil {
		return fmt.Errorf("rowsAffected: %w: %w", errs.ErrPersistence, err)
	}

	if n == 0 {
		return addrbus.ErrAddressNotFound
	}

	return nil
}
