// Package dbtest provides a throwaway, migrated PostgreSQL database per test.
//
// Migrations run once per container into a template database. Every test then
// gets its own copy through CREATE DATABASE ... TEMPLATE.
package dbtest

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hamidoujand/usersadmin/internal/migrate"
	"github.com/hamidoujand/usersadmin/internal/sqldb"
	"github.com/hamidoujand/usersadmin/pkg/docker"
	"github.com/jmoiron/sqlx"
)

const (
	image        = "postgres:17"
	templateName = "usersadmin_template"
	superuser    = "postgres"
	connTimeout  = 2 * time.Minute
)

var (
	mu       sync.Mutex
	prepared = make(map[string]error)
)

// CreateDBContainer starts the postgres container shared by a package's tests.
func CreateDBContainer() (docker.Container, error) {
	dockerArgs := []string{"-e", "POSTGRES_PASSWORD=" + superuser}
	appArgs := []string{"-c", "log_statement=all"}

	c, err := docker.StartContainer(image, "usersadmintest", "5432", dockerArgs, appArgs)
	if err != nil {
		return docker.Container{}, fmt.Errorf("startContainer: %w", err)
	}
	return c, nil
}

// New returns a connection to a fresh database cloned from the migrated
// template. The database is dropped when the test finishes.
func New(t *testing.T, c docker.Container, testName string) *sqlx.DB {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), connTimeout)
	defer cancel()

	master := open(t, c, "postgres")
	if err := sqldb.ConnCheck(ctx, master); err != nil {
		t.Fatalf("connCheck: %s", err)
	}

	if err := prepareTemplate(ctx, master, c); err != nil {
		t.Logf("logs for: %s\n%s\n", c.Name, docker.DumpContainerLogs(c.Name))
		t.Fatalf("prepare template: %s", err)
	}

	name := databaseName(testName)
	t.Logf("creating database %s from %s", name, templateName)

	if _, err := master.ExecContext(ctx, fmt.Sprintf("CREATE DATABASE %s TEMPLATE %s", name, templateName)); err != nil {
		t.Fatalf("create database %s: %s", name, err)
	}

	db := open(t, c, name)

	t.Cleanup(func() {
		_ = db.Close()

		if err := drop(context.Background(), master, name); err != nil {
			t.Errorf("drop database %s: %s", name, err)
		}

		_ = master.Close()
	})

	return db
}

// prepareTemplate migrates the template database once per container.
func prepareTemplate(ctx context.Context, master *sqlx.DB, c docker.Container) error {
	mu.Lock()
	defer mu.Unlock()

	if err, ok := prepared[c.Name]; ok {
		return err
	}

	err := migrateTemplate(ctx, master, c)
	prepared[c.Name] = err
	return err
}

func migrateTemplate(ctx context.Context, master *sqlx.DB, c docker.Container) error {
	//a container reused from an earlier run may still carry an old template.
	if err := drop(ctx, master, templateName); err != nil {
		return err
	}

	if _, err := master.ExecContext(ctx, "CREATE DATABASE "+templateName); err != nil {
		return fmt.Errorf("create: %w", err)
	}

	db, err := sqldb.Open(config(c, templateName))
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}

	//postgres refuses to copy a template that still has open sessions.
	defer db.Close()

	if _, err := migrate.Migrate(db, templateName); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func drop(ctx context.Context, master *sqlx.DB, name string) error {
	const q = `SELECT pg_terminate_backend(pid) FROM pg_stat_activity WHERE datname = $1`
	if _, err := master.ExecContext(ctx, q, name); err != nil {
		return fmt.Errorf("terminate sessions: %w", err)
	}

	if _, err := master.ExecContext(ctx, "DROP DATABASE IF EXISTS "+name); err != nil {
		return fmt.Errorf("drop: %w", err)
	}
	return nil
}

// databaseName turns a test name into a valid, unique postgres identifier.
func databaseName(testName string) string {
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '_'
		}
	}, testName)

	//identifiers are capped at 63 bytes.
	if len(clean) > 40 {
		clean = clean[:40]
	}

	return fmt.Sprintf("t_%s_%06x", clean, rand.IntN(1<<24))
}

func open(t *testing.T, c docker.Container, name string) *sqlx.DB {
	t.Helper()

	db, err := sqldb.Open(config(c, name))
	if err != nil {
		t.Fatalf("open %s: %s", name, err)
	}
	return db
}

func config(c docker.Container, name string) sqldb.Config {
	return sqldb.Config{
		User:       superuser,
		Password:   superuser,
		Host:       c.HostPort,
		Name:       name,
		DisableTLS: true,
	}
}
