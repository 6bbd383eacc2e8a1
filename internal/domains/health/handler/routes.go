package handler

import (
	"context"
	"net/http"

	"github.com/hamidoujand/usersadmin/internal/sqldb"
	"github.com/hamidoujand/usersadmin/pkg/logger"
	"github.com/jmoiron/sqlx"
)

type Conf struct {
	DB    *sqlx.DB
	Log   *logger.Logger
	Build string

	// Check replaces the database ping when set.
	Check func(ctx context.Context) error
}

func RegisterRoutes(cfg Conf) *http.ServeMux {
	check := cfg.Check
	if check == nil {
		check = func(ctx context.Context) error {
			return sqldb.ConnCheck(ctx, cfg.DB)
		}
	}

	h := handler{
		check: check,
		log:   cfg.Log,
		build: cfg.Build,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/readiness", h.readiness)
	mux.HandleFunc("GET /v1/liveness", h.liveness)
	return mux
}
