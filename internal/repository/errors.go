package repository

import (
	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/bisicus/segreteriacanti-api/internal/domain"
)

// PostgreSQL error codes surfaced as validation failures.
const (
	pgInvalidDatetimeFormat = "22007"
	pgDatetimeOverflow      = "22008"
	pgInvalidTextRepr       = "22P02"
)

func translateError(err error, action string) error {
	if err == nil {
		return nil
	}
	if _, ok := domain.AsError(err); ok {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgInvalidDatetimeFormat, pgDatetimeOverflow:
			return domain.Validationf("", "invalid date: %s", pgErr.Message)
		case pgInvalidTextRepr:
			return domain.Validationf("", "invalid filter value: %s", pgErr.Message)
		}
	}
	return domain.Internal(err, action)
}
