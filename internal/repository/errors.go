package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloo-solutions/docsrag/internal/domain"
	"github.com/jackc/pgx/v5/pgconn"
)

const pgUndefinedTable = "42P01"

// classifyError wraps a database failure as a retrieval error. Connection
// failures additionally wrap domain.ErrStoreUnavailable.
func classifyError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return domain.NewRetrievalError(op+": cancelled", err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == pgUndefinedTable:
			return domain.NewRetrievalError(op+": chunks table missing, run migrations", err)
		case isConnectionClass(pgErr.Code):
			return domain.NewRetrievalError(op, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err))
		}
		return domain.NewRetrievalError(op, err)
	}

	if pgconn.Timeout(err) || isConnectError(err) {
		return domain.NewRetrievalError(op, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err))
	}
	return domain.NewRetrievalError(op, err)
}

// isConnectionClass matches connection_exception (08), insufficient_resources
// (53) and operator_intervention (57) SQLSTATEs.
func isConnectionClass(code string) bool {
	return strings.HasPrefix(code, "08") || strings.HasPrefix(code, "53") || strings.HasPrefix(code, "57")
}

func isConnectError(err error) bool {
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "connection refused") || strings.Contains(msg, "closed pool")
}
