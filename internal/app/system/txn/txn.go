// Package txn runs a group of MongoDB writes in one transaction when the
// deployment supports it, and without one otherwise (standalone servers,
// DocumentDB with transactions disabled).
package txn

import (
	"context"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Func is the unit of work. ctx is a mongo.SessionContext inside a
// transaction and the caller's context in fallback mode.
type Func func(ctx context.Context) error

// Run executes fn within a transaction if possible.
// log may be nil to suppress fallback warnings.
func Run(ctx context.Context, db *mongo.Database, log *zap.Logger, fn Func) error {
	session, err := db.Client().StartSession()
	if err != nil {
		if log != nil {
			log.Warn("failed to start session, running without transaction", zap.Error(err))
		}
		return fn(ctx)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	if err != nil && IsNotSupported(err) {
		if log != nil {
			log.Warn("transactions not supported, running without transaction", zap.Error(err))
		}
		return fn(ctx)
	}
	return err
}

// Runner binds Run to a database so it can be injected where an
// interface is expected.
type Runner struct {
	db  *mongo.Database
	log *zap.Logger
}

// NewRunner creates a Runner for db.
func NewRunner(db *mongo.Database, log *zap.Logger) *Runner {
	return &Runner{db: db, log: log}
}

// Run executes fn via Run.
func (r *Runner) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	return Run(ctx, r.db, r.log, fn)
}

// IsNotSupported reports whether err means multi-document transactions are
// unavailable.
//
// Known codes: 20 (transaction numbers only allowed on a replica set member
// or mongos), 51 (IllegalOperation), 263 (operation not allowed in a
// transaction).
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}

	if cmdErr, ok := err.(mongo.CommandError); ok {
		switch cmdErr.Code {
		case 20, 51, 263:
			return true
		}
	}

	// Require two keyword hits to avoid false positives on unrelated errors.
	errStr := strings.ToLower(err.Error())
	matches := 0
	for _, kw := range []string{"transaction", "replica set", "session", "not supported", "illegal operation"} {
		if strings.Contains(errStr, kw) {
			matches++
		}
	}
	return matches >= 2
}
