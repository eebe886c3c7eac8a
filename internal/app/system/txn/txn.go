// Package txn runs multi-document writes inside a MongoDB transaction when
// the deployment supports one, and falls back to sequential execution on a
// standalone server.
package txn

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Run executes fn inside a transaction. fn must only use the ctx it is
// given so its operations join the session.
//
// On a standalone mongod (no replica set) starting the transaction fails;
// Run then logs once at Debug and calls fn again without a session. Callers
// must keep fn safe to run outside a transaction: every write in it is a
// single-document atomic operation whose partial application is repaired
// by the reconciliation tasks.
func Run(ctx context.Context, db *mongo.Database, log *zap.Logger, fn func(ctx context.Context) error) error {
	sess, err := db.Client().StartSession()
	if err != nil {
		if IsNotSupported(err) {
			return fn(ctx)
		}
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		return nil, fn(sc)
	})
	if err != nil && IsNotSupported(err) {
		if log != nil {
			log.Debug("transactions unavailable; running without one", zap.Error(err))
		}
		return fn(ctx)
	}
	return err
}

// Error codes returned by servers that cannot run multi-document
// transactions: IllegalOperation, 51 (legacy "illegal operation") and
// OperationNotSupportedInTransaction.
var notSupportedCodes = map[int32]bool{20: true, 51: true, 263: true}

// IsNotSupported reports whether err means the server can not run a
// transaction, as opposed to the transaction body failing.
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && notSupportedCodes[ce.Code] {
		return true
	}

	msg := strings.ToLower(err.Error())
	has := func(s string) bool { return strings.Contains(msg, s) }
	switch {
	case has("transaction") && has("replica set"):
		return true
	case has("session") && has("not supported"):
		return true
	case has("transaction") && has("session"):
		return true
	case has("illegal operation"):
		return true
	}
	return false
}
