package dbctx

import (
	"context"

	"gorm.io/gorm"

	"github.com/yungbote/aula-backend/internal/pkg/ctxutil"
)

// Context bundles a request context with an optional GORM transaction.
// Repositories use Tx when set and fall back to their own handle otherwise.
type Context struct {
	Ctx context.Context
	Tx  *gorm.DB
}

// WithTx returns a copy bound to tx.
func (c Context) WithTx(tx *gorm.DB) Context {
	return Context{Ctx: c.Ctx, Tx: tx}
}

// Run executes fn inside c.Tx when present, otherwise inside a new transaction on db.
func Run(c Context, db *gorm.DB, fn func(Context) error) error {
	c.Ctx = ctxutil.Default(c.Ctx)
	if c.Tx != nil {
		return fn(c)
	}
	return db.WithContext(c.Ctx).Transaction(func(tx *gorm.DB) error {
		return fn(c.WithTx(tx))
	})
}
