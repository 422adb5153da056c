package db

import (
	"context"
	"fmt"

	"confectionery/internal/repository"

	"gorm.io/gorm"
)

// migrationsで作るテーブル
var requiredTables = []string{
	"users",
	"refresh_tokens",
	"categories",
	"products",
	"news",
	"orders",
	"order_items",
	"audit_logs",
}

// 起動時チェック。リクエスト中にDDLは流さない。
func EnsureSchema(ctx context.Context, gormDB *gorm.DB) error {
	m := gormDB.WithContext(ctx).Migrator()
	for _, t := range requiredTables {
		if !m.HasTable(t) {
			return fmt.Errorf("%w: table %q is missing, run `confectionery migrate up`", repository.ErrSchemaNotReady, t)
		}
	}
	return nil
}
