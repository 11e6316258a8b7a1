package mysql_test

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"inventory-ledger/internal/core"
	"inventory-ledger/internal/storage/mysql"
	"inventory-ledger/internal/storage/storagetest"
	"inventory-ledger/migrations"

	_ "github.com/go-sql-driver/mysql"
)

func getMySQLDB(t *testing.T) *sql.DB {
	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		dsn = "root:root@tcp(localhost:3306)/inventory_test?parseTime=true"
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMySQLStore(t *testing.T) {
	db := getMySQLDB(t)
	ctx := context.Background()
	if err := migrations.ApplyMySQL(ctx, db); err != nil {
		t.Fatalf("Failed to apply schema: %v", err)
	}

	storagetest.Run(t, func(t *testing.T) core.Store {
		for _, table := range []string{"inventory_adjustments", "inventory_movements", "inventory_items"} {
			if _, err := db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				t.Fatalf("Failed to clean %s: %v", table, err)
			}
		}
		return mysql.NewStore(db)
	})
}
