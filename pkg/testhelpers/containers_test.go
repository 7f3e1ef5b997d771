//go:build integration

package testhelpers

import (
	"context"
	"testing"
)

func TestTestDB_MigrationsApplied(t *testing.T) {
	testDB := GetTestDB(t)

	ctx := context.Background()

	for _, table := range []string{"users", "contexts", "images"} {
		var exists bool
		err := testDB.DB.QueryRow(ctx,
			"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_schema = 'public' AND table_name = $1)",
			table).Scan(&exists)
		if err != nil {
			t.Fatalf("failed to look up %s: %v", table, err)
		}
		if !exists {
			t.Errorf("expected table %s to exist after migrations", table)
		}
	}
}

func TestTestRedis_Ping(t *testing.T) {
	testRedis := GetTestRedis(t)

	if err := testRedis.Client.Ping(context.Background()).Err(); err != nil {
		t.Fatalf("failed to ping redis: %v", err)
	}
}
