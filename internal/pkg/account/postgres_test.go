package account

import (
	"context"
	"testing"

	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

func newPostgresDSN(t *testing.T) string {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("melody"),
		tcpostgres.WithUsername("melody"),
		tcpostgres.WithPassword("melody"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("terminate postgres container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("postgres connection string: %v", err)
	}
	return dsn
}

func TestPostgresContract(t *testing.T) {
	dsn := newPostgresDSN(t)

	p, err := NewPostgres(context.Background(), PostgresConfig{DSN: dsn, Migrate: true}, testHasher())
	if err != nil {
		t.Fatalf("NewPostgres() error = %v", err)
	}
	t.Cleanup(func() { _ = p.Close() })

	runContract(t, func(t *testing.T) Provider {
		if _, err := p.pool.Exec(context.Background(), `TRUNCATE accounts`); err != nil {
			t.Fatalf("truncate accounts: %v", err)
		}
		return p
	})
}

func TestMigrateIsIdempotent(t *testing.T) {
	dsn := newPostgresDSN(t)

	if err := Migrate(dsn); err != nil {
		t.Fatalf("Migrate() first run error = %v", err)
	}
	if err := Migrate(dsn); err != nil {
		t.Fatalf("Migrate() second run error = %v", err)
	}
}
