package account

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresConfig configures the Postgres driver.
type PostgresConfig struct {
	// DSN is a postgres:// connection URL.
	DSN string
	// Migrate applies the embedded schema on start.
	Migrate  bool
	MaxConns int32
}

// Postgres stores accounts in the accounts table.
type Postgres struct {
	pool   *pgxpool.Pool
	hasher Hasher
}

// NewPostgres connects to Postgres and optionally migrates the schema.
func NewPostgres(ctx context.Context, cfg PostgresConfig, hasher Hasher) (*Postgres, error) {
	if cfg.DSN == "" {
		return nil, errors.New("account: postgres dsn is required")
	}

	if cfg.Migrate {
		if err := Migrate(cfg.DSN); err != nil {
			return nil, err
		}
	}

	pcfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("account: parse dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("account: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("account: ping: %w", err)
	}

	return &Postgres{pool: pool, hasher: hasher}, nil
}

// Migrate applies the embedded migrations up to the latest version.
func Migrate(dsn string) error {
	src, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return fmt.Errorf("account: migrate source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, dsn)
	if err != nil {
		return fmt.Errorf("account: migrate: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("account: migrate up: %w", err)
	}
	return nil
}

// - 23505 unique_violation → ErrAccountExists
func mapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return ErrAccountNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrAccountExists
	}

	return err
}

func (p *Postgres) SignIn(ctx context.Context, email, password string) error {
	var hashed string
	err := p.pool.QueryRow(ctx,
		`SELECT password_hash FROM accounts WHERE email = $1`, normalize(email),
	).Scan(&hashed)
	if errors.Is(mapError(err), ErrAccountNotFound) {
		return ErrInvalidCredentials
	}
	if err != nil {
		return err
	}

	if !p.hasher.Verify(hashed, password) {
		return ErrInvalidCredentials
	}
	return nil
}

func (p *Postgres) CreateAccount(ctx context.Context, email, password string) error {
	hashed, err := p.hasher.Hash(password)
	if err != nil {
		return err
	}

	_, err = p.pool.Exec(ctx,
		`INSERT INTO accounts (email, password_hash) VALUES ($1, $2)`, normalize(email), string(hashed),
	)
	return mapError(err)
}

func (p *Postgres) UpdatePassword(ctx context.Context, email, newPassword string) error {
	hashed, err := p.hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	tag, err := p.pool.Exec(ctx,
		`UPDATE accounts SET password_hash = $2, updated_at = now() WHERE email = $1`, normalize(email), string(hashed),
	)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
