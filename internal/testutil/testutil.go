// Package testutil connects integration tests to the Postgres and Redis
// instances of the local test profile. Tests skip when the backing service is
// unreachable unless TEST_REQUIRE_INFRA (or the per-service variable) is set.
package testutil

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	// Registers the "pgx" database/sql driver.
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	"github.com/target/dirkeeper/internal/migrate"
)

// DatabaseURL returns TEST_DATABASE_URL, or a DSN assembled from the
// TEST_DB_* variables with local test-profile defaults.
func DatabaseURL() string {
	if dsn := os.Getenv("TEST_DATABASE_URL"); dsn != "" {
		return dsn
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(envOr("TEST_DB_USER", "dirkeeper"), envOr("TEST_DB_PASSWORD", "dirkeeper")),
		Host:   net.JoinHostPort(envOr("TEST_DB_HOST", "localhost"), envOr("TEST_DB_PORT", "55432")),
		Path:   "/" + envOr("TEST_DB_NAME", "dirkeeper"),
	}
	u.RawQuery = url.Values{"sslmode": {envOr("TEST_DB_SSL_MODE", "disable")}}.Encode()
	return u.String()
}

// withSearchPath scopes dsn to schema.
func withSearchPath(dsn, schema string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("search_path", schema)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// schemaName returns a fresh lowercase schema identifier.
func schemaName() string {
	b := make([]byte, 6)
	_, _ = rand.Read(b)
	return "dk_test_" + hex.EncodeToString(b)
}

// SetupSessionDB returns a connection whose search_path is a new schema with
// the session migrations applied. The schema is dropped when the test ends,
// so packages running in parallel never share rows.
func SetupSessionDB(t testing.TB) *sql.DB {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	admin, err := sql.Open("pgx", DatabaseURL())
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	if err := admin.PingContext(ctx); err != nil {
		_ = admin.Close()
		skipOrFail(t, "TEST_REQUIRE_DB", "test database not available: %v", err)
	}

	schema := schemaName()
	if _, err := admin.ExecContext(ctx, "CREATE SCHEMA "+schema); err != nil {
		_ = admin.Close()
		t.Fatalf("create schema %s: %v", schema, err)
	}
	t.Cleanup(func() {
		dropCtx, dropCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer dropCancel()
		if _, err := admin.ExecContext(dropCtx, "DROP SCHEMA IF EXISTS "+schema+" CASCADE"); err != nil {
			t.Logf("drop schema %s: %v", schema, err)
		}
		_ = admin.Close()
	})

	dsn, err := withSearchPath(DatabaseURL(), schema)
	if err != nil {
		t.Fatalf("scope dsn: %v", err)
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open schema database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	db.SetMaxOpenConns(4)

	if err := migrate.Run(ctx, db); err != nil {
		t.Fatalf("migrate schema %s: %v", schema, err)
	}
	return db
}

// RedisAddr returns TEST_REDIS_ADDR, then REDIS_ADDR, then the local test-profile address.
func RedisAddr() string {
	if addr := os.Getenv("TEST_REDIS_ADDR"); addr != "" {
		return addr
	}
	return envOr("REDIS_ADDR", "localhost:56379")
}

// redisDB returns TEST_REDIS_DB, defaulting to 1 so DB 0 of a shared
// development instance is never flushed.
func redisDB(t testing.TB) int {
	v := os.Getenv("TEST_REDIS_DB")
	if v == "" {
		return 1
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		t.Fatalf("TEST_REDIS_DB=%q is not a database index", v)
	}
	return n
}

// SetupTestRedis returns a client on an emptied test database.
func SetupTestRedis(t testing.TB) *redis.Client {
	t.Helper()
	addr := RedisAddr()
	client := redis.NewClient(&redis.Options{Addr: addr, DB: redisDB(t)})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		skipOrFail(t, "TEST_REQUIRE_REDIS", "redis not available at %s: %v", addr, err)
	}
	if err := client.FlushDB(ctx).Err(); err != nil {
		_ = client.Close()
		t.Fatalf("flush test redis: %v", err)
	}
	return client
}

func skipOrFail(t testing.TB, requireVar, format string, args ...any) {
	t.Helper()
	if envBool(requireVar) || envBool("TEST_REQUIRE_INFRA") {
		t.Fatalf(format, args...)
	}
	t.Skipf(format, args...)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "y":
		return true
	}
	return false
}
