package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/irsalhamdi/pos-kiosk/api"
	"github.com/irsalhamdi/pos-kiosk/api/background"
	"github.com/irsalhamdi/pos-kiosk/config"
	"github.com/irsalhamdi/pos-kiosk/core/auth"
	"github.com/irsalhamdi/pos-kiosk/core/checkout"
	"github.com/irsalhamdi/pos-kiosk/core/claims"
	"github.com/irsalhamdi/pos-kiosk/core/events"
	"github.com/irsalhamdi/pos-kiosk/core/kiosk"
	"github.com/irsalhamdi/pos-kiosk/database"
	"github.com/irsalhamdi/pos-kiosk/metrics"
	"github.com/irsalhamdi/pos-kiosk/validate"
	"github.com/jmoiron/sqlx"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
)

const jwtSecret = "integration-secret"

var (
	pgHost     string
	skipReason string
)

func TestMain(m *testing.M) {
	os.Exit(run(m))
}

func run(m *testing.M) int {
	pool, err := dockertest.NewPool("")
	if err == nil {
		err = pool.Client.Ping()
	}
	if err != nil {
		skipReason = fmt.Sprintf("docker unavailable: %v", err)
		return m.Run()
	}

	res, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "15-alpine",
		Env: []string{
			"POSTGRES_USER=postgres",
			"POSTGRES_PASSWORD=postgres",
			"POSTGRES_DB=postgres",
		},
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		skipReason = fmt.Sprintf("starting postgres: %v", err)
		return m.Run()
	}
	defer pool.Purge(res)
	_ = res.Expire(600)

	pgHost = res.GetHostPort("5432/tcp")

	pool.MaxWait = time.Minute
	if err := pool.Retry(func() error {
		db, err := database.Open(dbConfig("postgres"))
		if err != nil {
			return err
		}
		defer db.Close()
		return db.Ping()
	}); err != nil {
		skipReason = fmt.Sprintf("waiting for postgres: %v", err)
	}

	return m.Run()
}

func dbConfig(name string) config.DB {
	return config.DB{
		User:         "postgres",
		Password:     "postgres",
		Host:         pgHost,
		Name:         name,
		MaxIdleConns: 2,
		MaxOpenConns: 10,
		DisableTLS:   true,
	}
}

// TestEnv is a running API backed by its own freshly migrated database.
type TestEnv struct {
	*httptest.Server
	DB         *sqlx.DB
	Log        *logtest.Hook
	UserID     string
	UserToken  string
	AdminToken string
}

func NewTestEnv(t *testing.T, name string) (*TestEnv, error) {
	t.Helper()
	if skipReason != "" {
		t.Skip(skipReason)
	}

	admin, err := database.Open(dbConfig("postgres"))
	if err != nil {
		return nil, fmt.Errorf("opening admin connection: %w", err)
	}
	defer admin.Close()

	if _, err := admin.Exec(`DROP DATABASE IF EXISTS ` + name); err != nil {
		return nil, fmt.Errorf("dropping database %s: %w", name, err)
	}
	if _, err := admin.Exec(`CREATE DATABASE ` + name); err != nil {
		return nil, fmt.Errorf("creating database %s: %w", name, err)
	}

	db, err := database.Open(dbConfig(name))
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", name, err)
	}
	if err := database.Migrate(db, name); err != nil {
		db.Close()
		return nil, err
	}

	log, hook := logtest.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)

	m := metrics.New(prometheus.NewRegistry())
	bg := background.New(log)

	mux := api.APIMux(api.APIConfig{
		Log:        log,
		DB:         db,
		Verifier:   auth.NewVerifier(jwtSecret),
		Guard:      kiosk.NewGuard(db, kiosk.DefaultTimeout, m.SessionsExpired),
		Checkout:   checkout.New(db, config.Checkout{LockTimeout: 5 * time.Second, OrderPrefix: "ORD"}, m),
		Metrics:    m,
		Background: bg,
		Publisher:  events.Noop{},
	})

	env := &TestEnv{
		Server: httptest.NewServer(mux),
		DB:     db,
		Log:    hook,
		UserID: validate.GenerateID(),
	}

	env.UserToken, err = auth.Sign(jwtSecret, claims.Claims{UserID: env.UserID, Role: claims.RoleUser}, time.Hour)
	if err != nil {
		return nil, err
	}
	env.AdminToken, err = auth.Sign(jwtSecret, claims.Claims{UserID: validate.GenerateID(), Role: claims.RoleAdmin}, time.Hour)
	if err != nil {
		return nil, err
	}

	t.Cleanup(func() {
		env.Server.Close()
		_ = bg.Shutdown(context.Background())
		db.Close()
	})

	return env, nil
}

type header func(*http.Request)

func bearer(token string) header {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

func session(key string) header {
	return func(r *http.Request) { r.Header.Set(kiosk.SessionHeader, key) }
}

// Do sends a JSON request and returns the status and raw body.
func (env *TestEnv) Do(t *testing.T, method, path string, body any, hs ...header) (int, []byte) {
	t.Helper()

	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(raw)
	}

	r, err := http.NewRequest(method, env.URL+path, rd)
	if err != nil {
		t.Fatal(err)
	}
	r.Header.Set("Content-Type", "application/json")
	for _, h := range hs {
		h(r)
	}

	w, err := env.Client().Do(r)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Body.Close()

	out, err := io.ReadAll(w.Body)
	if err != nil {
		t.Fatal(err)
	}
	return w.StatusCode, out
}

// DoJSON is Do that also checks the status and decodes the body into dest.
func (env *TestEnv) DoJSON(t *testing.T, method, path string, body any, want int, dest any, hs ...header) {
	t.Helper()

	status, raw := env.Do(t, method, path, body, hs...)
	if status != want {
		t.Fatalf("%s %s: expected %d, got %d: %s", method, path, want, status, raw)
	}
	if dest != nil {
		if err := json.Unmarshal(raw, dest); err != nil {
			t.Fatalf("%s %s: decoding %s: %v", method, path, raw, err)
		}
	}
}

// SeedVariant inserts a product with a single variant and returns the
// variant id.
func (env *TestEnv) SeedVariant(t *testing.T, sku, price string, stock int) string {
	t.Helper()

	pid, vid := validate.GenerateID(), validate.GenerateID()
	if _, err := env.DB.Exec(`INSERT INTO products (product_id, name) VALUES ($1, $2)`, pid, "Product "+sku); err != nil {
		t.Fatalf("seeding product: %v", err)
	}
	const q = `
	INSERT INTO product_variants (variant_id, product_id, sku, name, price, stock_qty)
	VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := env.DB.Exec(q, vid, pid, sku, "Regular", price, stock); err != nil {
		t.Fatalf("seeding variant: %v", err)
	}
	return vid
}

func (env *TestEnv) Stock(t *testing.T, variantID string) int {
	t.Helper()
	var n int
	if err := env.DB.Get(&n, `SELECT stock_qty FROM product_variants WHERE variant_id = $1`, variantID); err != nil {
		t.Fatal(err)
	}
	return n
}

func (env *TestEnv) Count(t *testing.T, table string) int {
	t.Helper()
	var n int
	if err := env.DB.Get(&n, `SELECT count(*) FROM `+table); err != nil {
		t.Fatal(err)
	}
	return n
}
