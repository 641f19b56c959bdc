package taproot_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/aretw0/taproot"
	"github.com/aretw0/taproot/pkg/scope"
	"github.com/aretw0/taproot/pkg/session"
)

// postgresURL starts a disposable PostgreSQL container and returns its connection
// string. Gated behind TEST_INTEGRATION so the default test run stays hermetic.
func postgresURL(t *testing.T) string {
	t.Helper()

	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("skipping integration test: TEST_INTEGRATION not set")
	}

	ctx := context.Background()
	container, err := postgres.Run(ctx,
		"docker.io/postgres:17-alpine",
		postgres.WithDatabase("taproot_test"),
		postgres.WithUsername("taproot"),
		postgres.WithPassword("test-password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminating container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	return fmt.Sprintf("postgresql://taproot:test-password@%s:%s/taproot_test?sslmode=disable",
		host, port.Port())
}

func TestIntegration_NativeLifecycle(t *testing.T) {
	url := postgresURL(t)
	ctx := context.Background()

	component, err := taproot.New(taproot.WithURL(url))
	require.NoError(t, err)
	require.True(t, component.Binding().Native())

	app := scope.New()
	require.NoError(t, component.Start(ctx, app))
	defer app.End(ctx, nil)

	pool, err := scope.Get[*pgxpool.Pool](app, taproot.DefaultResourceName)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, "CREATE TABLE notes (body TEXT NOT NULL)")
	require.NoError(t, err)

	// Clean end commits.
	work := app.Child()
	sess, err := scope.Get[*session.NativeSession](work, taproot.DefaultResourceName)
	require.NoError(t, err)
	_, err = sess.Exec(ctx, "INSERT INTO notes (body) VALUES ($1)", "kept")
	require.NoError(t, err)
	require.True(t, sess.InTransaction())
	require.NoError(t, work.End(ctx, nil))

	// Failed end rolls back.
	work = app.Child()
	sess, err = scope.Get[*session.NativeSession](work, taproot.DefaultResourceName)
	require.NoError(t, err)
	_, err = sess.Exec(ctx, "INSERT INTO notes (body) VALUES ($1)", "discarded")
	require.NoError(t, err)
	require.NoError(t, work.End(ctx, fmt.Errorf("request failed")))

	var count int
	require.NoError(t, pool.QueryRow(ctx, "SELECT COUNT(*) FROM notes").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestIntegration_StandardPostgres(t *testing.T) {
	url := postgresURL(t)
	ctx := context.Background()

	// The +stdlib driver suffix opts out of native mode; sessions then run over
	// database/sql with the commit executor handling teardown.
	component, err := taproot.New(taproot.WithURL("postgresql+stdlib" + url[len("postgresql"):]))
	require.NoError(t, err)
	require.False(t, component.Binding().Native())

	app := scope.New()
	require.NoError(t, component.Start(ctx, app))
	defer app.End(ctx, nil)

	work := app.Child()
	sess, err := scope.Get[*session.Session](work, taproot.DefaultResourceName)
	require.NoError(t, err)

	var one int
	require.NoError(t, sess.GetContext(ctx, &one, "SELECT 1"))
	assert.Equal(t, 1, one)
	require.NoError(t, work.End(ctx, nil))
}
