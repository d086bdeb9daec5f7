package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"docprocessor/internal/config"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testConf = config.DatabaseConfig{
	Host:               "db",
	Port:               "5432",
	User:               "dps",
	Password:           "secret",
	Name:               "documents",
	SSLMode:            "disable",
	MaxOpenConns:       10,
	MaxIdleConns:       5,
	ConnMaxLifetimeSec: 300,
}

// stubOpen makes NewPostgres hand out db and records the driver and DSN it asked for.
func stubOpen(t *testing.T, db *sql.DB, openErr error) (gotDriver, gotDSN *string) {
	t.Helper()
	var drv, dsn string
	orig := sqlOpen
	sqlOpen = func(driverName, dataSourceName string) (*sql.DB, error) {
		drv, dsn = driverName, dataSourceName
		return db, openErr
	}
	t.Cleanup(func() { sqlOpen = orig })
	return &drv, &dsn
}

func TestBuildPostgresDSN(t *testing.T) {
	t.Run("escapes credentials", func(t *testing.T) {
		c := testConf
		c.Password = "p@ss/w"
		got, err := BuildPostgresDSN(c)
		require.NoError(t, err)
		assert.Equal(t, "postgres://dps:p%40ss%2Fw@db:5432/documents?sslmode=disable", got)
	})

	t.Run("no password no sslmode", func(t *testing.T) {
		got, err := BuildPostgresDSN(config.DatabaseConfig{Host: "db", Port: "5432", User: "dps", Name: "documents"})
		require.NoError(t, err)
		assert.Equal(t, "postgres://dps@db:5432/documents", got)
	})

	for _, unset := range []func(*config.DatabaseConfig){
		func(c *config.DatabaseConfig) { c.Host = "" },
		func(c *config.DatabaseConfig) { c.Port = "" },
		func(c *config.DatabaseConfig) { c.User = "" },
		func(c *config.DatabaseConfig) { c.Name = "" },
	} {
		c := testConf
		unset(&c)
		_, err := BuildPostgresDSN(c)
		assert.Error(t, err, "%+v", c)
	}
}

func TestTracedDriver_RegistersOnce(t *testing.T) {
	first, err := tracedDriver()
	require.NoError(t, err)
	second, err := tracedDriver()
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Contains(t, sql.Drivers(), first)
}

func TestNewPostgres_OpensTracedPool(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	drv, dsn := stubOpen(t, db, nil)
	mock.ExpectPing()

	got, err := NewPostgres(context.Background(), testConf)
	require.NoError(t, err)

	want, _ := tracedDriver()
	assert.Equal(t, want, *drv)
	assert.Equal(t, "postgres://dps:secret@db:5432/documents?sslmode=disable", *dsn)
	// Pool limits land on the handle gorm and goose reuse.
	assert.Same(t, db, got)
	assert.Equal(t, 10, got.Stats().MaxOpenConnections)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewPostgres_Failures(t *testing.T) {
	t.Run("open", func(t *testing.T) {
		stubOpen(t, nil, errors.New("open error"))

		got, err := NewPostgres(context.Background(), testConf)
		assert.EqualError(t, err, "sql open: open error")
		assert.Nil(t, got)
	})

	t.Run("ping closes the pool", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		stubOpen(t, db, nil)
		mock.ExpectPing().WillReturnError(errors.New("ping failed"))

		got, err := NewPostgres(context.Background(), testConf)
		assert.EqualError(t, err, "db ping: ping failed")
		assert.Nil(t, got)
		assert.EqualError(t, db.Ping(), "sql: database is closed")
	})

	t.Run("caller context canceled", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		stubOpen(t, db, nil)
		mock.ExpectPing()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		got, err := NewPostgres(ctx, testConf)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Nil(t, got)
		// The driver was never reached.
		assert.Error(t, mock.ExpectationsWereMet())
	})

	t.Run("bad config never opens", func(t *testing.T) {
		drv, _ := stubOpen(t, nil, errors.New("unexpected"))

		got, err := NewPostgres(context.Background(), config.DatabaseConfig{})
		assert.Error(t, err)
		assert.Nil(t, got)
		assert.Empty(t, *drv)
	})
}

func TestApplyPool(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	applyPool(db, config.DatabaseConfig{MaxOpenConns: 7})
	assert.Equal(t, 7, db.Stats().MaxOpenConnections)

	// Zero values leave earlier settings alone.
	applyPool(db, config.DatabaseConfig{})
	assert.Equal(t, 7, db.Stats().MaxOpenConnections)
}
