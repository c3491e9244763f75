package database

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"email-analyzer/internal/common/config"
)

func TestRedisClient_Ping(t *testing.T) {
	mr := miniredis.RunT(t)

	client := NewRedis(config.RedisConfig{Address: mr.Addr()}, 4)
	defer client.Close()

	require.NoError(t, client.Ping(context.Background()))

	mr.Close()
	assert.Error(t, client.Ping(context.Background()))
}

func TestPostgresClient_Ping(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	client := &PostgresClient{DB: db}

	mock.ExpectPing()
	require.NoError(t, client.Ping(context.Background()))

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	err = client.Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres ping failed")

	mock.ExpectClose()
	require.NoError(t, client.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewPostgres_ConfiguresPool(t *testing.T) {
	client, err := NewPostgres(config.PostgresConfig{
		Host: "localhost", Port: 5432, Database: "mail", User: "analyzer",
		SSLMode: "disable", MaxConnections: 7, MaxIdle: 2,
	}, 5)
	require.NoError(t, err)
	defer client.Close()

	assert.Equal(t, 7, client.DB.Stats().MaxOpenConnections)
}

func TestNewPostgres_PoolSizedToWorker(t *testing.T) {
	client, err := NewPostgres(config.PostgresConfig{
		Host: "localhost", Port: 5432, Database: "mail", User: "analyzer", SSLMode: "disable",
	}, 8)
	require.NoError(t, err)
	defer client.Close()

	assert.Equal(t, 8+reservedConns, client.DB.Stats().MaxOpenConnections)
}

func TestNewRedis_CacheTuning(t *testing.T) {
	client := NewRedis(config.RedisConfig{Address: "localhost:6379"}, 0)
	defer client.Close()

	opts := client.Client.Options()
	assert.Equal(t, 2, opts.PoolSize)
	assert.Equal(t, 1, opts.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, opts.ReadTimeout)
}

func TestElasticsearchClient_Ping(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusOK)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.WriteHeader(int(status.Load()))
	}))
	defer server.Close()

	client, err := NewElasticsearch(config.ElasticsearchConfig{Addresses: []string{server.URL}}, nil)
	require.NoError(t, err)

	require.NoError(t, client.Ping(context.Background()))

	status.Store(http.StatusServiceUnavailable)
	assert.Error(t, client.Ping(context.Background()))
}

func newIndexServer(t *testing.T, existsStatus int) (*ElasticsearchClient, func() []string) {
	t.Helper()
	var (
		mu    sync.Mutex
		calls []string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls = append(calls, r.Method+" "+r.URL.Path)
		mu.Unlock()

		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		if r.Method == http.MethodHead {
			w.WriteHeader(existsStatus)
			return
		}
		_, _ = w.Write([]byte(`{"acknowledged":true}`))
	}))
	t.Cleanup(server.Close)

	client, err := NewElasticsearch(config.ElasticsearchConfig{Addresses: []string{server.URL}}, nil)
	require.NoError(t, err)

	return client, func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), calls...)
	}
}

func TestEnsureActivityIndex_CreatesMissingIndex(t *testing.T) {
	client, calls := newIndexServer(t, http.StatusNotFound)

	require.NoError(t, client.EnsureActivityIndex(context.Background(), "email-activity"))
	assert.Equal(t, []string{"HEAD /email-activity", "PUT /email-activity"}, calls())
}

func TestEnsureActivityIndex_ExistingIndexUntouched(t *testing.T) {
	client, calls := newIndexServer(t, http.StatusOK)

	require.NoError(t, client.EnsureActivityIndex(context.Background(), "email-activity"))
	assert.Equal(t, []string{"HEAD /email-activity"}, calls())
}
