package store

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"email-analyzer/internal/categorization"
)

func newMock(t *testing.T) (*Postgres, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgres(db), mock
}

func sampleActivity() categorization.Activity {
	return categorization.Activity{
		ID:          "act-1",
		Type:        categorization.ActivityBatchCategorized,
		Description: "Batch categorized 1 of 2 emails",
		Details:     "#1 Categories: Work | Confidence: 80% | reliable",
		EmailIDs:    []int64{1, 2},
		CreatedAt:   time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

// ==========================
// Postgres
// ==========================

func TestPostgres_GetEmail(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(queryGetEmail)).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "subject", "content"}).AddRow(7, "Budget", nil))

	email, err := store.GetEmail(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, &categorization.Email{ID: 7, Subject: "Budget", Content: ""}, email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetEmail_NotFound(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(queryGetEmail)).
		WithArgs(int64(404)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "subject", "content"}))

	_, err := store.GetEmail(context.Background(), 404)
	assert.ErrorIs(t, err, categorization.ErrEmailNotFound)
}

func TestPostgres_ListCategories(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(queryListCategories)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(1, "Work").AddRow(2, "Personal"))

	categories, err := store.ListCategories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []categorization.Category{{ID: 1, Name: "Work"}, {ID: 2, Name: "Personal"}}, categories)
}

func TestPostgres_ListCategories_QueryError(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(queryListCategories)).WillReturnError(errors.New("relation does not exist"))

	_, err := store.ListCategories(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list categories")
}

func TestPostgres_UpdateCategorization(t *testing.T) {
	store, mock := newMock(t)
	labels := []string{"Work & Business", "High Priority"}

	mock.ExpectExec(regexp.QuoteMeta(queryUpdateCategorization)).
		WithArgs(int64(1), int64(20), 77, pq.Array(labels)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.UpdateCategorization(context.Background(), 1, 20, 77, labels))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_UpdateCategorization_NoRows(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectExec(regexp.QuoteMeta(queryUpdateCategorization)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.UpdateCategorization(context.Background(), 9, 20, 50, nil)
	assert.ErrorIs(t, err, categorization.ErrEmailNotFound)
}

func TestPostgres_RecordActivity(t *testing.T) {
	store, mock := newMock(t)
	a := sampleActivity()

	mock.ExpectExec(regexp.QuoteMeta(queryInsertActivity)).
		WithArgs(a.ID, string(a.Type), a.Description, a.Details, pq.Array(a.EmailIDs), a.CreatedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, store.RecordActivity(context.Background(), a))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// Elasticsearch
// ==========================

type indexed struct {
	path string
	doc  categorization.Activity
}

func newESServer(t *testing.T, status int) (*elasticsearch.Client, func() []indexed) {
	t.Helper()
	var (
		mu   sync.Mutex
		docs []indexed
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var doc categorization.Activity
		_ = json.Unmarshal(body, &doc)

		mu.Lock()
		docs = append(docs, indexed{path: r.URL.Path, doc: doc})
		mu.Unlock()

		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"result":"created"}`))
	}))
	t.Cleanup(server.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{server.URL}})
	require.NoError(t, err)

	return client, func() []indexed {
		mu.Lock()
		defer mu.Unlock()
		return append([]indexed(nil), docs...)
	}
}

func TestElasticsearchActivity_Indexes(t *testing.T) {
	client, received := newESServer(t, http.StatusCreated)
	sink := NewElasticsearchActivity(client, "email-activity")

	a := sampleActivity()
	require.NoError(t, sink.RecordActivity(context.Background(), a))

	docs := received()
	require.Len(t, docs, 1)
	assert.Equal(t, "/email-activity/_doc/act-1", docs[0].path)
	assert.Equal(t, a, docs[0].doc)
}

func TestElasticsearchActivity_ErrorStatus(t *testing.T) {
	client, _ := newESServer(t, http.StatusBadRequest)
	sink := NewElasticsearchActivity(client, "email-activity")

	err := sink.RecordActivity(context.Background(), sampleActivity())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}

// ==========================
// MultiSink
// ==========================

type recordingSink struct {
	got []categorization.Activity
	err error
}

func (s *recordingSink) RecordActivity(_ context.Context, a categorization.Activity) error {
	s.got = append(s.got, a)
	return s.err
}

func TestMultiSink_AttemptsAllSinks(t *testing.T) {
	first := &recordingSink{err: errors.New("db down")}
	second := &recordingSink{}

	err := MultiSink{first, second}.RecordActivity(context.Background(), sampleActivity())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
	assert.Len(t, first.got, 1)
	assert.Len(t, second.got, 1)
}

func TestMultiSink_Empty(t *testing.T) {
	assert.NoError(t, MultiSink{}.RecordActivity(context.Background(), sampleActivity()))
}

func TestMigrate(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectExec(regexp.QuoteMeta(Schema)).WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, Migrate(context.Background(), store.db))

	mock.ExpectExec(regexp.QuoteMeta(Schema)).WillReturnError(errors.New("permission denied"))
	assert.ErrorContains(t, Migrate(context.Background(), store.db), "migrate mailbox schema")
}
