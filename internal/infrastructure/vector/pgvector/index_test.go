package pgvector

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func newIndexWithMock(t *testing.T) (*Index, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return New(db), mock
}

func TestSearchScansHitsInOrder(t *testing.T) {
	index, mock := newIndexWithMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY embedding <#> $1")).
		WithArgs(sqlmock.AnyArg(), 3).
		WillReturnRows(sqlmock.NewRows([]string{"recipe_id", "similarity"}).
			AddRow(int64(12), 0.93).
			AddRow(int64(4), 0.71))

	hits, err := index.Search(context.Background(), []float32{0.6, 0.8}, 3)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(hits) != 2 || hits[0].RecipeID != 12 || hits[1].Similarity != 0.71 {
		t.Fatalf("unexpected hits: %+v", hits)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSearchWrapsQueryError(t *testing.T) {
	index, mock := newIndexWithMock(t)
	mock.ExpectQuery("recipe_embeddings").WillReturnError(errors.New("relation does not exist"))

	if _, err := index.Search(context.Background(), []float32{1}, 5); err == nil {
		t.Fatalf("expected error")
	}
}

func TestSearchSkipsEmptyVector(t *testing.T) {
	index, mock := newIndexWithMock(t)

	hits, err := index.Search(context.Background(), nil, 5)
	if err != nil || hits != nil {
		t.Fatalf("expected no-op, got hits=%v err=%v", hits, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unexpected queries: %v", err)
	}
}

func TestReadyRequiresRows(t *testing.T) {
	index, mock := newIndexWithMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	if err := index.Ready(context.Background()); err == nil {
		t.Fatalf("expected empty table to be not ready")
	}
	if err := index.Ready(context.Background()); err != nil {
		t.Fatalf("Ready() error = %v", err)
	}
}
