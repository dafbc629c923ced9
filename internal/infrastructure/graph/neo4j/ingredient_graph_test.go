package neo4j

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/kirillkom/plateplanner/internal/core/domain"
)

func record(id any, names ...any) *neo4j.Record {
	return &neo4j.Record{
		Keys:   []string{"recipe_id", "ingredients"},
		Values: []any{id, names},
	}
}

func TestIngredientsOfMapsRecords(t *testing.T) {
	var gotParams map[string]any
	graph := &IngredientGraph{query: func(_ context.Context, query string, params map[string]any) ([]*neo4j.Record, error) {
		gotParams = params
		return []*neo4j.Record{
			record(int64(1), "peanut butter", "bread"),
			record("2"),
			record("not-a-number", "ghost"),
		}, nil
	}}

	got, err := graph.IngredientsOf(context.Background(), []int64{1, 2, 3})
	if err != nil {
		t.Fatalf("IngredientsOf() error = %v", err)
	}
	if !reflect.DeepEqual(got[1], []string{"peanut butter", "bread"}) {
		t.Fatalf("unexpected ingredients for 1: %v", got[1])
	}
	if names, ok := got[2]; !ok || len(names) != 0 {
		t.Fatalf("expected recipe 2 present with no ingredients, got %v ok=%v", names, ok)
	}
	if _, ok := got[3]; ok {
		t.Fatalf("recipe absent from graph must be absent from result")
	}
	if !reflect.DeepEqual(gotParams["recipe_ids"], []int64{1, 2, 3}) {
		t.Fatalf("unexpected params: %v", gotParams)
	}
}

func TestIngredientsOfPropagatesErrors(t *testing.T) {
	boom := errors.New("ServiceUnavailable")
	graph := &IngredientGraph{query: func(context.Context, string, map[string]any) ([]*neo4j.Record, error) {
		return nil, boom
	}}

	if _, err := graph.IngredientsOf(context.Background(), []int64{1}); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestIngredientsOfSkipsEmptyInput(t *testing.T) {
	graph := &IngredientGraph{query: func(context.Context, string, map[string]any) ([]*neo4j.Record, error) {
		t.Fatalf("query must not run for empty ids")
		return nil, nil
	}}

	got, err := graph.IngredientsOf(context.Background(), nil)
	if err != nil || len(got) != 0 {
		t.Fatalf("unexpected result %v err=%v", got, err)
	}
}

func TestConnectToleratesUnreachableServer(t *testing.T) {
	ctx := context.Background()
	graph, err := Connect(ctx, "bolt://127.0.0.1:1", "neo4j", "password", "", nil)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer func() { _ = graph.Close(ctx) }()

	if graph.query == nil {
		t.Fatalf("expected query function to be wired")
	}
}

func TestConnectRejectsMalformedURI(t *testing.T) {
	if _, err := Connect(context.Background(), "http://graph:7474", "neo4j", "password", "", nil); err == nil {
		t.Fatalf("expected driver error for unsupported scheme")
	}
}

func edgeRecord(name any, score any, kind, usage string) *neo4j.Record {
	return &neo4j.Record{
		Keys:   []string{"name", "score", "kind", "context"},
		Values: []any{name, score, kind, usage},
	}
}

func TestSubstitutesOfMapsEdges(t *testing.T) {
	var gotQuery string
	var gotParams map[string]any
	graph := &IngredientGraph{query: func(_ context.Context, query string, params map[string]any) ([]*neo4j.Record, error) {
		gotQuery = query
		gotParams = params
		return []*neo4j.Record{
			edgeRecord("Margarine", 0.83, "direct", "baking"),
			edgeRecord("coconut oil", int64(1), "direct", ""),
			edgeRecord("ghee", 0.61, "similar", ""),
			edgeRecord(nil, 0.5, "similar", ""),
		}, nil
	}}

	got, err := graph.SubstitutesOf(context.Background(), "  Butter ", "baking", 6)
	if err != nil {
		t.Fatalf("SubstitutesOf() error = %v", err)
	}
	want := []domain.SubstituteEdge{
		{Name: "margarine", Score: 0.83, Kind: "direct", Context: "baking"},
		{Name: "coconut oil", Score: 1, Kind: "direct"},
		{Name: "ghee", Score: 0.61, Kind: "similar"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("SubstitutesOf() = %+v, want %+v", got, want)
	}
	if gotQuery != substitutesQuery {
		t.Fatalf("unexpected query")
	}
	if gotParams["ingredient"] != "butter" || gotParams["context"] != "baking" || gotParams["limit"] != int64(6) {
		t.Fatalf("unexpected params: %v", gotParams)
	}
}

func TestSubstitutesOfSkipsBlankIngredient(t *testing.T) {
	graph := &IngredientGraph{query: func(context.Context, string, map[string]any) ([]*neo4j.Record, error) {
		t.Fatalf("query must not run for blank ingredient")
		return nil, nil
	}}

	got, err := graph.SubstitutesOf(context.Background(), "  ", "", 5)
	if err != nil || len(got) != 0 {
		t.Fatalf("unexpected result %v err=%v", got, err)
	}
}

func TestSubstitutesOfPropagatesErrors(t *testing.T) {
	boom := errors.New("ServiceUnavailable")
	graph := &IngredientGraph{query: func(context.Context, string, map[string]any) ([]*neo4j.Record, error) {
		return nil, boom
	}}

	if _, err := graph.SubstitutesOf(context.Background(), "butter", "", 5); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}
