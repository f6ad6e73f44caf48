package gateway

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/coursegate/coursegate/internal/store"
)

func newTestGateway(t *testing.T) *Gateway {
	t.Helper()
	st, err := store.Open("sqlite", "")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return New(st.DB(), slog.New(slog.DiscardHandler))
}

func mustExecute(t *testing.T, g *Gateway, req Request) []map[string]interface{} {
	t.Helper()
	op, err := req.Compile()
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	rows, err := g.Execute(context.Background(), op)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	return rows
}

func TestExecuteInsertReturnsRow(t *testing.T) {
	g := newTestGateway(t)

	rows := mustExecute(t, g, Request{
		Action: "insert",
		Table:  "courses",
		Data: map[string]interface{}{
			"id":        "11111111-1111-1111-1111-111111111111",
			"title":     "Intro to Go",
			"is_active": true,
		},
	})

	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if rows[0]["title"] != "Intro to Go" {
		t.Errorf("title = %v", rows[0]["title"])
	}
}

func TestExecuteSelectWithFiltersAndOrder(t *testing.T) {
	g := newTestGateway(t)

	for _, c := range []struct{ id, title string; active bool }{
		{"11111111-1111-1111-1111-111111111111", "Alpha", true},
		{"22222222-2222-2222-2222-222222222222", "Beta", true},
		{"33333333-3333-3333-3333-333333333333", "Gamma", false},
	} {
		mustExecute(t, g, Request{
			Action: "insert",
			Table:  "courses",
			Data:   map[string]interface{}{"id": c.id, "title": c.title, "is_active": c.active},
		})
	}

	desc := false
	rows := mustExecute(t, g, Request{
		Action:  "select",
		Table:   "courses",
		Select:  "id,title",
		Filters: []Filter{{Column: "is_active", Op: OpEq, Value: true}},
		Order:   &Order{Column: "title", Ascending: &desc},
	})

	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0]["title"] != "Beta" || rows[1]["title"] != "Alpha" {
		t.Errorf("descending order broken: %v, %v", rows[0]["title"], rows[1]["title"])
	}
	if _, ok := rows[0]["is_active"]; ok {
		t.Error("projection leaked unselected column")
	}
}

func TestExecuteSelectInFilter(t *testing.T) {
	g := newTestGateway(t)

	for _, id := range []string{
		"11111111-1111-1111-1111-111111111111",
		"22222222-2222-2222-2222-222222222222",
		"33333333-3333-3333-3333-333333333333",
	} {
		mustExecute(t, g, Request{
			Action: "insert",
			Table:  "courses",
			Data:   map[string]interface{}{"id": id, "title": "T " + id[:2], "is_active": true},
		})
	}

	rows := mustExecute(t, g, Request{
		Action: "select",
		Table:  "courses",
		Filters: []Filter{{Column: "id", Op: OpIn, Value: []interface{}{
			"11111111-1111-1111-1111-111111111111",
			"33333333-3333-3333-3333-333333333333",
		}}},
	})

	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
}

func TestExecuteUpdateScopedByFilter(t *testing.T) {
	g := newTestGateway(t)

	mustExecute(t, g, Request{
		Action: "insert",
		Table:  "courses",
		Data:   map[string]interface{}{"id": "11111111-1111-1111-1111-111111111111", "title": "Old", "is_active": true},
	})
	mustExecute(t, g, Request{
		Action: "insert",
		Table:  "courses",
		Data:   map[string]interface{}{"id": "22222222-2222-2222-2222-222222222222", "title": "Keep", "is_active": true},
	})

	rows := mustExecute(t, g, Request{
		Action:  "update",
		Table:   "courses",
		Data:    map[string]interface{}{"title": "New"},
		Filters: []Filter{{Column: "id", Op: OpEq, Value: "11111111-1111-1111-1111-111111111111"}},
	})
	if len(rows) != 1 || rows[0]["title"] != "New" {
		t.Fatalf("update returned %v", rows)
	}

	remaining := mustExecute(t, g, Request{
		Action:  "select",
		Table:   "courses",
		Filters: []Filter{{Column: "title", Op: OpEq, Value: "Keep"}},
	})
	if len(remaining) != 1 {
		t.Errorf("filter scoping broken, unrelated row changed")
	}
}

func TestExecuteConstraintViolationIsQueryError(t *testing.T) {
	g := newTestGateway(t)

	insert := Request{
		Action: "insert",
		Table:  "courses",
		Data: map[string]interface{}{
			"id":        "11111111-1111-1111-1111-111111111111",
			"title":     "First",
			"is_active": true,
		},
	}
	mustExecute(t, g, insert)

	op, err := insert.Compile()
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	_, err = g.Execute(context.Background(), op)
	if err == nil {
		t.Fatal("duplicate primary key insert succeeded")
	}
	var qe *QueryError
	if !errors.As(err, &qe) {
		t.Errorf("got %T (%v), want *QueryError", err, err)
	}
}

func TestExecuteDeleteReturnsNoRows(t *testing.T) {
	g := newTestGateway(t)

	mustExecute(t, g, Request{
		Action: "insert",
		Table:  "courses",
		Data:   map[string]interface{}{"id": "11111111-1111-1111-1111-111111111111", "title": "Doomed", "is_active": false},
	})

	rows := mustExecute(t, g, Request{
		Action:  "delete",
		Table:   "courses",
		Filters: []Filter{{Column: "id", Op: OpEq, Value: "11111111-1111-1111-1111-111111111111"}},
	})
	if rows != nil {
		t.Errorf("delete returned rows: %v", rows)
	}

	left := mustExecute(t, g, Request{Action: "select", Table: "courses"})
	if len(left) != 0 {
		t.Errorf("row not deleted: %v", left)
	}
}
