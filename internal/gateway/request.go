// Package gateway implements the privileged generic CRUD interpreter.
// Exactly four operations are exposed over a fixed table allowlist; every
// identifier is validated before any storage call, and all values travel
// as bound parameters.
package gateway

import (
	"errors"
	"fmt"

	"github.com/coursegate/coursegate/internal/query"
)

// ErrInvalid wraps every structural validation failure. Handlers reject
// these with 400 before any storage I/O happens.
var ErrInvalid = errors.New("invalid request")

// Filter operators accepted on the wire. Anything else is rejected.
const (
	OpEq  = "eq"
	OpIn  = "in"
	OpNeq = "neq"
	OpGt  = "gt"
	OpLt  = "lt"
)

// Filter is a single WHERE condition: column, operator, bound value.
type Filter struct {
	Column string      `json:"column"`
	Op     string      `json:"op"`
	Value  interface{} `json:"value"`
}

// Order is an optional single-column sort directive.
type Order struct {
	Column    string `json:"column"`
	Ascending *bool  `json:"ascending"`
}

// Request is the wire shape of a gateway call. It is deliberately loose;
// Compile turns it into a typed per-action operation or rejects it.
type Request struct {
	Action  string                 `json:"action" validate:"required,oneof=select insert update delete"`
	Table   string                 `json:"table" validate:"required"`
	Data    map[string]interface{} `json:"data,omitempty"`
	Filters []Filter               `json:"filters,omitempty"`
	Select  string                 `json:"select,omitempty"`
	Order   *Order                 `json:"order,omitempty"`
}

// Operation is one of SelectOp, InsertOp, UpdateOp, DeleteOp. The mutating
// operations carry non-empty filter or data guarantees established by
// Compile, so the executor never needs to re-check them.
type Operation interface {
	isOperation()
	TableName() string
}

// SelectOp reads rows with an optional projection, filters, and ordering.
type SelectOp struct {
	Table      string
	Projection []string // nil means all columns
	Filters    []Filter
	Order      *Order
}

// InsertOp writes one row; every column name in Row is validated.
type InsertOp struct {
	Table string
	Row   map[string]interface{}
}

// UpdateOp mutates rows matching Filters; Filters is never empty.
type UpdateOp struct {
	Table   string
	Set     map[string]interface{}
	Filters []Filter
}

// DeleteOp removes rows matching Filters; Filters is never empty.
type DeleteOp struct {
	Table   string
	Filters []Filter
}

func (SelectOp) isOperation() {}
func (InsertOp) isOperation() {}
func (UpdateOp) isOperation() {}
func (DeleteOp) isOperation() {}

func (o SelectOp) TableName() string { return o.Table }
func (o InsertOp) TableName() string { return o.Table }
func (o UpdateOp) TableName() string { return o.Table }
func (o DeleteOp) TableName() string { return o.Table }

// Compile validates the request structurally and returns the typed
// operation. All checks run before any storage call: table allowlist,
// identifier pattern on every referenced column, operator allowlist, and
// the no-unconditional-bulk-mutation rule. Any invalid payload key aborts
// the entire operation rather than being silently dropped.
func (r *Request) Compile() (Operation, error) {
	if err := query.ValidateTable(r.Table); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	if err := validateFilters(r.Filters); err != nil {
		return nil, err
	}

	switch r.Action {
	case "select":
		projection, err := query.ParseProjection(r.Select)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
		}
		if r.Order != nil {
			if err := query.ValidateIdentifier(r.Order.Column); err != nil {
				return nil, fmt.Errorf("%w: invalid order column: %v", ErrInvalid, err)
			}
		}
		return SelectOp{Table: r.Table, Projection: projection, Filters: r.Filters, Order: r.Order}, nil

	case "insert":
		if len(r.Data) == 0 {
			return nil, fmt.Errorf("%w: data required", ErrInvalid)
		}
		if err := validateDataKeys(r.Data); err != nil {
			return nil, err
		}
		return InsertOp{Table: r.Table, Row: r.Data}, nil

	case "update":
		if len(r.Data) == 0 {
			return nil, fmt.Errorf("%w: data required", ErrInvalid)
		}
		if len(r.Filters) == 0 {
			return nil, fmt.Errorf("%w: filters required for update", ErrInvalid)
		}
		if err := validateDataKeys(r.Data); err != nil {
			return nil, err
		}
		return UpdateOp{Table: r.Table, Set: r.Data, Filters: r.Filters}, nil

	case "delete":
		if len(r.Filters) == 0 {
			return nil, fmt.Errorf("%w: filters required for delete", ErrInvalid)
		}
		return DeleteOp{Table: r.Table, Filters: r.Filters}, nil

	default:
		return nil, fmt.Errorf("%w: unknown action", ErrInvalid)
	}
}

func validateFilters(filters []Filter) error {
	for _, f := range filters {
		if err := query.ValidateIdentifier(f.Column); err != nil {
			return fmt.Errorf("%w: invalid filter column: %v", ErrInvalid, err)
		}
		switch f.Op {
		case OpIn:
			vals, ok := f.Value.([]interface{})
			if !ok || len(vals) == 0 {
				return fmt.Errorf("%w: in filter requires a non-empty array", ErrInvalid)
			}
		case OpEq, OpNeq, OpGt, OpLt:
		default:
			return fmt.Errorf("%w: unsupported filter op", ErrInvalid)
		}
	}
	return nil
}

func validateDataKeys(data map[string]interface{}) error {
	for key := range data {
		if err := query.ValidateIdentifier(key); err != nil {
			return fmt.Errorf("%w: invalid data column: %v", ErrInvalid, err)
		}
	}
	return nil
}
