package dataapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// BranchField is the column every request must be scoped by.
const BranchField = "branch_id"

const (
	operationGet = "get"
	operationAdd = "add"
)

var allowedOperators = map[string]struct{}{
	"=":    {},
	">":    {},
	"<":    {},
	">=":   {},
	"<=":   {},
	"<>":   {},
	"LIKE": {},
	"IN":   {},
}

var (
	// ErrInvalidRequest is returned for requests the client refuses to send.
	ErrInvalidRequest = errors.New("invalid data api request")
	// ErrMissingBranchScope is returned when a request is not scoped to a branch.
	ErrMissingBranchScope = errors.New("data api request is not scoped to a branch")
	// ErrMissingField is returned by Row accessors for absent or null columns.
	ErrMissingField = errors.New("field missing from row")
)

// Condition is one where clause.
type Condition struct {
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Value    any    `json:"value"`
}

// Eq builds an equality condition.
func Eq(field string, value any) Condition {
	return Condition{Field: field, Operator: "=", Value: value}
}

// Order is one orderBy clause.
type Order struct {
	Field     string `json:"field"`
	Direction string `json:"direction"`
}

// Asc orders by field ascending.
func Asc(field string) Order { return Order{Field: field, Direction: "ASC"} }

// Desc orders by field descending.
func Desc(field string) Order { return Order{Field: field, Direction: "DESC"} }

// Request is the JSON body posted to the data API.
type Request struct {
	Operation string         `json:"operation"`
	Table     string         `json:"table"`
	Fields    []string       `json:"fields,omitempty"`
	Where     []Condition    `json:"where,omitempty"`
	OrderBy   []Order        `json:"orderBy,omitempty"`
	Limit     int            `json:"limit,omitempty"`
	Offset    int            `json:"offset,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

func (request Request) validate() error {
	if strings.TrimSpace(request.Table) == "" {
		return fmt.Errorf("%w: table is required", ErrInvalidRequest)
	}
	if request.Limit < 0 || request.Offset < 0 {
		return fmt.Errorf("%w: negative paging", ErrInvalidRequest)
	}
	for _, condition := range request.Where {
		if strings.TrimSpace(condition.Field) == "" {
			return fmt.Errorf("%w: condition without field", ErrInvalidRequest)
		}
		if _, ok := allowedOperators[strings.ToUpper(condition.Operator)]; !ok {
			return fmt.Errorf("%w: operator %q", ErrInvalidRequest, condition.Operator)
		}
	}
	for _, order := range request.OrderBy {
		direction := strings.ToUpper(order.Direction)
		if direction != "ASC" && direction != "DESC" {
			return fmt.Errorf("%w: order direction %q", ErrInvalidRequest, order.Direction)
		}
	}
	switch request.Operation {
	case operationGet:
		if !request.scopedByBranch() {
			return fmt.Errorf("%w: get %s", ErrMissingBranchScope, request.Table)
		}
	case operationAdd:
		if len(request.Data) == 0 {
			return fmt.Errorf("%w: add without data", ErrInvalidRequest)
		}
		if branch, ok := request.Data[BranchField]; !ok || strings.TrimSpace(fmt.Sprint(branch)) == "" {
			return fmt.Errorf("%w: add %s", ErrMissingBranchScope, request.Table)
		}
	default:
		return fmt.Errorf("%w: operation %q", ErrInvalidRequest, request.Operation)
	}
	return nil
}

func (request Request) scopedByBranch() bool {
	for _, condition := range request.Where {
		if condition.Field == BranchField && condition.Operator == "=" && strings.TrimSpace(fmt.Sprint(condition.Value)) != "" {
			return true
		}
	}
	return false
}

// Response is the data API envelope.
type Response struct {
	Success  bool            `json:"success"`
	Data     []Row           `json:"data"`
	Count    int             `json:"count"`
	InsertID json.RawMessage `json:"insertId,omitempty"`
	Message  string          `json:"message,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// InsertedID returns the generated key of an add, or "".
func (response Response) InsertedID() string {
	if len(response.InsertID) == 0 {
		return ""
	}
	var text string
	if err := json.Unmarshal(response.InsertID, &text); err == nil {
		return text
	}
	return strings.Trim(string(response.InsertID), `"`)
}

// Row is one record. Values arrive as JSON strings or numbers depending on the column.
type Row map[string]any

// String returns the column as text, or "" when absent.
func (row Row) String(field string) string {
	value, ok := row[field]
	if !ok || value == nil {
		return ""
	}
	switch typed := value.(type) {
	case string:
		return strings.TrimSpace(typed)
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case json.Number:
		return typed.String()
	default:
		return strings.TrimSpace(fmt.Sprint(typed))
	}
}

// Int parses the column as an integer. Decimal strings like "30.00" are truncated.
func (row Row) Int(field string) (int64, error) {
	raw := row.String(field)
	if raw == "" {
		return 0, fmt.Errorf("%w: %s", ErrMissingField, field)
	}
	if parsed, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return parsed, nil
	}
	parsed, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("field %s: %w", field, err)
	}
	return int64(parsed), nil
}

// IntOr returns the column as an integer or fallback when it is absent or malformed.
func (row Row) IntOr(field string, fallback int64) int64 {
	value, err := row.Int(field)
	if err != nil {
		return fallback
	}
	return value
}
