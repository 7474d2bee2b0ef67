package store

import (
	"fmt"
	"strings"
	"time"

	"choreplan/internal/model"
)

// normalizeParam unwraps pointers and domain string types into plain query
// parameters. Unlike the in-memory matcher it keeps full timestamps.
func normalizeParam(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case model.TaskStatus:
		return string(val)
	case model.Priority:
		return string(val)
	case *int:
		if val == nil {
			return nil
		}
		return *val
	case *time.Time:
		if val == nil {
			return nil
		}
		return *val
	default:
		return v
	}
}

// buildWhere renders a Filter as a WHERE clause. Field names are checked
// against the allowed column set so a filter can never inject SQL.
func buildWhere(f Filter, allowed map[string]bool, startArg int) (string, []any, error) {
	if len(f) == 0 {
		return "", nil, nil
	}

	var clauses []string
	var args []any
	arg := startArg

	for _, p := range f {
		if !allowed[p.Field] {
			return "", nil, fmt.Errorf("unknown filter field: %s", p.Field)
		}

		value := normalizeParam(p.Value)
		if value == nil {
			if p.Op == OpNotEq {
				clauses = append(clauses, fmt.Sprintf("%s IS NOT NULL", p.Field))
			} else {
				clauses = append(clauses, fmt.Sprintf("%s IS NULL", p.Field))
			}
			continue
		}

		if p.Op == OpNotEq {
			clauses = append(clauses, fmt.Sprintf("%s <> $%d", p.Field, arg))
		} else {
			clauses = append(clauses, fmt.Sprintf("%s = $%d", p.Field, arg))
		}
		args = append(args, value)
		arg++
	}

	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}

// buildSet renders a Partial as a SET clause, same column allow-listing.
func buildSet(p Partial, allowed map[string]bool, startArg int) (string, []any, error) {
	if len(p) == 0 {
		return "", nil, fmt.Errorf("empty partial update")
	}

	var clauses []string
	var args []any
	arg := startArg

	for field, value := range p {
		if !allowed[field] {
			return "", nil, fmt.Errorf("unknown update field: %s", field)
		}
		clauses = append(clauses, fmt.Sprintf("%s = $%d", field, arg))
		args = append(args, normalizeParam(value))
		arg++
	}

	return strings.Join(clauses, ", "), args, nil
}

