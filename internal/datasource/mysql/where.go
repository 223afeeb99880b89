package mysql

import (
	"fmt"
	"sort"
	"strings"

	"github.com/iliyamo/figure-api/internal/repository"
)

var userColumns = map[string]string{
	"id":        "id",
	"username":  "username",
	"email":     "email",
	"firstName": "first_name",
	"lastName":  "last_name",
	"role":      "role",
}

var figureColumns = map[string]string{
	"id":          "id",
	"symbol":      "symbol",
	"shape":       "shape",
	"color":       "color",
	"measurement": "measurement",
	"userId":      "user_id",
}

// buildWhere renders an AND of equality predicates. Keys are sorted so the
// statement text is stable. Only whitelisted columns are accepted.
func buildWhere(table string, columns map[string]string, where repository.Where) (string, []any, error) {
	if len(where) == 0 {
		return "", nil, nil
	}
	keys := make([]string, 0, len(where))
	for k := range where {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	args := make([]any, 0, len(keys))
	for _, k := range keys {
		col, ok := columns[k]
		if !ok {
			return "", nil, fmt.Errorf("%w: %s.%s", repository.ErrUnknownField, table, k)
		}
		parts = append(parts, col+"=?")
		args = append(args, where[k])
	}
	return " WHERE " + strings.Join(parts, " AND "), args, nil
}
