package memory

import (
	"fmt"
	"reflect"

	"github.com/iliyamo/figure-api/internal/model"
	"github.com/iliyamo/figure-api/internal/repository"
)

var userFields = map[string]bool{
	"id": true, "username": true, "email": true, "firstName": true, "lastName": true, "role": true,
}

// checkUserWhere rejects keys that are not user fields, even on an empty table.
func checkUserWhere(where repository.Where) error {
	for k := range where {
		if !userFields[k] {
			return fmt.Errorf("%w: users.%s", repository.ErrUnknownField, k)
		}
	}
	return nil
}

// checkFigureWhere rejects the "user" relation; any other key may name an
// extension property.
func checkFigureWhere(where repository.Where) error {
	if _, ok := where["user"]; ok {
		return fmt.Errorf("%w: figures.user", repository.ErrUnknownField)
	}
	return nil
}

func matchUser(u model.User, where repository.Where) (bool, error) {
	for k, want := range where {
		var got any
		switch k {
		case "id":
			got = u.ID
		case "username":
			got = u.Username
		case "email":
			got = u.Email
		case "firstName":
			got = u.FirstName
		case "lastName":
			got = u.LastName
		case "role":
			got = u.Role
		default:
			return false, fmt.Errorf("%w: users.%s", repository.ErrUnknownField, k)
		}
		if !equal(got, want) {
			return false, nil
		}
	}
	return true, nil
}

// matchFigure compares typed fields directly and falls back to Extra for
// any other key, so extension properties are filterable too.
func matchFigure(f model.Figure, where repository.Where) (bool, error) {
	for k, want := range where {
		var got any
		switch k {
		case "id":
			got = f.ID
		case "symbol":
			got = f.Symbol
		case "shape":
			got = f.Shape
		case "color":
			got = f.Color
		case "measurement":
			got = f.Measurement
		case "userId":
			got = f.UserID
		case "user":
			return false, fmt.Errorf("%w: figures.%s", repository.ErrUnknownField, k)
		default:
			v, ok := f.Extra[k]
			if !ok {
				return false, nil
			}
			got = v
		}
		if !equal(got, want) {
			return false, nil
		}
	}
	return true, nil
}

func equal(a, b any) bool {
	if x, ok := number(a); ok {
		if y, ok := number(b); ok {
			return x == y
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
