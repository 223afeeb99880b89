package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/iliyamo/figure-api/internal/model"
	"github.com/iliyamo/figure-api/internal/repository"
)

const figureSelect = "SELECT id,user_id,symbol,shape,color,measurement,extra FROM figures"

// FigureStore mirrors the 'figures' table. Extension properties live in the
// JSON column 'extra' and cannot be used in where clauses.
type FigureStore struct{ db *sql.DB }

func (s *FigureStore) Create(ctx context.Context, f model.Figure) error {
	extra, err := encodeExtra(f.Extra)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO figures (id,user_id,symbol,shape,color,measurement,extra) VALUES (?,?,?,?,?,?,?)",
		f.ID, f.UserID, f.Symbol, f.Shape, f.Color, f.Measurement, extra)
	return translate(err)
}

func (s *FigureStore) Find(ctx context.Context, where repository.Where) ([]model.Figure, error) {
	clause, args, err := buildWhere("figures", figureColumns, where)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, figureSelect+clause, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Figure{}
	for rows.Next() {
		f, err := scanFigure(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *FigureStore) FindByID(ctx context.Context, id string) (model.Figure, error) {
	f, err := scanFigure(s.db.QueryRowContext(ctx, figureSelect+" WHERE id=? LIMIT 1", id))
	return f, translate(err)
}

// UpdateByID merges patch in one UPDATE. Extension properties are written
// key by key with JSON_SET so the other keys are kept.
func (s *FigureStore) UpdateByID(ctx context.Context, id string, patch model.FigurePatch) error {
	set, args, err := patchSet(patch)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, "UPDATE figures SET "+set+" WHERE id=?", append(args, id)...)
	if err != nil {
		return translate(err)
	}
	return affected(res)
}

func (s *FigureStore) ReplaceByID(ctx context.Context, id string, f model.Figure) error {
	extra, err := encodeExtra(f.Extra)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		"UPDATE figures SET user_id=?,symbol=?,shape=?,color=?,measurement=?,extra=? WHERE id=?",
		f.UserID, f.Symbol, f.Shape, f.Color, f.Measurement, extra, id)
	if err != nil {
		return translate(err)
	}
	return affected(res)
}

func (s *FigureStore) DeleteByID(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM figures WHERE id=?", id)
	if err != nil {
		return err
	}
	return affected(res)
}

// patchSet builds the SET list for patch. An empty patch becomes "id=id",
// which only reports whether the row exists.
func patchSet(patch model.FigurePatch) (string, []any, error) {
	var (
		cols []string
		args []any
	)
	add := func(col string, v any) {
		cols = append(cols, col+"=?")
		args = append(args, v)
	}
	if patch.Symbol != nil {
		add("symbol", *patch.Symbol)
	}
	if patch.Shape != nil {
		add("shape", *patch.Shape)
	}
	if patch.Color != nil {
		add("color", *patch.Color)
	}
	if patch.Measurement != nil {
		add("measurement", *patch.Measurement)
	}

	extra := model.SanitizeExtra(patch.Extra)
	if len(extra) > 0 {
		keys := make([]string, 0, len(extra))
		for k := range extra {
			if err := model.CheckExtraKey(k); err != nil {
				return "", nil, fmt.Errorf("%w: figures.%s", repository.ErrUnknownField, k)
			}
			keys = append(keys, k)
		}
		sort.Strings(keys)
		pairs := make([]string, 0, len(keys))
		for _, k := range keys {
			b, err := json.Marshal(extra[k])
			if err != nil {
				return "", nil, fmt.Errorf("figures.extra.%s: %w", k, err)
			}
			pairs = append(pairs, "?,CAST(? AS JSON)")
			args = append(args, `$."`+k+`"`, string(b))
		}
		cols = append(cols, "extra=JSON_SET(COALESCE(extra,JSON_OBJECT()),"+strings.Join(pairs, ",")+")")
	}

	if len(cols) == 0 {
		return "id=id", nil, nil
	}
	return strings.Join(cols, ","), args, nil
}

func scanFigure(row scanner) (model.Figure, error) {
	var (
		f     model.Figure
		extra []byte
	)
	if err := row.Scan(&f.ID, &f.UserID, &f.Symbol, &f.Shape, &f.Color, &f.Measurement, &extra); err != nil {
		return model.Figure{}, err
	}
	if len(extra) > 0 {
		if err := json.Unmarshal(extra, &f.Extra); err != nil {
			return model.Figure{}, fmt.Errorf("figures.extra: %w", err)
		}
		f.Extra = model.SanitizeExtra(f.Extra)
	}
	return f, nil
}

func encodeExtra(extra map[string]any) (any, error) {
	extra = model.SanitizeExtra(extra)
	if extra == nil {
		return nil, nil
	}
	b, err := json.Marshal(extra)
	if err != nil {
		return nil, fmt.Errorf("figures.extra: %w", err)
	}
	return string(b), nil
}
