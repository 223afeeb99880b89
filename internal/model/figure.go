package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Figure is a tenant-owned record. Besides the typed fields it carries any
// number of extension properties in Extra; those are flattened into the JSON
// object, inlined in BSON documents and stored as a JSON column in SQL.
type Figure struct {
	ID          string         `json:"id" bson:"_id"`
	Symbol      string         `json:"symbol" bson:"symbol"`
	Shape       string         `json:"shape" bson:"shape"`
	Color       string         `json:"color" bson:"color"`
	Measurement float64        `json:"measurement" bson:"measurement"`
	UserID      string         `json:"userId" bson:"userId"`
	Extra       map[string]any `json:"-" bson:",inline"`

	// User is set by the "user" inclusion resolver.
	User *User `json:"user,omitempty" bson:"-"`
}

// reservedFigureKeys are property names that can never be carried in Extra.
var reservedFigureKeys = map[string]bool{
	"id":          true,
	"_id":         true,
	"symbol":      true,
	"shape":       true,
	"color":       true,
	"measurement": true,
	"userId":      true,
	"user":        true,
}

// IsReservedFigureKey reports whether key names a typed or server owned field.
func IsReservedFigureKey(key string) bool { return reservedFigureKeys[key] }

// ErrExtraKey is returned by CheckExtraKey.
var ErrExtraKey = errors.New("invalid property name")

// CheckExtraKey rejects extension property names that a datasource would not
// store verbatim: MongoDB treats dots as paths and reserves a leading '$',
// MySQL JSON paths quote the name.
func CheckExtraKey(key string) error {
	switch {
	case key == "":
		return fmt.Errorf("%w: empty", ErrExtraKey)
	case strings.HasPrefix(key, "$"):
		return fmt.Errorf("%w: %q starts with '$'", ErrExtraKey, key)
	case strings.ContainsAny(key, ".\"\\\x00"):
		return fmt.Errorf("%w: %q contains a reserved character", ErrExtraKey, key)
	}
	return nil
}

// SanitizeExtra returns a copy of extra without reserved keys. A nil or
// empty input yields nil.
func SanitizeExtra(extra map[string]any) map[string]any {
	if len(extra) == 0 {
		return nil
	}
	out := make(map[string]any, len(extra))
	for k, v := range extra {
		if reservedFigureKeys[k] {
			continue
		}
		out[k] = v
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// MarshalJSON flattens Extra next to the typed fields.
func (f Figure) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(f.Extra)+7)
	for k, v := range f.Extra {
		out[k] = v
	}
	out["id"] = f.ID
	out["symbol"] = f.Symbol
	out["shape"] = f.Shape
	out["color"] = f.Color
	out["measurement"] = f.Measurement
	out["userId"] = f.UserID
	if f.User != nil {
		out["user"] = f.User
	} else {
		delete(out, "user")
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads the typed fields and keeps every other property in
// Extra. A nested "user" object is ignored.
func (f *Figure) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*f = Figure{}
	for k, v := range raw {
		var err error
		switch k {
		case "id":
			err = json.Unmarshal(v, &f.ID)
		case "symbol":
			err = json.Unmarshal(v, &f.Symbol)
		case "shape":
			err = json.Unmarshal(v, &f.Shape)
		case "color":
			err = json.Unmarshal(v, &f.Color)
		case "measurement":
			err = json.Unmarshal(v, &f.Measurement)
		case "userId":
			err = json.Unmarshal(v, &f.UserID)
		case "user", "_id":
		default:
			var val any
			err = json.Unmarshal(v, &val)
			if err == nil {
				if f.Extra == nil {
					f.Extra = map[string]any{}
				}
				f.Extra[k] = val
			}
		}
		if err != nil {
			return fmt.Errorf("figure.%s: %w", k, err)
		}
	}
	return nil
}

// Clone returns a copy whose Extra map is not shared with f.
func (f Figure) Clone() Figure {
	if f.Extra != nil {
		extra := make(map[string]any, len(f.Extra))
		for k, v := range f.Extra {
			extra[k] = v
		}
		f.Extra = extra
	}
	return f
}

// FigurePatch is a partial update. Nil fields are left untouched; Extra
// entries are merged key by key.
type FigurePatch struct {
	Symbol      *string
	Shape       *string
	Color       *string
	Measurement *float64
	Extra       map[string]any
}

// IsEmpty reports whether applying p would change nothing.
func (p FigurePatch) IsEmpty() bool {
	return p.Symbol == nil && p.Shape == nil && p.Color == nil && p.Measurement == nil && len(p.Extra) == 0
}

// Apply merges p into f in place. Ownership and id are not touched.
func (p FigurePatch) Apply(f *Figure) {
	if p.Symbol != nil {
		f.Symbol = *p.Symbol
	}
	if p.Shape != nil {
		f.Shape = *p.Shape
	}
	if p.Color != nil {
		f.Color = *p.Color
	}
	if p.Measurement != nil {
		f.Measurement = *p.Measurement
	}
	extra := SanitizeExtra(p.Extra)
	if len(extra) == 0 {
		return
	}
	if f.Extra == nil {
		f.Extra = make(map[string]any, len(extra))
	}
	for k, v := range extra {
		f.Extra[k] = v
	}
}

// Fields returns the patch as a flat property map using API field names.
func (p FigurePatch) Fields() map[string]any {
	out := map[string]any{}
	for k, v := range SanitizeExtra(p.Extra) {
		out[k] = v
	}
	if p.Symbol != nil {
		out["symbol"] = *p.Symbol
	}
	if p.Shape != nil {
		out["shape"] = *p.Shape
	}
	if p.Color != nil {
		out["color"] = *p.Color
	}
	if p.Measurement != nil {
		out["measurement"] = *p.Measurement
	}
	return out
}
