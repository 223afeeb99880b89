package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/iliyamo/figure-api/internal/apperr"
	"github.com/iliyamo/figure-api/internal/model"
)

var (
	emailPattern    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	passwordCharset = regexp.MustCompile(`^[A-Za-z\d@$!%*?&]{8,}$`)
)

const passwordSpecials = "@$!%*?&"

// passwordComplexity requires an upper case letter, a lower case letter, a
// digit and one of passwordSpecials.
func passwordComplexity(value interface{}) error {
	s, _ := value.(string)
	var upper, lower, digit, special bool
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		}
	}
	if !(upper && lower && digit && special) {
		return errors.New("must contain an upper case letter, a lower case letter, a digit and one of " + passwordSpecials)
	}
	return nil
}

func validationError(err error) error {
	if err == nil {
		return nil
	}
	return apperr.Validation(err.Error())
}

// signUpPayload is the sign-up body. A role sent by the client is accepted
// and ignored.
type signUpPayload struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      string `json:"role"`
}

func (p *signUpPayload) normalize() {
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
	p.Username = strings.TrimSpace(p.Username)
	p.FirstName = strings.TrimSpace(p.FirstName)
	p.LastName = strings.TrimSpace(p.LastName)
}

func (p signUpPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Email, validation.Required, validation.Length(5, 255), is.Email, validation.Match(emailPattern)),
		validation.Field(&p.Password, validation.Required, validation.Match(passwordCharset), validation.By(passwordComplexity)),
		validation.Field(&p.Username, validation.Length(2, 50)),
		validation.Field(&p.FirstName, validation.Length(2, 50)),
		validation.Field(&p.LastName, validation.Length(2, 50)),
	)
}

type loginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (p loginPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Email, validation.Required, is.Email),
		validation.Field(&p.Password, validation.Required, validation.Length(8, 0)),
	)
}

type refreshPayload struct {
	RefreshToken string `json:"refreshToken"`
}

// figurePayload is a figure body split into its typed fields and extension
// properties. Nil fields were absent from the body.
type figurePayload struct {
	Symbol      *string
	Shape       *string
	Color       *string
	Measurement *float64
	Extra       map[string]any
}

// parseFigure reads a raw JSON object. id, userId and user are server owned
// and silently dropped. Extension names must pass model.CheckExtraKey.
func parseFigure(raw map[string]json.RawMessage) (figurePayload, error) {
	var p figurePayload
	for k, v := range raw {
		var err error
		switch k {
		case "symbol":
			err = json.Unmarshal(v, &p.Symbol)
		case "shape":
			err = json.Unmarshal(v, &p.Shape)
		case "color":
			err = json.Unmarshal(v, &p.Color)
		case "measurement":
			err = json.Unmarshal(v, &p.Measurement)
		default:
			if model.IsReservedFigureKey(k) {
				continue
			}
			if err := model.CheckExtraKey(k); err != nil {
				return figurePayload{}, apperr.Validation(err.Error())
			}
			var val any
			if err = json.Unmarshal(v, &val); err == nil {
				if p.Extra == nil {
					p.Extra = map[string]any{}
				}
				p.Extra[k] = val
			}
		}
		if err != nil {
			return figurePayload{}, apperr.Validation(fmt.Sprintf("%s: has the wrong type", k))
		}
	}
	return p, nil
}

func notBlank(value interface{}) error {
	if s, ok := value.(*string); ok && s != nil && strings.TrimSpace(*s) == "" {
		return errors.New("cannot be blank")
	}
	return nil
}

// Validate checks a full figure, or only the present fields when partial.
func (p figurePayload) Validate(partial bool) error {
	str := []validation.Rule{validation.By(notBlank)}
	num := []validation.Rule{}
	if !partial {
		str = append([]validation.Rule{validation.NotNil}, str...)
		num = append(num, validation.NotNil)
	}
	return validation.ValidateStruct(&p,
		validation.Field(&p.Symbol, str...),
		validation.Field(&p.Shape, str...),
		validation.Field(&p.Color, str...),
		validation.Field(&p.Measurement, num...),
	)
}

// figure builds a full figure owned by userID.
func (p figurePayload) figure(userID string) model.Figure {
	f := model.Figure{UserID: userID, Extra: p.Extra}
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
	return f
}

func (p figurePayload) patch() model.FigurePatch {
	return model.FigurePatch{
		Symbol:      p.Symbol,
		Shape:       p.Shape,
		Color:       p.Color,
		Measurement: p.Measurement,
		Extra:       p.Extra,
	}
}
