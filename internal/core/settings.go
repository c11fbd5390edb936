package core

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var ErrInvalidSettings = errors.New("invalid settings")

// Settings are the user-editable application preferences.
// DefaultTaxRate is informational: tax always comes from the slab table.
type Settings struct {
	CurrencySymbol string  `json:"currencySymbol" validate:"required,max=8"`
	DefaultTaxRate float64 `json:"defaultTaxRate" validate:"gte=0,lte=1"`
	InstituteName  string  `json:"instituteName" validate:"max=120"`
	AcademicYear   string  `json:"academicYear" validate:"max=32"`
	HomeState      string  `json:"homeState" validate:"max=120"`
}

// SettingsPatch carries a partial settings update; nil fields are left as is.
type SettingsPatch struct {
	CurrencySymbol *string  `json:"currencySymbol,omitempty"`
	DefaultTaxRate *float64 `json:"defaultTaxRate,omitempty"`
	InstituteName  *string  `json:"instituteName,omitempty"`
	AcademicYear   *string  `json:"academicYear,omitempty"`
	HomeState      *string  `json:"homeState,omitempty"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func DefaultSettings() Settings {
	return Settings{
		CurrencySymbol: "₹",
		DefaultTaxRate: 0.1,
		InstituteName:  "Student Institute",
		AcademicYear:   "2024-25",
		HomeState:      "Delhi",
	}
}

func (s Settings) Validate() error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
		return fmt.Errorf("%w: %s", ErrInvalidSettings, strings.Join(msgs, "; "))
	}
	return fmt.Errorf("%w: %v", ErrInvalidSettings, err)
}

// Apply merges p into s and returns the result. s is not modified.
func (s Settings) Apply(p SettingsPatch) Settings {
	if p.CurrencySymbol != nil {
		s.CurrencySymbol = strings.TrimSpace(*p.CurrencySymbol)
	}
	if p.DefaultTaxRate != nil {
		s.DefaultTaxRate = *p.DefaultTaxRate
	}
	if p.InstituteName != nil {
		s.InstituteName = strings.TrimSpace(*p.InstituteName)
	}
	if p.AcademicYear != nil {
		s.AcademicYear = strings.TrimSpace(*p.AcademicYear)
	}
	if p.HomeState != nil {
		s.HomeState = strings.TrimSpace(*p.HomeState)
	}
	return s
}

// IsEmail reports whether s is a syntactically valid email address.
func IsEmail(s string) bool {
	return validate.Var(s, "required,email") == nil
}
