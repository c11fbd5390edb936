package ingest

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"feetax/internal/core"
)

// Validator checks one raw row at a time against a Schema.
type Validator struct {
	Schema Schema
}

func NewValidator() *Validator {
	return &Validator{Schema: DefaultSchema()}
}

// rowError builds the single error reported for a rejected row.
func rowError(index int, f Field, msg string) error {
	return core.ValidationError{Row: core.DisplayRow(index), Field: string(f), Message: msg}
}

// Validate normalizes row (the index-th data row) into a StudentRecord.
// Rules run in a fixed order and the first failure is returned as a
// core.ValidationError; a rejected row never yields a partial record.
// Derived tax fields and the ID are left for the pipeline to fill in.
func (v *Validator) Validate(row core.RawRow, index int) (core.StudentRecord, error) {
	s := v.Schema
	rec := core.StudentRecord{
		RegNo:       s.LookupString(row, FieldRegNo),
		Name:        s.LookupString(row, FieldName),
		Email:       s.LookupString(row, FieldEmail),
		State:       s.LookupString(row, FieldState),
		CourseCode:  s.LookupString(row, FieldCourseCode),
		BranchCode:  s.LookupString(row, FieldBranchCode),
		PaymentMode: s.LookupString(row, FieldPaymentMode),
	}

	if rec.RegNo == "" && (rec.Name == "" || rec.Email == "") {
		return core.StudentRecord{}, rowError(index, FieldRegNo, core.ErrMissingIdentity.Error())
	}
	if rec.Email != "" && !core.IsEmail(rec.Email) {
		return core.StudentRecord{}, rowError(index, FieldEmail, core.ErrInvalidEmail.Error())
	}
	if rec.CourseCode == "" {
		return core.StudentRecord{}, rowError(index, FieldCourseCode, "course code is required")
	}
	if rec.BranchCode == "" {
		return core.StudentRecord{}, rowError(index, FieldBranchCode, "branch code is required")
	}

	raw, ok := s.Lookup(row, FieldDate)
	if !ok {
		return core.StudentRecord{}, rowError(index, FieldDate, "date is required")
	}
	date, err := parseDate(raw)
	if err != nil {
		return core.StudentRecord{}, rowError(index, FieldDate, err.Error())
	}
	rec.Date = date

	if rec.Amount, err = v.money(row, FieldAmount, true); err != nil {
		return core.StudentRecord{}, rowError(index, FieldAmount, err.Error())
	}
	if rec.OtherAmount, err = v.money(row, FieldOtherAmount, false); err != nil {
		return core.StudentRecord{}, rowError(index, FieldOtherAmount, err.Error())
	}
	if rec.TotalPaid, err = v.money(row, FieldTotalPaid, false); err != nil {
		return core.StudentRecord{}, rowError(index, FieldTotalPaid, err.Error())
	}
	if rec.Year, err = v.count(row, FieldYear); err != nil {
		return core.StudentRecord{}, rowError(index, FieldYear, err.Error())
	}
	if rec.Semester, err = v.count(row, FieldSemester); err != nil {
		return core.StudentRecord{}, rowError(index, FieldSemester, err.Error())
	}
	return rec, nil
}

func (v *Validator) label(f Field) string {
	if spec, ok := v.Schema.Spec(f); ok {
		return spec.Label
	}
	return string(f)
}

// money reads a non-negative monetary field. Optional fields default to 0.
func (v *Validator) money(row core.RawRow, f Field, required bool) (float64, error) {
	raw, ok := v.Schema.Lookup(row, f)
	if !ok {
		if required {
			return 0, fmt.Errorf("%s is required", v.label(f))
		}
		return 0, nil
	}
	n, err := toNumber(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", v.label(f), err)
	}
	if n < 0 {
		return 0, fmt.Errorf("%s: %w", v.label(f), core.ErrNegativeAmount)
	}
	return n, nil
}

// count reads an optional non-negative whole number such as year or semester.
func (v *Validator) count(row core.RawRow, f Field) (int, error) {
	raw, ok := v.Schema.Lookup(row, f)
	if !ok {
		return 0, nil
	}
	n, err := toNumber(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", v.label(f), err)
	}
	if n < 0 || n != math.Trunc(n) || n > math.MaxInt32 {
		return 0, fmt.Errorf("%s must be a non-negative whole number", v.label(f))
	}
	return int(n), nil
}

func toNumber(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return 0, core.ErrInvalidNumber
		}
		return x, nil
	case float32:
		return toNumber(float64(x))
	case int:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case uint:
		return float64(x), nil
	case uint32:
		return float64(x), nil
	case uint64:
		return float64(x), nil
	case string:
		return core.ParseAmount(x)
	case bool:
		return 0, core.ErrInvalidNumber
	default:
		return core.ParseAmount(fmt.Sprint(x))
	}
}

// Spreadsheet serial dates count days from 1899-12-30.
var serialEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

const maxSerialDay = 2958465 // 9999-12-31

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"2-1-2006",
	"2006/01/02",
	"02 Jan 2006",
	"2 Jan 2006",
	"Jan 2, 2006",
}

func parseDate(v any) (core.Date, error) {
	switch x := v.(type) {
	case time.Time:
		if x.IsZero() {
			return core.Date{}, core.ErrInvalidDate
		}
		return core.NewDate(x.Year(), int(x.Month()), x.Day()), nil
	case core.Date:
		if err := x.Validate(); err != nil {
			return core.Date{}, core.ErrInvalidDate
		}
		return x, nil
	case string:
		s := strings.TrimSpace(x)
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return serialDate(f)
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return core.NewDate(t.Year(), int(t.Month()), t.Day()), nil
			}
		}
		return core.Date{}, fmt.Errorf("%w: %q", core.ErrInvalidDate, s)
	default:
		n, err := toNumber(x)
		if err != nil {
			return core.Date{}, core.ErrInvalidDate
		}
		return serialDate(n)
	}
}

func serialDate(f float64) (core.Date, error) {
	if f < 1 || f > maxSerialDay || math.IsNaN(f) {
		return core.Date{}, core.ErrInvalidDate
	}
	t := serialEpoch.AddDate(0, 0, int(f))
	return core.NewDate(t.Year(), int(t.Month()), t.Day()), nil
}

// AsValidationError extracts the row error produced by Validate.
func AsValidationError(err error) (core.ValidationError, bool) {
	var ve core.ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return core.ValidationError{}, false
}
