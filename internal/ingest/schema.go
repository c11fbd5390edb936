// Package ingest turns raw spreadsheet rows into validated student records.
//
// Column names in uploaded sheets vary ("Reg No", "regNo", "coursecode",
// "Course Code", ...). Every logical field therefore owns an ordered alias
// list; Schema.Lookup resolves a field against a row by trying the aliases in
// order and taking the first present, non-blank value.
package ingest

import (
	"fmt"
	"strings"
	"time"

	"feetax/internal/core"
)

// Field names a logical record field.
type Field string

const (
	FieldRegNo       Field = "regNo"
	FieldName        Field = "name"
	FieldEmail       Field = "email"
	FieldState       Field = "state"
	FieldCourseCode  Field = "courseCode"
	FieldBranchCode  Field = "branchCode"
	FieldYear        Field = "year"
	FieldSemester    Field = "semester"
	FieldDate        Field = "date"
	FieldAmount      Field = "amount"
	FieldOtherAmount Field = "otherAmount"
	FieldTotalPaid   Field = "totalPaid"
	FieldPaymentMode Field = "paymentMode"
)

// FieldSpec describes where a field may be found in a raw row.
type FieldSpec struct {
	Field   Field
	Label   string
	Aliases []string
}

// Schema is an ordered alias table.
type Schema []FieldSpec

// DefaultSchema lists the aliases accepted for fee-payment sheets, highest
// priority first. The first alias of each field is also the column label
// used on export.
func DefaultSchema() Schema {
	return Schema{
		{Field: FieldRegNo, Label: "Registration number", Aliases: []string{"Reg No", "RegNo", "reg no", "regNo", "Registration Number", "registrationNumber"}},
		{Field: FieldName, Label: "Name", Aliases: []string{"Name", "name", "Student Name"}},
		{Field: FieldEmail, Label: "Email", Aliases: []string{"Email", "email", "E-mail"}},
		{Field: FieldState, Label: "State", Aliases: []string{"State", "state"}},
		{Field: FieldCourseCode, Label: "Course code", Aliases: []string{"Course Code", "coursecode", "courseCode", "Course", "course"}},
		{Field: FieldBranchCode, Label: "Branch code", Aliases: []string{"Branch Code", "branchcode", "branchCode", "Branch", "branch"}},
		{Field: FieldYear, Label: "Year", Aliases: []string{"Year", "year"}},
		{Field: FieldSemester, Label: "Semester", Aliases: []string{"Semester", "semester", "sem"}},
		{Field: FieldDate, Label: "Date", Aliases: []string{"Date", "date", "Payment Date"}},
		{Field: FieldAmount, Label: "Amount", Aliases: []string{"Amount", "amount", "Bank Income", "bankIncome"}},
		{Field: FieldOtherAmount, Label: "Other amount", Aliases: []string{"Other Amount", "otherAmount", "Other Income", "otherIncome"}},
		{Field: FieldTotalPaid, Label: "Total paid", Aliases: []string{"Total Paid", "totalPaid", "TotalPaid"}},
		{Field: FieldPaymentMode, Label: "Payment mode", Aliases: []string{"Payment Mode", "pmode", "paymentMode", "PMode"}},
	}
}

// Spec returns the FieldSpec for f.
func (s Schema) Spec(f Field) (FieldSpec, bool) {
	for _, fs := range s {
		if fs.Field == f {
			return fs, true
		}
	}
	return FieldSpec{}, false
}

// Lookup resolves f against row. It returns the first value found under one
// of the field's aliases that is non-nil and not blank, and reports whether
// any alias matched.
func (s Schema) Lookup(row core.RawRow, f Field) (any, bool) {
	spec, ok := s.Spec(f)
	if !ok {
		return nil, false
	}
	for _, alias := range spec.Aliases {
		v, present := row[alias]
		if !present || v == nil {
			continue
		}
		if str, isStr := v.(string); isStr && strings.TrimSpace(str) == "" {
			continue
		}
		return v, true
	}
	return nil, false
}

// LookupString resolves f and coerces it to a trimmed string, "" when absent.
func (s Schema) LookupString(row core.RawRow, f Field) string {
	v, ok := s.Lookup(row, f)
	if !ok {
		return ""
	}
	return cellString(v)
}

func cellString(v any) string {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case float64:
		return strings.TrimSpace(fmt.Sprintf("%.15g", x))
	case float32:
		return strings.TrimSpace(fmt.Sprintf("%g", x))
	case time.Time:
		return x.Format("2006-01-02")
	case fmt.Stringer:
		return strings.TrimSpace(x.String())
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}
