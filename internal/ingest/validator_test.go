package ingest

import (
	"errors"
	"strings"
	"testing"
	"time"

	"feetax/internal/core"
)

func validRow() core.RawRow {
	return core.RawRow{
		"Reg No":       "21CS001",
		"Name":         "Asha Rao",
		"Email":        "asha@example.edu",
		"State":        "Delhi",
		"coursecode":   "BTECH",
		"branchcode":   "CSE",
		"year":         "2",
		"semester":     3.0,
		"date":         "2024-07-15",
		"amount":       "1,20,000",
		"totalPaid":    100000.0,
		"pmode":        "UPI",
		"Unrelated":    "ignored",
		"Other Amount": nil,
	}
}

func TestValidateAcceptsAliasedRow(t *testing.T) {
	rec, err := NewValidator().Validate(validRow(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.RegNo != "21CS001" || rec.CourseCode != "BTECH" || rec.BranchCode != "CSE" {
		t.Fatalf("unexpected identity/codes: %+v", rec)
	}
	if rec.Year != 2 || rec.Semester != 3 {
		t.Fatalf("unexpected year/semester: %d/%d", rec.Year, rec.Semester)
	}
	if rec.Amount != 120000 || rec.OtherAmount != 0 || rec.TotalPaid != 100000 {
		t.Fatalf("unexpected amounts: %+v", rec)
	}
	if !rec.Date.Equal(time.Date(2024, 7, 15, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected date %v", rec.Date)
	}
	if rec.PaymentMode != "UPI" {
		t.Fatalf("unexpected pmode %q", rec.PaymentMode)
	}
	if rec.ID != "" || rec.CalculatedTax != 0 {
		t.Fatalf("validator must not derive fields: %+v", rec)
	}
}

func TestValidateNameAndEmailIdentity(t *testing.T) {
	row := validRow()
	delete(row, "Reg No")
	if _, err := NewValidator().Validate(row, 0); err != nil {
		t.Fatalf("name+email should identify the row: %v", err)
	}
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(core.RawRow)
		field  Field
		substr string
	}{
		{"no identity", func(r core.RawRow) { delete(r, "Reg No"); delete(r, "Email") }, FieldRegNo, "registration number"},
		{"bad email", func(r core.RawRow) { r["Email"] = "not-an-email" }, FieldEmail, "email"},
		{"missing course", func(r core.RawRow) { delete(r, "coursecode") }, FieldCourseCode, "course code"},
		{"missing branch", func(r core.RawRow) { r["branchcode"] = "  " }, FieldBranchCode, "branch code"},
		{"missing date", func(r core.RawRow) { delete(r, "date") }, FieldDate, "date is required"},
		{"bad date", func(r core.RawRow) { r["date"] = "someday" }, FieldDate, "invalid date"},
		{"missing amount", func(r core.RawRow) { delete(r, "amount") }, FieldAmount, "required"},
		{"text amount", func(r core.RawRow) { r["amount"] = "lots" }, FieldAmount, "invalid number"},
		{"negative amount", func(r core.RawRow) { r["amount"] = -5.0 }, FieldAmount, "negative"},
		{"negative other", func(r core.RawRow) { r["Other Amount"] = "-1" }, FieldOtherAmount, "negative"},
		{"negative paid", func(r core.RawRow) { r["totalPaid"] = -1 }, FieldTotalPaid, "negative"},
		{"fractional year", func(r core.RawRow) { r["year"] = 1.5 }, FieldYear, "whole number"},
		{"bool semester", func(r core.RawRow) { r["semester"] = true }, FieldSemester, "invalid number"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			row := validRow()
			tc.mutate(row)
			_, err := NewValidator().Validate(row, 3)
			if err == nil {
				t.Fatalf("expected error")
			}
			var ve core.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %T", err)
			}
			if ve.Row != 5 {
				t.Fatalf("row = %d, want 5", ve.Row)
			}
			if ve.Field != string(tc.field) {
				t.Fatalf("field = %q, want %q", ve.Field, tc.field)
			}
			if !strings.Contains(strings.ToLower(ve.Message), tc.substr) {
				t.Fatalf("message %q missing %q", ve.Message, tc.substr)
			}
		})
	}
}

func TestValidateFirstFailureWins(t *testing.T) {
	row := validRow()
	delete(row, "coursecode")
	row["amount"] = -1.0
	_, err := NewValidator().Validate(row, 0)
	ve, ok := AsValidationError(err)
	if !ok || ve.Field != string(FieldCourseCode) {
		t.Fatalf("expected course code error first, got %v", err)
	}
}

func TestParseDateFormats(t *testing.T) {
	want := core.NewDate(2024, 3, 5)
	for _, in := range []any{
		"2024-03-05",
		"05/03/2024",
		"5/3/2024",
		"05-03-2024",
		"2024/03/05",
		"5 Mar 2024",
		"45356",
		45356.0,
		45356,
		time.Date(2024, 3, 5, 13, 0, 0, 0, time.UTC),
	} {
		got, err := parseDate(in)
		if err != nil {
			t.Fatalf("%v: %v", in, err)
		}
		if !got.Equal(want.Time) {
			t.Fatalf("%v parsed as %v", in, got)
		}
	}
	for _, in := range []any{"", "13/13/2024", 0.0, -4, "99999999", false} {
		if _, err := parseDate(in); err == nil {
			t.Fatalf("%v: expected error", in)
		}
	}
}
