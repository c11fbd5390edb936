package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

type (
	// RawRow is one spreadsheet row keyed by its column label.
	RawRow map[string]any

	Date struct {
		time.Time
	}

	// StudentRecord is a validated fee-payment row with its derived tax figures.
	StudentRecord struct {
		ID          string  `json:"id"`
		RegNo       string  `json:"regNo"`
		Name        string  `json:"name"`
		Email       string  `json:"email"`
		State       string  `json:"state"`
		CourseCode  string  `json:"courseCode"`
		BranchCode  string  `json:"branchCode"`
		Year        int     `json:"year"`
		Semester    int     `json:"semester"`
		Date        Date    `json:"date"`
		Amount      float64 `json:"amount"`
		OtherAmount float64 `json:"otherAmount"`
		TotalPaid   float64 `json:"totalPaid"`
		PaymentMode string  `json:"paymentMode"`

		GrossAmount   float64 `json:"grossAmount"`
		CalculatedTax float64 `json:"calculatedTax"`
		NetAmount     float64 `json:"netAmount"`
		Processed     bool    `json:"processed"`
	}

	// ValidationError describes why a single row was rejected.
	// Row is the spreadsheet row number as a user sees it (header is row 1).
	ValidationError struct {
		Row     int    `json:"row"`
		Field   string `json:"field,omitempty"`
		Message string `json:"message"`
	}
)

var (
	ErrMissingIdentity = errors.New("registration number or name and email required")
	ErrNegativeAmount  = errors.New("amount must not be negative")
	ErrInvalidNumber   = errors.New("invalid number")
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidEmail    = errors.New("invalid email format")
)

func (e ValidationError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Row, e.Message)
}

// DisplayRow converts a zero-based data row index into the row number shown
// by spreadsheet tools, accounting for the header row.
func DisplayRow(index int) int {
	return index + 2
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	return nil
}

// YearMonth returns the calendar bucket key, e.g. "2025-03".
func (d Date) YearMonth() string {
	return d.Time.Format("2006-01")
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Time.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	s = strings.TrimSpace(s)
	if s == "" {
		d.Time = time.Time{}
		return nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	d.Time = t
	return nil
}

// Identity returns the value that identifies the student on reports:
// the registration number when present, otherwise the name.
func (r StudentRecord) Identity() string {
	if strings.TrimSpace(r.RegNo) != "" {
		return r.RegNo
	}
	return r.Name
}

// WithTax returns a copy of r with the derived gross, tax and net fields
// recomputed against slabs.
func (r StudentRecord) WithTax(slabs []Slab) StudentRecord {
	r.GrossAmount = r.Amount + r.OtherAmount
	r.CalculatedTax = ComputeTax(r.GrossAmount, slabs)
	r.NetAmount = r.GrossAmount - r.CalculatedTax
	r.Processed = true
	return r
}
