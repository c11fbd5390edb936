package analytics

import (
	"math"
	"testing"

	"feetax/internal/core"
)

func rec(course, branch, state, mode string, gross float64, date core.Date) core.StudentRecord {
	return core.StudentRecord{
		CourseCode:  course,
		BranchCode:  branch,
		State:       state,
		PaymentMode: mode,
		Amount:      gross,
		Date:        date,
	}.WithTax(core.DefaultSlabs())
}

func TestAggregateEmpty(t *testing.T) {
	for _, b := range []core.TimeBucketing{core.BucketProportional, core.BucketCalendar} {
		s := Aggregate(nil, Options{Bucketing: b})
		if s.TotalAmount != 0 || s.TotalTax != 0 || s.TotalStudents != 0 || s.AvgTax != 0 {
			t.Fatalf("%s: non-zero totals: %+v", b, s)
		}
		if math.IsNaN(s.AvgTax) {
			t.Fatalf("%s: avg tax is NaN", b)
		}
		if len(s.ByCourse) != 0 || len(s.ByBranch) != 0 || len(s.ByState) != 0 || len(s.ByPaymentMode) != 0 || len(s.ByMonth) != 0 {
			t.Fatalf("%s: expected empty breakdowns: %+v", b, s)
		}
		if s.ByCourse == nil || s.ByMonth == nil {
			t.Fatalf("%s: breakdowns should be empty, not nil", b)
		}
	}
}

func TestAggregateSingleCategory(t *testing.T) {
	d := core.NewDate(2024, 1, 10)
	records := []core.StudentRecord{
		rec("BTECH", "CSE", "Delhi", "UPI", 1000, d),
		rec("BTECH", "CSE", "Delhi", "UPI", 2000, d),
		rec("BTECH", "CSE", "Delhi", "UPI", 3000, d),
	}
	s := Aggregate(records, DefaultOptions())
	if len(s.ByCourse) != 1 || s.ByCourse[0].Fees != 6000 || s.ByCourse[0].Students != 3 {
		t.Fatalf("unexpected course breakdown: %+v", s.ByCourse)
	}
	if s.AvgTax != s.TotalTax/3 {
		t.Fatalf("avg tax = %v, want %v", s.AvgTax, s.TotalTax/3)
	}
	if s.TotalAmount != 6000 || s.TotalStudents != 3 {
		t.Fatalf("unexpected totals: %+v", s)
	}
}

func TestAggregateBreakdownsCoverEveryKeyOnce(t *testing.T) {
	d := core.NewDate(2024, 2, 1)
	records := []core.StudentRecord{
		rec("BTECH", "CSE", "Delhi", "UPI", 900000, d),
		rec("MBA", "FIN", "Goa", "Cash", 450000, d),
		rec("BTECH", "ECE", "Delhi", "Card", 100000, d),
		rec("BBA", "FIN", "", "UPI", 50000, d),
	}
	s := Aggregate(records, DefaultOptions())

	courseSum, count := 0.0, 0
	for _, c := range s.ByCourse {
		courseSum += c.Fees
		count += c.Students
	}
	if len(s.ByCourse) != 3 || courseSum != s.TotalAmount || count != 4 {
		t.Fatalf("course breakdown mismatch: %+v", s.ByCourse)
	}
	if len(s.ByBranch) != 3 {
		t.Fatalf("branch breakdown: %+v", s.ByBranch)
	}
	if len(s.ByState) != 3 || s.ByState[0].State != "" {
		t.Fatalf("state breakdown should keep the empty key: %+v", s.ByState)
	}
	stateTax := 0.0
	for _, st := range s.ByState {
		stateTax += st.Tax
	}
	if math.Abs(stateTax-s.TotalTax) > 1e-9 {
		t.Fatalf("state tax %v != total %v", stateTax, s.TotalTax)
	}
	modes := map[string]int{}
	for _, m := range s.ByPaymentMode {
		modes[m.Mode] += m.Count
	}
	if modes["UPI"] != 2 || modes["Cash"] != 1 || modes["Card"] != 1 {
		t.Fatalf("payment modes: %+v", s.ByPaymentMode)
	}
	if s.ByCourse[0].Course != "BBA" || s.ByCourse[2].Course != "MBA" {
		t.Fatalf("course keys should be sorted: %+v", s.ByCourse)
	}
}

func TestAggregateProportionalMonths(t *testing.T) {
	records := []core.StudentRecord{rec("BTECH", "CSE", "Delhi", "UPI", 1_000_000, core.NewDate(2024, 9, 1))}
	s := Aggregate(records, DefaultOptions())
	if len(s.ByMonth) != 6 {
		t.Fatalf("expected 6 buckets, got %d", len(s.ByMonth))
	}
	shares := []float64{0.10, 0.15, 0.20, 0.25, 0.20, 0.10}
	fees := 0.0
	for i, m := range s.ByMonth {
		if m.Fees != s.TotalAmount*shares[i] || m.Tax != s.TotalTax*shares[i] {
			t.Fatalf("bucket %s = %+v", m.Month, m)
		}
		fees += m.Fees
	}
	if math.Abs(fees-s.TotalAmount) > 1e-6 {
		t.Fatalf("buckets do not add up: %v vs %v", fees, s.TotalAmount)
	}
	if s.ByMonth[0].Month != "Jan" || s.ByMonth[5].Month != "Jun" {
		t.Fatalf("unexpected labels: %+v", s.ByMonth)
	}
}

func TestAggregateCalendarMonths(t *testing.T) {
	records := []core.StudentRecord{
		rec("BTECH", "CSE", "Delhi", "UPI", 1000, core.NewDate(2024, 3, 2)),
		rec("BTECH", "CSE", "Delhi", "UPI", 2000, core.NewDate(2024, 1, 5)),
		rec("BTECH", "CSE", "Delhi", "UPI", 4000, core.NewDate(2024, 3, 30)),
	}
	s := Aggregate(records, Options{Bucketing: core.BucketCalendar})
	if s.Bucketing != core.BucketCalendar {
		t.Fatalf("bucketing = %s", s.Bucketing)
	}
	if len(s.ByMonth) != 2 {
		t.Fatalf("expected 2 buckets, got %+v", s.ByMonth)
	}
	if s.ByMonth[0].Month != "2024-01" || s.ByMonth[0].Fees != 2000 {
		t.Fatalf("first bucket %+v", s.ByMonth[0])
	}
	if s.ByMonth[1].Month != "2024-03" || s.ByMonth[1].Fees != 5000 {
		t.Fatalf("second bucket %+v", s.ByMonth[1])
	}
}

func TestAggregateInvalidBucketingFallsBack(t *testing.T) {
	s := Aggregate([]core.StudentRecord{rec("A", "B", "C", "D", 10, core.NewDate(2024, 1, 1))}, Options{Bucketing: "weekly"})
	if s.Bucketing != core.BucketProportional || len(s.ByMonth) != 6 {
		t.Fatalf("unexpected fallback: %+v", s)
	}
}

func TestPaymentModeSumsAmountNotGross(t *testing.T) {
	r := core.StudentRecord{PaymentMode: "UPI", Amount: 1000, OtherAmount: 250}.WithTax(core.DefaultSlabs())
	s := Aggregate([]core.StudentRecord{r, r}, DefaultOptions())
	if len(s.ByPaymentMode) != 1 {
		t.Fatalf("payment modes: %+v", s.ByPaymentMode)
	}
	if got := s.ByPaymentMode[0]; got.Amount != 2000 || got.Count != 2 {
		t.Fatalf("UPI = %+v, want amount 2000 count 2", got)
	}
	if s.TotalAmount != 2500 {
		t.Fatalf("total amount = %v, want gross 2500", s.TotalAmount)
	}
}
