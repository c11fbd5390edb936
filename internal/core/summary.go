package core

import "fmt"

// TimeBucketing selects how Summary.ByMonth is built.
type TimeBucketing string

const (
	// BucketProportional spreads the totals over six fixed months
	// (10/15/20/25/20/10 %). It does not look at record dates.
	BucketProportional TimeBucketing = "proportional"
	// BucketCalendar groups records by the year and month of their date.
	BucketCalendar TimeBucketing = "calendar"
)

func (b TimeBucketing) IsValid() bool {
	switch b {
	case BucketProportional, BucketCalendar:
		return true
	default:
		return false
	}
}

// ParseTimeBucketing maps a config value to a TimeBucketing.
func ParseTimeBucketing(s string) (TimeBucketing, error) {
	b := TimeBucketing(s)
	if !b.IsValid() {
		return "", fmt.Errorf("unknown time bucketing %q", s)
	}
	return b, nil
}

type (
	CourseBreakdown struct {
		Course   string  `json:"course"`
		Fees     float64 `json:"fees"`
		Students int     `json:"students"`
	}

	BranchBreakdown struct {
		Branch   string  `json:"branch"`
		Fees     float64 `json:"fees"`
		Students int     `json:"students"`
	}

	StateBreakdown struct {
		State    string  `json:"state"`
		Income   float64 `json:"income"`
		Tax      float64 `json:"tax"`
		Students int     `json:"students"`
	}

	PaymentModeBreakdown struct {
		Mode   string  `json:"pmode"`
		Amount float64 `json:"amount"`
		Count  int     `json:"count"`
	}

	MonthBreakdown struct {
		Month string  `json:"month"`
		Fees  float64 `json:"fees"`
		Tax   float64 `json:"tax"`
	}

	// Summary is derived entirely from a record collection.
	Summary struct {
		TotalAmount   float64 `json:"totalAmount"`
		TotalTax      float64 `json:"totalTax"`
		TotalNet      float64 `json:"totalNet"`
		TotalPaid     float64 `json:"totalPaid"`
		TotalStudents int     `json:"totalStudents"`
		AvgTax        float64 `json:"avgTax"`

		ByCourse      []CourseBreakdown      `json:"feesByCourse"`
		ByBranch      []BranchBreakdown      `json:"feesByBranch"`
		ByState       []StateBreakdown       `json:"incomeByState"`
		ByPaymentMode []PaymentModeBreakdown `json:"feesByPaymentMode"`
		ByMonth       []MonthBreakdown       `json:"feesByMonth"`
		Bucketing     TimeBucketing          `json:"bucketing"`
	}
)
