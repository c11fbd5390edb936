// Package analytics derives summary statistics from student records.
package analytics

import (
	"sort"

	"feetax/internal/core"
)

// Options controls how a Summary is built.
type Options struct {
	Bucketing core.TimeBucketing
}

func DefaultOptions() Options {
	return Options{Bucketing: core.BucketProportional}
}

// proportionalMonths is the fixed distribution used when records are not
// bucketed by their dates.
var proportionalMonths = []struct {
	month string
	share float64
}{
	{"Jan", 0.10},
	{"Feb", 0.15},
	{"Mar", 0.20},
	{"Apr", 0.25},
	{"May", 0.20},
	{"Jun", 0.10},
}

type group struct {
	amount   float64
	tax      float64
	students int
}

type grouper struct {
	order []string
	m     map[string]*group
}

func newGrouper() *grouper {
	return &grouper{m: map[string]*group{}}
}

func (g *grouper) add(key string, amount, tax float64) {
	cur, ok := g.m[key]
	if !ok {
		cur = &group{}
		g.m[key] = cur
		g.order = append(g.order, key)
	}
	cur.amount += amount
	cur.tax += tax
	cur.students++
}

// keys returns group keys in ascending order.
func (g *grouper) keys() []string {
	out := append([]string(nil), g.order...)
	sort.Strings(out)
	return out
}

// Aggregate computes totals and breakdowns for records. It is a pure
// function of its input; an empty slice yields zero totals and empty
// breakdowns.
func Aggregate(records []core.StudentRecord, opts Options) core.Summary {
	if !opts.Bucketing.IsValid() {
		opts.Bucketing = core.BucketProportional
	}
	sum := core.Summary{
		ByCourse:      []core.CourseBreakdown{},
		ByBranch:      []core.BranchBreakdown{},
		ByState:       []core.StateBreakdown{},
		ByPaymentMode: []core.PaymentModeBreakdown{},
		ByMonth:       []core.MonthBreakdown{},
		Bucketing:     opts.Bucketing,
	}

	courses, branches, states, modes, months := newGrouper(), newGrouper(), newGrouper(), newGrouper(), newGrouper()
	for _, r := range records {
		sum.TotalAmount += r.GrossAmount
		sum.TotalTax += r.CalculatedTax
		sum.TotalNet += r.NetAmount
		sum.TotalPaid += r.TotalPaid

		courses.add(r.CourseCode, r.GrossAmount, r.CalculatedTax)
		branches.add(r.BranchCode, r.GrossAmount, r.CalculatedTax)
		states.add(r.State, r.GrossAmount, r.CalculatedTax)
		modes.add(r.PaymentMode, r.Amount, r.CalculatedTax)
		months.add(r.Date.YearMonth(), r.GrossAmount, r.CalculatedTax)
	}
	sum.TotalStudents = len(records)
	if sum.TotalStudents > 0 {
		sum.AvgTax = sum.TotalTax / float64(sum.TotalStudents)
	}
	if len(records) == 0 {
		return sum
	}

	for _, k := range courses.keys() {
		g := courses.m[k]
		sum.ByCourse = append(sum.ByCourse, core.CourseBreakdown{Course: k, Fees: g.amount, Students: g.students})
	}
	for _, k := range branches.keys() {
		g := branches.m[k]
		sum.ByBranch = append(sum.ByBranch, core.BranchBreakdown{Branch: k, Fees: g.amount, Students: g.students})
	}
	for _, k := range states.keys() {
		g := states.m[k]
		sum.ByState = append(sum.ByState, core.StateBreakdown{State: k, Income: g.amount, Tax: g.tax, Students: g.students})
	}
	for _, k := range modes.keys() {
		g := modes.m[k]
		sum.ByPaymentMode = append(sum.ByPaymentMode, core.PaymentModeBreakdown{Mode: k, Amount: g.amount, Count: g.students})
	}

	switch opts.Bucketing {
	case core.BucketCalendar:
		for _, k := range months.keys() {
			g := months.m[k]
			sum.ByMonth = append(sum.ByMonth, core.MonthBreakdown{Month: k, Fees: g.amount, Tax: g.tax})
		}
	default:
		for _, pm := range proportionalMonths {
			sum.ByMonth = append(sum.ByMonth, core.MonthBreakdown{
				Month: pm.month,
				Fees:  sum.TotalAmount * pm.share,
				Tax:   sum.TotalTax * pm.share,
			})
		}
	}
	return sum
}
