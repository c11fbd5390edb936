package ingest

import (
	"fmt"
	"testing"

	"feetax/internal/core"
)

func batch(n int) []core.RawRow {
	rows := make([]core.RawRow, n)
	for i := range rows {
		rows[i] = core.RawRow{
			"Reg No":     fmt.Sprintf("R%03d", i+1),
			"coursecode": "BTECH",
			"branchcode": "CSE",
			"date":       "2024-06-01",
			"amount":     float64(500000 + i*1000),
		}
	}
	return rows
}

func TestIngestPartialFailure(t *testing.T) {
	rows := batch(5)
	rows[3]["amount"] = -100.0 // fourth data row, index 3

	res := NewPipeline(core.DefaultSlabs(), nil).Ingest(rows)
	if res.Accepted() != 4 {
		t.Fatalf("accepted = %d, want 4", res.Accepted())
	}
	if res.Rejected() != 1 {
		t.Fatalf("rejected = %d, want 1", res.Rejected())
	}
	if res.Errors[0].Row != 5 {
		t.Fatalf("error row = %d, want 5", res.Errors[0].Row)
	}
	if res.TotalRows != 5 || res.BatchID == "" {
		t.Fatalf("unexpected batch metadata: %+v", res)
	}
	for i, want := range []string{"R001", "R002", "R003", "R005"} {
		if res.Records[i].RegNo != want {
			t.Fatalf("record %d = %s, want %s (order must follow input)", i, res.Records[i].RegNo, want)
		}
	}
}

func TestIngestDerivesTax(t *testing.T) {
	slabs := core.DefaultSlabs()
	res := NewPipeline(slabs, nil).Ingest(batch(3))
	for _, r := range res.Records {
		if r.CalculatedTax != core.ComputeTax(r.GrossAmount, slabs) {
			t.Fatalf("tax mismatch for %s", r.RegNo)
		}
		if r.NetAmount != r.GrossAmount-r.CalculatedTax {
			t.Fatalf("net mismatch for %s", r.RegNo)
		}
	}
}

func TestIngestIDsUniqueAcrossBatches(t *testing.T) {
	p := NewPipeline(core.DefaultSlabs(), &Sequence{})
	seen := map[string]bool{}
	for b := 0; b < 3; b++ {
		for _, r := range p.Ingest(batch(10)).Records {
			if seen[r.ID] {
				t.Fatalf("duplicate id %s", r.ID)
			}
			seen[r.ID] = true
		}
	}
	if len(seen) != 30 {
		t.Fatalf("expected 30 ids, got %d", len(seen))
	}
}

func TestIngestEmpty(t *testing.T) {
	res := NewPipeline(core.DefaultSlabs(), nil).Ingest(nil)
	if res.Accepted() != 0 || res.Rejected() != 0 || res.Records == nil || res.Errors == nil {
		t.Fatalf("unexpected empty result: %+v", res)
	}
}

func TestSequenceObserve(t *testing.T) {
	var s Sequence
	s.Observe("student-000041")
	s.Observe("student-000007")
	s.Observe("legacy-id")
	if got := s.Next(); got != "student-000042" {
		t.Fatalf("next = %s", got)
	}
}
