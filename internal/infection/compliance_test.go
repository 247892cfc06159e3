package infection

import "testing"

func TestComplianceRate(t *testing.T) {
	cases := []struct {
		compliant, opportunities int
		want                     float64
	}{
		{7, 10, 70},
		{0, 0, 0},
		{5, 0, 0},
		{10, 10, 100},
		{0, 10, 0},
		{1, 3, 100.0 / 3},
	}
	for _, c := range cases {
		got := ComplianceRate(c.compliant, c.opportunities)
		if got != c.want {
			t.Errorf("ComplianceRate(%d, %d) = %v, want %v", c.compliant, c.opportunities, got, c.want)
		}
	}
}
