package garage

import (
	"math"
	"testing"

	"github.com/unixpickle/anyrl"
)

func TestCenterAdvantages(t *testing.T) {
	advs := anyrl.Rewards{{1, 2, 3}, {4}, {}}
	centerAdvantages(advs)
	var sum, sqSum float64
	var count int
	for _, seq := range advs {
		for _, x := range seq {
			sum += x
			sqSum += x * x
			count++
		}
	}
	if math.Abs(sum) > 1e-8 {
		t.Errorf("mean should be 0, got %f", sum/float64(count))
	}
	if math.Abs(sqSum/float64(count)-1) > 1e-6 {
		t.Errorf("variance should be 1, got %f", sqSum/float64(count))
	}
	if advs[0][0] >= advs[0][1] || advs[0][1] >= advs[1][0] {
		t.Errorf("order should be preserved: %v", advs)
	}
}

func TestCenterAdvantagesHomogeneous(t *testing.T) {
	advs := anyrl.Rewards{{3, 3}, {3}}
	centerAdvantages(advs)
	for _, seq := range advs {
		for _, x := range seq {
			if x != 0 {
				t.Fatalf("expected zeros but got %v", advs)
			}
		}
	}
}
