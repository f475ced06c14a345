package garage

import (
	"math"
	"testing"

	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anyrl"
	"github.com/unixpickle/anyvec/anyvec64"
)

func TestGaussianMLPPolicy(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	spec := newLineEnv(false, 5).Spec()
	policy, err := NewGaussianMLPPolicy(c, spec, GaussianMLPConfig{InitStd: 2})
	if err != nil {
		t.Fatal(err)
	}
	// Two hidden FC layers plus the head.
	if n := len(policy.Parameters()); n != 7 {
		t.Errorf("expected 7 parameters but got %d", n)
	}
	action, params := policy.Act(c.MakeVectorData([]float64{0.5}))
	if action.Len() != 1 {
		t.Errorf("bad action length: %d", action.Len())
	}
	values := vecToFloats(params)
	if len(values) != spec.PolicyOutSize() {
		t.Fatalf("bad params length: %d", len(values))
	}
	if math.Abs(values[1]-math.Log(2)) > 1e-8 {
		t.Errorf("expected log std %f but got %f", math.Log(2), values[1])
	}

	fixed, err := NewGaussianMLPPolicy(c, spec, GaussianMLPConfig{
		HiddenSizes: []int{4},
		FixedStd:    true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if n := len(fixed.Parameters()); n != 4 {
		t.Errorf("expected 4 trainable parameters but got %d", n)
	}
	if n := len(anynet.AllParameters(fixed.Block)); n != 5 {
		t.Errorf("expected 5 total parameters but got %d", n)
	}

	if _, err := NewGaussianMLPPolicy(c, newLineEnv(true, 5).Spec(),
		GaussianMLPConfig{}); err == nil {
		t.Error("expected error for discrete spec")
	}
}

func TestCategoricalMLPPolicy(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	spec := newLineEnv(true, 5).Spec()
	policy, err := NewCategoricalMLPPolicy(c, spec, CategoricalMLPConfig{
		HiddenNonlinearity: anynet.ReLU,
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := policy.ActionSpace.(anyrl.Softmax); !ok {
		t.Errorf("unexpected action space: %T", policy.ActionSpace)
	}
	action, params := policy.Act(c.MakeVectorData([]float64{3}))
	for _, x := range vecToFloats(params) {
		if x != 0 {
			t.Errorf("initial logits should be zero, got %v", params.Data())
			break
		}
	}
	var sum float64
	for _, x := range vecToFloats(action) {
		sum += x
	}
	if sum != 1 {
		t.Errorf("action should be one-hot, got %v", action.Data())
	}

	if _, err := NewCategoricalMLPPolicy(c, newLineEnv(false, 5).Spec(),
		CategoricalMLPConfig{}); err == nil {
		t.Error("expected error for continuous spec")
	}
}
