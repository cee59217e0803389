package fastac

import "testing"

func TestIntStaticBitModel_ProbabilityValidation(t *testing.T) {
	m := NewIntStaticBitModel()
	for _, p0 := range []float64{-0.1, 0, 1, 1.1} {
		if err := m.SetProbability0(p0); err == nil {
			t.Errorf("SetProbability0(%v): expected error", p0)
		}
	}
	if err := m.SetProbability0(0.5); err != nil {
		t.Errorf("SetProbability0(0.5): unexpected error %v", err)
	}
}

func TestIntStaticBitModel_SymmetricShifts(t *testing.T) {
	// p0 and 1-p0 should select the same shift pair, just with the least
	// probable bit flipped.
	a := NewIntStaticBitModel()
	if err := a.SetProbability0(0.2); err != nil {
		t.Fatalf("SetProbability0: %v", err)
	}
	b := NewIntStaticBitModel()
	if err := b.SetProbability0(0.8); err != nil {
		t.Fatalf("SetProbability0: %v", err)
	}
	if a.shiftA != b.shiftA || a.shiftB != b.shiftB {
		t.Errorf("shifts should match for p and 1-p: got (%d,%d) vs (%d,%d)", a.shiftA, a.shiftB, b.shiftA, b.shiftB)
	}
	if a.leastProbableBit == b.leastProbableBit {
		t.Error("least probable bit should differ between p0=0.2 and p0=0.8")
	}
}

func TestIntAdaptiveDataModel_AlphabetValidation(t *testing.T) {
	if _, err := NewIntAdaptiveDataModel(1); err == nil {
		t.Error("expected error for alphabet size 1")
	}
	if _, err := NewIntAdaptiveDataModel(maxIntDataSymbols + 1); err == nil {
		t.Error("expected error for alphabet size past the sorted bound")
	}
	if _, err := NewIntAdaptiveDataModel(2); err != nil {
		t.Errorf("unexpected error for minimal alphabet: %v", err)
	}
}

func TestIntStaticDataModel_DistributionValidation(t *testing.T) {
	m, err := NewIntStaticDataModel(4)
	if err != nil {
		t.Fatalf("NewIntStaticDataModel: %v", err)
	}
	if err := m.SetDistribution(4, []float64{0.5, 0.5, 0.5, 0.5}); err == nil {
		t.Error("expected error for distribution not summing to 1")
	}
	if err := m.SetDistribution(4, []float64{0.25, 0.25, 0.25, 0.25}); err != nil {
		t.Errorf("unexpected error for valid uniform distribution: %v", err)
	}
	if err := m.SetDistribution(4, nil); err != nil {
		t.Errorf("unexpected error for nil (uniform) distribution: %v", err)
	}
}

func TestIntAdaptiveDataModel_ResetIsUniform(t *testing.T) {
	m, err := NewIntAdaptiveDataModel(4)
	if err != nil {
		t.Fatalf("NewIntAdaptiveDataModel: %v", err)
	}
	first := append([]uint32(nil), m.distribution...)

	// Skew the model by feeding it a value through its private update path.
	m.symbolCount[0] += 50
	m.update()

	m.Reset()
	for i, v := range m.distribution {
		if v != first[i] {
			t.Errorf("distribution[%d] after reset: got %d, want %d (uniform)", i, v, first[i])
		}
	}
}

func TestFloatStaticDataModel_AlphabetValidation(t *testing.T) {
	if _, err := NewFloatStaticDataModel(1); err == nil {
		t.Error("expected error for alphabet size 1")
	}
	if _, err := NewFloatStaticDataModel(maxFloatDataSymbols + 1); err == nil {
		t.Error("expected error for alphabet size past the float bound")
	}
}

func TestFloatAdaptiveBitModel_UpdateConverges(t *testing.T) {
	m := NewFloatAdaptiveBitModel()
	for i := 0; i < 10000; i++ {
		m.bit0Count++
		if m.bitsUntilUpdate--; m.bitsUntilUpdate == 0 {
			m.update()
		}
	}
	if m.bit0Prob < 0.9 {
		t.Errorf("bit0Prob after many bit-0 observations: got %v, want close to 1", m.bit0Prob)
	}
}
