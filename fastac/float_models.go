package fastac

// Floating-point variant constants. The bit models age
// at a higher count ceiling than the integer variant (2^14 vs 2^13) because
// the floating-point interval carries more usable precision per renorm, and
// the data model alphabet bound is correspondingly wider (2^14 vs 2^11).
const (
	fpBMMaxCount      = 1 << 14 // adaptive bit model count ceiling
	fpDMMaxCount      = 1 << 17 // adaptive data model count ceiling
	maxFloatDataSymbols = 1 << 14
)

// FloatStaticBitModel is the floating-point variant's fixed-probability
// binary model. Unlike the integer variant it stores p0 directly: no
// shift-based approximation is needed once probabilities are already
// floating point.
type FloatStaticBitModel struct {
	bit0Prob float64
}

// NewFloatStaticBitModel returns a model initialized to p0 = p1 = 1/2.
func NewFloatStaticBitModel() *FloatStaticBitModel {
	return &FloatStaticBitModel{bit0Prob: 0.5}
}

// SetProbability0 sets P(bit=0). p0 must lie in [10^-4, 1-10^-4].
func (m *FloatStaticBitModel) SetProbability0(p0 float64) error {
	if p0 < minSymbolProb || p0 > maxSymbolProb {
		return errValidation("SetProbability0", "bit probability out of range")
	}
	m.bit0Prob = p0
	return nil
}

// FloatAdaptiveBitModel is the floating-point variant's adaptive binary
// model.
type FloatAdaptiveBitModel struct {
	bit0Count, bitCount uint32
	bit0Prob            float64
	updateCycle         uint32
	bitsUntilUpdate     uint32
}

// NewFloatAdaptiveBitModel returns a model reset to the uniform state.
func NewFloatAdaptiveBitModel() *FloatAdaptiveBitModel {
	m := &FloatAdaptiveBitModel{}
	m.Reset()
	return m
}

// Reset restores the model to its initial, equiprobable state.
func (m *FloatAdaptiveBitModel) Reset() {
	m.bit0Count = 1
	m.bitCount = 2
	m.bit0Prob = 0.5
	m.updateCycle = 4
	m.bitsUntilUpdate = 4
}

func (m *FloatAdaptiveBitModel) update() {
	if m.bitCount += m.updateCycle; m.bitCount >= fpBMMaxCount {
		m.bitCount = (m.bitCount + 1) >> 1
		m.bit0Count = (m.bit0Count + 1) >> 1
		if m.bit0Count == m.bitCount {
			m.bitCount++
		}
	}
	m.bit0Prob = float64(m.bit0Count) / float64(m.bitCount)

	m.updateCycle = (5 * m.updateCycle) >> 2
	if m.updateCycle > 64 {
		m.updateCycle = 64
	}
	m.bitsUntilUpdate = m.updateCycle
}

// FloatStaticDataModel is the floating-point variant's fixed N-ary model.
// Unlike the integer variant, symbols are left in their caller-supplied
// order: the floating-point decoder's bisection search works directly
// against a cumulative distribution and does not need a
// sorted-by-probability rearrangement to stay cheap. distribution holds one
// entry per symbol; the upper edge of the last symbol's span is always
// base+length, computed by the codec rather than stored.
type FloatStaticDataModel struct {
	symbols      uint32
	distribution []float64
}

// NewFloatStaticDataModel constructs a model for the given alphabet size.
// Call SetDistribution before using it to encode or decode.
func NewFloatStaticDataModel(numSymbols int) (*FloatStaticDataModel, error) {
	m := &FloatStaticDataModel{}
	if err := m.alloc(numSymbols); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *FloatStaticDataModel) alloc(numSymbols int) error {
	if numSymbols < 2 || numSymbols > maxFloatDataSymbols {
		return errValidation("SetDistribution", "alphabet size out of [2, 2^14]")
	}
	m.symbols = uint32(numSymbols)
	m.distribution = make([]float64, numSymbols)
	return nil
}

// SetDistribution installs a probability distribution, or a uniform
// distribution if probability is nil.
func (m *FloatStaticDataModel) SetDistribution(numSymbols int, probability []float64) error {
	if uint32(numSymbols) != m.symbols {
		if err := m.alloc(numSymbols); err != nil {
			return err
		}
	}
	n := int(m.symbols)

	sum := 0.0
	p := 1.0 / float64(n)
	for k := 0; k < n; k++ {
		if probability != nil {
			p = probability[k]
		}
		if p < minSymbolProb || p > maxSymbolProb {
			return errValidation("SetDistribution", "symbol probability out of range")
		}
		m.distribution[k] = sum
		sum += p
	}
	if sum < 1-1e-4 || sum > 1+1e-4 {
		return errValidation("SetDistribution", "distribution does not sum to 1")
	}
	return nil
}

// FloatAdaptiveDataModel is the floating-point variant's adaptive N-ary
// model, also left unsorted and using a symbols-length (not symbols+1)
// cumulative distribution.
type FloatAdaptiveDataModel struct {
	symbols            uint32
	distribution       []float64
	symbolCount        []uint32
	totalCount         uint32
	updateCycle        uint32
	symbolsUntilUpdate uint32
}

// NewFloatAdaptiveDataModel constructs and resets a model for numSymbols.
func NewFloatAdaptiveDataModel(numSymbols int) (*FloatAdaptiveDataModel, error) {
	m := &FloatAdaptiveDataModel{}
	if err := m.SetAlphabet(numSymbols); err != nil {
		return nil, err
	}
	return m, nil
}

// SetAlphabet (re)allocates the model for numSymbols and resets it.
func (m *FloatAdaptiveDataModel) SetAlphabet(numSymbols int) error {
	if numSymbols < 2 || numSymbols > maxFloatDataSymbols {
		return errValidation("SetAlphabet", "alphabet size out of [2, 2^14]")
	}
	n := uint32(numSymbols)
	if n != m.symbols {
		m.symbols = n
		m.distribution = make([]float64, n)
		m.symbolCount = make([]uint32, n)
	}
	m.Reset()
	return nil
}

// Reset restores the model to a uniform distribution.
func (m *FloatAdaptiveDataModel) Reset() {
	if m.symbols == 0 {
		return
	}
	m.totalCount = 0
	m.updateCycle = m.symbols
	for k := uint32(0); k < m.symbols; k++ {
		m.symbolCount[k] = 1
	}
	m.update()
	m.updateCycle = (m.symbols + 6) >> 1
	m.symbolsUntilUpdate = m.updateCycle
}

func (m *FloatAdaptiveDataModel) update() {
	if m.totalCount += m.updateCycle; m.totalCount > fpDMMaxCount {
		m.totalCount = 0
		for n := uint32(0); n < m.symbols; n++ {
			m.symbolCount[n] = (m.symbolCount[n] + 1) >> 1
			m.totalCount += m.symbolCount[n]
		}
	}

	sum := uint32(0)
	scale := 1.0 / float64(m.totalCount)
	for k := uint32(0); k < m.symbols; k++ {
		m.distribution[k] = scale * float64(sum)
		sum += m.symbolCount[k]
	}

	m.updateCycle = (5 * m.updateCycle) >> 2
	maxCycle := (m.symbols + 6) << 3
	if m.updateCycle > maxCycle {
		m.updateCycle = maxCycle
	}
	m.symbolsUntilUpdate = m.updateCycle
}
