package fastac

// Shift counts applied to length before multiplying by a model's scaled
// probability.
const (
	bmLengthShift = 13 // bit models
	dmLengthShift = 15 // data models
	bmMaxCount    = 1 << bmLengthShift
	dmMaxCount    = 1 << dmLengthShift

	minSymbolProb = 0.0001
	maxSymbolProb = 1 - minSymbolProb

	maxIntDataSymbols = 1 << 11 // sorted integer variant alphabet bound
)

// probThresholds is the 64-entry descending probability threshold table used
// to bisect for the two-shift approximation of a least-probable-bit
// probability. Taken from the original static bit model constructor.
var probThresholds = [64]float64{
	1.000000000, 0.436829205, 0.343297135, 0.296716418,
	0.265429157, 0.217670149, 0.171498704, 0.148324226,
	0.132682629, 0.108718131, 0.085722481, 0.074155662,
	0.066335033, 0.054334924, 0.042855429, 0.037076405,
	0.033166108, 0.027161937, 0.021426357, 0.018537866,
	0.016582720, 0.013579645, 0.010712850, 0.009268851,
	0.008291278, 0.006789498, 0.005356344, 0.004634405,
	0.004145619, 0.003394669, 0.002678152, 0.002317198,
	0.002072805, 0.001697315, 0.001339071, 0.001158598,
	0.001036401, 0.000848652, 0.000669534, 0.000579299,
	0.000518200, 0.000424325, 0.000334767, 0.000289649,
	0.000259100, 0.000212162, 0.000167383, 0.000144825,
	0.000129550, 0.000106081, 0.000083692, 0.000072412,
	0.000064775, 0.000053040, 0.000041846, 0.000036206,
	0.000032387, 0.000026520, 0.000020923, 0.000018103,
	0.000016194, 0.000013260, 0.000010461, 0.000009052,
}

// IntStaticBitModel is the integer variant's fixed-probability binary model.
// Rather than storing p0 directly, it stores a pair of shift counts,
// selected by bisection against probThresholds, such that
// (l >> shiftA) + (l >> shiftB) approximates the least-probable bit's share
// of the interval length l; the most probable bit gets
// x = l - (l >> shiftA) - (l >> shiftB).
type IntStaticBitModel struct {
	leastProbableBit uint32
	shiftA, shiftB   uint
}

// NewIntStaticBitModel returns a model initialized to p0 = p1 = 1/2.
func NewIntStaticBitModel() *IntStaticBitModel {
	return &IntStaticBitModel{shiftA: 2, shiftB: 2}
}

// SetProbability0 sets P(bit=0). p0 must lie in [10^-4, 1-10^-4].
func (m *IntStaticBitModel) SetProbability0(p0 float64) error {
	if p0 < minSymbolProb || p0 > maxSymbolProb {
		return errValidation("SetProbability0", "bit probability out of range")
	}

	pm := p0
	if p0 < 0.5 {
		m.leastProbableBit = 0
	} else {
		m.leastProbableBit = 1
		pm = 1.0 - p0
	}

	u, n := uint(0), uint(64)
	mid := uint(32)
	for {
		if pm < probThresholds[mid] {
			u = mid
		} else {
			n = mid
		}
		mid = (u + n) >> 1
		if mid == u {
			break
		}
	}

	m.shiftA = 2 + (u >> 2)
	m.shiftB = m.shiftA + (u & 0x3)
	return nil
}

// IntAdaptiveBitModel is the integer variant's adaptive binary model.
type IntAdaptiveBitModel struct {
	lpbCount, bitCount uint32
	mpbProb            uint32
	leastProbableBit   uint32
	updateCycle        uint32
	bitsUntilUpdate    uint32
}

// NewIntAdaptiveBitModel returns a model reset to the uniform state.
func NewIntAdaptiveBitModel() *IntAdaptiveBitModel {
	m := &IntAdaptiveBitModel{}
	m.Reset()
	return m
}

// Reset restores the model to its initial, equiprobable state.
func (m *IntAdaptiveBitModel) Reset() {
	m.leastProbableBit = 0
	m.lpbCount = 1
	m.bitCount = 2
	m.mpbProb = 1 << (bmLengthShift - 1)
	m.updateCycle = 4
	m.bitsUntilUpdate = 4
}

func (m *IntAdaptiveBitModel) update() {
	if m.bitCount += m.updateCycle; m.bitCount >= bmMaxCount {
		m.bitCount = (m.bitCount + 1) >> 1
		m.lpbCount = (m.lpbCount + 1) >> 1
		if m.lpbCount == m.bitCount {
			m.bitCount++
		}
	}

	mpbCount := m.bitCount - m.lpbCount
	if mpbCount < m.lpbCount {
		mpbCount = m.lpbCount
		m.lpbCount = m.bitCount - mpbCount
		m.leastProbableBit ^= 1
	}

	scale := uint32(0x80000000) / m.bitCount
	m.mpbProb = (mpbCount * scale) >> (31 - bmLengthShift)

	m.updateCycle = (5 * m.updateCycle) >> 2
	if m.updateCycle > 64 {
		m.updateCycle = 64
	}
	m.bitsUntilUpdate = m.updateCycle
}

// IntStaticDataModel is the integer variant's fixed N-ary model. Symbols are
// sorted by ascending probability so the most probable symbol takes the
// highest rank (mostProbableSymbol, N-1) and the cheap encode branch, and
// firstTests seeds the decoder's search.
type IntStaticDataModel struct {
	symbols            uint32
	distribution       []uint32
	rank               []uint32
	data               []uint32
	mostProbableSymbol uint32
	firstTests         [3]uint32
}

// NewIntStaticDataModel constructs a model for the given alphabet size.
// Call SetDistribution before using it to encode or decode.
func NewIntStaticDataModel(numSymbols int) (*IntStaticDataModel, error) {
	m := &IntStaticDataModel{}
	if err := m.alloc(numSymbols); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *IntStaticDataModel) alloc(numSymbols int) error {
	if numSymbols < 2 || numSymbols > maxIntDataSymbols {
		return errValidation("SetDistribution", "alphabet size out of [2, 2^11]")
	}
	n := uint32(numSymbols)
	m.symbols = n
	m.mostProbableSymbol = n - 1
	m.distribution = make([]uint32, n)
	m.rank = make([]uint32, n)
	m.data = make([]uint32, n)
	return nil
}

// SetDistribution installs a probability distribution, or a uniform
// distribution if probability is nil. Probabilities must lie in
// [10^-4, 1-10^-4] and sum to 1 within 10^-4.
func (m *IntStaticDataModel) SetDistribution(numSymbols int, probability []float64) error {
	if uint32(numSymbols) != m.symbols {
		if err := m.alloc(numSymbols); err != nil {
			return err
		}
	}
	n := int(m.symbols)

	p := 1.0 / float64(n)
	if probability == nil {
		for k := 0; k < n; k++ {
			m.data[k] = uint32(k)
		}
	} else {
		for k := 0; k < n; k++ {
			s := uint32(k)
			t := probability[k]
			i := k
			for ; i > 0; i-- {
				if t >= probability[m.data[i-1]] {
					break
				}
				m.data[i] = m.data[i-1]
			}
			m.data[i] = s
		}
	}

	c := 0
	sum := 0.0
	threshold := 0.26
	for i := 0; i < n; i++ {
		k := m.data[i]
		m.rank[k] = uint32(i)
		if probability != nil {
			p = probability[k]
		}
		if p < minSymbolProb || p > maxSymbolProb {
			return errValidation("SetDistribution", "symbol probability out of range")
		}
		m.distribution[i] = uint32(sum * float64(uint32(1)<<dmLengthShift))
		sum += p
		for sum > threshold && c < 3 {
			m.firstTests[c] = uint32(i)
			c++
			threshold += 0.25
		}
	}
	if m.firstTests[0] == m.firstTests[1] {
		m.firstTests[0]--
	}
	if sum < 1-1e-4 || sum > 1+1e-4 {
		return errValidation("SetDistribution", "distribution does not sum to 1")
	}
	return nil
}

// IntAdaptiveDataModel is the integer variant's adaptive N-ary model.
type IntAdaptiveDataModel struct {
	symbols            uint32
	distribution       []uint32
	symbolCount        []uint32
	rank               []uint32
	data               []uint32
	mostProbableSymbol uint32
	firstTests         [3]uint32
	totalCount         uint32
	updateCycle        uint32
	symbolsUntilUpdate uint32
}

// NewIntAdaptiveDataModel constructs and resets a model for numSymbols.
func NewIntAdaptiveDataModel(numSymbols int) (*IntAdaptiveDataModel, error) {
	m := &IntAdaptiveDataModel{}
	if err := m.SetAlphabet(numSymbols); err != nil {
		return nil, err
	}
	return m, nil
}

// SetAlphabet (re)allocates the model for numSymbols and resets it.
func (m *IntAdaptiveDataModel) SetAlphabet(numSymbols int) error {
	if numSymbols < 2 || numSymbols > maxIntDataSymbols {
		return errValidation("SetAlphabet", "alphabet size out of [2, 2^11]")
	}
	n := uint32(numSymbols)
	if n != m.symbols {
		m.symbols = n
		m.mostProbableSymbol = n - 1
		m.distribution = make([]uint32, n)
		m.symbolCount = make([]uint32, n)
		m.rank = make([]uint32, n)
		m.data = make([]uint32, n)
	}
	m.Reset()
	return nil
}

// Reset restores the model to a uniform distribution.
func (m *IntAdaptiveDataModel) Reset() {
	if m.symbols == 0 {
		return
	}
	m.totalCount = 0
	m.updateCycle = m.symbols
	for k := uint32(0); k < m.symbols; k++ {
		m.data[k] = k
		m.symbolCount[k] = 1
	}
	m.update()
	m.updateCycle = (m.symbols + 6) >> 1
	m.symbolsUntilUpdate = m.updateCycle
}

func (m *IntAdaptiveDataModel) update() {
	if m.totalCount += m.updateCycle; m.totalCount >= dmMaxCount {
		m.totalCount = 0
		for n := uint32(0); n < m.symbols; n++ {
			m.symbolCount[n] = (m.symbolCount[n] + 1) >> 1
			m.totalCount += m.symbolCount[n]
		}
	}

	// Restore ascending order of symbolCount with a single insertion pass,
	// carrying the data[] permutation along, so the most probable symbol
	// ends at the highest rank. The near-sorted property after
	// one update makes insertion sort cheaper than a general sort here.
	for k := uint32(1); k < m.symbols; k++ {
		if m.symbolCount[k] < m.symbolCount[k-1] {
			t := m.symbolCount[k]
			m.symbolCount[k] = m.symbolCount[k-1]
			s := m.data[k]
			m.data[k] = m.data[k-1]
			i := k - 1
			for ; i > 0; i-- {
				if t >= m.symbolCount[i-1] {
					break
				}
				m.symbolCount[i] = m.symbolCount[i-1]
				m.data[i] = m.data[i-1]
			}
			m.symbolCount[i] = t
			m.data[i] = s
		}
	}

	sum, c := uint32(0), 0
	d := (m.totalCount + 3) >> 2
	threshold := d + 1
	scale := uint32(0x80000000) / m.totalCount
	for i := uint32(0); i < m.symbols; i++ {
		m.rank[m.data[i]] = i
		m.distribution[i] = (scale * sum) >> (31 - dmLengthShift)
		sum += m.symbolCount[i]
		for sum > threshold && c < 3 {
			m.firstTests[c] = i
			c++
			threshold += d
		}
	}
	if m.firstTests[0] == m.firstTests[1] {
		m.firstTests[0]--
	}

	m.updateCycle = (5 * m.updateCycle) >> 2
	maxCycle := (m.symbols + 6) << 3
	if m.updateCycle > maxCycle {
		m.updateCycle = maxCycle
	}
	m.symbolsUntilUpdate = m.updateCycle
}
