package indicators

// MACD moving average convergence divergence. Result is the histogram (diff - signal).
type MACD struct {
	short  *EMA
	long   *EMA
	signal *EMA
	diff   float64
	result float64
}

// NewMACD creates a MACD over the given periods.
func NewMACD(short, long, signal int) *MACD {
	return &MACD{short: NewEMA(short), long: NewEMA(long), signal: NewEMA(signal)}
}

func (m *MACD) Kind() Kind { return KindMACD }

// Update pushes one new sample.
func (m *MACD) Update(price float64) {
	m.short.Update(price)
	m.long.Update(price)
	m.diff = m.short.Result() - m.long.Result()
	m.signal.Update(m.diff)
	m.result = m.diff - m.signal.Result()
}

func (m *MACD) Result() float64 { return m.result }

func (m *MACD) Age() int { return m.short.Age() }

// Diff returns the MACD line (short EMA - long EMA).
func (m *MACD) Diff() float64 { return m.diff }

// Signal returns the signal EMA of the MACD line.
func (m *MACD) Signal() float64 { return m.signal.Result() }

// Short returns the short EMA value.
func (m *MACD) Short() float64 { return m.short.Result() }

// Long returns the long EMA value.
func (m *MACD) Long() float64 { return m.long.Result() }
