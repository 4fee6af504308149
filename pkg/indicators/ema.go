package indicators

// EMA exponential moving average, ema[t] = price[t]*k + ema[t-1]*(1-k) with ema[0] = price[0].
type EMA struct {
	period int
	k      float64
	result float64
	age    int
}

// NewEMA creates an EMA with k = 2/(period+1).
func NewEMA(period int) *EMA {
	return &EMA{period: period, k: 2 / (float64(period) + 1)}
}

// NewWilderEMA creates an EMA with Wilder's smoothing, k = 1/period.
func NewWilderEMA(period int) *EMA {
	return &EMA{period: period, k: 1 / float64(period)}
}

func (e *EMA) Kind() Kind { return KindEMA }

// Update pushes one new sample.
func (e *EMA) Update(price float64) {
	if e.age == 0 {
		e.result = price
	}
	e.age++
	e.result = price*e.k + e.result*(1-e.k)
}

func (e *EMA) Result() float64 { return e.result }

func (e *EMA) Age() int { return e.age }

// Period returns the configured period.
func (e *EMA) Period() int { return e.period }
