package indicators

// RSI relative strength index in [0,100], averaging gains and losses with Wilder-weighted EMAs.
type RSI struct {
	avgGain   *EMA
	avgLoss   *EMA
	lastPrice float64
	result    float64
	age       int
}

// NewRSI creates an RSI over the given period.
func NewRSI(period int) *RSI {
	return &RSI{avgGain: NewWilderEMA(period), avgLoss: NewWilderEMA(period)}
}

func (r *RSI) Kind() Kind { return KindRSI }

// Update pushes one new sample. The first sample only sets the reference price.
func (r *RSI) Update(price float64) {
	r.age++
	if r.age == 1 {
		r.lastPrice = price
		return
	}

	var gain, loss float64
	if price > r.lastPrice {
		gain = price - r.lastPrice
	} else {
		loss = r.lastPrice - price
	}
	r.lastPrice = price

	r.avgGain.Update(gain)
	r.avgLoss.Update(loss)

	g, l := r.avgGain.Result(), r.avgLoss.Result()
	switch {
	case l == 0 && g != 0:
		r.result = 100
	case l == 0:
		r.result = 0
	default:
		r.result = 100 - 100/(1+g/l)
	}
}

func (r *RSI) Result() float64 { return r.result }

func (r *RSI) Age() int { return r.age }
