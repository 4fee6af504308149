package indicators

// PPO percentage price oscillator, 100 * (short EMA - long EMA) / long EMA, with signal
// EMAs over both the MACD line and the PPO. Result is the PPO value.
type PPO struct {
	short      *EMA
	long       *EMA
	macdSignal *EMA
	ppoSignal  *EMA
	macd       float64
	ppo        float64
}

// NewPPO creates a PPO over the given periods.
func NewPPO(short, long, signal int) *PPO {
	return &PPO{
		short:      NewEMA(short),
		long:       NewEMA(long),
		macdSignal: NewEMA(signal),
		ppoSignal:  NewEMA(signal),
	}
}

func (p *PPO) Kind() Kind { return KindPPO }

// Update pushes one new sample.
func (p *PPO) Update(price float64) {
	p.short.Update(price)
	p.long.Update(price)

	s, l := p.short.Result(), p.long.Result()
	p.macd = s - l
	if l != 0 {
		p.ppo = 100 * (p.macd / l)
	} else {
		p.ppo = 0
	}

	p.macdSignal.Update(p.macd)
	p.ppoSignal.Update(p.ppo)
}

func (p *PPO) Result() float64 { return p.ppo }

func (p *PPO) Age() int { return p.short.Age() }

// Short returns the short EMA value.
func (p *PPO) Short() float64 { return p.short.Result() }

// Long returns the long EMA value.
func (p *PPO) Long() float64 { return p.long.Result() }

// MACD returns the MACD line.
func (p *PPO) MACD() float64 { return p.macd }

// MACDSignal returns the signal EMA of the MACD line.
func (p *PPO) MACDSignal() float64 { return p.macdSignal.Result() }

// PPOSignal returns the signal EMA of the PPO.
func (p *PPO) PPOSignal() float64 { return p.ppoSignal.Result() }

// Histogram returns PPO - PPO signal.
func (p *PPO) Histogram() float64 { return p.ppo - p.ppoSignal.Result() }
