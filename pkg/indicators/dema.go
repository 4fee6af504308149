package indicators

// DEMA percentage difference between a short and a long EMA relative to their mean.
type DEMA struct {
	short  *EMA
	long   *EMA
	result float64
}

// NewDEMA creates a DEMA over the given periods.
func NewDEMA(short, long int) *DEMA {
	return &DEMA{short: NewEMA(short), long: NewEMA(long)}
}

func (d *DEMA) Kind() Kind { return KindDEMA }

// Update pushes one new sample.
func (d *DEMA) Update(price float64) {
	d.short.Update(price)
	d.long.Update(price)

	s, l := d.short.Result(), d.long.Result()
	mean := (s + l) / 2
	if mean == 0 {
		d.result = 0
		return
	}
	d.result = 100 * (s - l) / mean
}

func (d *DEMA) Result() float64 { return d.result }

func (d *DEMA) Age() int { return d.short.Age() }

// Short returns the short EMA value.
func (d *DEMA) Short() float64 { return d.short.Result() }

// Long returns the long EMA value.
func (d *DEMA) Long() float64 { return d.long.Result() }
