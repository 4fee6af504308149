package setup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/trendwatch/config"
)

func TestAnswers_ToConfigTmp(t *testing.T) {
	a := defaultAnswers()
	a.pair = "eth_usdt"
	a.method = "macd"
	a.smallInterval = "0"
	a.trade = true

	tmp, err := a.toConfigTmp()
	require.NoError(t, err)
	assert.Equal(t, "ETH_USDT", tmp.Pair)
	assert.Equal(t, 60, tmp.Interval)
	require.NotNil(t, tmp.SmallInterval)
	assert.Equal(t, 0, *tmp.SmallInterval)
	assert.Equal(t, 20*time.Second, tmp.PollInterval)
	assert.Equal(t, "10000", tmp.SimulateBalance)

	conf, err := tmp.ToConfig()
	require.NoError(t, err)
	assert.Equal(t, config.PlatformSimulate, conf.Platform)
	assert.True(t, conf.Trade)
}

func TestAnswers_Invalid(t *testing.T) {
	a := defaultAnswers()
	a.platform = config.PlatformFile

	_, err := a.toConfigTmp()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trades_file")

	a = defaultAnswers()
	a.pollInterval = "soon"
	_, err = a.toConfigTmp()
	require.Error(t, err)
}

func TestValidators(t *testing.T) {
	assert.NoError(t, validateFraction("0.25"))
	assert.Error(t, validateFraction("1.5"))
	assert.Error(t, validateFraction("x"))
	assert.NoError(t, validateMinutes(0)("0"))
	assert.Error(t, validateMinutes(1)("0"))
	assert.Error(t, validateMinutes(1)("1.5"))
}
