package amqp

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJobMessageRoundTripsThroughJSON(t *testing.T) {
	start := int64(1000)
	end := int64(2000)
	job := JobMessage{
		RunID:          "run-1",
		Source:         "strategy(\"x\")\n",
		Params:         map[string]float64{"length": 14},
		Symbol:         "BTCUSD",
		Exchange:       "binance",
		StartUnixMs:    &start,
		EndUnixMs:      &end,
		ChartTFMinutes: 60,
		Mode:           "standard",
		InitialCapital: 10000,
		CommissionRate: 0.001,
		SlippageRate:   0.0005,
		QtyType:        "percent_of_equity",
		QtyValue:       100,
	}

	body, err := json.Marshal(job)
	assert.NoError(t, err)

	var decoded JobMessage
	assert.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, job.RunID, decoded.RunID)
	assert.Equal(t, job.Params, decoded.Params)
	assert.Equal(t, *job.StartUnixMs, *decoded.StartUnixMs)
	assert.Equal(t, job.Mode, decoded.Mode)
}

func TestJobMessageOmitsNilTimeBoundsFromJSON(t *testing.T) {
	job := JobMessage{RunID: "run-2", Symbol: "ETHUSD"}
	body, err := json.Marshal(job)
	assert.NoError(t, err)

	var raw map[string]interface{}
	assert.NoError(t, json.Unmarshal(body, &raw))
	_, hasStart := raw["startUnixMs"]
	_, hasEnd := raw["endUnixMs"]
	assert.False(t, hasStart)
	assert.False(t, hasEnd)
}

func TestResultMessageOmitsZeroStatsOnFailure(t *testing.T) {
	res := ResultMessage{RunID: "run-3", Status: "failed", Error: "boom"}
	body, err := json.Marshal(res)
	assert.NoError(t, err)

	var raw map[string]interface{}
	assert.NoError(t, json.Unmarshal(body, &raw))
	assert.Equal(t, "failed", raw["status"])
	assert.Equal(t, "boom", raw["error"])
	_, hasTradeCount := raw["tradeCount"]
	assert.False(t, hasTradeCount)
}

func TestResultMessageRoundTripsSuccessFields(t *testing.T) {
	res := ResultMessage{
		RunID:       "run-4",
		Status:      "completed",
		TradeCount:  12,
		TotalReturn: 0.25,
		Sharpe:      1.4,
		MaxDrawdown: 0.1,
	}
	body, err := json.Marshal(res)
	assert.NoError(t, err)

	var decoded ResultMessage
	assert.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, res, decoded)
}
