package telemetry

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"solarbridge/pkg/poll"
	"solarbridge/pkg/protocol/modbusrtu"
	modbusrturuntime "solarbridge/pkg/protocol/modbusrtu/runtime"
	"solarbridge/pkg/renogy"
)

type fakeReader struct {
	values map[uint16]uint16
	fail   map[uint16]bool
	trace  *[]string
}

func (f *fakeReader) Read(_ context.Context, address uint16) modbusrtu.Result {
	*f.trace = append(*f.trace, "read")
	if f.fail[address] {
		return modbusrtu.Result{Err: errors.Wrap(modbusrturuntime.ErrTransport, "timeout")}
	}
	return modbusrtu.Result{Value: f.values[address]}
}

type traceFeeder struct{ trace *[]string }

func (f traceFeeder) Feed() { *f.trace = append(*f.trace, "feed") }

type traceServicer struct{ trace *[]string }

func (s traceServicer) Service() { *s.trace = append(*s.trace, "service") }

func TestCollectPreservesOrderWithFailures(t *testing.T) {
	var trace []string
	set := poll.RegisterSet{Name: "current", Registers: renogy.CurrentSet()}
	reader := &fakeReader{
		values: map[uint16]uint16{},
		fail: map[uint16]bool{
			renogy.BattVoltage: true,
			renogy.ChargePower: true,
		},
		trace: &trace,
	}
	for i, d := range set.Registers {
		reader.values[d.Address] = uint16(i * 10)
	}

	a := NewAggregator(reader, traceFeeder{&trace}, traceServicer{&trace})
	sample := a.Collect(context.Background(), set)

	require.Len(t, sample.Outcomes, len(set.Registers))
	for i, o := range sample.Outcomes {
		assert.Equal(t, set.Registers[i], o.Register)
		if o.Register.Address == renogy.BattVoltage || o.Register.Address == renogy.ChargePower {
			assert.False(t, o.Ok())
			continue
		}
		assert.True(t, o.Ok())
		assert.Equal(t, uint16(i*10), o.Value)
	}
	assert.Equal(t, 2, sample.Failures())
	assert.Equal(t, "current", sample.Set)

	require.Len(t, trace, 3*len(set.Registers))
	for i := 0; i < len(trace); i += 3 {
		assert.Equal(t, []string{"read", "feed", "service"}, trace[i:i+3])
	}
}

func TestCollectEmptySet(t *testing.T) {
	var trace []string
	a := NewAggregator(&fakeReader{trace: &trace}, traceFeeder{&trace}, traceServicer{&trace})
	sample := a.Collect(context.Background(), poll.RegisterSet{Name: "empty"})
	assert.Empty(t, sample.Outcomes)
	assert.Empty(t, trace)
}

func TestSampleMarshalExactKeys(t *testing.T) {
	sample := Sample{Outcomes: []Outcome{
		{Register: renogy.RegisterDescriptor{Name: "B"}, Value: 2},
		{Register: renogy.RegisterDescriptor{Name: "A"}, Value: 1},
	}}
	b, err := json.Marshal(sample)
	require.NoError(t, err)
	assert.JSONEq(t, `{"A":1,"B":2}`, string(b))
	assert.Equal(t, `{"B":2,"A":1}`, string(b))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.Len(t, decoded, 2)
	assert.Equal(t, float64(1), decoded["A"])
}

func TestSampleMarshalFailureIsNull(t *testing.T) {
	sample := Sample{Outcomes: []Outcome{
		{Register: renogy.RegisterDescriptor{Name: "BATT_VOLTAGE"}, Value: 65535},
		{Register: renogy.RegisterDescriptor{Name: "LOAD_POWER"}, Value: 226, Err: errors.New("timeout")},
	}}
	b, err := json.Marshal(sample)
	require.NoError(t, err)
	assert.Equal(t, `{"BATT_VOLTAGE":65535,"LOAD_POWER":null}`, string(b))
	assert.Equal(t, map[string]uint16{"BATT_VOLTAGE": 65535}, sample.Values())
}

func TestSampleMarshalEmpty(t *testing.T) {
	b, err := json.Marshal(Sample{})
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(b))
}
