package telemetry

import (
	"bytes"
	"encoding/json"
	"strconv"

	"solarbridge/pkg/renogy"
)

// Outcome is the tagged result of reading one register. Value is meaningless
// when Err is set.
type Outcome struct {
	Register renogy.RegisterDescriptor
	Value    uint16
	Err      error
}

func (o Outcome) Ok() bool {
	return o.Err == nil
}

// Sample holds the outcomes of one poll in register-set order.
type Sample struct {
	Set      string
	Outcomes []Outcome
}

func (s Sample) Failures() int {
	n := 0
	for _, o := range s.Outcomes {
		if !o.Ok() {
			n++
		}
	}
	return n
}

// MarshalJSON renders the sample as one flat object keyed by register name.
// Failed reads are rendered as null.
func (s Sample) MarshalJSON() ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, 24*len(s.Outcomes)+2))
	buf.WriteByte('{')
	for i, o := range s.Outcomes {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(o.Register.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		if o.Ok() {
			buf.WriteString(strconv.FormatUint(uint64(o.Value), 10))
		} else {
			buf.WriteString("null")
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Values returns the successful reads keyed by register name.
func (s Sample) Values() map[string]uint16 {
	values := make(map[string]uint16, len(s.Outcomes))
	for _, o := range s.Outcomes {
		if o.Ok() {
			values[o.Register.Name] = o.Value
		}
	}
	return values
}
