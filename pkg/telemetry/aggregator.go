package telemetry

import (
	"context"

	"k8s.io/klog/v2"
	"solarbridge/pkg/poll"
	"solarbridge/pkg/protocol/modbusrtu"
)

type RegisterReader interface {
	Read(ctx context.Context, address uint16) modbusrtu.Result
}

type Feeder interface {
	Feed()
}

// Servicer gives the messaging session a chance to run between reads.
type Servicer interface {
	Service()
}

type Aggregator struct {
	reader   RegisterReader
	feeder   Feeder
	servicer Servicer
}

func NewAggregator(reader RegisterReader, feeder Feeder, servicer Servicer) *Aggregator {
	return &Aggregator{
		reader:   reader,
		feeder:   feeder,
		servicer: servicer,
	}
}

// Collect reads every register of the set once, in order. A failed read is
// recorded and does not stop the pass.
func (a *Aggregator) Collect(ctx context.Context, set poll.RegisterSet) Sample {
	sample := Sample{
		Set:      set.Name,
		Outcomes: make([]Outcome, 0, len(set.Registers)),
	}
	for _, register := range set.Registers {
		res := a.reader.Read(ctx, register.Address)
		sample.Outcomes = append(sample.Outcomes, Outcome{
			Register: register,
			Value:    res.Value,
			Err:      res.Err,
		})
		a.feeder.Feed()
		a.servicer.Service()
	}
	if failures := sample.Failures(); failures > 0 {
		klog.V(2).InfoS("Failed to read some registers", "set", set.Name, "failures", failures, "total", len(set.Registers))
	}
	return sample
}
