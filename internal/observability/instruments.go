package observability

import (
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

// instrument names, describes and measures one metric.
type instrument struct {
	name string
	help string
	unit string
}

// instruments creates metric instruments from one meter, collecting every
// creation error so constructors check once at the end.
type instruments struct {
	meter metric.Meter
	errs  []error
}

func (in *instruments) fail(def instrument, err error) {
	if err != nil {
		in.errs = append(in.errs, fmt.Errorf("instrument %s: %w", def.name, err))
	}
}

func (in *instruments) err() error {
	return errors.Join(in.errs...)
}

func (in *instruments) counter(def instrument) metric.Int64Counter {
	c, err := in.meter.Int64Counter(def.name, metric.WithDescription(def.help), metric.WithUnit(def.unit))
	in.fail(def, err)

	return c
}

func (in *instruments) upDown(def instrument) metric.Int64UpDownCounter {
	c, err := in.meter.Int64UpDownCounter(def.name, metric.WithDescription(def.help), metric.WithUnit(def.unit))
	in.fail(def, err)

	return c
}

func (in *instruments) seconds(def instrument, bounds []float64) metric.Float64Histogram {
	h, err := in.meter.Float64Histogram(def.name,
		metric.WithDescription(def.help),
		metric.WithUnit(def.unit),
		metric.WithExplicitBucketBoundaries(bounds...),
	)
	in.fail(def, err)

	return h
}

func (in *instruments) gauge(def instrument) metric.Int64ObservableGauge {
	g, err := in.meter.Int64ObservableGauge(def.name, metric.WithDescription(def.help), metric.WithUnit(def.unit))
	in.fail(def, err)

	return g
}

func (in *instruments) total(def instrument) metric.Int64ObservableCounter {
	c, err := in.meter.Int64ObservableCounter(def.name, metric.WithDescription(def.help), metric.WithUnit(def.unit))
	in.fail(def, err)

	return c
}
