package device

import (
	"math/rand"

	"github.com/pkg/errors"
)

// circutorSamples is the number of coil voltage samples integrated per
// Circutor measurement.
const circutorSamples = 10

// drawFn produces a value uniformly distributed in [min, max). Production
// models draw from a seeded *rand.Rand; tests inject fixed sequences.
type drawFn func(min, max float64) float64

// Model computes one synthetic current measurement per call using a
// device-specific physical formula over randomly drawn inputs.
type Model interface {
	Kind() Kind
	Measure() float64
}

// NewModel builds the measurement model for a kind with its own randomness
// source. Each emulator instance gets its own source so instances never share
// mutable state and tests can seed deterministically.
func NewModel(k Kind, rng *rand.Rand) (Model, error) {
	draw := func(min, max float64) float64 {
		return min + rng.Float64()*(max-min)
	}
	switch k {
	case Greenlee:
		return &greenleeModel{draw: draw}, nil
	case Entes:
		return &entesModel{draw: draw}, nil
	case Circutor:
		return &circutorModel{draw: draw}, nil
	}
	return nil, errors.Errorf("no measurement model for device kind %q", string(k))
}

// greenleeModel derives current from Ohm's law over a drawn voltage and
// resistance.
type greenleeModel struct {
	draw drawFn
}

func (m *greenleeModel) Kind() Kind { return Greenlee }

func (m *greenleeModel) Measure() float64 {
	voltage := m.draw(1.0, 10.0)
	resistance := m.draw(0.1, 100.0)
	return voltage / resistance
}

// entesModel derives current from a Hall-effect flux density reading scaled
// by a calibration factor.
type entesModel struct {
	draw drawFn
}

func (m *entesModel) Kind() Kind { return Entes }

func (m *entesModel) Measure() float64 {
	fluxDensity := m.draw(0.01, 0.1)
	calibration := m.draw(500, 2000)
	return fluxDensity * calibration
}

// circutorModel approximates Rogowski coil integration: a discrete sum of
// coil voltage samples over a drawn time step.
type circutorModel struct {
	draw drawFn
}

func (m *circutorModel) Kind() Kind { return Circutor }

func (m *circutorModel) Measure() float64 {
	timeStep := m.draw(0.001, 0.01)
	current := 0.0
	for i := 0; i < circutorSamples; i++ {
		current += m.draw(0.1, 1.0) * timeStep
	}
	return current
}
