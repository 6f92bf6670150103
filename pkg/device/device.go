// Package device defines the emulated ammeter kinds, their network
// endpoints, and their measurement models.
package device

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Kind identifies one of the emulated ammeter families.
type Kind string

const (
	Greenlee Kind = "greenlee"
	Entes    Kind = "entes"
	Circutor Kind = "circutor"
)

// Wire commands, one exact string per device kind. Anything else sent to an
// emulator yields an error reply.
const (
	GreenleeCommand = "MEASURE_GREENLEE -get_measurement"
	EntesCommand    = "MEASURE_ENTES -get_data"
	CircutorCommand = "MEASURE_CIRCUTOR -get_measurement"
)

// Default ports the emulators bind to, one device per port.
const (
	GreenleePort = 5000
	EntesPort    = 5001
	CircutorPort = 5002
)

// SupportedKinds returns all device kinds in a stable order.
func SupportedKinds() []Kind {
	return []Kind{Greenlee, Entes, Circutor}
}

// KindFromString converts a user-supplied name into a Kind.
func KindFromString(s string) (Kind, error) {
	switch Kind(s) {
	case Greenlee, Entes, Circutor:
		return Kind(s), nil
	}
	return "", errors.Errorf("unknown device kind %q (supported: %v)", s, SupportedKinds())
}

// KindsFromString parses a comma-separated device list; "all" or an empty
// string selects every kind.
func KindsFromString(s string) ([]Kind, error) {
	if s == "" || s == "all" {
		return SupportedKinds(), nil
	}
	var kinds []Kind
	seen := map[Kind]bool{}
	for _, name := range strings.Split(s, ",") {
		k, err := KindFromString(strings.TrimSpace(name))
		if err != nil {
			return nil, err
		}
		if seen[k] {
			return nil, errors.Errorf("device kind %q listed twice", k)
		}
		seen[k] = true
		kinds = append(kinds, k)
	}
	return kinds, nil
}

// Command returns the exact measurement command the device answers to.
func (k Kind) Command() string {
	switch k {
	case Greenlee:
		return GreenleeCommand
	case Entes:
		return EntesCommand
	case Circutor:
		return CircutorCommand
	}
	panic(fmt.Sprintf("no command for device kind %q", string(k)))
}

// DefaultPort returns the port the kind's emulator binds to by default.
func (k Kind) DefaultPort() uint {
	switch k {
	case Greenlee:
		return GreenleePort
	case Entes:
		return EntesPort
	case Circutor:
		return CircutorPort
	}
	panic(fmt.Sprintf("no default port for device kind %q", string(k)))
}

// PlausibleRange returns the closed interval of currents the kind's
// measurement model can produce, derived from its draw bounds. Replies
// outside this range are treated as parse failures by the client.
func (k Kind) PlausibleRange() (min, max float64) {
	switch k {
	case Greenlee:
		// V in [1,10], R in [0.1,100]
		return 1.0 / 100.0, 10.0 / 0.1
	case Entes:
		// B in [0.01,0.1], K in [500,2000]
		return 0.01 * 500, 0.1 * 2000
	case Circutor:
		// 10 draws of v in [0.1,1.0] times dt in [0.001,0.01]
		return circutorSamples * 0.1 * 0.001, circutorSamples * 1.0 * 0.01
	}
	panic(fmt.Sprintf("no plausible range for device kind %q", string(k)))
}

// Endpoint is one addressable emulated device. Immutable once configured.
type Endpoint struct {
	Kind    Kind   `yaml:"kind"`
	Host    string `yaml:"host"`
	Port    uint   `yaml:"port"`
	Command string `yaml:"command,omitempty"`
}

// DefaultEndpoint returns the endpoint a kind's emulator listens on when no
// fleet file overrides it.
func DefaultEndpoint(k Kind) Endpoint {
	return Endpoint{Kind: k, Host: "localhost", Port: k.DefaultPort(), Command: k.Command()}
}

// Addr returns the host:port dial address of the endpoint.
func (e Endpoint) Addr() string {
	return fmt.Sprintf("%s:%d", e.Host, e.Port)
}

// Validate checks that the endpoint is complete enough to dial, filling the
// kind's default command when none was configured.
func (e *Endpoint) Validate() error {
	if _, err := KindFromString(string(e.Kind)); err != nil {
		return err
	}
	if e.Host == "" {
		return errors.Errorf("endpoint for %s has no host", e.Kind)
	}
	if e.Port == 0 {
		return errors.Errorf("endpoint for %s has no port", e.Kind)
	}
	if e.Command == "" {
		e.Command = e.Kind.Command()
	}
	return nil
}
