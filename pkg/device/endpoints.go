package device

import (
	"io"
	"io/ioutil"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// fleetFile is the YAML shape of an endpoints file: a list of endpoints,
// each overriding the kind's default host/port/command.
type fleetFile struct {
	Endpoints []Endpoint `yaml:"endpoints"`
}

// LoadEndpoints parses a YAML fleet description. Kinds not listed keep their
// defaults when resolved through EndpointsFor.
func LoadEndpoints(r io.Reader) ([]Endpoint, error) {
	raw, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "reading endpoints file")
	}
	var f fleetFile
	if err := yaml.UnmarshalStrict(raw, &f); err != nil {
		return nil, errors.Wrap(err, "parsing endpoints file")
	}
	seen := map[Kind]bool{}
	for i := range f.Endpoints {
		if err := f.Endpoints[i].Validate(); err != nil {
			return nil, err
		}
		if seen[f.Endpoints[i].Kind] {
			return nil, errors.Errorf("duplicate endpoint for device kind %q", f.Endpoints[i].Kind)
		}
		seen[f.Endpoints[i].Kind] = true
	}
	return f.Endpoints, nil
}

// LoadEndpointsFile is LoadEndpoints over a file path.
func LoadEndpointsFile(path string) ([]Endpoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening endpoints file %s", path)
	}
	defer f.Close()
	return LoadEndpoints(f)
}

// EndpointsFor resolves the endpoints for the requested kinds: an override
// from the fleet list when present, the kind's default otherwise.
func EndpointsFor(kinds []Kind, overrides []Endpoint) []Endpoint {
	byKind := map[Kind]Endpoint{}
	for _, e := range overrides {
		byKind[e.Kind] = e
	}
	eps := make([]Endpoint, 0, len(kinds))
	for _, k := range kinds {
		if e, ok := byKind[k]; ok {
			eps = append(eps, e)
		} else {
			eps = append(eps, DefaultEndpoint(k))
		}
	}
	return eps
}
