package emulator

import (
	"context"
	"sync"
)

// Fleet runs several emulator servers concurrently. One device's failure or
// slow connection never blocks another device's accept loop.
type Fleet struct {
	servers []*Server
}

// NewFleet builds servers for each config. All listeners are bound before
// any serving starts, so a port clash fails fast.
func NewFleet(cfgs []Config) (*Fleet, error) {
	f := &Fleet{}
	for _, cfg := range cfgs {
		s, err := NewServer(cfg)
		if err != nil {
			return nil, err
		}
		f.servers = append(f.servers, s)
	}
	return f, nil
}

// Servers exposes the fleet's members, e.g. to read bound addresses.
func (f *Fleet) Servers() []*Server { return f.servers }

// Run listens on every server, then serves them all until ctx is canceled.
// The first serve error is returned after every server has stopped.
func (f *Fleet) Run(ctx context.Context) error {
	for _, s := range f.servers {
		if s.ln != nil {
			continue
		}
		if err := s.Listen(); err != nil {
			return err
		}
	}
	errc := make(chan error, len(f.servers))
	var wg sync.WaitGroup
	for _, s := range f.servers {
		wg.Add(1)
		go func(s *Server) {
			defer wg.Done()
			errc <- s.Serve(ctx)
		}(s)
	}
	wg.Wait()
	close(errc)
	for err := range errc {
		if err != nil {
			return err
		}
	}
	return nil
}
