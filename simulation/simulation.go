// Package simulation assembles the services a cache simulation runs with: the
// engine, the data recorder, the trace collector and the monitor.
package simulation

import (
	"fmt"

	"github.com/sarchlab/unicache/datarecording"
	"github.com/sarchlab/unicache/monitoring"
	"github.com/sarchlab/unicache/sim"
	"github.com/sarchlab/unicache/tracing"
)

// A Simulation provides the service requires to define a simulation.
type Simulation struct {
	id     string
	engine sim.Engine

	dataRecorder datarecording.DataRecorder
	monitor      *monitoring.Monitor
	visTracer    *tracing.DBTracer

	components    []sim.Named
	compNameIndex map[string]sim.Named
}

// ID returns the ID of the simulation.
func (s *Simulation) ID() string {
	return s.id
}

// GetEngine returns the engine used in the simulation.
func (s *Simulation) GetEngine() sim.Engine {
	return s.engine
}

// GetDataRecorder returns the data recorder used in the simulation. It is
// nil when recording is disabled.
func (s *Simulation) GetDataRecorder() datarecording.DataRecorder {
	return s.dataRecorder
}

// GetMonitor returns the monitor used in the simulation. It is nil when
// monitoring is disabled.
func (s *Simulation) GetMonitor() *monitoring.Monitor {
	return s.monitor
}

// GetVisTracer returns the tracer that records tasks into the database.
func (s *Simulation) GetVisTracer() *tracing.DBTracer {
	return s.visTracer
}

// RegisterComponent registers a component with the simulation.
func (s *Simulation) RegisterComponent(c sim.Named) {
	compName := c.Name()
	if _, exists := s.compNameIndex[compName]; exists {
		panic("component " + compName + " already registered")
	}

	s.components = append(s.components, c)
	s.compNameIndex[compName] = c

	if s.monitor != nil {
		s.monitor.RegisterComponent(c)
	}
}

// TraceComponent records the tasks of a component into the database.
func (s *Simulation) TraceComponent(c tracing.NamedHookable) {
	if s.visTracer == nil {
		return
	}

	tracing.CollectTrace(c, s.visTracer)
}

// Components returns all the registered components.
func (s *Simulation) Components() []sim.Named {
	return s.components
}

// GetComponentByName returns the component with the given name.
func (s *Simulation) GetComponentByName(name string) (sim.Named, error) {
	c, ok := s.compNameIndex[name]
	if !ok {
		return nil, fmt.Errorf("component %s not registered", name)
	}

	return c, nil
}

// Terminate writes the pending records and closes the database.
func (s *Simulation) Terminate() {
	if s.visTracer != nil {
		s.visTracer.Terminate()
	}

	if s.dataRecorder != nil {
		if err := s.dataRecorder.Close(); err != nil {
			panic(err)
		}
	}
}
