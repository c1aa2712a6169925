package health

import (
	"context"
	"fmt"
)

// BackendHealthChecker probes the monitoring backend. The views cannot work
// without it, so a failure is unhealthy.
type BackendHealthChecker struct {
	healthFunc func(ctx context.Context) error
}

func NewBackendHealthChecker(healthFunc func(ctx context.Context) error) *BackendHealthChecker {
	return &BackendHealthChecker{healthFunc: healthFunc}
}

func (c *BackendHealthChecker) Name() string {
	return "backend"
}

func (c *BackendHealthChecker) Check(ctx context.Context) (Status, string) {
	if err := c.healthFunc(ctx); err != nil {
		return StatusUnhealthy, err.Error()
	}
	return StatusHealthy, ""
}

type PublisherHealthChecker struct {
	healthFunc func(ctx context.Context) error
}

func NewPublisherHealthChecker(healthFunc func(ctx context.Context) error) *PublisherHealthChecker {
	return &PublisherHealthChecker{healthFunc: healthFunc}
}

func (c *PublisherHealthChecker) Name() string {
	return "publisher"
}

func (c *PublisherHealthChecker) Check(ctx context.Context) (Status, string) {
	if err := c.healthFunc(ctx); err != nil {
		return StatusDegraded, err.Error()
	}
	return StatusHealthy, ""
}

// ViewHealthChecker reports a polling view. A view in the error state is
// degraded: it keeps retrying on its own.
type ViewHealthChecker struct {
	name      string
	stateFunc func() (phase string, err error)
}

func NewViewHealthChecker(name string, stateFunc func() (string, error)) *ViewHealthChecker {
	return &ViewHealthChecker{name: name, stateFunc: stateFunc}
}

func (c *ViewHealthChecker) Name() string {
	return "view:" + c.name
}

func (c *ViewHealthChecker) Check(ctx context.Context) (Status, string) {
	phase, err := c.stateFunc()
	if err != nil {
		return StatusDegraded, fmt.Sprintf("%s: %v", phase, err)
	}
	return StatusHealthy, phase
}
