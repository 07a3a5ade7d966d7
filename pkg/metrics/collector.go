package metrics

import (
	"time"

	"github.com/uwscloud/fabric/pkg/types"
)

// Catalog is the subset of the catalog store the collector reads.
type Catalog interface {
	ListNodes() ([]*types.Node, error)
	ListContainers() ([]*types.Container, error)
	ListServices() ([]*types.Service, error)
}

// Collector periodically recomputes gauge metrics from the catalog.
// The background loops update gauges as they go; the collector makes
// the gauges correct again after a restart or missed update.
type Collector struct {
	catalog Catalog
	stopCh  chan struct{}
}

// NewCollector creates a new metrics collector
func NewCollector(catalog Catalog) *Collector {
	return &Collector{
		catalog: catalog,
		stopCh:  make(chan struct{}),
	}
}

// Start begins collecting metrics
func (c *Collector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		// Collect immediately on start
		c.collect()

		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	c.collectNodeMetrics()
	c.collectContainerMetrics()
	c.collectServiceMetrics()
}

func (c *Collector) collectNodeMetrics() {
	nodes, err := c.catalog.ListNodes()
	if err != nil {
		return
	}

	healthy := 0
	for _, node := range nodes {
		if node.Healthy {
			healthy++
		}
	}
	ActiveNodes.Set(float64(healthy))
}

func (c *Collector) collectContainerMetrics() {
	containers, err := c.catalog.ListContainers()
	if err != nil {
		return
	}

	running := 0
	for _, ctr := range containers {
		if ctr.Status == types.ContainerStatusRunning {
			running++
		}
	}
	ActiveContainers.Set(float64(running))
}

func (c *Collector) collectServiceMetrics() {
	services, err := c.catalog.ListServices()
	if err != nil {
		return
	}

	counts := make(map[types.ServiceKind]int)
	for _, svc := range services {
		if svc.Healthy {
			counts[svc.Kind]++
		}
	}

	for _, kind := range types.Kinds() {
		if g := ServiceGauge(string(kind)); g != nil {
			g.Set(float64(counts[kind]))
		}
	}
}
