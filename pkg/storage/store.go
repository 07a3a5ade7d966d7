package storage

import (
	"errors"

	"github.com/uwscloud/fabric/pkg/types"
)

// ErrNotFound is wrapped by all lookup misses so callers can translate
// them uniformly (the API maps it to 404).
var ErrNotFound = errors.New("not found")

// Store defines the interface for catalog storage
// This is implemented by BoltDB-backed storage
type Store interface {
	// Nodes
	CreateNode(node *types.Node) error
	GetNode(id string) (*types.Node, error)
	ListNodes() ([]*types.Node, error)
	ListHealthyNodes() ([]*types.Node, error)
	UpdateNode(node *types.Node) error
	DeleteNode(id string) error

	// Containers
	CreateContainer(container *types.Container) error
	GetContainer(id string) (*types.Container, error)
	ListContainers() ([]*types.Container, error)
	ListContainersByUser(userID string) ([]*types.Container, error)
	ListContainersByNode(nodeID string) ([]*types.Container, error)
	UpdateContainer(container *types.Container) error
	DeleteContainer(id string) error

	// Managed services
	CreateService(service *types.Service) error
	GetService(id string) (*types.Service, error)
	ListServices() ([]*types.Service, error)
	ListServicesByKind(kind types.ServiceKind) ([]*types.Service, error)
	UpdateService(service *types.Service) error
	DeleteService(id string) error

	// Usage records
	CreateUsageRecord(record *types.UsageRecord) error
	ListUsageRecords() ([]*types.UsageRecord, error)

	// Invoices
	CreateInvoice(invoice *types.Invoice) error
	ListInvoices() ([]*types.Invoice, error)

	// Utility
	Close() error
}
