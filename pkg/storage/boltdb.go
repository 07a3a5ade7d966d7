package storage

import (
	"encoding/json"
	"fmt"

	"github.com/uwscloud/fabric/pkg/types"
	bolt "go.etcd.io/bbolt"
)

var (
	// Bucket names
	bucketNodes      = []byte("nodes")
	bucketContainers = []byte("containers")
	bucketServices   = []byte("services")
	bucketUsage      = []byte("usage")
	bucketInvoices   = []byte("invoices")
)

// BoltStore implements Store interface using BoltDB
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (or creates) the catalog database at dbPath
func NewBoltStore(dbPath string) (*BoltStore, error) {
	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Create buckets
	err = db.Update(func(tx *bolt.Tx) error {
		buckets := [][]byte{
			bucketNodes,
			bucketContainers,
			bucketServices,
			bucketUsage,
			bucketInvoices,
		}

		for _, bucket := range buckets {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})

	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// Close closes the database
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Node operations
func (s *BoltStore) CreateNode(node *types.Node) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNodes)
		data, err := json.Marshal(node)
		if err != nil {
			return err
		}
		return b.Put([]byte(node.ID), data)
	})
}

func (s *BoltStore) GetNode(id string) (*types.Node, error) {
	var node types.Node
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNodes)
		data := b.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("node %s: %w", id, ErrNotFound)
		}
		return json.Unmarshal(data, &node)
	})
	if err != nil {
		return nil, err
	}
	return &node, nil
}

func (s *BoltStore) ListNodes() ([]*types.Node, error) {
	var nodes []*types.Node
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNodes)
		return b.ForEach(func(k, v []byte) error {
			var node types.Node
			if err := json.Unmarshal(v, &node); err != nil {
				return err
			}
			nodes = append(nodes, &node)
			return nil
		})
	})
	return nodes, err
}

func (s *BoltStore) ListHealthyNodes() ([]*types.Node, error) {
	nodes, err := s.ListNodes()
	if err != nil {
		return nil, err
	}

	var healthy []*types.Node
	for _, node := range nodes {
		if node.Healthy {
			healthy = append(healthy, node)
		}
	}
	return healthy, nil
}

func (s *BoltStore) UpdateNode(node *types.Node) error {
	return s.CreateNode(node) // Same as create (upsert)
}

func (s *BoltStore) DeleteNode(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNodes)
		return b.Delete([]byte(id))
	})
}

// Container operations
func (s *BoltStore) CreateContainer(container *types.Container) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketContainers)
		data, err := json.Marshal(container)
		if err != nil {
			return err
		}
		return b.Put([]byte(container.ID), data)
	})
}

func (s *BoltStore) GetContainer(id string) (*types.Container, error) {
	var container types.Container
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketContainers)
		data := b.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("container %s: %w", id, ErrNotFound)
		}
		return json.Unmarshal(data, &container)
	})
	if err != nil {
		return nil, err
	}
	return &container, nil
}

func (s *BoltStore) ListContainers() ([]*types.Container, error) {
	var containers []*types.Container
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketContainers)
		return b.ForEach(func(k, v []byte) error {
			var container types.Container
			if err := json.Unmarshal(v, &container); err != nil {
				return err
			}
			containers = append(containers, &container)
			return nil
		})
	})
	return containers, err
}

func (s *BoltStore) ListContainersByUser(userID string) ([]*types.Container, error) {
	containers, err := s.ListContainers()
	if err != nil {
		return nil, err
	}

	var filtered []*types.Container
	for _, container := range containers {
		if container.UserID == userID {
			filtered = append(filtered, container)
		}
	}
	return filtered, nil
}

func (s *BoltStore) ListContainersByNode(nodeID string) ([]*types.Container, error) {
	containers, err := s.ListContainers()
	if err != nil {
		return nil, err
	}

	var filtered []*types.Container
	for _, container := range containers {
		if container.NodeID == nodeID {
			filtered = append(filtered, container)
		}
	}
	return filtered, nil
}

func (s *BoltStore) UpdateContainer(container *types.Container) error {
	return s.CreateContainer(container)
}

func (s *BoltStore) DeleteContainer(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketContainers)
		return b.Delete([]byte(id))
	})
}

// Managed service operations
func (s *BoltStore) CreateService(service *types.Service) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketServices)
		data, err := json.Marshal(service)
		if err != nil {
			return err
		}
		return b.Put([]byte(service.ID), data)
	})
}

func (s *BoltStore) GetService(id string) (*types.Service, error) {
	var service types.Service
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketServices)
		data := b.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("service %s: %w", id, ErrNotFound)
		}
		return json.Unmarshal(data, &service)
	})
	if err != nil {
		return nil, err
	}
	return &service, nil
}

func (s *BoltStore) ListServices() ([]*types.Service, error) {
	var services []*types.Service
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketServices)
		return b.ForEach(func(k, v []byte) error {
			var service types.Service
			if err := json.Unmarshal(v, &service); err != nil {
				return err
			}
			services = append(services, &service)
			return nil
		})
	})
	return services, err
}

func (s *BoltStore) ListServicesByKind(kind types.ServiceKind) ([]*types.Service, error) {
	services, err := s.ListServices()
	if err != nil {
		return nil, err
	}

	var filtered []*types.Service
	for _, service := range services {
		if service.Kind == kind {
			filtered = append(filtered, service)
		}
	}
	return filtered, nil
}

func (s *BoltStore) UpdateService(service *types.Service) error {
	return s.CreateService(service)
}

func (s *BoltStore) DeleteService(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketServices)
		return b.Delete([]byte(id))
	})
}

// Usage record operations
func (s *BoltStore) CreateUsageRecord(record *types.UsageRecord) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketUsage)
		data, err := json.Marshal(record)
		if err != nil {
			return err
		}
		return b.Put([]byte(record.ID), data)
	})
}

func (s *BoltStore) ListUsageRecords() ([]*types.UsageRecord, error) {
	var records []*types.UsageRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketUsage)
		return b.ForEach(func(k, v []byte) error {
			var record types.UsageRecord
			if err := json.Unmarshal(v, &record); err != nil {
				return err
			}
			records = append(records, &record)
			return nil
		})
	})
	return records, err
}

// Invoice operations
func (s *BoltStore) CreateInvoice(invoice *types.Invoice) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketInvoices)
		data, err := json.Marshal(invoice)
		if err != nil {
			return err
		}
		return b.Put([]byte(invoice.ID), data)
	})
}

func (s *BoltStore) ListInvoices() ([]*types.Invoice, error) {
	var invoices []*types.Invoice
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketInvoices)
		return b.ForEach(func(k, v []byte) error {
			var invoice types.Invoice
			if err := json.Unmarshal(v, &invoice); err != nil {
				return err
			}
			invoices = append(invoices, &invoice)
			return nil
		})
	})
	return invoices, err
}
