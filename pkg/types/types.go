package types

import (
	"fmt"
	"time"
)

// Node represents a worker node that has registered with the control plane.
type Node struct {
	ID              string    `json:"node_id"`
	URL             string    `json:"url"`
	Healthy         bool      `json:"is_healthy"`
	LastHealthCheck time.Time `json:"last_health_check"`
	LastSeen        time.Time `json:"last_seen"`
	RegisteredAt    time.Time `json:"registered_at"`
}

// Container represents a container dispatched to a node on behalf of a user.
type Container struct {
	ID        string            `json:"container_id"`
	UserID    string            `json:"user_id"`
	NodeID    string            `json:"node_id"`
	Image     string            `json:"image"`
	Name      string            `json:"name,omitempty"`
	Env       map[string]string `json:"env_vars,omitempty"`
	CPU       float64           `json:"cpu,omitempty"`
	Memory    string            `json:"memory,omitempty"`
	Ports     []int             `json:"ports,omitempty"`
	Status    ContainerStatus   `json:"status"`
	CreatedAt time.Time         `json:"created_at"`
}

// ContainerStatus represents the state of a container as last observed.
type ContainerStatus string

const (
	ContainerStatusRunning ContainerStatus = "running"
	ContainerStatusStopped ContainerStatus = "stopped"
	ContainerStatusFailed  ContainerStatus = "failed"
)

// ServiceKind identifies a managed service flavor.
type ServiceKind string

const (
	ServiceKindBucket  ServiceKind = "bucket"
	ServiceKindSQL     ServiceKind = "db"
	ServiceKindNoSQL   ServiceKind = "nosql"
	ServiceKindQueue   ServiceKind = "queue"
	ServiceKindSecrets ServiceKind = "secrets"
)

// Kinds lists every managed service kind in deterministic order.
func Kinds() []ServiceKind {
	return []ServiceKind{
		ServiceKindBucket,
		ServiceKindSQL,
		ServiceKindNoSQL,
		ServiceKindQueue,
		ServiceKindSecrets,
	}
}

// InternalPort returns the well-known port the service kind listens on
// inside its container.
func (k ServiceKind) InternalPort() int {
	switch k {
	case ServiceKindBucket:
		return 8000
	case ServiceKindSQL:
		return 8010
	case ServiceKindNoSQL:
		return 8020
	case ServiceKindQueue:
		return 8030
	case ServiceKindSecrets:
		return 8040
	}
	return 0
}

// Display returns the kind's human name as used in API messages.
func (k ServiceKind) Display() string {
	switch k {
	case ServiceKindBucket:
		return "Bucket"
	case ServiceKindSQL:
		return "DB"
	case ServiceKindNoSQL:
		return "NoSQL"
	case ServiceKindQueue:
		return "Queue"
	case ServiceKindSecrets:
		return "Secrets"
	}
	return string(k)
}

// ServiceStatus represents the lifecycle state of a managed service.
type ServiceStatus string

const (
	ServiceStatusStarting  ServiceStatus = "starting"
	ServiceStatusRunning   ServiceStatus = "running"
	ServiceStatusStopped   ServiceStatus = "stopped"
	ServiceStatusUnhealthy ServiceStatus = "unhealthy"
	ServiceStatusFailed    ServiceStatus = "failed"
)

// Service represents a managed service instance (bucket, db, nosql,
// queue or secrets) backed by a container on some node.
type Service struct {
	ID              string        `json:"service_id"`
	Kind            ServiceKind   `json:"kind"`
	ContainerID     string        `json:"container_id"`
	NodeID          string        `json:"node_id"`
	IPAddress       string        `json:"ip_address"`
	Port            int           `json:"port"`
	Status          ServiceStatus `json:"status"`
	Healthy         bool          `json:"is_healthy"`
	LastHealthCheck time.Time     `json:"last_health_check"`
	CreatedAt       time.Time     `json:"created_at"`

	// SQL-only configuration, zero for other kinds.
	ResourceLimits *ResourceLimits `json:"resource_limits,omitempty"`
	DatabaseName   string          `json:"database_name,omitempty"`
	InstanceName   string          `json:"instance_name,omitempty"`
}

// URL returns the externally reachable base URL of the service.
func (s *Service) URL() string {
	return fmt.Sprintf("http://%s:%d", s.IPAddress, s.Port)
}

// ResourceLimits caps a SQL service instance.
type ResourceLimits struct {
	MaxCPUPercent int `json:"max_cpu_percent" yaml:"max_cpu_percent"`
	MaxRAMMB      int `json:"max_ram_mb" yaml:"max_ram_mb"`
	MaxDiskGB     int `json:"max_disk_gb" yaml:"max_disk_gb"`
}

// DefaultResourceLimits returns the limits applied when a launch request
// omits them.
func DefaultResourceLimits() *ResourceLimits {
	return &ResourceLimits{
		MaxCPUPercent: 90,
		MaxRAMMB:      2048,
		MaxDiskGB:     10,
	}
}

// LaunchRequest asks the dispatcher to place a container on a node.
type LaunchRequest struct {
	UserID string            `json:"user_id"`
	Image  string            `json:"image"`
	Name   string            `json:"name,omitempty"`
	Env    map[string]string `json:"env_vars,omitempty"`
	CPU    float64           `json:"cpu,omitempty"`
	Memory string            `json:"memory,omitempty"`
	Ports  []int             `json:"ports,omitempty"`
}

// ServiceLaunchRequest asks the launcher to start a managed service.
type ServiceLaunchRequest struct {
	UserID string `json:"user_id"`

	// SQL-only fields.
	InstanceName   string          `json:"instance_name,omitempty"`
	DatabaseName   string          `json:"database_name,omitempty"`
	ResourceLimits *ResourceLimits `json:"resource_limits,omitempty"`
}

// ServiceLaunchResult reports a completed launch back to the caller.
type ServiceLaunchResult struct {
	ContainerID string `json:"container_id"`
	ServiceID   string `json:"service_id"`
	IPAddress   string `json:"ip_address"`
	Port        int    `json:"port"`
	ServiceURL  string `json:"service_url"`
	Status      string `json:"status"`
}

// Template describes a prebuilt container image users can launch.
type Template struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Image       string            `json:"image"`
	Ports       map[string]int    `json:"ports"`
	Env         map[string]string `json:"env"`
	CPU         float64           `json:"cpu"`
	Memory      string            `json:"memory"`
}

// UsageRecord is one metering sample written by the usage accountant.
type UsageRecord struct {
	ID          string    `json:"id"`
	ServiceID   string    `json:"service_id"`
	ServiceType string    `json:"service_type"`
	Amount      float64   `json:"usage_amount"`
	Unit        string    `json:"unit"`
	Cost        float64   `json:"cost"`
	Timestamp   time.Time `json:"timestamp"`
}

// Invoice aggregates usage over a billing period.
type Invoice struct {
	ID          string             `json:"invoice_id"`
	Period      string             `json:"period"`
	StartDate   time.Time          `json:"start_date"`
	EndDate     time.Time          `json:"end_date"`
	TotalAmount float64            `json:"total_amount"`
	Status      string             `json:"status"`
	DueDate     time.Time          `json:"due_date"`
	Breakdown   map[string]float64 `json:"usage_breakdown,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
}
