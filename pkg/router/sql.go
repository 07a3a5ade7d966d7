package router

import (
	"context"
	"fmt"
	"net/http"

	"github.com/uwscloud/fabric/pkg/types"
)

// signatureHeaders returns the headers attached to every SQL service
// request. The service rejects requests without a valid x-signature.
func (r *Router) signatureHeaders() map[string]string {
	return map[string]string{"x-signature": r.signingKey}
}

// SQLQuery executes a SQL statement on a database service.
func (r *Router) SQLQuery(ctx context.Context, serviceID string, query map[string]any) (map[string]any, error) {
	svc, err := r.resolve(types.ServiceKindSQL, serviceID)
	if err != nil {
		return nil, err
	}

	var result any
	if err := r.forward(ctx, http.MethodPost, svc.URL()+"/sql/query", r.signatureHeaders(), query, &result, queryTimeout); err != nil {
		return nil, err
	}
	return map[string]any{
		"service_id":   serviceID,
		"query_result": result,
		"timestamp":    timestamp(),
	}, nil
}

// SQLTables lists the tables of a database service.
func (r *Router) SQLTables(ctx context.Context, serviceID string) (map[string]any, error) {
	svc, err := r.resolve(types.ServiceKindSQL, serviceID)
	if err != nil {
		return nil, err
	}

	var result any
	if err := r.forward(ctx, http.MethodGet, svc.URL()+"/sql/tables", r.signatureHeaders(), nil, &result, forwardTimeout); err != nil {
		return nil, err
	}
	return map[string]any{
		"service_id": serviceID,
		"tables":     result,
		"timestamp":  timestamp(),
	}, nil
}

// SQLSchema fetches the schema of one table.
func (r *Router) SQLSchema(ctx context.Context, serviceID, tableName string) (map[string]any, error) {
	svc, err := r.resolve(types.ServiceKindSQL, serviceID)
	if err != nil {
		return nil, err
	}

	var result any
	if err := r.forward(ctx, http.MethodGet, svc.URL()+"/sql/schema/"+tableName, r.signatureHeaders(), nil, &result, forwardTimeout); err != nil {
		return nil, err
	}
	return map[string]any{
		"service_id": serviceID,
		"schema":     result,
		"timestamp":  timestamp(),
	}, nil
}

// SQLConfigUpdate is a partial update of a database service's
// configuration. Nil fields are left unchanged.
type SQLConfigUpdate struct {
	MaxCPUPercent *int    `json:"max_cpu_percent,omitempty"`
	MaxRAMMB      *int    `json:"max_ram_mb,omitempty"`
	MaxDiskGB     *int    `json:"max_disk_gb,omitempty"`
	InstanceName  *string `json:"instance_name,omitempty"`
}

// SQLUpdateConfig updates a database service's configuration in the
// catalog and pushes changed resource limits to the service itself.
// The push is best effort; the catalog is the record.
func (r *Router) SQLUpdateConfig(ctx context.Context, serviceID string, update *SQLConfigUpdate) (map[string]any, error) {
	svc, err := r.Get(types.ServiceKindSQL, serviceID)
	if err != nil {
		return nil, err
	}

	if svc.ResourceLimits == nil {
		svc.ResourceLimits = types.DefaultResourceLimits()
	}

	limitsChanged := false
	if update.MaxCPUPercent != nil {
		svc.ResourceLimits.MaxCPUPercent = *update.MaxCPUPercent
		limitsChanged = true
	}
	if update.MaxRAMMB != nil {
		svc.ResourceLimits.MaxRAMMB = *update.MaxRAMMB
		limitsChanged = true
	}
	if update.MaxDiskGB != nil {
		svc.ResourceLimits.MaxDiskGB = *update.MaxDiskGB
		limitsChanged = true
	}
	if update.InstanceName != nil {
		svc.InstanceName = *update.InstanceName
	}

	if err := r.store.UpdateService(svc); err != nil {
		return nil, fmt.Errorf("failed to update service: %w", err)
	}

	if limitsChanged {
		err := r.forward(ctx, http.MethodPost, svc.URL()+"/config/resource-limits",
			r.signatureHeaders(), svc.ResourceLimits, nil, forwardTimeout)
		if err != nil {
			r.logger.Warn().Err(err).
				Str("service_id", serviceID).
				Msg("failed to push resource limits to service")
		}
	}

	return map[string]any{
		"service_id": serviceID,
		"message":    "Configuration updated successfully",
		"updated_config": map[string]any{
			"max_cpu_percent": svc.ResourceLimits.MaxCPUPercent,
			"max_ram_mb":      svc.ResourceLimits.MaxRAMMB,
			"max_disk_gb":     svc.ResourceLimits.MaxDiskGB,
			"instance_name":   svc.InstanceName,
		},
		"timestamp": timestamp(),
	}, nil
}

// SQLStats fetches runtime statistics from a database service and
// pairs them with the service's stored configuration.
func (r *Router) SQLStats(ctx context.Context, serviceID string) (map[string]any, error) {
	svc, err := r.resolve(types.ServiceKindSQL, serviceID)
	if err != nil {
		return nil, err
	}

	var result any
	if err := r.forward(ctx, http.MethodGet, svc.URL()+"/stats", r.signatureHeaders(), nil, &result, forwardTimeout); err != nil {
		return nil, err
	}

	limits := svc.ResourceLimits
	if limits == nil {
		limits = types.DefaultResourceLimits()
	}

	return map[string]any{
		"service_id": serviceID,
		"statistics": result,
		"service_config": map[string]any{
			"max_cpu_percent": limits.MaxCPUPercent,
			"max_ram_mb":      limits.MaxRAMMB,
			"max_disk_gb":     limits.MaxDiskGB,
			"instance_name":   svc.InstanceName,
			"database_name":   svc.DatabaseName,
		},
		"timestamp": timestamp(),
	}, nil
}
