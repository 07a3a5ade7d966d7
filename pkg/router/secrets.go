package router

import (
	"context"
	"net/http"

	"github.com/uwscloud/fabric/pkg/nodeclient"
	"github.com/uwscloud/fabric/pkg/types"
)

// SecretCreate stores a secret.
func (r *Router) SecretCreate(ctx context.Context, serviceID string, secret map[string]any) (map[string]any, error) {
	svc, err := r.resolve(types.ServiceKindSecrets, serviceID)
	if err != nil {
		return nil, err
	}

	if err := r.forward(ctx, http.MethodPost, svc.URL()+"/secrets/store", nil, secret, nil, forwardTimeout); err != nil {
		return nil, err
	}
	return map[string]any{
		"service_id":  serviceID,
		"secret_name": secret["name"],
		"created":     true,
		"timestamp":   timestamp(),
	}, nil
}

// SecretGet fetches a secret by name. A missing secret is not an
// error: the envelope carries a null secret.
func (r *Router) SecretGet(ctx context.Context, serviceID, name string) (map[string]any, error) {
	svc, err := r.resolve(types.ServiceKindSecrets, serviceID)
	if err != nil {
		return nil, err
	}

	var result any
	err = r.forward(ctx, http.MethodGet, svc.URL()+"/secrets/"+name, nil, nil, &result, forwardTimeout)
	if nodeclient.IsNotFound(err) {
		return map[string]any{
			"service_id": serviceID,
			"secret":     nil,
			"timestamp":  timestamp(),
		}, nil
	}
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"service_id": serviceID,
		"secret":     result,
		"timestamp":  timestamp(),
	}, nil
}

// SecretList lists secret names.
func (r *Router) SecretList(ctx context.Context, serviceID string) (map[string]any, error) {
	svc, err := r.resolve(types.ServiceKindSecrets, serviceID)
	if err != nil {
		return nil, err
	}

	var result map[string]any
	if err := r.forward(ctx, http.MethodGet, svc.URL()+"/secrets", nil, nil, &result, forwardTimeout); err != nil {
		return nil, err
	}

	secrets, ok := result["secrets"]
	if !ok {
		secrets = []any{}
	}
	return map[string]any{
		"service_id": serviceID,
		"secrets":    secrets,
		"timestamp":  timestamp(),
	}, nil
}

// SecretDelete removes a secret by name.
func (r *Router) SecretDelete(ctx context.Context, serviceID, name string) (map[string]any, error) {
	svc, err := r.resolve(types.ServiceKindSecrets, serviceID)
	if err != nil {
		return nil, err
	}

	var result map[string]any
	if err := r.forward(ctx, http.MethodDelete, svc.URL()+"/secrets/"+name, nil, nil, &result, forwardTimeout); err != nil {
		return nil, err
	}

	deleted, _ := result["deleted"].(bool)
	return map[string]any{
		"service_id":  serviceID,
		"secret_name": name,
		"deleted":     deleted,
		"timestamp":   timestamp(),
	}, nil
}
