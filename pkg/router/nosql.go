package router

import (
	"context"
	"net/http"
	"net/url"

	"github.com/uwscloud/fabric/pkg/types"
)

// NoSQLCollections lists the collections of a NoSQL service.
func (r *Router) NoSQLCollections(ctx context.Context, serviceID string) (map[string]any, error) {
	svc, err := r.resolve(types.ServiceKindNoSQL, serviceID)
	if err != nil {
		return nil, err
	}

	var result any
	if err := r.forward(ctx, http.MethodGet, svc.URL()+"/nosql/collections", nil, nil, &result, forwardTimeout); err != nil {
		return nil, err
	}
	return map[string]any{
		"service_id":  serviceID,
		"collections": result,
		"timestamp":   timestamp(),
	}, nil
}

// NoSQLCreateCollection creates a collection.
func (r *Router) NoSQLCreateCollection(ctx context.Context, serviceID, collection string) (map[string]any, error) {
	svc, err := r.resolve(types.ServiceKindNoSQL, serviceID)
	if err != nil {
		return nil, err
	}

	var result any
	if err := r.forward(ctx, http.MethodPost, svc.URL()+"/nosql/create_collection/"+collection, nil, nil, &result, forwardTimeout); err != nil {
		return nil, err
	}
	return map[string]any{
		"service_id":      serviceID,
		"collection_name": collection,
		"result":          result,
		"timestamp":       timestamp(),
	}, nil
}

// NoSQLSave writes an entity into a collection.
func (r *Router) NoSQLSave(ctx context.Context, serviceID, collection string, entity map[string]any) (map[string]any, error) {
	svc, err := r.resolve(types.ServiceKindNoSQL, serviceID)
	if err != nil {
		return nil, err
	}

	var result any
	if err := r.forward(ctx, http.MethodPost, svc.URL()+"/nosql/"+collection+"/save_json", nil, entity, &result, forwardTimeout); err != nil {
		return nil, err
	}
	return map[string]any{
		"service_id":      serviceID,
		"collection_name": collection,
		"result":          result,
		"timestamp":       timestamp(),
	}, nil
}

// NoSQLQuery finds entities where field equals value.
func (r *Router) NoSQLQuery(ctx context.Context, serviceID, collection, field, value string) (map[string]any, error) {
	svc, err := r.resolve(types.ServiceKindNoSQL, serviceID)
	if err != nil {
		return nil, err
	}

	query := url.Values{"field": {field}, "value": {value}}
	target := svc.URL() + "/nosql/" + collection + "/query?" + query.Encode()

	var result any
	if err := r.forward(ctx, http.MethodGet, target, nil, nil, &result, forwardTimeout); err != nil {
		return nil, err
	}
	return map[string]any{
		"service_id":      serviceID,
		"collection_name": collection,
		"query_result":    result,
		"timestamp":       timestamp(),
	}, nil
}

// NoSQLScan lists every document in a collection.
func (r *Router) NoSQLScan(ctx context.Context, serviceID, collection string) (map[string]any, error) {
	svc, err := r.resolve(types.ServiceKindNoSQL, serviceID)
	if err != nil {
		return nil, err
	}

	var result any
	if err := r.forward(ctx, http.MethodGet, svc.URL()+"/nosql/"+collection+"/scan", nil, nil, &result, forwardTimeout); err != nil {
		return nil, err
	}
	return map[string]any{
		"service_id":      serviceID,
		"collection_name": collection,
		"documents":       result,
		"timestamp":       timestamp(),
	}, nil
}

// NoSQLGet fetches one entity by id.
func (r *Router) NoSQLGet(ctx context.Context, serviceID, collection, entityID string) (map[string]any, error) {
	svc, err := r.resolve(types.ServiceKindNoSQL, serviceID)
	if err != nil {
		return nil, err
	}

	var result any
	if err := r.forward(ctx, http.MethodGet, svc.URL()+"/nosql/"+collection+"/get/"+entityID, nil, nil, &result, forwardTimeout); err != nil {
		return nil, err
	}
	return map[string]any{
		"service_id":      serviceID,
		"collection_name": collection,
		"entity":          result,
		"timestamp":       timestamp(),
	}, nil
}

// NoSQLUpdate replaces an entity by id.
func (r *Router) NoSQLUpdate(ctx context.Context, serviceID, collection, entityID string, update map[string]any) (map[string]any, error) {
	svc, err := r.resolve(types.ServiceKindNoSQL, serviceID)
	if err != nil {
		return nil, err
	}

	var result any
	if err := r.forward(ctx, http.MethodPut, svc.URL()+"/nosql/"+collection+"/update/"+entityID, nil, update, &result, forwardTimeout); err != nil {
		return nil, err
	}
	return map[string]any{
		"service_id":      serviceID,
		"collection_name": collection,
		"entity_id":       entityID,
		"result":          result,
		"timestamp":       timestamp(),
	}, nil
}

// NoSQLDelete removes an entity by id.
func (r *Router) NoSQLDelete(ctx context.Context, serviceID, collection, entityID string) (map[string]any, error) {
	svc, err := r.resolve(types.ServiceKindNoSQL, serviceID)
	if err != nil {
		return nil, err
	}

	var result any
	if err := r.forward(ctx, http.MethodDelete, svc.URL()+"/nosql/"+collection+"/delete/"+entityID, nil, nil, &result, forwardTimeout); err != nil {
		return nil, err
	}
	return map[string]any{
		"service_id":      serviceID,
		"collection_name": collection,
		"entity_id":       entityID,
		"result":          result,
		"timestamp":       timestamp(),
	}, nil
}
