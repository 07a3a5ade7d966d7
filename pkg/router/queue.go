package router

import (
	"context"
	"fmt"
	"net/http"

	"github.com/uwscloud/fabric/pkg/types"
)

// QueueAdd enqueues a message.
func (r *Router) QueueAdd(ctx context.Context, serviceID string, message map[string]any) (map[string]any, error) {
	svc, err := r.resolve(types.ServiceKindQueue, serviceID)
	if err != nil {
		return nil, err
	}

	var result map[string]any
	if err := r.forward(ctx, http.MethodPost, svc.URL()+"/queue/add", nil, message, &result, forwardTimeout); err != nil {
		return nil, err
	}
	return map[string]any{
		"service_id": serviceID,
		"message_id": result["id"],
		"message":    result["message"],
		"timestamp":  timestamp(),
	}, nil
}

// QueueRead reads up to limit messages without removing them.
func (r *Router) QueueRead(ctx context.Context, serviceID string, limit int) (map[string]any, error) {
	svc, err := r.resolve(types.ServiceKindQueue, serviceID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}

	var result any
	target := fmt.Sprintf("%s/queue/read?limit=%d", svc.URL(), limit)
	if err := r.forward(ctx, http.MethodGet, target, nil, nil, &result, forwardTimeout); err != nil {
		return nil, err
	}
	return map[string]any{
		"service_id": serviceID,
		"messages":   result,
		"timestamp":  timestamp(),
	}, nil
}

// QueueDeleteMessage removes one message by id.
func (r *Router) QueueDeleteMessage(ctx context.Context, serviceID, messageID string) (map[string]any, error) {
	svc, err := r.resolve(types.ServiceKindQueue, serviceID)
	if err != nil {
		return nil, err
	}

	var result map[string]any
	if err := r.forward(ctx, http.MethodDelete, svc.URL()+"/queue/"+messageID, nil, nil, &result, forwardTimeout); err != nil {
		return nil, err
	}

	deleted, _ := result["deleted"].(bool)
	return map[string]any{
		"service_id": serviceID,
		"message_id": messageID,
		"deleted":    deleted,
		"timestamp":  timestamp(),
	}, nil
}
