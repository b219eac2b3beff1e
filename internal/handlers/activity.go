package handlers

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/linktrail/internal/activity"
	"go.uber.org/zap"
)

// ActivityHandler serves the activity log: collaborator appends, queries and clear.
type ActivityHandler struct {
	log    activity.Log
	query  *activity.Query
	logger *zap.Logger
}

// NewActivityHandler creates a new activity handler.
func NewActivityHandler(log activity.Log, query *activity.Query, logger *zap.Logger) *ActivityHandler {
	return &ActivityHandler{
		log:    log,
		query:  query,
		logger: logger,
	}
}

func (h *ActivityHandler) RecordSearch(ctx context.Context, req *RecordSearchRequest) (*EventCreatedResponse, error) {
	return h.append(ctx, activity.NewSearchRun(req.Body.Query, req.Body.ResultCount))
}

func (h *ActivityHandler) RecordSetting(ctx context.Context, req *RecordSettingRequest) (*EventCreatedResponse, error) {
	return h.append(ctx, activity.NewSettingChanged(req.Body.Name, req.Body.OldValue, req.Body.NewValue))
}

func (h *ActivityHandler) append(ctx context.Context, event *activity.Event) (*EventCreatedResponse, error) {
	id, err := h.log.Append(ctx, event)
	if err != nil {
		if errors.Is(err, activity.ErrMalformedEvent) {
			return nil, huma.Error422UnprocessableEntity(err.Error())
		}

		h.logger.Error("failed to append event", zap.String("kind", string(event.Kind)), zap.Error(err))

		return nil, huma.Error500InternalServerError("failed to append event")
	}

	resp := &EventCreatedResponse{}
	resp.Body.EventID = uint64(id)

	return resp, nil
}

func (h *ActivityHandler) ListActivity(ctx context.Context, req *ListActivityRequest) (*ListActivityResponse, error) {
	kind := activity.KindAll

	if req.Kind != "" && req.Kind != string(activity.KindAll) {
		parsed, err := activity.ParseKind(req.Kind)
		if err != nil {
			return nil, huma.Error422UnprocessableEntity(err.Error())
		}

		kind = parsed
	}

	events, err := h.query.Find(ctx, activity.Filter{Kind: kind, Search: req.Search, Limit: req.Limit})
	if err != nil {
		h.logger.Error("failed to query activity", zap.Error(err))

		return nil, huma.Error500InternalServerError("failed to query activity")
	}

	resp := &ListActivityResponse{}
	resp.Body.Events = make([]EventBody, 0, len(events))

	for _, e := range events {
		resp.Body.Events = append(resp.Body.Events, toEventBody(e))
	}

	resp.Body.Count = len(resp.Body.Events)

	return resp, nil
}

func (h *ActivityHandler) Stats(ctx context.Context, _ *struct{}) (*ActivityStatsResponse, error) {
	stats, err := h.query.Stats(ctx)
	if err != nil {
		h.logger.Error("failed to compute activity stats", zap.Error(err))

		return nil, huma.Error500InternalServerError("failed to compute activity stats")
	}

	resp := &ActivityStatsResponse{}
	resp.Body.Total = stats.Total
	resp.Body.LastEventID = uint64(stats.LastID)
	resp.Body.ByKind = make(map[string]int, len(stats.ByKind))

	for k, n := range stats.ByKind {
		resp.Body.ByKind[string(k)] = n
	}

	return resp, nil
}

func (h *ActivityHandler) ClearActivity(ctx context.Context, _ *struct{}) (*struct{}, error) {
	if err := h.log.Clear(ctx); err != nil {
		h.logger.Error("failed to clear activity", zap.Error(err))

		return nil, huma.Error500InternalServerError("failed to clear activity")
	}

	return nil, nil
}
