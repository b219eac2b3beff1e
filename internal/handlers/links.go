package handlers

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/linktrail/internal/activity"
	"github.com/serroba/linktrail/internal/tracking"
	"go.uber.org/zap"
)

// LinkService is the tracking façade used by LinkHandler.
type LinkService interface {
	CreateTrackedLink(ctx context.Context, rawURL string) (*tracking.TrackedLink, error)
	RecordVisit(ctx context.Context, token tracking.Token, sourceIP, userAgent, location string) (activity.EventID, error)
	Link(ctx context.Context, token tracking.Token) (*tracking.TrackedLink, error)
	Links(ctx context.Context) ([]*tracking.TrackedLink, error)
}

// LinkHandler handles tracked link issuance and visit capture.
type LinkHandler struct {
	service LinkService
	baseURL string
	logger  *zap.Logger
}

// NewLinkHandler creates a new link handler.
func NewLinkHandler(service LinkService, baseURL string, logger *zap.Logger) *LinkHandler {
	return &LinkHandler{
		service: service,
		baseURL: baseURL,
		logger:  logger,
	}
}

func (h *LinkHandler) CreateLink(ctx context.Context, req *CreateLinkRequest) (*CreateLinkResponse, error) {
	link, err := h.service.CreateTrackedLink(ctx, req.Body.URL)
	if err != nil {
		return nil, h.linkError(err, "failed to create tracked link")
	}

	resp := &CreateLinkResponse{Body: h.toLinkBody(link)}
	resp.Headers.Location = resp.Body.TrackingURL

	return resp, nil
}

func (h *LinkHandler) ListLinks(ctx context.Context, _ *struct{}) (*ListLinksResponse, error) {
	links, err := h.service.Links(ctx)
	if err != nil {
		return nil, h.linkError(err, "failed to list tracked links")
	}

	resp := &ListLinksResponse{}
	resp.Body.Links = make([]LinkBody, 0, len(links))

	for _, link := range links {
		resp.Body.Links = append(resp.Body.Links, h.toLinkBody(link))
	}

	return resp, nil
}

func (h *LinkHandler) GetLink(ctx context.Context, req *TokenPath) (*GetLinkResponse, error) {
	link, err := h.service.Link(ctx, tracking.Token(req.Token))
	if err != nil {
		return nil, h.linkError(err, "failed to get tracked link")
	}

	return &GetLinkResponse{Body: h.toLinkBody(link)}, nil
}

func (h *LinkHandler) RecordVisit(ctx context.Context, req *RecordVisitRequest) (*EventCreatedResponse, error) {
	meta := RequestMetaFromContext(ctx)

	sourceIP := req.Body.SourceIP
	if sourceIP == "" {
		sourceIP = meta.ClientIP
	}

	userAgent := req.Body.UserAgent
	if userAgent == "" {
		userAgent = meta.UserAgent
	}

	id, err := h.service.RecordVisit(ctx, tracking.Token(req.Token), sourceIP, userAgent, req.Body.Location)
	if err != nil {
		return nil, h.linkError(err, "failed to record visit")
	}

	resp := &EventCreatedResponse{}
	resp.Body.EventID = uint64(id)

	return resp, nil
}

func (h *LinkHandler) toLinkBody(link *tracking.TrackedLink) LinkBody {
	return LinkBody{
		Token:       string(link.Token),
		TrackingURL: tracking.TrackingURL(h.baseURL, link.Token),
		OriginalURL: link.OriginalURL,
		CreatedAt:   link.CreatedAt,
	}
}

func (h *LinkHandler) linkError(err error, msg string) error {
	switch {
	case errors.Is(err, tracking.ErrInvalidURL):
		return huma.Error422UnprocessableEntity(err.Error())
	case errors.Is(err, tracking.ErrUnknownToken), errors.Is(err, tracking.ErrNotFound):
		return huma.Error404NotFound("tracked link not found")
	case errors.Is(err, activity.ErrMalformedEvent):
		return huma.Error422UnprocessableEntity(err.Error())
	}

	h.logger.Error(msg, zap.Error(err))

	return huma.Error500InternalServerError(msg)
}
