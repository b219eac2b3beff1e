package tracking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/serroba/linktrail/internal/activity"
	"go.uber.org/zap"
)

// MaxTokenAttempts bounds the draw-and-register loop of CreateTrackedLink.
const MaxTokenAttempts = 5

// EventAppender is the write side of the activity log.
type EventAppender interface {
	Append(ctx context.Context, event *activity.Event) (activity.EventID, error)
}

// Service is the single write entry point for link issuance and visit capture.
type Service struct {
	links    Registry
	events   EventAppender
	generate TokenGenerator
	now      func() time.Time
	logger   *zap.Logger
}

// NewService creates a tracking service.
func NewService(links Registry, events EventAppender, generate TokenGenerator, logger *zap.Logger) *Service {
	return &Service{
		links:    links,
		events:   events,
		generate: generate,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logger,
	}
}

// CreateTrackedLink issues a new token for rawURL and records a link_created
// event. Every call yields a new token, even for a URL seen before.
func (s *Service) CreateTrackedLink(ctx context.Context, rawURL string) (*TrackedLink, error) {
	originalURL, err := ValidateURL(rawURL)
	if err != nil {
		return nil, err
	}

	link, err := s.register(ctx, originalURL)
	if err != nil {
		return nil, err
	}

	event := activity.NewLinkCreated(string(link.Token), link.OriginalURL)
	event.Timestamp = link.CreatedAt

	id, err := s.events.Append(ctx, event)
	if err != nil {
		s.logger.Error("failed to append link created event",
			zap.String("token", string(link.Token)),
			zap.Error(err),
		)

		return nil, fmt.Errorf("append link created event: %w", err)
	}

	s.logger.Debug("tracked link created",
		zap.String("token", string(link.Token)),
		zap.Uint64("event_id", uint64(id)),
	)

	return link, nil
}

func (s *Service) register(ctx context.Context, originalURL string) (*TrackedLink, error) {
	for attempt := 1; attempt <= MaxTokenAttempts; attempt++ {
		link := &TrackedLink{
			Token:       Token(s.generate()),
			OriginalURL: originalURL,
			CreatedAt:   s.now(),
		}

		err := s.links.Register(ctx, link)
		if err == nil {
			return link, nil
		}

		if !errors.Is(err, ErrDuplicateToken) {
			return nil, fmt.Errorf("register tracked link: %w", err)
		}

		s.logger.Warn("token collision, drawing again",
			zap.String("token", string(link.Token)),
			zap.Int("attempt", attempt),
		)
	}

	s.logger.Error("token space exhausted", zap.Int("attempts", MaxTokenAttempts))

	return nil, ErrTokenSpaceExhausted
}

// RecordVisit appends a visit_recorded event for a known token. Visits are
// never deduplicated. An unknown token fails with ErrUnknownToken and
// records nothing.
func (s *Service) RecordVisit(
	ctx context.Context, token Token, sourceIP, userAgent, location string,
) (activity.EventID, error) {
	if _, err := s.links.Resolve(ctx, token); err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, fmt.Errorf("%w: %s", ErrUnknownToken, token)
		}

		return 0, fmt.Errorf("resolve token: %w", err)
	}

	event := activity.NewVisitRecorded(string(token), sourceIP, userAgent, location)
	event.Timestamp = s.now()

	id, err := s.events.Append(ctx, event)
	if err != nil {
		return 0, fmt.Errorf("append visit event: %w", err)
	}

	return id, nil
}

// Link resolves a single token.
func (s *Service) Link(ctx context.Context, token Token) (*TrackedLink, error) {
	return s.links.Resolve(ctx, token)
}

// Links lists issued links, newest first.
func (s *Service) Links(ctx context.Context) ([]*TrackedLink, error) {
	return s.links.List(ctx)
}
