// Package google talks to the Drive and Calendar APIs on behalf of a team
// member. Every request is rate limited and retried on throttling.
package google

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/seedbridge/crm-portal/pkg/retry"
)

// ClientFactory builds per-user API services from a token source.
type ClientFactory struct {
	base *http.Client
	opts []option.ClientOption
}

// NewClientFactory creates a factory. Extra options are applied to every
// service, e.g. option.WithEndpoint in tests.
func NewClientFactory(opts ...option.ClientOption) *ClientFactory {
	return &ClientFactory{opts: opts}
}

// NewDriveService creates a Drive service authorised by ts
func (f *ClientFactory) NewDriveService(ctx context.Context, ts oauth2.TokenSource) (*drive.Service, error) {
	svc, err := drive.NewService(ctx, f.options(ctx, ts)...)
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	return svc, nil
}

// NewCalendarService creates a Calendar service authorised by ts
func (f *ClientFactory) NewCalendarService(ctx context.Context, ts oauth2.TokenSource) (*calendar.Service, error) {
	svc, err := calendar.NewService(ctx, f.options(ctx, ts)...)
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}
	return svc, nil
}

func (f *ClientFactory) options(ctx context.Context, ts oauth2.TokenSource) []option.ClientOption {
	if f.base != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, f.base)
	}
	opts := []option.ClientOption{option.WithHTTPClient(oauth2.NewClient(ctx, ts))}
	return append(opts, f.opts...)
}

// caller runs API requests through the rate limiter and the retry helper.
type caller struct {
	limiter *RateLimiter
	retry   []retry.Option
}

func call[T any](ctx context.Context, c caller, op func(ctx context.Context) (T, error)) (T, error) {
	return retry.Do(ctx, func(ctx context.Context) (T, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			var zero T
			return zero, err
		}
		v, err := op(ctx)
		if err != nil {
			c.limiter.RecordRetryAfter(retryAfter(err))
		}
		return v, err
	}, c.retry...)
}
