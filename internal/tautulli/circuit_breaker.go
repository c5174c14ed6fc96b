// Watchdeck - Personal Media History Dashboard
// Copyright 2026 Watchdeck Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/watchdeck/watchdeck

package tautulli

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/watchdeck/watchdeck/internal/config"
	"github.com/watchdeck/watchdeck/internal/logging"
	"github.com/watchdeck/watchdeck/internal/metrics"
	tmodels "github.com/watchdeck/watchdeck/internal/models/tautulli"
)

// CircuitBreakerClient wraps Client with the circuit breaker pattern so a
// dead or slow Tautulli instance degrades to fast typed errors instead of
// piling up blocked requests.
//
// The breaker uses real time (via sony/gobreaker) for its interval and
// timeout calculations. Tests should mock the underlying client, not the
// breaker.
type CircuitBreakerClient struct {
	client *Client
	cb     *gobreaker.CircuitBreaker[interface{}]
	name   string
}

// NewCircuitBreakerClient creates a new Tautulli client with circuit breaker.
// Configuration:
//   - Max 3 concurrent requests in half-open state
//   - 1 minute measurement window
//   - 2 minute timeout before attempting recovery
//   - Opens after 60% failure rate with minimum 10 requests
func NewCircuitBreakerClient(cfg *config.TautulliConfig) *CircuitBreakerClient {
	client := NewClient(cfg)
	cbName := "tautulli-api"

	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0) // 0 = closed

	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false // Need at least 10 requests for statistical significance
			}

			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= 0.6

			if shouldTrip {
				logging.Warn().Uint32("failures", counts.TotalFailures).Float64("failure_rate", failureRatio*100).Msg("[CIRCUIT BREAKER] Opening circuit")
			}

			return shouldTrip
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := stateToString(from)
			toStr := stateToString(to)

			logging.Info().Str("from", fromStr).Str("to", toStr).Msg("[CIRCUIT BREAKER] State transition")

			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
		},
	})

	return &CircuitBreakerClient{
		client: client,
		cb:     cb,
		name:   cbName,
	}
}

// SetPageSize overrides the history page length on the wrapped client.
func (cbc *CircuitBreakerClient) SetPageSize(n int) {
	cbc.client.SetPageSize(n)
}

// execute wraps a Tautulli API call with circuit breaker protection.
func (cbc *CircuitBreakerClient) execute(fn func() (interface{}, error)) (interface{}, error) {
	result, err := cbc.cb.Execute(fn)

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "rejected").Inc()
			logging.Warn().Err(err).Msg("[CIRCUIT BREAKER] Request rejected")
		} else {
			metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "failure").Inc()
		}
		return nil, err
	}

	metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "success").Inc()
	return result, nil
}

// castResult safely type-casts the circuit breaker result.
func castResult[T any](result interface{}, err error) (*T, error) {
	if err != nil {
		return nil, err
	}
	typed, ok := result.(*T)
	if !ok {
		return nil, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}

// Ping verifies connectivity through the circuit breaker.
func (cbc *CircuitBreakerClient) Ping(ctx context.Context) error {
	_, err := cbc.execute(func() (interface{}, error) {
		return nil, cbc.client.Ping(ctx)
	})
	return err
}

// GetHistoryPage fetches one page of playback history through the breaker.
func (cbc *CircuitBreakerClient) GetHistoryPage(ctx context.Context, mediaType string, start, length int) (*tmodels.History, error) {
	return castResult[tmodels.History](cbc.execute(func() (interface{}, error) {
		return cbc.client.GetHistoryPage(ctx, mediaType, start, length)
	}))
}

// GetHistory pages through the full playback history through the breaker.
// Each run counts as one breaker request so a long pagination doesn't trip
// the failure threshold by itself.
func (cbc *CircuitBreakerClient) GetHistory(ctx context.Context, mediaType string) ([]tmodels.HistoryRecord, error) {
	result, err := cbc.execute(func() (interface{}, error) {
		return cbc.client.GetHistory(ctx, mediaType)
	})
	if err != nil {
		return nil, err
	}
	records, ok := result.([]tmodels.HistoryRecord)
	if !ok {
		return nil, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return records, nil
}

// GetMetadata fetches single-item metadata through the breaker.
func (cbc *CircuitBreakerClient) GetMetadata(ctx context.Context, ratingKey string) (*tmodels.Metadata, error) {
	return castResult[tmodels.Metadata](cbc.execute(func() (interface{}, error) {
		return cbc.client.GetMetadata(ctx, ratingKey)
	}))
}

// GetImage fetches poster bytes through the breaker.
func (cbc *CircuitBreakerClient) GetImage(ctx context.Context, thumb string) ([]byte, string, error) {
	type imageResult struct {
		data        []byte
		contentType string
	}
	result, err := cbc.execute(func() (interface{}, error) {
		data, contentType, err := cbc.client.GetImage(ctx, thumb)
		if err != nil {
			return nil, err
		}
		return &imageResult{data: data, contentType: contentType}, nil
	})
	if err != nil {
		return nil, "", err
	}
	typed, ok := result.(*imageResult)
	if !ok {
		return nil, "", fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed.data, typed.contentType, nil
}

// stateToString converts a gobreaker state to a label value.
func stateToString(s gobreaker.State) string {
	switch s {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// stateToFloat converts a gobreaker state to a gauge value.
func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
