// Watchdeck - Personal Media History Dashboard
// Copyright 2026 Watchdeck Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/watchdeck/watchdeck

package supervisor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

func newTestTree(config TreeConfig) *Tree {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewTree(logger, config)
}

func TestNewTree_FillsZeroConfig(t *testing.T) {
	t.Parallel()

	tree := newTestTree(TreeConfig{})

	want := DefaultTreeConfig()
	if tree.config != want {
		t.Errorf("Expected defaults %+v, got %+v", want, tree.config)
	}
}

func TestTree_RunsServiceUntilCancel(t *testing.T) {
	t.Parallel()

	tree := newTestTree(DefaultTreeConfig())

	ran := make(chan struct{})
	tree.Add(serviceFunc(func(ctx context.Context) error {
		close(ran)
		<-ctx.Done()
		return ctx.Err()
	}))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("Service never started")
	}

	cancel()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Errorf("Expected nil or context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Supervisor did not stop after cancel")
	}
}

// serviceFunc adapts a function to suture.Service.
type serviceFunc func(ctx context.Context) error

func (f serviceFunc) Serve(ctx context.Context) error { return f(ctx) }

func (f serviceFunc) String() string { return "test-service" }
