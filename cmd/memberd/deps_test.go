// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Memberd Contributors

package main

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/memberd/memberd/internal/observability"
)

// fakeDatabase satisfies Database without a live connection.
type fakeDatabase struct {
	closed atomic.Bool
}

func (f *fakeDatabase) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (f *fakeDatabase) QueryRow(context.Context, string, ...any) pgx.Row {
	return nil
}

func (f *fakeDatabase) Begin(context.Context) (pgx.Tx, error) {
	return nil, nil
}

func (f *fakeDatabase) Close() {
	f.closed.Store(true)
}

// fakeKV satisfies KVConn with an in-memory map.
type fakeKV struct {
	data   map[string]string
	closed atomic.Bool
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: make(map[string]string)}
}

func (f *fakeKV) Set(_ context.Context, key, value string, _ time.Duration) error {
	f.data[key] = value
	return nil
}

func (f *fakeKV) Get(_ context.Context, key string) (string, bool, error) {
	value, ok := f.data[key]
	return value, ok, nil
}

func (f *fakeKV) Delete(_ context.Context, key string) error {
	delete(f.data, key)
	return nil
}

func (f *fakeKV) Close() error {
	f.closed.Store(true)
	return nil
}

// fakeMigrator records invocations.
type fakeMigrator struct {
	upCalls    int
	downCalls  int
	upErr      error
	downErr    error
	version    uint
	dirty      bool
	versionErr error
	closed     bool
}

func (f *fakeMigrator) Up() error {
	f.upCalls++
	return f.upErr
}

func (f *fakeMigrator) Down() error {
	f.downCalls++
	return f.downErr
}

func (f *fakeMigrator) Version() (uint, bool, error) {
	return f.version, f.dirty, f.versionErr
}

func (f *fakeMigrator) Close() error {
	f.closed = true
	return nil
}

// fakeServer satisfies both APIServer and ObservabilityServer.
type fakeServer struct {
	addr     string
	errCh    chan error
	startErr error
	started  atomic.Bool
	stopped  atomic.Bool
}

func newFakeServer(addr string) *fakeServer {
	return &fakeServer{addr: addr, errCh: make(chan error, 1)}
}

func (f *fakeServer) Start() (<-chan error, error) {
	if f.startErr != nil {
		return nil, f.startErr
	}
	f.started.Store(true)
	return f.errCh, nil
}

func (f *fakeServer) Stop(context.Context) error {
	f.stopped.Store(true)
	return nil
}

func (f *fakeServer) Addr() string {
	return f.addr
}

// fakeObsServer adds the Metrics accessor needed by ObservabilityServer.
type fakeObsServer struct {
	fakeServer
}

func newFakeObsServer(addr string) *fakeObsServer {
	return &fakeObsServer{fakeServer: fakeServer{addr: addr, errCh: make(chan error, 1)}}
}

func (f *fakeObsServer) Metrics() *observability.Metrics {
	return nil
}
