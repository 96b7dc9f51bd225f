/*
 * Copyright 2025 The RuleGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package base

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rulego/pvflow/api/types"
)

// DefaultShutdownTimeout 默认优雅停机超时时间
const DefaultShutdownTimeout = 10 * time.Second

// ErrShuttingDown is returned for operations started after shutdown began.
var ErrShuttingDown = errors.New("operation cancelled due to shutdown")

// GracefulShutdown is embedded by endpoints that must let in flight
// messages finish before their server stops.
//
// GracefulShutdown 两阶段停机：先拒绝新操作，等待正在处理的操作完成，超时后取消停机上下文。
type GracefulShutdown struct {
	shutdownCtx    context.Context
	shutdownCancel context.CancelFunc
	// shutdownTimeout 等待正在处理的操作完成的最大时间
	shutdownTimeout time.Duration
	isShuttingDown  int32
	// activeOperations 正在处理的操作数量
	activeOperations int64
	logger           types.Logger
}

// InitGracefulShutdown resets the shutdown state. timeout 0 uses DefaultShutdownTimeout.
func (g *GracefulShutdown) InitGracefulShutdown(logger types.Logger, timeout time.Duration) {
	if timeout <= 0 {
		timeout = DefaultShutdownTimeout
	}
	g.shutdownTimeout = timeout
	g.logger = logger
	g.shutdownCtx, g.shutdownCancel = context.WithCancel(context.Background())
	atomic.StoreInt32(&g.isShuttingDown, 0)
	atomic.StoreInt64(&g.activeOperations, 0)
}

// GetShutdownContext is cancelled when the shutdown timeout expires.
func (g *GracefulShutdown) GetShutdownContext() context.Context {
	if g.shutdownCtx == nil {
		return context.Background()
	}
	return g.shutdownCtx
}

// IsShuttingDown 是否正在停机
func (g *GracefulShutdown) IsShuttingDown() bool {
	return atomic.LoadInt32(&g.isShuttingDown) == 1
}

// BeginOperation registers an in flight operation. It returns
// ErrShuttingDown once GracefulStop was called; otherwise the caller must
// call EndOperation.
func (g *GracefulShutdown) BeginOperation() error {
	if g.IsShuttingDown() {
		return ErrShuttingDown
	}
	atomic.AddInt64(&g.activeOperations, 1)
	return nil
}

// EndOperation 操作完成
func (g *GracefulShutdown) EndOperation() {
	atomic.AddInt64(&g.activeOperations, -1)
}

// GetActiveOperations 正在处理的操作数量
func (g *GracefulShutdown) GetActiveOperations() int64 {
	return atomic.LoadInt64(&g.activeOperations)
}

// GracefulStop rejects new operations, waits for the active ones up to the
// shutdown timeout, cancels the shutdown context and then calls stopFunc.
// Only the first call has an effect.
func (g *GracefulShutdown) GracefulStop(stopFunc func()) {
	if !atomic.CompareAndSwapInt32(&g.isShuttingDown, 0, 1) {
		return
	}
	timeout := g.shutdownTimeout
	if timeout <= 0 {
		timeout = DefaultShutdownTimeout
	}
	if !g.WaitForActiveOperations(timeout) {
		g.logf("graceful shutdown timeout, %d operations still active", g.GetActiveOperations())
	}
	if g.shutdownCancel != nil {
		g.shutdownCancel()
	}
	if stopFunc != nil {
		stopFunc()
	}
}

// WaitForActiveOperations reports whether all active operations completed within timeout.
func (g *GracefulShutdown) WaitForActiveOperations(timeout time.Duration) bool {
	if g.GetActiveOperations() <= 0 {
		return true
	}
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case <-timer.C:
			return g.GetActiveOperations() <= 0
		case <-ticker.C:
			if g.GetActiveOperations() <= 0 {
				return true
			}
		}
	}
}

func (g *GracefulShutdown) logf(format string, args ...interface{}) {
	if g.logger != nil {
		g.logger.Printf(format, args...)
	}
}
