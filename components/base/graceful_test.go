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
	"sync/atomic"
	"testing"
	"time"

	"github.com/rulego/pvflow/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGracefulStopWaitsForOperations(t *testing.T) {
	var g GracefulShutdown
	g.InitGracefulShutdown(nil, time.Second)
	require.NoError(t, g.BeginOperation())
	assert.Equal(t, int64(1), g.GetActiveOperations())

	go func() {
		time.Sleep(50 * time.Millisecond)
		g.EndOperation()
	}()
	var stopped int32
	g.GracefulStop(func() {
		atomic.StoreInt32(&stopped, 1)
	})
	assert.Equal(t, int32(1), atomic.LoadInt32(&stopped))
	assert.Equal(t, int64(0), g.GetActiveOperations())
	assert.True(t, g.IsShuttingDown())
	assert.ErrorIs(t, g.BeginOperation(), ErrShuttingDown)
	assert.Error(t, g.GetShutdownContext().Err())

	// 只执行一次
	g.GracefulStop(func() {
		atomic.StoreInt32(&stopped, 2)
	})
	assert.Equal(t, int32(1), atomic.LoadInt32(&stopped))
}

func TestGracefulStopTimeout(t *testing.T) {
	logger := &test.CaptureLogger{}
	var g GracefulShutdown
	g.InitGracefulShutdown(logger, 30*time.Millisecond)
	require.NoError(t, g.BeginOperation())
	start := time.Now()
	g.GracefulStop(nil)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
	assert.Len(t, logger.Lines(), 1)

	g.InitGracefulShutdown(logger, 0)
	assert.False(t, g.IsShuttingDown())
	assert.NoError(t, g.GetShutdownContext().Err())
}
