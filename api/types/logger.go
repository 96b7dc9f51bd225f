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

package types

import (
	"os"

	"github.com/rulego/pvflow/utils/logs"
)

// Logger 日志接口
type Logger interface {
	Printf(format string, v ...interface{})
}

// LevelLogger 支持日志级别的日志接口
// 如果配置的Logger实现了该接口，组件的告警会使用Warnf输出
type LevelLogger interface {
	Logger
	Debugf(format string, v ...interface{})
	Warnf(format string, v ...interface{})
	Errorf(format string, v ...interface{})
}

// DefaultLogger returns a zerolog backed `Logger` writing to stdout
func DefaultLogger() Logger {
	return logs.NewConsoleLogger(os.Stdout)
}

// NewLogger returns custom if not nil, otherwise DefaultLogger()
func NewLogger(custom Logger) Logger {
	if custom != nil {
		return custom
	}
	return DefaultLogger()
}
