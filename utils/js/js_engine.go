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


// Package js runs JavaScript functions for the script components.
//
// GojaJsEngine compiles the script once and keeps a pool of goja runtimes
// with the script already loaded. Global properties of the rule engine
// configuration are available to scripts as `global.xx`.
package js

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dop251/goja"
	"github.com/rulego/pvflow/api/types"
)

const (
	//GlobalKey  global properties key,call them through the global.xx method
	GlobalKey = "global"
)

// GojaJsEngine goja js engine
type GojaJsEngine struct {
	vmPool   sync.Pool
	config   types.Config
	jsScript *goja.Program
}

// NewGojaJsEngine Create a new instance of the JavaScript engine
// 脚本编译失败返回错误
func NewGojaJsEngine(config types.Config, jsScript string, fromVars map[string]interface{}) (*GojaJsEngine, error) {
	program, err := goja.Compile("", jsScript, true)
	if err != nil {
		return nil, err
	}
	jsEngine := &GojaJsEngine{
		config:   config,
		jsScript: program,
	}
	jsEngine.vmPool = sync.Pool{
		New: func() interface{} {
			return jsEngine.NewVm(fromVars)
		},
	}
	return jsEngine, nil
}

// NewVm new a js VM
func (g *GojaJsEngine) NewVm(fromVars map[string]interface{}) *goja.Runtime {
	vm := goja.New()
	for k, v := range fromVars {
		if err := vm.Set(k, v); err != nil {
			g.config.Logger.Printf("set fromVar %s error: %s", k, err.Error())
		}
	}
	if len(g.config.Properties.Values()) != 0 {
		if err := vm.Set(GlobalKey, map[string]string(g.config.Properties.Copy())); err != nil {
			g.config.Logger.Printf("set global properties error: %s", err.Error())
		}
	}

	timer := g.startTimeout(vm)
	_, err := vm.RunProgram(g.jsScript)
	g.stopTimeout(vm, timer)

	if err != nil {
		g.config.Logger.Printf("js vm error: %s", err.Error())
	}
	return vm
}

// Execute 执行脚本中的函数并返回导出的结果
func (g *GojaJsEngine) Execute(functionName string, argumentList ...interface{}) (out interface{}, err error) {
	defer func() {
		if caught := recover(); caught != nil {
			err = fmt.Errorf("%s", caught)
		}
	}()

	vm := g.vmPool.Get().(*goja.Runtime)
	defer g.vmPool.Put(vm)

	timer := g.startTimeout(vm)
	defer g.stopTimeout(vm, timer)

	f, ok := goja.AssertFunction(vm.Get(functionName))
	if !ok {
		return nil, errors.New(functionName + " is not a function")
	}

	params := make([]goja.Value, len(argumentList))
	for i, v := range argumentList {
		params[i] = vm.ToValue(v)
	}

	res, err := f(goja.Undefined(), params...)
	if err != nil {
		return nil, err
	}
	return res.Export(), nil
}

func (g *GojaJsEngine) Stop() {
}

// startTimeout interrupts the vm after ScriptMaxExecutionTime
// Returns nil if timeout is not configured
func (g *GojaJsEngine) startTimeout(vm *goja.Runtime) *time.Timer {
	if g.config.ScriptMaxExecutionTime <= 0 {
		return nil
	}
	return time.AfterFunc(g.config.ScriptMaxExecutionTime, func() {
		vm.Interrupt("execution timeout")
	})
}

// stopTimeout 停止计时，并清除中断标志以便vm放回对象池后复用
func (g *GojaJsEngine) stopTimeout(vm *goja.Runtime, timer *time.Timer) {
	if timer != nil {
		timer.Stop()
	}
	vm.ClearInterrupt()
}
