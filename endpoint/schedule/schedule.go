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

// Package schedule injects messages into rule chains on cron schedules.
// Cron expressions have a leading seconds field:
//
//	Field name   | Mandatory? | Allowed values  | Allowed special characters
//	----------   | ---------- | --------------  | --------------------------
//	Seconds      | Yes        | 0-59            | * / , -
//	Minutes      | Yes        | 0-59            | * / , -
//	Hours        | Yes        | 0-23            | * / , -
//	Day of month | Yes        | 1-31            | * / , - ?
//	Month        | Yes        | 1-12 or JAN-DEC | * / , -
//	Day of week  | Yes        | 0-6 or SUN-SAT  | * / , - ?
//
// 内置一些特殊表达式：@yearly、@monthly、@weekly、@daily、@hourly、@every 1m
package schedule

import (
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/gofrs/uuid/v5"
	"github.com/robfig/cron/v3"
	"github.com/rulego/pvflow/api/types"
	"github.com/rulego/pvflow/api/types/endpoint"
	"github.com/rulego/pvflow/components/base"
	"github.com/rulego/pvflow/utils/json"
	"github.com/rulego/pvflow/utils/maps"
)

// Type 组件类型
const Type = "schedule"

// DefaultMsgType 定时消息默认消息类型
const DefaultMsgType = "SCHEDULE"

// Endpoint 别名
type Endpoint = Schedule

var _ endpoint.Endpoint = (*Endpoint)(nil)

// Job 定时任务
type Job struct {
	// Cron 带秒的cron表达式
	Cron string
	// ChainId 目标规则链ID
	ChainId string
	// MsgType 消息类型，默认SCHEDULE
	MsgType string
	// Data 消息内容，合法JSON使用JSON类型，否则使用TEXT类型
	Data string
	// Metadata 消息元数据
	Metadata map[string]string
}

// Config 定时任务端点配置
type Config struct {
	Jobs []Job
}

// Schedule 定时任务端点
type Schedule struct {
	base.GracefulShutdown
	id         string
	Config     Config
	RuleConfig types.Config
	dispatcher endpoint.Dispatcher
	onEvent    endpoint.OnEvent
	cron       *cron.Cron
	sync.Mutex
}

// Type 组件类型
func (schedule *Schedule) Type() string {
	return Type
}

func (schedule *Schedule) New() endpoint.Endpoint {
	return &Schedule{}
}

func (schedule *Schedule) Id() string {
	return schedule.id
}

// Init 初始化，添加配置的定时任务
func (schedule *Schedule) Init(dispatcher endpoint.Dispatcher, ruleConfig types.Config, configuration types.Configuration) error {
	if dispatcher == nil {
		return errors.New("dispatcher can not be nil")
	}
	if err := maps.Map2Struct(configuration, &schedule.Config); err != nil {
		return err
	}
	uuId, _ := uuid.NewV4()
	schedule.id = uuId.String()
	schedule.RuleConfig = ruleConfig
	schedule.dispatcher = dispatcher
	schedule.cron = cron.New(cron.WithSeconds())
	schedule.InitGracefulShutdown(ruleConfig.Logger, 0)
	for _, job := range schedule.Config.Jobs {
		if _, err := schedule.AddJob(job); err != nil {
			return err
		}
	}
	return nil
}

func (schedule *Schedule) SetOnEvent(onEvent endpoint.OnEvent) {
	schedule.onEvent = onEvent
}

// AddJob 添加定时任务，返回任务ID，用于删除任务
func (schedule *Schedule) AddJob(job Job) (string, error) {
	if job.ChainId == "" {
		return "", errors.New("chainId can not be empty")
	}
	schedule.Lock()
	defer schedule.Unlock()
	if schedule.cron == nil {
		return "", errors.New("cron has not been initialized yet")
	}
	id, err := schedule.cron.AddFunc(job.Cron, func() {
		schedule.handler(job)
	})
	if err != nil {
		return "", fmt.Errorf("cron %q: %w", job.Cron, err)
	}
	return strconv.Itoa(int(id)), nil
}

// RemoveJob 删除定时任务
func (schedule *Schedule) RemoveJob(jobId string) error {
	entryID, err := strconv.Atoi(jobId)
	if err != nil {
		return fmt.Errorf("%s it is an illegal job id", jobId)
	}
	schedule.Lock()
	defer schedule.Unlock()
	if schedule.cron != nil {
		schedule.cron.Remove(cron.EntryID(entryID))
	}
	return nil
}

// Jobs 定时任务数量
func (schedule *Schedule) Jobs() int {
	schedule.Lock()
	defer schedule.Unlock()
	if schedule.cron == nil {
		return 0
	}
	return len(schedule.cron.Entries())
}

func (schedule *Schedule) Start() error {
	schedule.Lock()
	defer schedule.Unlock()
	if schedule.cron == nil {
		return errors.New("cron has not been initialized yet")
	}
	schedule.cron.Start()
	if schedule.onEvent != nil {
		schedule.onEvent(endpoint.EventInitServer, schedule)
	}
	return nil
}

// Destroy 停止调度，等待正在执行的任务结束
func (schedule *Schedule) Destroy() {
	schedule.GracefulStop(func() {
		schedule.Lock()
		c := schedule.cron
		schedule.cron = nil
		schedule.Unlock()
		if c != nil {
			<-c.Stop().Done()
		}
	})
}

func (schedule *Schedule) Printf(format string, v ...interface{}) {
	if schedule.RuleConfig.Logger != nil {
		schedule.RuleConfig.Logger.Printf(format, v...)
	}
}

// NewJobMsg 创建定时任务消息
func NewJobMsg(job Job) types.RuleMsg {
	msgType := job.MsgType
	if msgType == "" {
		msgType = DefaultMsgType
	}
	dataType := types.TEXT
	if job.Data == "" || json.Valid([]byte(job.Data)) {
		dataType = types.JSON
	}
	return types.NewMsg(0, msgType, dataType, types.BuildMetadata(job.Metadata), job.Data)
}

// 处理定时任务
func (schedule *Schedule) handler(job Job) {
	defer func() {
		//捕捉异常
		if e := recover(); e != nil {
			schedule.Printf("schedule handler err :%v", e)
		}
	}()
	if err := schedule.BeginOperation(); err != nil {
		return
	}
	defer schedule.EndOperation()
	if _, err := schedule.dispatcher.Dispatch(schedule.GetShutdownContext(), job.ChainId, NewJobMsg(job)); err != nil {
		schedule.Printf("schedule chainId=%s err :%v", job.ChainId, err)
	}
}

// Trigger 立即执行一次定时任务
func (schedule *Schedule) Trigger(job Job) {
	schedule.handler(job)
}
