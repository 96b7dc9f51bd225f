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

// Package server assembles the pvflow server: context storage, rule chains
// loaded from the rules directory and the rest, websocket, schedule and mqtt
// endpoints sharing one dispatcher.
package server

import (
	"fmt"

	"github.com/rulego/pvflow/api/types"
	"github.com/rulego/pvflow/config"
	"github.com/rulego/pvflow/contextstore"
	"github.com/rulego/pvflow/endpoint"
	"github.com/rulego/pvflow/endpoint/mqtt"
	"github.com/rulego/pvflow/endpoint/rest"
	"github.com/rulego/pvflow/endpoint/schedule"
	"github.com/rulego/pvflow/endpoint/websocket"
	"github.com/rulego/pvflow/engine"
	"github.com/rulego/pvflow/utils/logs"
)

// Server pvflow服务
type Server struct {
	Config     config.Config
	Logger     *logs.ZerologLogger
	RuleConfig types.Config
	Storage    *contextstore.Manager
	Pool       *engine.Pool
	Dispatcher *endpoint.Dispatcher
	Rest       *rest.Rest
	Websocket  *websocket.Websocket
	Schedule   *schedule.Schedule
	// Mqtt 未启用时为nil
	Mqtt *mqtt.Mqtt
}

// New 创建存储、加载规则链并初始化所有端点，不启动服务
func New(c config.Config, logger *logs.ZerologLogger) (*Server, error) {
	storage, err := contextstore.NewManager(c.Storage)
	if err != nil {
		return nil, fmt.Errorf("context storage: %w", err)
	}
	s := &Server{Config: c, Logger: logger, Storage: storage, Pool: engine.NewPool()}
	opts := []types.Option{
		types.WithLogger(logger),
		types.WithContextStorage(storage),
		types.WithProperties(c.Global),
	}
	if c.Debug {
		opts = append(opts, types.WithOnDebug(func(chainId, flowType, nodeId string, msg types.RuleMsg, relationType string, err error) {
			logger.Debugf("chainId=%s flowType=%s nodeId=%s relationType=%s msgType=%s data=%s err=%v",
				chainId, flowType, nodeId, relationType, msg.Type, msg.Data, err)
		}))
	}
	s.RuleConfig = engine.NewConfig(opts...)
	if err = s.Pool.Load(c.RulesDir, engine.WithConfig(s.RuleConfig)); err != nil {
		_ = storage.Close()
		return nil, fmt.Errorf("load rules_dir %s: %w", c.RulesDir, err)
	}
	s.Dispatcher = endpoint.NewDispatcher(s.Pool, s.RuleConfig)
	if err = s.initEndpoints(); err != nil {
		s.Pool.Stop()
		_ = storage.Close()
		return nil, err
	}
	return s, nil
}

func (s *Server) initEndpoints() error {
	c := s.Config
	ep, err := endpoint.Registry.New(rest.Type, s.Dispatcher, s.RuleConfig, types.Configuration{
		"server":          c.Server,
		"allowCors":       c.AllowCors,
		"shutdownTimeout": c.ShutdownTimeout,
	})
	if err != nil {
		return err
	}
	s.Rest = ep.(*rest.Rest)

	if ep, err = endpoint.Registry.New(websocket.Type, s.Dispatcher, s.RuleConfig, nil); err != nil {
		return err
	}
	s.Websocket = ep.(*websocket.Websocket)
	s.Websocket.RestEndpoint = s.Rest

	var jobs []interface{}
	for _, job := range c.Jobs {
		jobs = append(jobs, map[string]interface{}{
			"cron":    job.Cron,
			"chainId": job.ChainId,
			"msgType": job.MsgType,
			"data":    job.Data,
		})
	}
	if ep, err = endpoint.Registry.New(schedule.Type, s.Dispatcher, s.RuleConfig, types.Configuration{"jobs": jobs}); err != nil {
		return err
	}
	s.Schedule = ep.(*schedule.Schedule)

	if c.Mqtt.Enabled {
		routes, err := c.Mqtt.ParseRoutes()
		if err != nil {
			return err
		}
		var items []interface{}
		for _, route := range routes {
			items = append(items, map[string]interface{}{"topic": route.Topic, "chainId": route.ChainId})
		}
		if ep, err = endpoint.Registry.New(mqtt.Type, s.Dispatcher, s.RuleConfig, types.Configuration{
			"server":   c.Mqtt.Server,
			"username": c.Mqtt.Username,
			"password": c.Mqtt.Password,
			"qos":      byte(c.Mqtt.QOS),
			"clientId": c.Mqtt.ClientId,
			"routes":   items,
		}); err != nil {
			return err
		}
		s.Mqtt = ep.(*mqtt.Mqtt)
	}
	return nil
}

// Start 启动所有端点。websocket注册到rest的路由，需要先于rest启动
func (s *Server) Start() error {
	if err := s.Websocket.Start(); err != nil {
		return err
	}
	if err := s.Rest.Start(); err != nil {
		return err
	}
	if err := s.Schedule.Start(); err != nil {
		return err
	}
	if s.Mqtt != nil {
		if err := s.Mqtt.Start(); err != nil {
			return fmt.Errorf("mqtt %s: %w", s.Config.Mqtt.Server, err)
		}
	}
	s.Logger.Printf("pvflow started on %s, chains=%v", s.Rest.Addr(), s.Pool.Ids())
	return nil
}

// Stop 先停止接入端点，再释放规则链和存储
func (s *Server) Stop() error {
	if s.Mqtt != nil {
		s.Mqtt.Destroy()
	}
	s.Schedule.Destroy()
	s.Websocket.Destroy()
	s.Rest.Destroy()
	s.Pool.Stop()
	return s.Storage.Close()
}
