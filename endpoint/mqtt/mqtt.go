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

// Package mqtt subscribes to MQTT topics and injects every publish into a
// rule chain. The message type is the topic. When an end message carries a
// responseTopic metadata value, its data is published to that topic.
package mqtt

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/gofrs/uuid/v5"
	"github.com/rulego/pvflow/api/types"
	"github.com/rulego/pvflow/api/types/endpoint"
	"github.com/rulego/pvflow/components/base"
	"github.com/rulego/pvflow/utils/json"
	"github.com/rulego/pvflow/utils/maps"
	"github.com/rulego/pvflow/utils/mqtt"
)

// Type 组件类型
const Type = "mqtt"

const (
	// KeyTopic 主题metadataKey
	KeyTopic = "topic"
	// KeyResponseTopic 响应主题metadataKey
	KeyResponseTopic = "responseTopic"
	// KeyResponseQos 响应Qos metadataKey
	KeyResponseQos = "responseQos"
	// DefaultConnectTimeout 默认连接超时
	DefaultConnectTimeout = 4 * time.Second
)

// Endpoint 别名
type Endpoint = Mqtt

var _ endpoint.Endpoint = (*Endpoint)(nil)

// Route 订阅主题到规则链的路由
type Route struct {
	// Topic 订阅主题，支持通配符
	Topic string
	// ChainId 目标规则链ID
	ChainId string
	// Qos 订阅Qos，默认使用Config.QOS
	Qos *uint8
}

// Config MQTT 端点配置
type Config struct {
	mqtt.Config `mapstructure:",squash"`
	// ConnectTimeout 启动时等待连接成功的时间
	ConnectTimeout time.Duration
	// Routes 订阅路由
	Routes []Route
}

// Mqtt MQTT 接收端端点
type Mqtt struct {
	base.GracefulShutdown
	id         string
	RuleConfig types.Config
	Config     Config
	dispatcher endpoint.Dispatcher
	onEvent    endpoint.OnEvent
	client     *mqtt.Client
	sync.Mutex
}

// Type 组件类型
func (x *Mqtt) Type() string {
	return Type
}

func (x *Mqtt) New() endpoint.Endpoint {
	return &Mqtt{Config: Config{
		Config: mqtt.Config{Server: "127.0.0.1:1883"},
	}}
}

func (x *Mqtt) Id() string {
	return x.id
}

// Init 初始化
func (x *Mqtt) Init(dispatcher endpoint.Dispatcher, ruleConfig types.Config, configuration types.Configuration) error {
	if dispatcher == nil {
		return errors.New("dispatcher can not be nil")
	}
	if err := maps.Map2Struct(configuration, &x.Config); err != nil {
		return err
	}
	for i, route := range x.Config.Routes {
		if route.Topic == "" || route.ChainId == "" {
			return fmt.Errorf("routes[%d]: topic and chainId can not be empty", i)
		}
	}
	if x.Config.ConnectTimeout <= 0 {
		x.Config.ConnectTimeout = DefaultConnectTimeout
	}
	uuId, _ := uuid.NewV4()
	x.id = uuId.String()
	x.RuleConfig = ruleConfig
	x.dispatcher = dispatcher
	x.InitGracefulShutdown(ruleConfig.Logger, 0)
	return nil
}

func (x *Mqtt) SetOnEvent(onEvent endpoint.OnEvent) {
	x.onEvent = onEvent
}

// Start 连接broker并订阅所有路由主题
func (x *Mqtt) Start() error {
	x.Lock()
	defer x.Unlock()
	if x.client != nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), x.Config.ConnectTimeout)
	defer cancel()
	client, err := mqtt.NewClient(ctx, x.Config.Config)
	if err != nil {
		return err
	}
	x.client = client
	for _, route := range x.Config.Routes {
		qos := x.Config.QOS
		if route.Qos != nil {
			qos = *route.Qos
		}
		client.RegisterHandler(mqtt.Handler{
			Topic: route.Topic,
			Qos:   qos,
			Handle: func(route Route) func(c paho.Client, data paho.Message) {
				return func(c paho.Client, data paho.Message) {
					x.Handle(route, data)
				}
			}(route),
		})
	}
	if x.onEvent != nil {
		x.onEvent(endpoint.EventConnect, x.Config.Server)
	}
	return nil
}

// Destroy 等待正在处理的消息完成后断开连接
func (x *Mqtt) Destroy() {
	x.GracefulStop(func() {
		x.Lock()
		client := x.client
		x.client = nil
		x.Unlock()
		if client != nil {
			_ = client.Close()
			if x.onEvent != nil {
				x.onEvent(endpoint.EventDisconnect, x.Config.Server)
			}
		}
	})
}

func (x *Mqtt) Printf(format string, v ...interface{}) {
	if x.RuleConfig.Logger != nil {
		x.RuleConfig.Logger.Printf(format, v...)
	}
}

// NewTopicMsg 把订阅消息转换成RuleMsg，消息类型为主题
func NewTopicMsg(data paho.Message) types.RuleMsg {
	dataType := types.TEXT
	if json.Valid(data.Payload()) {
		dataType = types.JSON
	}
	metadata := types.NewMetadata()
	metadata.PutValue(KeyTopic, data.Topic())
	return types.NewMsg(0, data.Topic(), dataType, metadata, string(data.Payload()))
}

// Handle 把订阅消息交给路由的规则链处理
func (x *Mqtt) Handle(route Route, data paho.Message) {
	defer func() {
		//捕捉异常
		if e := recover(); e != nil {
			x.Printf("mqtt endpoint handler err :%v", e)
		}
	}()
	if err := x.BeginOperation(); err != nil {
		return
	}
	defer x.EndOperation()
	result, err := x.dispatcher.Dispatch(x.GetShutdownContext(), route.ChainId, NewTopicMsg(data))
	if err != nil {
		x.Printf("mqtt topic=%s chainId=%s err :%v", data.Topic(), route.ChainId, err)
		return
	}
	for _, item := range result {
		x.respond(item)
	}
}

// respond 结束消息的元数据指定了responseTopic时，发布消息内容
func (x *Mqtt) respond(item types.WrapperMsg) {
	topic := item.Msg.Metadata.GetValue(KeyResponseTopic)
	if topic == "" {
		return
	}
	qos := byte(0)
	if qosStr := item.Msg.Metadata.GetValue(KeyResponseQos); qosStr != "" {
		qosInt, _ := strconv.Atoi(qosStr)
		qos = byte(qosInt)
	}
	x.Lock()
	client := x.client
	x.Unlock()
	if client == nil {
		return
	}
	if err := client.Publish(topic, qos, []byte(item.Msg.Data)); err != nil {
		x.Printf("mqtt publish topic=%s err :%v", topic, err)
	}
}
