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

// Package websocket streams the branch end messages of a rule chain to
// websocket clients. Frames sent by a client are injected into the chain.
//
//	GET /api/v1/ws/:chainId
package websocket

import (
	"errors"
	"net"
	"net/http"
	"sync"

	"github.com/gofrs/uuid/v5"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/rulego/pvflow/api/types"
	"github.com/rulego/pvflow/api/types/endpoint"
	"github.com/rulego/pvflow/endpoint/rest"
	"github.com/rulego/pvflow/utils/json"
	"github.com/rulego/pvflow/utils/maps"
)

// Type 组件类型
const Type = "websocket"

const (
	// Path websocket路由
	Path = "/api/v1/ws/:chainId"
	// DefaultMsgType 客户端消息默认消息类型，可以通过url参数msgType指定
	DefaultMsgType = "WS_MSG"
	// QueryMsgType 查询参数：消息类型
	QueryMsgType = "msgType"
)

// Endpoint 别名
type Endpoint = Websocket

var _ endpoint.Endpoint = (*Endpoint)(nil)

// Config Websocket 服务配置
type Config struct {
	// Server 监听地址，设置了RestEndpoint时忽略
	Server      string
	CertFile    string
	CertKeyFile string
}

// Websocket 接收端端点
type Websocket struct {
	id string
	//配置
	Config     Config
	RuleConfig types.Config
	dispatcher endpoint.Dispatcher
	onEvent    endpoint.OnEvent
	// RestEndpoint 不为空时共享rest端点的路由器和服务，需要在Start之前设置
	RestEndpoint *rest.Rest
	Upgrader     websocket.Upgrader
	Server       *http.Server
	//http路由器
	router *httprouter.Router
	conns  map[*conn]struct{}
	sync.Mutex
}

// conn 同一个连接的写操作需要串行
type conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *conn) writeJson(v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteMessage(websocket.TextMessage, b)
}

// Type 组件类型
func (ws *Websocket) Type() string {
	return Type
}

func (ws *Websocket) New() endpoint.Endpoint {
	return &Websocket{}
}

func (ws *Websocket) Id() string {
	return ws.id
}

// Init 初始化
func (ws *Websocket) Init(dispatcher endpoint.Dispatcher, ruleConfig types.Config, configuration types.Configuration) error {
	if dispatcher == nil {
		return errors.New("dispatcher can not be nil")
	}
	if err := maps.Map2Struct(configuration, &ws.Config); err != nil {
		return err
	}
	uuId, _ := uuid.NewV4()
	ws.id = uuId.String()
	ws.RuleConfig = ruleConfig
	ws.dispatcher = dispatcher
	ws.conns = make(map[*conn]struct{})
	return nil
}

func (ws *Websocket) SetOnEvent(onEvent endpoint.OnEvent) {
	ws.onEvent = onEvent
}

// Router 独立服务时的路由器
func (ws *Websocket) Router() *httprouter.Router {
	ws.Lock()
	defer ws.Unlock()
	if ws.router == nil {
		ws.router = httprouter.New()
		ws.router.GET(Path, ws.handler)
	}
	return ws.router
}

// Start 注册路由，没有共享rest端点时启动独立服务
func (ws *Websocket) Start() error {
	if ws.RestEndpoint != nil {
		ws.RestEndpoint.Router().GET(Path, ws.handler)
		ws.fireEvent(endpoint.EventInitServer, ws.RestEndpoint)
		return nil
	}
	router := ws.Router()
	ws.Lock()
	defer ws.Unlock()
	if ws.Server != nil {
		return nil
	}
	addr := ws.Config.Server
	isTls := ws.Config.CertKeyFile != "" && ws.Config.CertFile != ""
	if addr == "" {
		if isTls {
			addr = ":https"
		} else {
			addr = ":http"
		}
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	ws.Server = &http.Server{Addr: ln.Addr().String(), Handler: router}
	ws.fireEvent(endpoint.EventInitServer, ws)
	server := ws.Server
	go func() {
		var err error
		if isTls {
			ws.Printf("started ws server with TLS on %s", server.Addr)
			err = server.ServeTLS(ln, ws.Config.CertFile, ws.Config.CertKeyFile)
		} else {
			ws.Printf("started ws server on %s", server.Addr)
			err = server.Serve(ln)
		}
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		ws.fireEvent(endpoint.EventCompletedServer, err)
	}()
	return nil
}

// Addr 独立服务的实际监听地址
func (ws *Websocket) Addr() string {
	ws.Lock()
	defer ws.Unlock()
	if ws.Server == nil {
		return ""
	}
	return ws.Server.Addr
}

// Destroy 关闭所有连接和独立服务
func (ws *Websocket) Destroy() {
	ws.Lock()
	server := ws.Server
	ws.Server = nil
	conns := make([]*conn, 0, len(ws.conns))
	for c := range ws.conns {
		conns = append(conns, c)
	}
	ws.Unlock()
	for _, c := range conns {
		_ = c.ws.Close()
	}
	if server != nil {
		_ = server.Close()
	}
}

func (ws *Websocket) Printf(format string, v ...interface{}) {
	if ws.RuleConfig.Logger != nil {
		ws.RuleConfig.Logger.Printf(format, v...)
	}
}

func (ws *Websocket) fireEvent(eventName string, params ...interface{}) {
	if ws.onEvent != nil {
		ws.onEvent(eventName, params...)
	}
}

func (ws *Websocket) addConn(c *conn) {
	ws.Lock()
	defer ws.Unlock()
	ws.conns[c] = struct{}{}
}

func (ws *Websocket) removeConn(c *conn) {
	ws.Lock()
	defer ws.Unlock()
	delete(ws.conns, c)
}

func (ws *Websocket) handler(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	wsConn, err := ws.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		ws.Printf("upgrade: %v", err)
		return
	}
	chainId := params.ByName(rest.ParamChainId)
	c := &conn{ws: wsConn}
	ws.addConn(c)
	unsubscribe := ws.dispatcher.Subscribe(chainId, func(_ string, result types.WrapperMsg) {
		if err := c.writeJson(result); err != nil {
			ws.Printf("write: %v", err)
		}
	})
	ws.fireEvent(endpoint.EventConnect, r)
	defer func() {
		unsubscribe()
		ws.removeConn(c)
		_ = wsConn.Close()
		//捕捉异常
		if e := recover(); e != nil {
			ws.Printf("ws handler err :%v", e)
		}
		ws.fireEvent(endpoint.EventDisconnect, r)
	}()

	for {
		mt, message, err := wsConn.ReadMessage()
		if err != nil {
			break
		}
		if mt != websocket.BinaryMessage && mt != websocket.TextMessage {
			continue
		}
		msg := newMsg(r, params, mt, message)
		if _, err := ws.dispatcher.Dispatch(r.Context(), chainId, msg); err != nil {
			_ = c.writeJson(rest.ErrorResponse{Error: err.Error()})
		}
	}
}

// newMsg 把客户端消息转换成RuleMsg，路径参数和url参数放到元数据中
func newMsg(r *http.Request, params httprouter.Params, messageType int, body []byte) types.RuleMsg {
	dataType := types.TEXT
	if messageType == websocket.BinaryMessage {
		dataType = types.BINARY
	} else if json.Valid(body) {
		dataType = types.JSON
	}
	metadata := types.NewMetadata()
	for key, value := range r.URL.Query() {
		if len(value) > 0 {
			metadata.PutValue(key, value[0])
		}
	}
	for _, param := range params {
		metadata.PutValue(param.Key, param.Value)
	}
	msgType := r.URL.Query().Get(QueryMsgType)
	if msgType == "" {
		msgType = DefaultMsgType
	}
	return types.NewMsg(0, msgType, dataType, metadata, string(body))
}
