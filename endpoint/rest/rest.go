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

// Package rest provides the http endpoint: it injects request bodies into
// rule chains and exposes the flow and global context stores.
//
//	POST /api/v1/rules/:chainId/msg/:msgType   run the chain, respond with the branch ends
//	GET  /api/v1/rules/:chainId/context/:scope list the keys and values of a context scope
//	GET  /api/v1/rules/:chainId                the rule chain definition
//	PUT  /api/v1/rules/:chainId                reload the rule chain with a new definition
package rest

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/julienschmidt/httprouter"
	"github.com/rulego/pvflow/api/types"
	"github.com/rulego/pvflow/api/types/endpoint"
	"github.com/rulego/pvflow/components/base"
	"github.com/rulego/pvflow/contextstore"
	"github.com/rulego/pvflow/utils/json"
	"github.com/rulego/pvflow/utils/maps"
)

// Type 组件类型
const Type = "rest"

const (
	ContentTypeKey  = "Content-Type"
	JsonContextType = "application/json"
	// MsgPath 消息注入路由
	MsgPath = "/api/v1/rules/:chainId/msg/:msgType"
	// ContextPath 上下文查询路由
	ContextPath = "/api/v1/rules/:chainId/context/:scope"
	// RulePath 规则链定义查询和更新路由
	RulePath = "/api/v1/rules/:chainId"
	// ParamChainId 路径参数：规则链ID
	ParamChainId = "chainId"
	// ParamMsgType 路径参数：消息类型
	ParamMsgType = "msgType"
	// ParamScope 路径参数：上下文作用域 node、flow、global
	ParamScope = "scope"
	// QueryStorage 查询参数：存储名称
	QueryStorage = "storage"
	// QueryNodeId 查询参数：node作用域的节点ID
	QueryNodeId = "nodeId"
)

// Endpoint 别名
type Endpoint = Rest

var _ endpoint.Endpoint = (*Endpoint)(nil)

// Config Rest 服务配置
type Config struct {
	// Server 监听地址，例如 :9090
	Server      string
	CertFile    string
	CertKeyFile string
	// AllowCors 是否允许跨域
	AllowCors bool
	// ShutdownTimeout 停机时等待请求处理完成的时间
	ShutdownTimeout time.Duration
}

// ContextResponse 上下文查询响应
type ContextResponse struct {
	Scope     string                 `json:"scope"`
	Namespace string                 `json:"namespace"`
	Storage   string                 `json:"storage"`
	Values    map[string]interface{} `json:"values"`
}

// ErrorResponse 错误响应
type ErrorResponse struct {
	Error string `json:"error"`
}

// Rest 接收端端点
type Rest struct {
	base.GracefulShutdown
	id string
	//配置
	Config     Config
	RuleConfig types.Config
	dispatcher endpoint.Dispatcher
	onEvent    endpoint.OnEvent
	//路由器
	router *httprouter.Router
	Server *http.Server
	sync.Mutex
}

// Type 组件类型
func (rest *Rest) Type() string {
	return Type
}

func (rest *Rest) New() endpoint.Endpoint {
	return &Rest{}
}

func (rest *Rest) Id() string {
	return rest.id
}

// Init 初始化，注册消息和上下文路由
func (rest *Rest) Init(dispatcher endpoint.Dispatcher, ruleConfig types.Config, configuration types.Configuration) error {
	if dispatcher == nil {
		return errors.New("dispatcher can not be nil")
	}
	if err := maps.Map2Struct(configuration, &rest.Config); err != nil {
		return err
	}
	uuId, _ := uuid.NewV4()
	rest.id = uuId.String()
	rest.RuleConfig = ruleConfig
	rest.dispatcher = dispatcher
	rest.InitGracefulShutdown(ruleConfig.Logger, rest.Config.ShutdownTimeout)
	rest.router = httprouter.New()
	rest.router.POST(MsgPath, rest.msgHandler)
	rest.router.GET(ContextPath, rest.contextHandler)
	rest.router.GET(RulePath, rest.getRuleHandler)
	rest.router.PUT(RulePath, rest.putRuleHandler)
	if rest.Config.AllowCors {
		rest.router.GlobalOPTIONS = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rest.setCorsHeaders(w)
			w.WriteHeader(http.StatusNoContent)
		})
	}
	return nil
}

func (rest *Rest) SetOnEvent(onEvent endpoint.OnEvent) {
	rest.onEvent = onEvent
}

// Router http路由器，websocket端点可以共享该路由器
func (rest *Rest) Router() *httprouter.Router {
	return rest.router
}

// ServeHTTP 使Rest可以直接作为http.Handler使用
func (rest *Rest) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rest.router.ServeHTTP(w, r)
}

// Start 启动http服务，不阻塞
func (rest *Rest) Start() error {
	rest.Lock()
	defer rest.Unlock()
	if rest.Server != nil {
		return nil
	}
	addr := rest.Config.Server
	isTls := rest.Config.CertKeyFile != "" && rest.Config.CertFile != ""
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
	rest.Server = &http.Server{Addr: ln.Addr().String(), Handler: rest}
	rest.fireEvent(endpoint.EventInitServer, rest)
	server := rest.Server
	go func() {
		var err error
		if isTls {
			rest.Printf("started rest server with TLS on %s", server.Addr)
			err = server.ServeTLS(ln, rest.Config.CertFile, rest.Config.CertKeyFile)
		} else {
			rest.Printf("started rest server on %s", server.Addr)
			err = server.Serve(ln)
		}
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		rest.fireEvent(endpoint.EventCompletedServer, err)
	}()
	return nil
}

// Addr 实际监听地址，启动后可用
func (rest *Rest) Addr() string {
	rest.Lock()
	defer rest.Unlock()
	if rest.Server == nil {
		return ""
	}
	return rest.Server.Addr
}

// Destroy 等待请求处理完成后停止服务
func (rest *Rest) Destroy() {
	rest.GracefulStop(func() {
		rest.Lock()
		server := rest.Server
		rest.Server = nil
		rest.Unlock()
		if server != nil {
			_ = server.Close()
		}
	})
}

func (rest *Rest) Printf(format string, v ...interface{}) {
	if rest.RuleConfig.Logger != nil {
		rest.RuleConfig.Logger.Printf(format, v...)
	}
}

func (rest *Rest) fireEvent(eventName string, params ...interface{}) {
	if rest.onEvent != nil {
		rest.onEvent(eventName, params...)
	}
}

func (rest *Rest) setCorsHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "*")
}

// NewRequestMsg 把http请求转换成RuleMsg
// 路径参数和url参数放到元数据中，application/json或者合法JSON的body使用JSON类型，否则使用TEXT类型
func NewRequestMsg(r *http.Request, params httprouter.Params, body []byte) types.RuleMsg {
	dataType := types.TEXT
	if r.Header.Get(ContentTypeKey) == JsonContextType || json.Valid(body) {
		dataType = types.JSON
	}
	metadata := types.NewMetadata()
	for key, value := range r.URL.Query() {
		if len(value) > 0 {
			metadata.PutValue(key, value[0])
		}
	}
	//把路径参数放到msg元数据中
	for _, param := range params {
		metadata.PutValue(param.Key, param.Value)
	}
	return types.NewMsg(0, params.ByName(ParamMsgType), dataType, metadata, string(body))
}

func (rest *Rest) msgHandler(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	defer func() {
		//捕捉异常
		if e := recover(); e != nil {
			rest.Printf("rest handler err :%v", e)
			rest.writeError(w, http.StatusInternalServerError, fmt.Errorf("%v", e))
		}
	}()
	if err := rest.BeginOperation(); err != nil {
		rest.writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	defer rest.EndOperation()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		rest.writeError(w, http.StatusBadRequest, err)
		return
	}
	msg := NewRequestMsg(r, params, body)
	result, err := rest.dispatcher.Dispatch(r.Context(), params.ByName(ParamChainId), msg)
	if err != nil {
		if errors.Is(err, types.ErrRuleChainNotFound) {
			rest.writeError(w, http.StatusNotFound, err)
		} else {
			rest.writeError(w, http.StatusInternalServerError, err)
		}
		return
	}
	if result == nil {
		result = []types.WrapperMsg{}
	}
	rest.writeJson(w, http.StatusOK, result)
}

func (rest *Rest) contextHandler(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	chainId := params.ByName(ParamChainId)
	scope := params.ByName(ParamScope)
	var namespace string
	switch scope {
	case "global":
		namespace = contextstore.GlobalNamespace
	case "flow":
		namespace = contextstore.FlowNamespace(chainId)
	case "node":
		nodeId := r.URL.Query().Get(QueryNodeId)
		if nodeId == "" {
			rest.writeError(w, http.StatusBadRequest, fmt.Errorf("%s is required for node scope", QueryNodeId))
			return
		}
		namespace = contextstore.NodeNamespace(chainId, nodeId)
	default:
		rest.writeError(w, http.StatusBadRequest, fmt.Errorf("unknown scope %q", scope))
		return
	}
	storage := r.URL.Query().Get(QueryStorage)
	store := rest.dispatcher.ContextStorage().Scope(r.Context(), namespace)
	keys, err := store.Keys(storage)
	if err != nil {
		rest.writeStoreError(w, err)
		return
	}
	values := make(map[string]interface{}, len(keys))
	for _, key := range keys {
		v, ok, err := store.Get(key, storage)
		if err != nil {
			rest.writeStoreError(w, err)
			return
		}
		if ok {
			values[key] = v
		}
	}
	rest.writeJson(w, http.StatusOK, ContextResponse{
		Scope:     scope,
		Namespace: namespace,
		Storage:   storage,
		Values:    values,
	})
}

func (rest *Rest) getRuleHandler(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	def, err := rest.dispatcher.DSL(params.ByName(ParamChainId))
	if err != nil {
		rest.writeError(w, http.StatusNotFound, err)
		return
	}
	if rest.Config.AllowCors {
		rest.setCorsHeaders(w)
	}
	w.Header().Set(ContentTypeKey, JsonContextType)
	_, _ = w.Write(def)
}

// putRuleHandler 新定义初始化失败时保留旧规则链
func (rest *Rest) putRuleHandler(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		rest.writeError(w, http.StatusBadRequest, err)
		return
	}
	chainId := params.ByName(ParamChainId)
	if err = rest.dispatcher.Reload(chainId, body); err != nil {
		if errors.Is(err, types.ErrRuleChainNotFound) {
			rest.writeError(w, http.StatusNotFound, err)
		} else {
			rest.writeError(w, http.StatusBadRequest, err)
		}
		return
	}
	rest.Printf("reloaded rule chain %s", chainId)
	w.WriteHeader(http.StatusCreated)
}

func (rest *Rest) writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, types.ErrStorageNotFound) {
		rest.writeError(w, http.StatusNotFound, err)
	} else {
		rest.writeError(w, http.StatusInternalServerError, err)
	}
}

func (rest *Rest) writeError(w http.ResponseWriter, statusCode int, err error) {
	rest.writeJson(w, statusCode, ErrorResponse{Error: err.Error()})
}

func (rest *Rest) writeJson(w http.ResponseWriter, statusCode int, v interface{}) {
	if rest.Config.AllowCors {
		rest.setCorsHeaders(w)
	}
	w.Header().Set(ContentTypeKey, JsonContextType)
	b, err := json.Marshal(v)
	if err != nil {
		rest.Printf("write response err :%v", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.WriteHeader(statusCode)
	_, _ = w.Write(b)
}
