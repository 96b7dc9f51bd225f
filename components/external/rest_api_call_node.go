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


package external

import (
	"bytes"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rulego/pvflow/api/types"
	"github.com/rulego/pvflow/components/base"
	"github.com/rulego/pvflow/utils/maps"
	"github.com/rulego/pvflow/utils/str"
	"golang.org/x/net/proxy"
)

func init() {
	Registry.Add(&RestApiCallNode{})
}

// 存在到metadata key
const (
	//StatusMetadataKey http响应状态，Metadata Key
	StatusMetadataKey = "status"
	//StatusCodeMetadataKey http响应状态码，Metadata Key
	StatusCodeMetadataKey = "statusCode"
	//ErrorBodyMetadataKey http响应错误信息，Metadata Key
	ErrorBodyMetadataKey = "errorBody"
	ContentTypeKey       = "Content-Type"
)

// RestApiCallNodeConfiguration rest配置
type RestApiCallNodeConfiguration struct {
	//RestEndpointUrlPattern HTTP URL地址,可以使用 ${metadata.key} 读取元数据中的变量或者使用 ${msg.key} 读取消息负荷中的变量进行替换
	RestEndpointUrlPattern string
	//RequestMethod 请求方法，默认POST
	RequestMethod string
	// Without request body
	WithoutRequestBody bool
	//Headers 请求头,可以使用 ${metadata.key} 读取元数据中的变量或者使用 ${msg.key} 读取消息负荷中的变量进行替换
	Headers map[string]string
	// Body 请求body,支持metadata、msg取值构建body。如果空，则把消息负荷传输到目标地址
	// 例如：{"value":"${msg.payload}","device":"${metadata.deviceId}"}
	Body string
	//ReadTimeoutMs 超时，单位毫秒，默认2000。0代表不限制
	ReadTimeoutMs int
	//禁用证书验证
	InsecureSkipVerify bool
	//MaxParallelRequestsCount 连接池大小，默认200。0代表不限制
	MaxParallelRequestsCount int
	//EnableProxy 是否开启代理
	EnableProxy bool
	//UseSystemProxyProperties 使用系统配置代理
	UseSystemProxyProperties bool
	//ProxyScheme 代理协议 http、https或者socks5
	ProxyScheme string
	//ProxyHost 代理主机
	ProxyHost string
	//ProxyPort 代理端口
	ProxyPort int
	//ProxyUser 代理用户名
	ProxyUser string
	//ProxyPassword 代理密码
	ProxyPassword string
}

// RestApiCallNode 调用外部HTTP/REST API
// 2xx响应：响应体替换消息内容，通过`Success`链发送
// 其他响应或者请求失败：通过`Failure`链发送，错误信息保存在metadata.errorBody
// 响应状态保存在metadata.status、metadata.statusCode
type RestApiCallNode struct {
	//节点配置
	Config RestApiCallNodeConfiguration
	//httpClient http客户端
	httpClient *http.Client
	hasVar     bool
}

// Type 组件类型
func (x *RestApiCallNode) Type() string {
	return "restApiCall"
}

func (x *RestApiCallNode) New() types.Node {
	headers := map[string]string{ContentTypeKey: "application/json"}
	config := RestApiCallNodeConfiguration{
		RequestMethod:            "POST",
		MaxParallelRequestsCount: 200,
		ReadTimeoutMs:            2000,
		Headers:                  headers,
		InsecureSkipVerify:       true,
	}
	return &RestApiCallNode{Config: config}
}

// Init 初始化
func (x *RestApiCallNode) Init(_ types.Config, configuration types.Configuration) error {
	if err := maps.Map2Struct(configuration, &x.Config); err != nil {
		return err
	}
	if x.Config.RestEndpointUrlPattern == "" {
		return errors.New("restEndpointUrlPattern can not be empty")
	}
	if x.Config.Headers == nil {
		x.Config.Headers = make(map[string]string)
	}
	if _, ok := x.Config.Headers[ContentTypeKey]; !ok {
		x.Config.Headers[ContentTypeKey] = "application/json"
	}
	x.Config.RequestMethod = strings.ToUpper(x.Config.RequestMethod)
	x.Config.Body = strings.TrimSpace(x.Config.Body)
	x.hasVar = str.CheckHasVar(x.Config.RestEndpointUrlPattern) || str.CheckHasVar(x.Config.Body)
	for k, v := range x.Config.Headers {
		if str.CheckHasVar(k) || str.CheckHasVar(v) {
			x.hasVar = true
		}
	}
	httpClient, err := NewHttpClient(x.Config)
	if err != nil {
		return err
	}
	x.httpClient = httpClient
	return nil
}

// OnMsg 处理消息，发送HTTP请求并处理响应
func (x *RestApiCallNode) OnMsg(ctx types.RuleContext, msg types.RuleMsg) {
	var env map[string]interface{}
	if x.hasVar {
		env = templateEnv(msg)
	}
	endpointUrl := str.ExecuteTemplate(x.Config.RestEndpointUrlPattern, env)
	var req *http.Request
	var err error
	if x.Config.WithoutRequestBody {
		req, err = http.NewRequestWithContext(ctx.GetContext(), x.Config.RequestMethod, endpointUrl, nil)
	} else {
		body := msg.GetData()
		if x.Config.Body != "" {
			body = str.ExecuteTemplate(x.Config.Body, env)
		}
		req, err = http.NewRequestWithContext(ctx.GetContext(), x.Config.RequestMethod, endpointUrl, bytes.NewReader([]byte(body)))
	}
	if err != nil {
		ctx.TellFailure(msg, err)
		return
	}
	//设置header
	for key, value := range x.Config.Headers {
		req.Header.Set(str.ExecuteTemplate(key, env), str.ExecuteTemplate(value, env))
	}

	response, err := x.httpClient.Do(req)
	if err != nil {
		msg.Metadata.PutValue(ErrorBodyMetadataKey, err.Error())
		ctx.TellFailure(msg, err)
		return
	}
	defer response.Body.Close()

	b, err := io.ReadAll(response.Body)
	if err != nil {
		msg.Metadata.PutValue(ErrorBodyMetadataKey, err.Error())
		ctx.TellFailure(msg, err)
		return
	}
	msg.Metadata.PutValue(StatusMetadataKey, response.Status)
	msg.Metadata.PutValue(StatusCodeMetadataKey, strconv.Itoa(response.StatusCode))
	if response.StatusCode >= 200 && response.StatusCode < 300 {
		msg.SetData(string(b))
		ctx.TellSuccess(msg)
	} else {
		strB := string(b)
		msg.Metadata.PutValue(ErrorBodyMetadataKey, strB)
		ctx.TellFailure(msg, fmt.Errorf("%s: %s", response.Status, strB))
	}
}

// Destroy 销毁
func (x *RestApiCallNode) Destroy() {
	if x.httpClient != nil {
		x.httpClient.CloseIdleConnections()
	}
}

// templateEnv ${msg.xx} ${metadata.xx} 取值环境
func templateEnv(msg types.RuleMsg) map[string]interface{} {
	metadata := make(map[string]interface{}, len(msg.Metadata))
	for k, v := range msg.Metadata {
		metadata[k] = v
	}
	return map[string]interface{}{
		types.MsgKey:      base.NodeUtils.PrepareJsData(msg),
		types.MetadataKey: metadata,
		types.MsgTypeKey:  msg.Type,
		types.IdKey:       msg.Id,
	}
}

// NewHttpClient 创建http客户端
func NewHttpClient(config RestApiCallNodeConfiguration) (*http.Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: config.InsecureSkipVerify}
	transport.MaxConnsPerHost = config.MaxParallelRequestsCount

	// 配置代理
	if config.EnableProxy {
		if config.UseSystemProxyProperties {
			if proxyURL := GetSystemProxy(); proxyURL != nil {
				transport.Proxy = http.ProxyURL(proxyURL)
			}
		} else {
			proxyURL := BuildProxyURL(config.ProxyScheme, config.ProxyHost, config.ProxyPort, config.ProxyUser, config.ProxyPassword)
			if proxyURL == nil {
				return nil, errors.New("proxyScheme, proxyHost and proxyPort are required when proxy is enabled")
			}
			if config.ProxyScheme == "socks5" {
				transport.Proxy = nil
				transport.DialContext = nil
				transport.Dial = CreateSOCKS5Dialer(proxyURL)
			} else {
				transport.Proxy = http.ProxyURL(proxyURL)
			}
		}
	}

	return &http.Client{Transport: transport,
		Timeout: time.Duration(config.ReadTimeoutMs) * time.Millisecond}, nil
}

// GetSystemProxy 获取系统代理设置
func GetSystemProxy() *url.URL {
	for _, env := range []string{"HTTP_PROXY", "http_proxy", "HTTPS_PROXY", "https_proxy"} {
		if proxyStr := os.Getenv(env); proxyStr != "" {
			if proxyURL, err := url.Parse(proxyStr); err == nil {
				return proxyURL
			}
		}
	}
	return nil
}

// BuildProxyURL 构建代理URL
func BuildProxyURL(scheme, host string, port int, user, password string) *url.URL {
	if scheme == "" || host == "" || port == 0 {
		return nil
	}
	proxyURL := &url.URL{Scheme: scheme, Host: net.JoinHostPort(host, strconv.Itoa(port))}
	if user != "" && password != "" {
		proxyURL.User = url.UserPassword(user, password)
	}
	return proxyURL
}

// CreateSOCKS5Dialer 创建SOCKS5拨号器
func CreateSOCKS5Dialer(proxyURL *url.URL) func(network, addr string) (net.Conn, error) {
	return func(network, addr string) (net.Conn, error) {
		var auth *proxy.Auth
		if proxyURL.User != nil {
			if password, ok := proxyURL.User.Password(); ok {
				auth = &proxy.Auth{
					User:     proxyURL.User.Username(),
					Password: password,
				}
			}
		}

		dialer, err := proxy.SOCKS5(network, proxyURL.Host, auth, proxy.Direct)
		if err != nil {
			return nil, err
		}

		return dialer.Dial(network, addr)
	}
}
