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

// Package config loads the pvflow server configuration.
//
// The configuration is an ini file. Environment variables prefixed with
// PVFLOW_ override ini keys: PVFLOW_SERVER sets the top level key server,
// PVFLOW_MQTT__SERVER sets server in [mqtt] and PVFLOW_STORAGE__FILE__DIR
// sets dir in [storage.file]. Variables may also come from a .env file.
//
//	server = :9090
//	rules_dir = ./rules
//
//	[global]
//	configName = Sensors
//
//	[storage]
//	default = file
//
//	[storage.file]
//	module = localfilesystem
//	dir = ./data
//
//	[schedule.tick]
//	cron = */10 * * * * *
//	chain_id = sensors
package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
	"github.com/rulego/pvflow/api/types"
	"github.com/rulego/pvflow/contextstore"
	"gopkg.in/ini.v1"
)

const (
	// EnvPrefix 环境变量前缀
	EnvPrefix = "PVFLOW_"
	// EnvSectionSeparator 环境变量中分隔section和key的分隔符
	EnvSectionSeparator = "__"
	// DefaultEnvFile 默认.env文件，不存在时忽略
	DefaultEnvFile = ".env"

	SectionGlobal   = "global"
	SectionStorage  = "storage"
	SectionSchedule = "schedule"
	KeyModule       = "module"
	KeyDefault      = "default"
)

// Config 服务配置
type Config struct {
	// Server http服务器地址
	Server string `ini:"server"`
	// RulesDir 规则链目录，加载目录下所有*.json文件
	RulesDir string `ini:"rules_dir"`
	// LogFile 日志文件，为空输出到控制台
	LogFile string `ini:"log_file"`
	// LogLevel 日志级别 debug/info/warn/error
	LogLevel string `ini:"log_level"`
	// Debug 是否把节点调试日志打印到日志
	Debug bool `ini:"debug"`
	// AllowCors 是否允许跨域
	AllowCors bool `ini:"allow_cors"`
	// ShutdownTimeout 优雅停机等待时间
	ShutdownTimeout time.Duration `ini:"shutdown_timeout"`
	// StorageTimeout 上下文存储单次调用超时
	StorageTimeout time.Duration `ini:"storage_timeout"`
	// Mqtt mqtt接入配置
	Mqtt Mqtt `ini:"mqtt"`
	// Global 全局自定义配置，组件可以通过${global.xxx}方式取值
	Global types.Metadata `ini:"-"`
	// Storage 上下文存储配置，来自[storage]和[storage.*]
	Storage contextstore.Settings `ini:"-"`
	// Jobs 定时任务，来自[schedule.*]
	Jobs []Job `ini:"-"`
}

// Mqtt mqtt接入配置
type Mqtt struct {
	Enabled  bool   `ini:"enabled"`
	Server   string `ini:"server"`
	Username string `ini:"username"`
	Password string `ini:"password"`
	QOS      int    `ini:"qos"`
	ClientId string `ini:"client_id"`
	// Routes 订阅路由，格式：topic|chainId，多个用逗号分隔
	Routes []string `ini:"routes" delim:","`
}

// Route 解析后的订阅路由
type Route struct {
	Topic   string
	ChainId string
}

// ParseRoutes 解析 topic|chainId 格式的订阅路由
func (m Mqtt) ParseRoutes() ([]Route, error) {
	var routes []Route
	for _, item := range m.Routes {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		topic, chainId, ok := strings.Cut(item, "|")
		topic, chainId = strings.TrimSpace(topic), strings.TrimSpace(chainId)
		if !ok || topic == "" || chainId == "" {
			return nil, fmt.Errorf("mqtt route %q: want topic|chainId", item)
		}
		routes = append(routes, Route{Topic: topic, ChainId: chainId})
	}
	return routes, nil
}

// Job 定时任务
type Job struct {
	Name    string `ini:"-"`
	Cron    string `ini:"cron"`
	ChainId string `ini:"chain_id"`
	MsgType string `ini:"msg_type"`
	Data    string `ini:"data"`
}

// DefaultConfig 默认配置
var DefaultConfig = Config{
	Server:          ":9090",
	RulesDir:        "./rules",
	LogLevel:        "info",
	ShutdownTimeout: 10 * time.Second,
}

// LoadEnv 把.env文件加载到进程环境变量，不覆盖已存在的变量。
// DefaultEnvFile 不存在时忽略。
func LoadEnv(files ...string) error {
	for _, file := range files {
		if file == "" {
			continue
		}
		if _, err := os.Stat(file); errors.Is(err, os.ErrNotExist) && file == DefaultEnvFile {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			return fmt.Errorf("load env file %s: %w", file, err)
		}
	}
	return nil
}

// Load 加载ini配置文件，并使用进程环境变量覆盖。file为空时使用默认配置
func Load(file string) (Config, error) {
	var source interface{}
	if file != "" {
		source = file
	}
	return Parse(source, os.Environ())
}

// Parse 解析ini配置。source可以是文件名、[]byte或者nil，
// environ 格式同os.Environ()
func Parse(source interface{}, environ []string) (Config, error) {
	opts := ini.LoadOptions{SpaceBeforeInlineComment: true}
	var cfg *ini.File
	var err error
	if source == nil {
		cfg = ini.Empty(opts)
	} else if cfg, err = ini.LoadSources(opts, source); err != nil {
		return Config{}, err
	}
	if err = applyEnv(cfg, environ); err != nil {
		return Config{}, err
	}
	c := DefaultConfig
	if err = cfg.MapTo(&c); err != nil {
		return Config{}, err
	}
	c.Global = types.NewMetadata()
	if section, err := cfg.GetSection(SectionGlobal); err == nil {
		for k, v := range section.KeysHash() {
			c.Global.PutValue(k, v)
		}
	}
	var result *multierror.Error
	storage, err := parseStorage(cfg)
	if err != nil {
		result = multierror.Append(result, err)
	}
	c.Storage = storage
	c.Storage.Timeout = c.StorageTimeout
	jobs, err := parseJobs(cfg)
	if err != nil {
		result = multierror.Append(result, err)
	}
	c.Jobs = jobs
	if err = c.Validate(); err != nil {
		result = multierror.Append(result, err)
	}
	return c, result.ErrorOrNil()
}

// Validate 校验配置
func (c Config) Validate() error {
	var result *multierror.Error
	if c.RulesDir == "" {
		result = multierror.Append(result, errors.New("rules_dir can not be empty"))
	}
	if c.Mqtt.Enabled {
		if c.Mqtt.Server == "" {
			result = multierror.Append(result, errors.New("mqtt.server can not be empty"))
		}
		if c.Mqtt.QOS < 0 || c.Mqtt.QOS > 2 {
			result = multierror.Append(result, fmt.Errorf("mqtt.qos %d: want 0, 1 or 2", c.Mqtt.QOS))
		}
		if _, err := c.Mqtt.ParseRoutes(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// applyEnv 把 PVFLOW_ 环境变量写入ini
func applyEnv(cfg *ini.File, environ []string) error {
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, EnvPrefix) {
			continue
		}
		parts := strings.Split(strings.ToLower(strings.TrimPrefix(name, EnvPrefix)), EnvSectionSeparator)
		key := parts[len(parts)-1]
		if key == "" {
			continue
		}
		sectionName := strings.Join(parts[:len(parts)-1], ".")
		if sectionName == "" {
			sectionName = ini.DefaultSection
		}
		section, err := cfg.NewSection(sectionName)
		if err != nil {
			return fmt.Errorf("env %s: %w", name, err)
		}
		if _, err = section.NewKey(key, value); err != nil {
			return fmt.Errorf("env %s: %w", name, err)
		}
	}
	return nil
}

// childSections 返回名称以 parent. 开头的section
func childSections(cfg *ini.File, parent string) []*ini.Section {
	var result []*ini.Section
	for _, section := range cfg.Sections() {
		if strings.HasPrefix(section.Name(), parent+".") {
			result = append(result, section)
		}
	}
	return result
}

// parseStorage [storage] default = name; [storage.name] module = xx，其他key作为模块参数
func parseStorage(cfg *ini.File) (contextstore.Settings, error) {
	settings := contextstore.Settings{Stores: make(map[string]contextstore.StoreConfig)}
	if section, err := cfg.GetSection(SectionStorage); err == nil {
		settings.Default = section.Key(KeyDefault).String()
	}
	var result *multierror.Error
	for _, child := range childSections(cfg, SectionStorage) {
		name := strings.TrimPrefix(child.Name(), SectionStorage+".")
		module := child.Key(KeyModule).String()
		if module == "" {
			result = multierror.Append(result, fmt.Errorf("storage %s: module can not be empty", name))
			continue
		}
		options := make(map[string]interface{})
		for k, v := range child.KeysHash() {
			if k != KeyModule {
				options[k] = v
			}
		}
		settings.Stores[name] = contextstore.StoreConfig{Module: module, Options: options}
	}
	return settings, result.ErrorOrNil()
}

// parseJobs [schedule.name] 每个section一个任务，按名称排序
func parseJobs(cfg *ini.File) ([]Job, error) {
	var jobs []Job
	var result *multierror.Error
	for _, child := range childSections(cfg, SectionSchedule) {
		job := Job{Name: strings.TrimPrefix(child.Name(), SectionSchedule+".")}
		if err := child.MapTo(&job); err != nil {
			result = multierror.Append(result, fmt.Errorf("schedule %s: %w", job.Name, err))
			continue
		}
		if job.Cron == "" || job.ChainId == "" {
			result = multierror.Append(result, fmt.Errorf("schedule %s: cron and chain_id can not be empty", job.Name))
			continue
		}
		jobs = append(jobs, job)
	}
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].Name < jobs[j].Name
	})
	return jobs, result.ErrorOrNil()
}
