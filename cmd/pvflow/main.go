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

package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/rulego/pvflow/config"
	"github.com/rulego/pvflow/internal/server"
	"github.com/rulego/pvflow/utils/logs"
)

const (
	version = "1.0.0"
)

var (
	//是否是查询版本
	ver bool
	//配置文件
	configFile string
	//环境变量文件
	envFile string
)

func init() {
	flag.StringVar(&configFile, "c", "", "配置文件")
	flag.StringVar(&envFile, "e", config.DefaultEnvFile, "环境变量文件")
	flag.BoolVar(&ver, "v", false, "打印版本")
}

func main() {
	flag.Parse()

	if ver {
		fmt.Printf("pvflow server v%s\n", version)
		os.Exit(0)
	}
	if err := config.LoadEnv(envFile); err != nil {
		log.Fatal("error:", err)
	}
	c, err := config.Load(configFile)
	if err != nil {
		log.Fatal("error:", err)
	}
	logger, closer := initLogger(c)
	defer closer.Close()
	logger.Printf("use config file=%s", configFile)

	s, err := server.New(c, logger)
	if err != nil {
		log.Fatal("error:", err)
	}
	if err = s.Start(); err != nil {
		_ = s.Stop()
		log.Fatal("error:", err)
	}

	sigs := make(chan os.Signal, 1)
	// 监听系统信号，包括中断信号和终止信号
	signal.Notify(sigs, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	if err = s.Stop(); err != nil {
		logger.Errorf("stop server: %v", err)
	}
	logger.Printf("stopped server")
}

// 初始化日志记录器
func initLogger(c config.Config) (*logs.ZerologLogger, io.Closer) {
	if c.LogFile == "" {
		return logs.NewLogger(os.Stdout, c.LogLevel, true), io.NopCloser(nil)
	}
	f, err := os.OpenFile(c.LogFile, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		log.Fatal(err)
	}
	return logs.NewLogger(f, c.LogLevel, false), f
}
