package svc

import (
	"context"
	"crypto/tls"
	"database/sql"
	"fmt"
	"io"
	"net/http"

	"github.com/fachebot/talk-wrapup/internal/config"
	"github.com/fachebot/talk-wrapup/internal/llm"
	"github.com/fachebot/talk-wrapup/internal/logger"
	"github.com/fachebot/talk-wrapup/internal/model"
	"github.com/fachebot/talk-wrapup/internal/wrapup"

	"golang.org/x/net/proxy"
)

type ServiceContext struct {
	Config         *config.Config
	DB             *sql.DB
	TransportProxy *http.Transport
	EntryModel     *model.EntryModel
	RunModel       *model.RunModel
	Generator      llm.Generator // 未配置 APIKey 时为 nil
	Builder        *wrapup.Builder
}

func NewServiceContext(ctx context.Context, c *config.Config) (*ServiceContext, error) {
	// 创建数据库连接
	db, err := model.Open(ctx, c.Store.Path)
	if err != nil {
		return nil, err
	}

	// 创建SOCKS5代理
	transportProxy, err := newTransportProxy(&c.Sock5Proxy)
	if err != nil {
		db.Close()
		return nil, err
	}

	// 生成客户端只创建一次，在多次 wrapup 之间复用
	generator := llm.New(&c.LLM, transportProxy)
	if generator == nil {
		logger.Warnf("[LLM] 未配置 APIKey，大纲生成将被跳过")
	}

	svcCtx := &ServiceContext{
		Config:         c,
		DB:             db,
		TransportProxy: transportProxy,
		EntryModel:     model.NewEntryModel(db),
		RunModel:       model.NewRunModel(db),
		Generator:      generator,
		Builder:        wrapup.NewBuilder(&c.Wrapup, &c.LLM, generator),
	}
	return svcCtx, nil
}

func newTransportProxy(c *config.Sock5Proxy) (*http.Transport, error) {
	if !c.Enable {
		return nil, nil
	}

	socks5Proxy := fmt.Sprintf("%s:%d", c.Host, c.Port)
	dialer, err := proxy.SOCKS5("tcp", socks5Proxy, nil, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("创建SOCKS5代理失败: %w", err)
	}

	return &http.Transport{
		Dial:            dialer.Dial,
		TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
	}, nil
}

func (svcCtx *ServiceContext) Close() {
	if closer, ok := svcCtx.Generator.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			logger.Errorf("关闭 LLM 客户端失败, %v", err)
		}
	}
	if err := svcCtx.DB.Close(); err != nil {
		logger.Errorf("关闭数据库失败, %v", err)
	}
}
