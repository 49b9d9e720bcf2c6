package commands

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"katydid-async-validation/pkg/config"
	"katydid-async-validation/pkg/httpbind"
	"katydid-async-validation/pkg/idgen"
	"katydid-async-validation/pkg/validation/core"
	"katydid-async-validation/pkg/validation/engine"
	"katydid-async-validation/pkg/validation/executor"
	"katydid-async-validation/pkg/validation/lookup"
	"katydid-async-validation/pkg/validation/notify"
	"katydid-async-validation/pkg/validation/orchestrator"
	"katydid-async-validation/pkg/validation/plugin"
)

// app 组装好的服务组件
type app struct {
	cfg    *config.Config
	logger *zap.Logger

	mu      sync.RWMutex
	account *Account

	events    *notify.Dispatcher
	evaluator *engine.PlaygroundEvaluator
	orch      *orchestrator.Orchestrator
	caller    *executor.Serial
	registry  *prometheus.Registry
	redis     *redis.Client
	router    *gin.Engine
}

// newApp 按配置组装服务
// Redis 启用时 Email 增加唯一性规则，连接失败直接返回错误
func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger, account *Account) (*app, error) {
	if account == nil {
		account = &Account{}
	}

	a := &app{
		cfg:      cfg,
		logger:   logger,
		account:  account,
		events:   notify.NewDispatcher(notify.WithLogger(logger)),
		registry: prometheus.NewRegistry(),
	}

	evalOpts := []engine.Option{
		engine.WithLocker(&a.mu),
		engine.WithLocale(cfg.Validation.Locale),
		engine.WithValidateAllProperties(cfg.Validation.ValidateAllProperties),
	}

	if cfg.Redis.Enabled {
		client, err := lookup.Connect(ctx, cfg.Redis.Config)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		a.redis = client
		set := lookup.NewRedisSet(client, cfg.Redis.SetKey)
		evalOpts = append(evalOpts, engine.WithFieldRule(FieldEmail, engine.UniqueRule(set, "email is already registered")))
	}

	evaluator, err := engine.NewPlaygroundEvaluator(a.account, evalOpts...)
	if err != nil {
		a.closeRedis()
		return nil, err
	}
	a.evaluator = evaluator

	plugins := []core.Plugin{plugin.NewLoggingPlugin(logger)}
	if cfg.Metrics.Enabled {
		metrics, err := plugin.NewMetricsPlugin(cfg.Metrics.MetricsConfig, a.registry)
		if err != nil {
			a.closeRedis()
			return nil, err
		}
		plugins = append(plugins, metrics)
	}

	runIDs, err := idgen.New(cfg.Validation.RunIDs)
	if err != nil {
		a.closeRedis()
		return nil, err
	}

	var worker core.Executor = executor.Go()
	if cfg.Validation.Workers > 0 {
		worker = executor.NewPool(cfg.Validation.Workers)
	}
	a.caller = executor.NewSerial()

	a.orch, err = orchestrator.New(evaluator,
		orchestrator.WithSink(a.events),
		orchestrator.WithWorker(worker),
		orchestrator.WithCaller(a.caller),
		orchestrator.WithPresenter(plugin.NewLogPresenter(logger)),
		orchestrator.WithShowErrorInDialog(cfg.Validation.ShowErrorInDialog),
		orchestrator.WithPlugins(plugins...),
		orchestrator.WithIDGenerator(runIDs),
		orchestrator.WithLogger(logger),
	)
	if err != nil {
		a.caller.Close()
		a.closeRedis()
		return nil, err
	}

	a.router = a.newRouter()
	return a, nil
}

// newRouter 注册绑定路由、健康检查和指标
func (a *app) newRouter() *gin.Engine {
	binding := httpbind.New(a.orch, a.events,
		httpbind.WithBinder(a.evaluator),
		httpbind.WithLogger(a.logger),
		httpbind.WithRunTimeout(a.cfg.Validation.RunTimeout),
		httpbind.WithEventBuffer(a.cfg.Server.EventBuffer),
	)
	r := httpbind.NewRouter(binding)

	r.GET("/healthz", a.healthz)
	r.GET("/account", a.getAccount)
	if a.cfg.Metrics.Enabled {
		r.GET(a.cfg.Metrics.Path, gin.WrapH(promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})))
	}

	return r
}

// healthz GET /healthz
func (a *app) healthz(c *gin.Context) {
	if a.redis != nil {
		if err := lookup.Healthcheck(a.redis)(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// getAccount GET /account
func (a *app) getAccount(c *gin.Context) {
	a.mu.RLock()
	snapshot := *a.account
	a.mu.RUnlock()

	c.JSON(http.StatusOK, snapshot)
}

// Close 等待进行中的运行并释放资源
func (a *app) Close() {
	a.orch.Close()
	a.caller.Close()
	a.closeRedis()
	_ = a.logger.Sync()
}

func (a *app) closeRedis() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
}
