package agent

import (
	"context"
	"sync"

	rd "github.com/go-redis/redis/v9"
	"github.com/richarddahl/ruleflow/audit"
	"github.com/richarddahl/ruleflow/condition"
	"github.com/richarddahl/ruleflow/config"
	"github.com/richarddahl/ruleflow/definition"
	"github.com/richarddahl/ruleflow/engine"
	"github.com/richarddahl/ruleflow/executor"
	"github.com/richarddahl/ruleflow/listener"
	"github.com/richarddahl/ruleflow/logger"
	"github.com/richarddahl/ruleflow/metrics"
	"github.com/richarddahl/ruleflow/model"
	"github.com/richarddahl/ruleflow/persistence/redis"
	"github.com/richarddahl/ruleflow/recipient"
	"github.com/richarddahl/ruleflow/recorder"
	"github.com/richarddahl/ruleflow/rest"
	"go.uber.org/zap"
)

// Collaborators are the external services the engine consumes. Unset fields
// fall back to development defaults: a loopback identity, a logging mail
// transport, and storage picked by config.StorageType.
type Collaborators struct {
	Identity          recipient.Identity
	QueryExecutor     condition.QueryExecutor
	RoleLookup        condition.RoleLookup
	Mail              executor.MailTransport
	Notifications     executor.NotificationQueue
	DefinitionStorage definition.Storage
	ExecutionStorage  recorder.Storage
	CustomExecutors   map[string]executor.CustomFunc
}

type Agent struct {
	Config config.Config

	collaborators     Collaborators
	metrics           *metrics.Metrics
	recorderService   *recorder.Service
	definitionService *definition.Service
	registry          *executor.Registry
	engine            *engine.Engine
	httpServer        *rest.Server
	redisClient       rd.UniversalClient
	auditCollector    audit.Collector

	cancel       context.CancelFunc
	shutdown     bool
	shutdownLock sync.Mutex
	wg           sync.WaitGroup
}

func New(conf config.Config, collaborators Collaborators) (*Agent, error) {
	a := &Agent{
		Config:        conf,
		collaborators: collaborators,
	}
	setup := []func() error{
		a.setupStorage,
		a.setupRecorder,
		a.setupDefinitionService,
		a.setupRegistry,
		a.setupEngine,
		a.setupHttpServer,
		a.setupAudit,
	}
	for _, fn := range setup {
		if err := fn(); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func (a *Agent) setupStorage() error {
	a.metrics = metrics.New()
	if a.Config.StorageType != config.STORAGE_TYPE_REDIS {
		return nil
	}
	redisConf := redis.Config{
		Addrs:     a.Config.RedisConfig.Addrs,
		Namespace: a.Config.RedisConfig.Namespace,
		Password:  a.Config.RedisConfig.Password,
		PoolSize:  a.Config.RedisConfig.PoolSize,
	}
	a.redisClient = rd.NewUniversalClient(&rd.UniversalOptions{
		Addrs:    redisConf.Addrs,
		Password: redisConf.Password,
		PoolSize: redisConf.PoolSize,
	})
	if a.collaborators.ExecutionStorage == nil {
		a.collaborators.ExecutionStorage = redis.NewExecutionDao(redisConf)
	}
	if a.collaborators.DefinitionStorage == nil {
		a.collaborators.DefinitionStorage = redis.NewDefinitionDao(redisConf)
	}
	if a.collaborators.Notifications == nil {
		a.collaborators.Notifications = redis.NewNotificationQueue(redisConf)
	}
	return nil
}

func (a *Agent) setupRecorder() error {
	storage := a.collaborators.ExecutionStorage
	if storage == nil {
		storage = recorder.NewInMemoryStore()
	}
	a.recorderService = recorder.NewService(storage, a.Config.EngineConfig.UpdatesBuffer)
	return nil
}

func (a *Agent) setupDefinitionService() error {
	storage := a.collaborators.DefinitionStorage
	if storage == nil {
		storage = definition.NewInMemoryStore()
	}
	a.definitionService = definition.NewService(storage, a.Config.EngineConfig.DefinitionCacheTTL)
	return nil
}

func (a *Agent) setupRegistry() error {
	queue := a.collaborators.Notifications
	if queue == nil {
		queue = &logNotificationQueue{}
	}
	mail := a.collaborators.Mail
	if mail == nil {
		mail = &logMailTransport{}
	}
	a.registry = executor.NewRegistry(queue, mail, a.Config.EngineConfig.WebhookTimeout)
	for name, fn := range a.collaborators.CustomExecutors {
		a.registry.RegisterCustom(name, fn)
	}
	return nil
}

func (a *Agent) setupEngine() error {
	identity := a.collaborators.Identity
	if identity == nil {
		identity = &loopbackIdentity{}
	}
	evaluator := condition.NewEvaluator(a.collaborators.QueryExecutor, a.collaborators.RoleLookup, a.Config.EngineConfig.QueryTimeout)
	resolver := recipient.NewResolver(identity)

	var source engine.EventSource
	if a.redisClient != nil {
		source = listener.New(a.redisClient, a.Config.ListenerConfig, a.metrics)
	}
	a.engine = engine.New(a.Config.EngineConfig, a.definitionService, evaluator, resolver,
		a.registry, a.recorderService, source, a.metrics)
	return nil
}

func (a *Agent) setupHttpServer() error {
	var err error
	a.httpServer, err = rest.NewServer(a.Config.HttpPort, a.engine, a.recorderService)
	return err
}

func (a *Agent) setupAudit() error {
	if a.Config.AuditConfig.FileName == "" {
		return nil
	}
	collector, err := audit.NewCollector(audit.Config{
		FileName:      a.Config.AuditConfig.FileName,
		CollectorType: audit.LOG_FILE_COLLECTOR,
		FlushInterval: a.Config.AuditConfig.FlushInterval,
	})
	if err != nil {
		return err
	}
	a.auditCollector = collector
	return nil
}

// Engine exposes the coordinator for embedding applications.
func (a *Agent) Engine() *engine.Engine {
	return a.engine
}

// ExecutionUpdates registers a reporting-layer subscriber on the recorder
// stream. Every call returns an independent channel carrying all records
// saved after the call; the audit collector holds its own subscription.
func (a *Agent) ExecutionUpdates() <-chan model.ExecutionRecord {
	return a.recorderService.Updates()
}

func (a *Agent) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	go func() {
		if err := a.httpServer.Start(); err != nil {
			logger.Error("http server stopped", zap.Error(err))
		}
	}()

	if a.redisClient != nil {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			if err := a.engine.Run(ctx); err != nil && err != context.Canceled {
				logger.Error("engine run loop stopped", zap.Error(err))
			}
		}()
	} else {
		logger.Info("no notification transport configured, running with http ingestion only")
	}

	if a.auditCollector != nil {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			audit.Tail(ctx, a.recorderService.Updates(), a.auditCollector)
		}()
	}
	return nil
}

func (a *Agent) Shutdown() error {
	a.shutdownLock.Lock()
	defer a.shutdownLock.Unlock()
	if a.shutdown {
		return nil
	}
	a.shutdown = true
	if a.cancel != nil {
		a.cancel()
	}
	a.wg.Wait()
	if a.auditCollector != nil {
		if err := a.auditCollector.Close(); err != nil {
			logger.Error("failed to close audit collector", zap.Error(err))
		}
	}
	if err := a.httpServer.Stop(); err != nil {
		return err
	}
	if a.redisClient != nil {
		return a.redisClient.Close()
	}
	return nil
}
