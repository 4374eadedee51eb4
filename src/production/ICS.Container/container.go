package container

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gitlab.com/maplesense1/mpt.iclock_server/src/production/ICS.ApiService/health"
	clock "gitlab.com/maplesense1/mpt.iclock_server/src/production/ICS.Clock"
	config "gitlab.com/maplesense1/mpt.iclock_server/src/production/ICS.Config"
	logger "gitlab.com/maplesense1/mpt.iclock_server/src/production/ICS.Logger"
	protocol "gitlab.com/maplesense1/mpt.iclock_server/src/production/ICS.Protocol"
	implementation "gitlab.com/maplesense1/mpt.iclock_server/src/production/ICS.Repository/Implementation"
	interfaces "gitlab.com/maplesense1/mpt.iclock_server/src/production/ICS.Repository/Interfaces"
	icssync "gitlab.com/maplesense1/mpt.iclock_server/src/production/ICS.Sync"
	telemetry "gitlab.com/maplesense1/mpt.iclock_server/src/production/ICS.Telemetry"
)

// Container manages dependencies and their lifecycle
type Container struct {
	config *config.Config
	logger *logger.Logger
	clock  clock.Clock

	store    interfaces.KVStore
	registry interfaces.DeviceRegistry
	backlog  interfaces.CommandBacklog
	users    interfaces.UserDirectory
	sweeper  *icssync.Sweeper
	engine   *icssync.Engine
	ids      *protocol.IDGenerator

	publisher telemetry.Publisher
	reporter  *telemetry.Reporter

	healthChecker *health.HealthChecker

	// Mutex for thread-safe access
	mu sync.Mutex

	// Cleanup functions, run in reverse order on Shutdown
	cleanupFuncs []func() error
}

// NewContainer loads configuration from the environment and builds a container
func NewContainer() (*Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return NewContainerWithConfig(cfg, logger.NewLogger(&cfg.Logging))
}

// NewContainerWithConfig builds a container from an explicit configuration
func NewContainerWithConfig(cfg *config.Config, log *logger.Logger) (*Container, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("failed to load time zone: %w", err)
	}

	return &Container{
		config: cfg,
		logger: log,
		clock:  clock.Real(loc),
	}, nil
}

// GetConfig returns the configuration
func (c *Container) GetConfig() *config.Config {
	return c.config
}

// GetLogger returns the logger
func (c *Container) GetLogger() *logger.Logger {
	return c.logger
}

// GetClock returns the clock calendar days are computed with
func (c *Container) GetClock() clock.Clock {
	return c.clock
}

// SetClock replaces the clock. Must be called before any service is built.
func (c *Container) SetClock(clk clock.Clock) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clock = clk
}

// GetStore returns the key-value store, connecting on first use
func (c *Container) GetStore() (interfaces.KVStore, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.storeLocked()
}

func (c *Container) storeLocked() (interfaces.KVStore, error) {
	if c.store != nil {
		return c.store, nil
	}

	timeout := c.config.Store.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}

	var store interfaces.KVStore
	switch c.config.Store.Driver {
	case config.DriverMemory:
		store = implementation.NewMemoryKVStore()

	case config.DriverPostgres:
		db, err := health.ConnectPostgresWithTimeout(c.config, timeout)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		pg := implementation.NewPostgresKVStore(db)

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := pg.CreateTables(ctx); err != nil {
			pg.Close()
			return nil, fmt.Errorf("failed to create tables: %w", err)
		}
		store = pg

	case config.DriverMongo:
		client, err := health.ConnectMongoWithTimeout(c.config, timeout)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		store = implementation.NewMongoKVStore(client, health.GetCollection(client, c.config))

	default:
		return nil, fmt.Errorf("unknown store driver %q", c.config.Store.Driver)
	}

	c.store = store
	c.cleanupFuncs = append(c.cleanupFuncs, store.Close)
	c.logger.Logger.Info().Str("driver", c.config.Store.Driver).Msg("Key-value store ready")
	return store, nil
}

// GetEngine returns the synchronization engine, building the registry,
// backlog and sweeper it depends on
func (c *Container) GetEngine() (*icssync.Engine, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.engine != nil {
		return c.engine, nil
	}

	store, err := c.storeLocked()
	if err != nil {
		return nil, err
	}

	c.registry = implementation.NewKVDeviceRegistry(store, c.clock)
	c.backlog = implementation.NewKVCommandBacklog(store, c.clock)
	c.users = implementation.NewKVUserDirectory(store)
	c.sweeper = icssync.NewSweeper(c.registry, c.backlog, c.clock, c.logger)
	c.engine = icssync.NewEngine(c.registry, c.backlog, c.sweeper, c.logger)
	return c.engine, nil
}

// GetRegistry returns the device registry
func (c *Container) GetRegistry() (interfaces.DeviceRegistry, error) {
	if _, err := c.GetEngine(); err != nil {
		return nil, err
	}
	return c.registry, nil
}

// GetUserDirectory returns the directory of users registered through the API
func (c *Container) GetUserDirectory() (interfaces.UserDirectory, error) {
	if _, err := c.GetEngine(); err != nil {
		return nil, err
	}
	return c.users, nil
}

// GetSweeper returns the retention sweeper
func (c *Container) GetSweeper() (*icssync.Sweeper, error) {
	if _, err := c.GetEngine(); err != nil {
		return nil, err
	}
	return c.sweeper, nil
}

// GetIDGenerator returns the command identifier generator
func (c *Container) GetIDGenerator() *protocol.IDGenerator {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ids == nil {
		c.ids = protocol.NewIDGenerator(c.clock.Now)
	}
	return c.ids
}

// GetPublisher returns the telemetry publisher. Without a configured broker
// events are dropped. An unreachable broker is retried in the background.
func (c *Container) GetPublisher(ctx context.Context) telemetry.Publisher {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.publisherLocked(ctx)
}

func (c *Container) publisherLocked(ctx context.Context) telemetry.Publisher {
	if c.publisher != nil {
		return c.publisher
	}

	if !c.config.MQTTEnabled() {
		c.publisher = telemetry.NopPublisher{}
		return c.publisher
	}

	pub := telemetry.NewMQTTPublisher(c.config.MQTT, c.config.GetMQTTBrokerURL(), c.logger)
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := pub.Connect(connectCtx); err != nil {
		c.logger.WithError(err).Warn("MQTT broker unavailable, telemetry will connect in the background")
	}

	c.publisher = pub
	c.cleanupFuncs = append(c.cleanupFuncs, func() error {
		pub.Close()
		return nil
	})
	return c.publisher
}

// GetReporter returns the telemetry reporter used by terminal callbacks
func (c *Container) GetReporter(ctx context.Context) *telemetry.Reporter {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.reporter == nil {
		c.reporter = telemetry.NewReporter(c.publisherLocked(ctx), c.config.MQTT.TopicPrefix, c.logger)
	}
	return c.reporter
}

// GetHealthChecker returns the health checker
func (c *Container) GetHealthChecker(ctx context.Context) (*health.HealthChecker, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.healthChecker != nil {
		return c.healthChecker, nil
	}

	store, err := c.storeLocked()
	if err != nil {
		return nil, fmt.Errorf("failed to get store for health checker: %w", err)
	}

	var broker health.BrokerStatus
	if c.config.MQTTEnabled() {
		broker = c.publisherLocked(ctx)
	}
	c.healthChecker = health.NewHealthChecker(store, c.config.Store.Driver, broker)
	return c.healthChecker, nil
}

// HealthCheck performs a comprehensive health check
func (c *Container) HealthCheck(ctx context.Context) map[string]interface{} {
	healthChecker, err := c.GetHealthChecker(ctx)
	if err != nil {
		return map[string]interface{}{
			"status": "error",
			"error":  err.Error(),
		}
	}

	return healthChecker.GetHealthStatus(ctx)
}

// AddCleanupFunc adds a cleanup function
func (c *Container) AddCleanupFunc(fn func() error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleanupFuncs = append(c.cleanupFuncs, fn)
}

// Shutdown gracefully shuts down the container and all its dependencies
func (c *Container) Shutdown(ctx context.Context) error {
	c.logger.Info("Shutting down container...")

	c.mu.Lock()
	funcs := c.cleanupFuncs
	c.cleanupFuncs = nil
	c.mu.Unlock()

	// Execute cleanup functions in reverse order
	for i := len(funcs) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("shutdown interrupted: %w", err)
		}
		if err := funcs[i](); err != nil {
			c.logger.ErrorWithError(err, "Error during cleanup")
		}
	}

	c.logger.Info("Container shutdown complete")
	return nil
}
