package health

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	config "gitlab.com/maplesense1/mpt.iclock_server/src/production/ICS.Config"
	interfaces "gitlab.com/maplesense1/mpt.iclock_server/src/production/ICS.Repository/Interfaces"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Version reported by health endpoints
const Version = "1.0.0"

// BrokerStatus is satisfied by the telemetry publisher
type BrokerStatus interface {
	IsConnected() bool
}

// HealthChecker provides health check functionality
type HealthChecker struct {
	store  interfaces.KVStore
	driver string
	broker BrokerStatus
}

// NewHealthChecker creates a new health checker. broker may be nil when
// telemetry is disabled.
func NewHealthChecker(store interfaces.KVStore, driver string, broker BrokerStatus) *HealthChecker {
	return &HealthChecker{store: store, driver: driver, broker: broker}
}

// CheckStoreHealth pings the key-value store
func (h *HealthChecker) CheckStoreHealth(ctx context.Context) error {
	if h.store == nil {
		return fmt.Errorf("store is nil")
	}
	if err := h.store.Ping(ctx); err != nil {
		return fmt.Errorf("store ping failed: %w", err)
	}
	return nil
}

// GetHealthStatus returns the current health status
func (h *HealthChecker) GetHealthStatus(ctx context.Context) map[string]interface{} {
	checks := make(map[string]interface{})
	status := map[string]interface{}{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   Version,
		"checks":    checks,
	}

	overallStatus := "ok"
	if err := h.CheckStoreHealth(ctx); err != nil {
		overallStatus = "degraded"
		checks["store"] = map[string]interface{}{
			"status": "error",
			"driver": h.driver,
			"error":  err.Error(),
		}
	} else {
		checks["store"] = map[string]interface{}{
			"status": "ok",
			"driver": h.driver,
		}
	}

	// Telemetry is best effort and never degrades readiness
	if h.broker != nil {
		mqttStatus := "ok"
		if !h.broker.IsConnected() {
			mqttStatus = "disconnected"
		}
		checks["mqtt"] = map[string]interface{}{"status": mqttStatus}
	}

	status["status"] = overallStatus
	return status
}

// ConnectPostgresWithTimeout creates a PostgreSQL connection with a timeout context
func ConnectPostgresWithTimeout(cfg *config.Config, timeout time.Duration) (*sql.DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	db, err := sql.Open("postgres", cfg.GetDatabaseDSN())
	if err != nil {
		return nil, fmt.Errorf("unable to open PostgreSQL connection: %w", err)
	}

	// Test the connection
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to ping PostgreSQL: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(cfg.Store.Postgres.MaxConns)
	db.SetMaxIdleConns(cfg.Store.Postgres.MinConns)
	db.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}

// ConnectMongoWithTimeout creates a MongoDB connection with a timeout context
func ConnectMongoWithTimeout(cfg *config.Config, timeout time.Duration) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// TLS comes from the URI (mongodb+srv or tls=true)
	clientOptions := options.Client().ApplyURI(cfg.Store.Mongo.URI)

	clientOptions.SetServerSelectionTimeout(timeout)
	clientOptions.SetConnectTimeout(timeout)
	clientOptions.SetSocketTimeout(30 * time.Second)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to MongoDB: %w", err)
	}

	// Test the connection
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("unable to ping MongoDB: %w", err)
	}

	return client, nil
}

// GetCollection returns the key-value collection named in configuration
func GetCollection(client *mongo.Client, cfg *config.Config) *mongo.Collection {
	return client.Database(cfg.Store.Mongo.Database).Collection(cfg.Store.Mongo.Collection)
}
