// internal/database/connections.go
// Opens and owns the engine's three data stores: MySQL for the entity
// rows and the per-tournament change log, MongoDB for the append-only
// feedback audit trail, and Redis for refresh tokens and rate-limit
// counters.

package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Connections bundles every live store handle the server wires its
// dependencies from.
type Connections struct {
	MySQL   *sql.DB
	MongoDB *mongo.Database
	Redis   *redis.Client
	logger  *log.Logger
}

// Config collects the connection parameters for all three stores.
type Config struct {
	MySQL   MySQLConfig
	MongoDB MongoConfig
	Redis   RedisConfig
}

type MySQLConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type MongoConfig struct {
	URI      string
	Database string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Initialize opens all three stores, failing fast (and closing
// whatever already opened) if any of them is unreachable. MySQL gets a
// short retry ladder since it is routinely the last container up in
// local compose setups.
func Initialize(ctx context.Context, cfg Config, logger *log.Logger) (*Connections, error) {
	conn := &Connections{logger: logger}

	if err := conn.dialMySQL(ctx, cfg.MySQL); err != nil {
		return nil, fmt.Errorf("mysql: %w", err)
	}
	if err := conn.dialMongo(ctx, cfg.MongoDB); err != nil {
		conn.Close()
		return nil, fmt.Errorf("mongodb: %w", err)
	}
	if err := conn.dialRedis(ctx, cfg.Redis); err != nil {
		conn.Close()
		return nil, fmt.Errorf("redis: %w", err)
	}

	logger.Println("all store connections established")
	return conn, nil
}

func (c *Connections) dialMySQL(ctx context.Context, cfg MySQLConfig) error {
	const maxAttempts = 5
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		db, err := sql.Open("mysql", cfg.DSN)
		if err != nil {
			lastErr = err
		} else {
			db.SetMaxOpenConns(cfg.MaxOpenConns)
			db.SetMaxIdleConns(cfg.MaxIdleConns)
			db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
			if err := db.PingContext(ctx); err == nil {
				c.MySQL = db
				c.logger.Println("mysql connection established")
				return nil
			} else {
				lastErr = err
				db.Close()
			}
		}
		c.logger.Printf("mysql unreachable (attempt %d/%d): %v", attempt, maxAttempts, lastErr)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second * time.Duration(attempt)):
		}
	}
	return fmt.Errorf("unreachable after %d attempts: %w", maxAttempts, lastErr)
}

func (c *Connections) dialMongo(ctx context.Context, cfg MongoConfig) error {
	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(10*time.Second).
		SetServerSelectionTimeout(5*time.Second))
	if err != nil {
		return err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return err
	}
	c.MongoDB = client.Database(cfg.Database)
	c.logger.Println("mongodb connection established")
	return nil
}

func (c *Connections) dialRedis(ctx context.Context, cfg RedisConfig) error {
	c.Redis = redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})
	if err := c.Redis.Ping(ctx).Err(); err != nil {
		return err
	}
	c.logger.Println("redis connection established")
	return nil
}

// Close releases every open handle; safe to call on a partially
// initialized bundle.
func (c *Connections) Close() {
	if c.MySQL != nil {
		if err := c.MySQL.Close(); err != nil {
			c.logger.Printf("closing mysql: %v", err)
		}
	}
	if c.MongoDB != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.MongoDB.Client().Disconnect(ctx); err != nil {
			c.logger.Printf("closing mongodb: %v", err)
		}
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			c.logger.Printf("closing redis: %v", err)
		}
	}
}

// HealthCheck pings every store, surfacing the first failure.
func (c *Connections) HealthCheck(ctx context.Context) error {
	if err := c.MySQL.PingContext(ctx); err != nil {
		return fmt.Errorf("mysql health check: %w", err)
	}
	if err := c.MongoDB.Client().Ping(ctx, nil); err != nil {
		return fmt.Errorf("mongodb health check: %w", err)
	}
	if err := c.Redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check: %w", err)
	}
	return nil
}
