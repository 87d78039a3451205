package couchbase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/couchbase/gocb/v2"
)

type Config struct {
	URL        string
	Username   string
	Password   string
	Bucket     string
	Scope      string
	Collection string
}

// Connection mantiene el cluster y la colección de pacientes.
type Connection struct {
	cluster    *gocb.Cluster
	bucket     *gocb.Bucket
	collection *gocb.Collection
	keyspace   string
}

// Connect abre el cluster y espera a que KV y Query estén listos.
func Connect(ctx context.Context, cfg Config) (*Connection, error) {
	connStr := strings.TrimSpace(cfg.URL)
	if !strings.Contains(connStr, "://") {
		connStr = "couchbase://" + connStr
	}

	cluster, err := gocb.Connect(connStr, gocb.ClusterOptions{
		Authenticator: gocb.PasswordAuthenticator{
			Username: cfg.Username,
			Password: cfg.Password,
		},
		TimeoutsConfig: gocb.TimeoutsConfig{
			ConnectTimeout:    30 * time.Second,
			KVTimeout:         5 * time.Second,
			QueryTimeout:      30 * time.Second,
			ManagementTimeout: 30 * time.Second,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to couchbase: %w", err)
	}

	bucket := cluster.Bucket(cfg.Bucket)
	err = bucket.WaitUntilReady(30*time.Second, &gocb.WaitUntilReadyOptions{
		Context:      ctx,
		ServiceTypes: []gocb.ServiceType{gocb.ServiceTypeKeyValue, gocb.ServiceTypeQuery},
	})
	if err != nil {
		_ = cluster.Close(nil)
		return nil, fmt.Errorf("bucket %q is not accessible: %w", cfg.Bucket, err)
	}

	scope := orDefault(cfg.Scope, "_default")
	coll := orDefault(cfg.Collection, "_default")

	return &Connection{
		cluster:    cluster,
		bucket:     bucket,
		collection: bucket.Scope(scope).Collection(coll),
		keyspace:   fmt.Sprintf("`%s`.`%s`.`%s`", cfg.Bucket, scope, coll),
	}, nil
}

// EnsureIndexes crea el índice primario que usa el listado.
func (c *Connection) EnsureIndexes(ctx context.Context) error {
	q := "CREATE PRIMARY INDEX IF NOT EXISTS ON " + c.keyspace
	res, err := c.cluster.Query(q, &gocb.QueryOptions{Context: ctx})
	if err != nil {
		return fmt.Errorf("create primary index: %w", err)
	}
	return res.Close()
}

func (c *Connection) Close() error {
	if c.cluster != nil {
		return c.cluster.Close(nil)
	}
	return nil
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s == "" {
		return def
	}
	return s
}
