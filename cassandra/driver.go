// Package cassandra stores applied patches in a Cassandra keyspace through gocql.
package cassandra

import (
	"context"
	"errors"
	"fmt"

	"github.com/gocql/gocql"

	migrator "github.com/Maksumys/patch-migrator"
	"github.com/Maksumys/patch-migrator/internal/models"
)

var _ migrator.Driver = (*Driver)(nil)

var ErrNoKeyspace = errors.New("cassandra driver requires a keyspace")

type Driver struct {
	session  *gocql.Session
	keyspace string
}

// Connect opens a session for cluster. The keyspace of the cluster config is where the
// entitys table is looked up and created.
func Connect(cluster *gocql.ClusterConfig) (*Driver, error) {
	if cluster.Keyspace == "" {
		return nil, ErrNoKeyspace
	}

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", migrator.ErrStoreUnavailable, err)
	}

	return New(session, cluster.Keyspace), nil
}

func New(session *gocql.Session, keyspace string) *Driver {
	return &Driver{
		session:  session,
		keyspace: keyspace,
	}
}

// Handler returns the session for models that share it with the patches.
func (d *Driver) Handler() *gocql.Session {
	return d.session
}

func (d *Driver) Close() {
	d.session.Close()
}

func (d *Driver) EnsureSchema(ctx context.Context) error {
	exists, err := d.hasEntityTable(ctx)
	if err != nil {
		return fmt.Errorf("look up %s table: %w: %w", models.EntityTable, migrator.ErrStoreUnavailable, err)
	}
	if exists {
		return nil
	}

	err = d.session.Query(
		`CREATE TABLE IF NOT EXISTS entitys ( name varchar, patches varchar, PRIMARY KEY (name) )`,
	).WithContext(ctx).Exec()
	if err != nil {
		return fmt.Errorf("create %s table: %w: %w", models.EntityTable, migrator.ErrStoreUnavailable, err)
	}
	return nil
}

func (d *Driver) hasEntityTable(ctx context.Context) (bool, error) {
	iter := d.session.Query(
		`SELECT table_name FROM system_schema.tables WHERE keyspace_name = ?`, d.keyspace,
	).WithContext(ctx).Iter()

	exists := false
	var table string
	for iter.Scan(&table) {
		if table == models.EntityTable {
			exists = true
		}
	}

	return exists, iter.Close()
}

func (d *Driver) Read(ctx context.Context, entity string) (migrator.AppliedSet, error) {
	var blob string
	err := d.session.Query(
		`SELECT patches FROM entitys WHERE name = ?`, entity,
	).WithContext(ctx).Scan(&blob)

	if errors.Is(err, gocql.ErrNotFound) {
		return migrator.AppliedSet{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", migrator.ErrStoreUnavailable, err)
	}

	applied, err := models.ParseAppliedSet(blob)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", migrator.ErrStoreUnavailable, err)
	}
	return applied, nil
}

func (d *Driver) Write(ctx context.Context, entity string, applied migrator.AppliedSet) error {
	blob, err := applied.Encode()
	if err != nil {
		return fmt.Errorf("%w: %w", migrator.ErrStoreUnavailable, err)
	}

	err = d.session.Query(
		`UPDATE entitys SET patches = ? WHERE name = ?`, blob, entity,
	).WithContext(ctx).Exec()
	if err != nil {
		return fmt.Errorf("%w: %w", migrator.ErrStoreUnavailable, err)
	}
	return nil
}

func (d *Driver) Exec(ctx context.Context, statement string) error {
	return d.session.Query(statement).WithContext(ctx).Exec()
}
