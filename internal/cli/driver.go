package cli

import (
	"fmt"

	"github.com/gocql/gocql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	migrator "github.com/Maksumys/patch-migrator"
	"github.com/Maksumys/patch-migrator/cassandra"
)

// openDriver connects to the configured store. The returned func releases the connection.
func openDriver(cfg Config) (migrator.Driver, func(), error) {
	switch cfg.Driver {
	case DriverPostgres:
		return openGorm(postgres.New(postgres.Config{
			DSN:                  cfg.DSN,
			PreferSimpleProtocol: true,
		}), 0)
	case DriverSQLite:
		return openGorm(sqlite.Open(cfg.DSN), 1)
	case DriverCassandra:
		cluster := gocql.NewCluster(cfg.Cassandra.Hosts...)
		cluster.Keyspace = cfg.Cassandra.Keyspace
		if cfg.Cassandra.Timeout > 0 {
			cluster.Timeout = cfg.Cassandra.Timeout
		}
		if cfg.Cassandra.Consistency != "" {
			consistency, err := gocql.ParseConsistencyWrapper(cfg.Cassandra.Consistency)
			if err != nil {
				return nil, nil, err
			}
			cluster.Consistency = consistency
		}

		driver, err := cassandra.Connect(cluster)
		if err != nil {
			return nil, nil, err
		}
		return driver, driver.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown driver %q", cfg.Driver)
	}
}

func openGorm(dialector gorm.Dialector, maxOpenConns int) (migrator.Driver, func(), error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", migrator.ErrStoreUnavailable, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, err
	}
	if maxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(maxOpenConns)
	}

	return migrator.NewGormDriver(db), func() { _ = sqlDB.Close() }, nil
}
