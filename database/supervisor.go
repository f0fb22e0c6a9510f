// Package database owns the single live PostgreSQL connection pool. It
// resolves hostnames preferring IPv4, classifies transient connectivity
// failures and retries them with bounded exponential backoff, disposing
// the pool between attempts so every retry starts from fresh resolution.
package database

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/viktsys/stockcollect/config"
	"github.com/viktsys/stockcollect/models"
)

// Supervisor hands out the shared *gorm.DB handle. It is the only component
// allowed to dispose or recreate the pool. Safe for concurrent use, though
// collectors run sequentially by design.
type Supervisor struct {
	cfg config.DBConfig
	log *logrus.Logger

	mu          sync.Mutex
	db          *gorm.DB
	lastRetries int
	disposals   int

	// Seams for tests; production values are set by NewSupervisor.
	open   func(dsn string) (*gorm.DB, error)
	lookup func(ctx context.Context, network, host string) ([]net.IP, error)
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewSupervisor creates a Supervisor. No connection is attempted until the
// first Acquire call.
func NewSupervisor(cfg config.DBConfig, log *logrus.Logger) *Supervisor {
	return &Supervisor{
		cfg:    cfg,
		log:    log,
		open:   openPostgres,
		lookup: net.DefaultResolver.LookupIP,
		sleep:  sleepContext,
	}
}

// Acquire returns a live pool handle, connecting if necessary. Classified
// transient failures are retried up to cfg.MaxRetries times with delays of
// backoff_base * 2^attempt; the pool is disposed before every retry and
// hostname resolution is redone on each attempt. Unclassified failures
// return a FatalConnectionError immediately; running out of retries returns
// an ExhaustedError.
func (s *Supervisor) Acquire(ctx context.Context) (*gorm.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		if err := s.ping(ctx, s.db); err == nil {
			return s.db, nil
		}
		// Stale pool: drop it and reconnect from scratch.
		s.disposeLocked()
	}

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		db, err := s.connect(ctx)
		if err == nil {
			s.db = db
			s.lastRetries = attempt
			if attempt > 0 {
				s.log.WithField("retries", attempt).Info("database connection recovered")
			}
			return db, nil
		}

		var rerr *ResolutionError
		if errors.As(err, &rerr) {
			return nil, err
		}
		if !Classified(err) {
			return nil, &FatalConnectionError{Err: err}
		}
		if attempt >= s.cfg.MaxRetries {
			return nil, &ExhaustedError{Retries: attempt, Err: err}
		}

		delay := s.cfg.BackoffBase() << uint(attempt)
		s.log.WithFields(logrus.Fields{
			"attempt": attempt + 1,
			"delay":   delay,
			"error":   err,
		}).Warn("classified connection error, disposing pool and retrying")

		s.disposeLocked()
		if err := s.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
}

// connect resolves the target and opens a fresh pool. Resolution results
// are never reused across attempts.
func (s *Supervisor) connect(ctx context.Context) (*gorm.DB, error) {
	hostaddr, err := s.resolveTarget(ctx)
	if err != nil {
		return nil, err
	}
	db, err := s.open(s.cfg.DSN(hostaddr))
	if err != nil {
		return nil, err
	}
	if err := s.ping(ctx, db); err != nil {
		closePool(db)
		return nil, err
	}
	return db, nil
}

// resolveTarget returns the hostaddr to dial, or "" when the DSN hostname
// should be used as-is (loopback hosts skip resolution entirely).
func (s *Supervisor) resolveTarget(ctx context.Context) (string, error) {
	if o := s.cfg.HostIPv4Override; o != "" {
		if ip := net.ParseIP(o); ip != nil && ip.To4() != nil {
			return o, nil
		}
		// Do not trust a malformed override blindly; fall back to resolution.
		s.log.WithField("override", o).Warn("host_ipv4_override is not an IPv4 literal, resolving instead")
	}

	switch s.cfg.Host {
	case "localhost", "127.0.0.1", "::1", "":
		return "", nil
	}
	return s.resolveIPv4(ctx, s.cfg.Host)
}

// resolveIPv4 resolves host requesting IPv4-only addresses first, then
// falls back to an unconstrained lookup filtered to IPv4.
func (s *Supervisor) resolveIPv4(ctx context.Context, host string) (string, error) {
	ips, err := s.lookup(ctx, "ip4", host)
	if err == nil && len(ips) > 0 {
		return ips[0].String(), nil
	}

	ips, err = s.lookup(ctx, "ip", host)
	if err == nil {
		for _, ip := range ips {
			if v4 := ip.To4(); v4 != nil {
				return v4.String(), nil
			}
		}
		err = nil
	}
	return "", &ResolutionError{Host: host, Err: err}
}

func (s *Supervisor) ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// disposeLocked closes the current pool, if any, and records the disposal.
// Callers must hold s.mu.
func (s *Supervisor) disposeLocked() {
	s.disposals++
	if s.db == nil {
		return
	}
	closePool(s.db)
	s.db = nil
}

// Close disposes the pool. Call on shutdown.
func (s *Supervisor) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		closePool(s.db)
		s.db = nil
	}
}

// LastRetries reports how many retries the most recent successful Acquire
// needed. Exposed for logging and tests.
func (s *Supervisor) LastRetries() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRetries
}

// Disposals reports how many times the pool has been disposed.
func (s *Supervisor) Disposals() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disposals
}

// InitSchema migrates all tables and creates the supporting indexes.
func (s *Supervisor) InitSchema(ctx context.Context) error {
	db, err := s.Acquire(ctx)
	if err != nil {
		return err
	}
	if err := db.WithContext(ctx).AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	if err := createIndexes(db.WithContext(ctx)); err != nil {
		s.log.WithError(err).Warn("failed to create supporting indexes")
	}
	return nil
}

func openPostgres(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(15)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	return db, nil
}

// closePool deterministically closes the underlying sockets so no
// connection leaks across retries.
func closePool(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
