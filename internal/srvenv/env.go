package srvenv

import (
	"context"

	"github.com/go-sod/knn/internal/database"
	"github.com/go-sod/knn/internal/dispatcher"
	"github.com/go-sod/knn/internal/observation/redisdb"
)

type Option func(*SrvEnv) *SrvEnv

func New(opts ...Option) *SrvEnv {
	env := &SrvEnv{}
	for _, f := range opts {
		env = f(env)
	}

	return env
}

// SrvEnv holds the long-lived dependencies of the server.
type SrvEnv struct {
	database   *database.DB
	redis      *redisdb.DB
	dispatcher dispatcher.Manager
}

func (s *SrvEnv) Dispatcher() dispatcher.Manager {
	return s.dispatcher
}

func (s *SrvEnv) Database() *database.DB {
	return s.database
}

func (s *SrvEnv) Redis() *redisdb.DB {
	return s.redis
}

func WithDispatcher(m dispatcher.Manager) Option {
	return func(s *SrvEnv) *SrvEnv {
		s.dispatcher = m
		return s
	}
}

func WithDatabase(db *database.DB) Option {
	return func(s *SrvEnv) *SrvEnv {
		s.database = db
		return s
	}
}

func WithRedis(db *redisdb.DB) Option {
	return func(s *SrvEnv) *SrvEnv {
		s.redis = db
		return s
	}
}

// Close stops the dispatcher and releases the storage.
func (s *SrvEnv) Close(ctx context.Context) error {
	if s == nil {
		return nil
	}

	if s.dispatcher != nil {
		s.dispatcher.Stop()
	}
	if s.redis != nil {
		if err := s.redis.Close(ctx); err != nil {
			return err
		}
	}
	if s.database != nil {
		return s.database.Close(ctx)
	}
	return nil
}
