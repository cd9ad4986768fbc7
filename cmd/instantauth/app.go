package main

import (
	"context"
	"fmt"

	"github.com/MrEthical07/instantauth"
	"github.com/MrEthical07/instantauth/session"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// app is everything one command invocation needs. close releases the Redis
// client, the optional miniredis and the engine.
type app struct {
	cfg     fileConfig
	log     *logrus.Logger
	client  redis.UniversalClient
	store   *session.Store
	handler *session.Handler
	engine  *instantauth.Engine
	mini    *miniredis.Miniredis
}

// openApp connects the session store and, when withEngine is set, builds the
// engine. Commands that only touch Redis skip the secret check.
func openApp(ctx context.Context, opts *rootOptions, withEngine bool) (*app, error) {
	cfg, err := loadFileConfig(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.redisAddr != "" {
		cfg.Redis.Addr = opts.redisAddr
	}
	if opts.logLevel != "" {
		cfg.Engine.Log.Level = opts.logLevel
	}

	log := logrus.New()
	log.SetOutput(opts.errOut)
	if lvl, err := logrus.ParseLevel(cfg.Engine.Log.Level); err == nil {
		log.SetLevel(lvl)
	}

	a := &app{cfg: cfg, log: log}

	addr := cfg.Redis.Addr
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			return nil, fmt.Errorf("start miniredis: %w", err)
		}
		a.mini = mr
		addr = mr.Addr()
		log.WithField("addr", addr).Warn("no redis address configured, sessions live in an in-process miniredis")
	}
	a.client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
	a.store = session.NewStore(a.client, cfg.Redis.Prefix)
	if err := a.store.Ping(ctx); err != nil {
		a.close()
		return nil, err
	}
	a.handler = session.NewHandler(a.store, cfg.Redis.SlidingTTL.Duration)

	if !withEngine {
		return a, nil
	}

	env, err := cfg.Strategy.environment()
	if err != nil {
		a.close()
		return nil, err
	}
	engine, err := instantauth.New().
		WithConfig(cfg.Engine).
		WithEnvironment(env).
		WithSessionHandler(a.handler).
		WithLogger(log).
		WithAuditSink(instantauth.NewLogrusSink(log)).
		Build()
	if err != nil {
		a.close()
		return nil, err
	}
	a.engine = engine
	return a, nil
}

func (a *app) close() {
	if a.engine != nil {
		a.engine.Close()
	}
	if a.client != nil {
		_ = a.client.Close()
	}
	if a.mini != nil {
		a.mini.Close()
	}
}
