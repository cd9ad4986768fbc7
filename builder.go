package instantauth

import (
	"errors"
	"time"

	"github.com/MrEthical07/instantauth/coder"
	"github.com/MrEthical07/instantauth/cryptor"
	"github.com/MrEthical07/instantauth/internal/flows"
	"github.com/MrEthical07/instantauth/verifier"
	"github.com/MrEthical07/instantauth/wire"
	"github.com/sirupsen/logrus"
)

// Builder assembles an [Engine]. A Builder is single-use: Build fails the
// second time it is called.
//
// Unset strategies default to wire.Plain, cryptor.PlainCryptor,
// verifier.TimeHashVerifier and coder.JSONCoder. A session handler has no
// default and must be supplied.
type Builder struct {
	config Config
	env    Environment

	sessions  SessionHandler
	auditSink AuditSink
	logger    logrus.FieldLogger
	clock     func() time.Time

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithSecretKey sets the shared secret.
func (b *Builder) WithSecretKey(secret string) *Builder {
	b.config.SecretKey = secret
	return b
}

// WithEnvironment binds all four blob strategies at once. Nil fields keep
// their defaults.
func (b *Builder) WithEnvironment(env Environment) *Builder {
	b.env = env
	return b
}

// WithCoder binds the payload coder.
func (b *Builder) WithCoder(c Coder) *Builder {
	b.env.Coder = c
	return b
}

// WithCryptor binds the cryptor.
func (b *Builder) WithCryptor(c Cryptor) *Builder {
	b.env.Cryptor = c
	return b
}

// WithVerifier binds the verifier.
func (b *Builder) WithVerifier(v Verifier) *Builder {
	b.env.Verifier = v
	return b
}

// WithWire binds the outermost armor.
func (b *Builder) WithWire(w WireEncoding) *Builder {
	b.env.Wire = w
	return b
}

// WithSessionHandler binds the session handler. Required.
func (b *Builder) WithSessionHandler(h SessionHandler) *Builder {
	b.sessions = h
	return b
}

// WithAuditSink sets the sink audit events are delivered to. Audit must also
// be enabled in the configuration.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the logger used for rejection diagnostics. Without it Build
// creates a logrus logger at the configured level.
func (b *Builder) WithLogger(logger logrus.FieldLogger) *Builder {
	b.logger = logger
	return b
}

// WithClock overrides the time source used for audit timestamps.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.clock = now
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the GetContext latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and returns the engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.sessions == nil {
		return nil, errors.New("session handler required")
	}

	env := b.env
	if env.Wire == nil {
		env.Wire = wire.Plain{}
	}
	if env.Cryptor == nil {
		env.Cryptor = cryptor.PlainCryptor{}
	}
	if env.Verifier == nil {
		env.Verifier = &verifier.TimeHashVerifier{}
	}
	if env.Coder == nil {
		env.Coder = coder.JSONCoder{}
	}

	logger := b.logger
	if logger == nil {
		lvl, err := parseLogLevel(cfg.Log.Level)
		if err != nil {
			return nil, err
		}
		l := logrus.New()
		l.SetLevel(lvl)
		logger = l
	}

	engine := &Engine{
		config:   cfg,
		env:      env,
		sessions: b.sessions,
		deps: flows.Deps{
			Wire:      env.Wire,
			Cryptor:   env.Cryptor,
			Verifier:  env.Verifier,
			Coder:     env.Coder,
			Sessions:  b.sessions,
			SecretKey: cfg.SecretKey,
		},
		metrics: NewMetrics(cfg.Metrics),
		audit:   newAuditDispatcher(cfg.Audit, b.auditSink),
		logger:  logger.WithField("component", "instantauth"),
		clock:   b.clock,
	}

	b.built = true

	return engine, nil
}
