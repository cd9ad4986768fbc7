package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/MrEthical07/instantauth"
	"github.com/MrEthical07/instantauth/coder"
	"github.com/MrEthical07/instantauth/cryptor"
	"github.com/MrEthical07/instantauth/verifier"
	"github.com/MrEthical07/instantauth/wire"
)

// fileConfig is the on-disk CLI configuration. Engine holds the library
// settings; the other tables pick strategies and the session store.
type fileConfig struct {
	Engine   instantauth.Config
	Strategy strategyConfig
	Redis    redisConfig
	Serve    serveConfig
}

type strategyConfig struct {
	Wire     string
	Cryptor  string
	Verifier string
	Coder    string

	// DataKeyField names the payload field carrying the public key when
	// Verifier is "datakey".
	DataKeyField string
	JWTIssuer    string
	JWTTTL       duration
	TimeWindow   duration
}

type redisConfig struct {
	// Addr is the Redis address. Empty starts an in-process miniredis.
	Addr       string
	Prefix     string
	SessionTTL duration
	SlidingTTL duration
}

type serveConfig struct {
	Addr         string
	MaxBodyBytes int64
}

// duration decodes TOML strings such as "5m".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func defaultFileConfig() fileConfig {
	return fileConfig{
		Engine: instantauth.DefaultConfig(),
		Strategy: strategyConfig{
			Wire:         "base64url",
			Cryptor:      "aes256",
			Verifier:     "timehash",
			Coder:        "json",
			DataKeyField: "public_key",
		},
		Redis: redisConfig{
			Prefix:     "ia",
			SessionTTL: duration{24 * time.Hour},
		},
		Serve: serveConfig{
			Addr: "127.0.0.1:8080",
		},
	}
}

// loadFileConfig reads path on top of the defaults. An empty path yields the
// defaults. INSTANTAUTH_SECRET overrides Engine.SecretKey.
func loadFileConfig(path string) (fileConfig, error) {
	cfg := defaultFileConfig()
	if path != "" {
		md, err := toml.DecodeFile(path, &cfg)
		if err != nil {
			return cfg, fmt.Errorf("failed to load config file: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) != 0 {
			return cfg, fmt.Errorf("failed to load config file: unknown keys %v", undecoded)
		}
	}
	if secret := os.Getenv("INSTANTAUTH_SECRET"); secret != "" {
		cfg.Engine.SecretKey = secret
	}
	return cfg, nil
}

// environment turns the strategy names into an engine Environment.
func (s strategyConfig) environment() (instantauth.Environment, error) {
	var env instantauth.Environment

	w, err := wire.ByName(s.Wire)
	if err != nil {
		return env, err
	}
	env.Wire = w

	cryptorName := strings.ToLower(s.Cryptor)
	switch cryptorName {
	case "", "plain":
		env.Cryptor = cryptor.PlainCryptor{}
	case "aes128", "aes192", "aes256":
		bits, _ := strconv.Atoi(cryptorName[len("aes"):])
		c, err := cryptor.NewAESCryptor(bits)
		if err != nil {
			return env, err
		}
		env.Cryptor = c
	case "xchacha", "xchacha20poly1305":
		env.Cryptor = cryptor.NewXChaChaCryptor()
	case "secretbox":
		env.Cryptor = cryptor.SecretboxCryptor{}
	default:
		return env, fmt.Errorf("unknown cryptor %q", s.Cryptor)
	}

	switch strings.ToLower(s.Coder) {
	case "", "json":
		env.Coder = coder.JSONCoder{}
	case "cbor":
		c, err := coder.NewCBORCoder()
		if err != nil {
			return env, err
		}
		env.Coder = c
	case "msgpack":
		env.Coder = coder.NewMsgpackCoder()
	case "urlquery":
		env.Coder = coder.URLQueryCoder{}
	case "simpleurlquery":
		env.Coder = coder.SimpleURLQueryCoder{}
	case "plain":
		env.Coder = coder.PlainCoder{}
	default:
		return env, fmt.Errorf("unknown coder %q", s.Coder)
	}

	// Blobs travel through argv and stdout as text and are whitespace-trimmed
	// on read, so binary output needs a text wire encoding.
	if _, plainWire := env.Wire.(wire.Plain); plainWire && binaryStrategies(cryptorName, s.Coder) {
		return env, fmt.Errorf("wire %q cannot carry output of cryptor %q with coder %q; use base64 or base64url", s.Wire, s.Cryptor, s.Coder)
	}

	switch strings.ToLower(s.Verifier) {
	case "", "timehash":
		env.Verifier = &verifier.TimeHashVerifier{Window: s.TimeWindow.Duration}
	case "jwt":
		env.Verifier = &verifier.JWTVerifier{TTL: s.JWTTTL.Duration, Issuer: s.JWTIssuer}
	case "bypass":
		env.Verifier = verifier.BypassVerifier{}
	case "datakey":
		if cryptorName != "" && cryptorName != "plain" {
			return env, fmt.Errorf("verifier datakey needs the plain cryptor, got %q", s.Cryptor)
		}
		env.Verifier = verifier.NewDataKeyVerifier(env.Coder, s.DataKeyField)
	default:
		return env, fmt.Errorf("unknown verifier %q", s.Verifier)
	}

	return env, nil
}

func binaryStrategies(cryptorName, coderName string) bool {
	if cryptorName != "" && cryptorName != "plain" {
		return true
	}
	switch strings.ToLower(coderName) {
	case "cbor", "msgpack":
		return true
	}
	return false
}
