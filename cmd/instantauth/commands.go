package main

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/MrEthical07/instantauth"
	"github.com/MrEthical07/instantauth/cryptor"
	"github.com/MrEthical07/instantauth/session"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	redisAddr  string
	logLevel   string
	errOut     io.Writer
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{errOut: os.Stderr}

	cmd := &cobra.Command{
		Use:   "instantauth",
		Short: "Issue and open session-authenticated message blobs",
		Long: `instantauth provisions sessions in Redis and issues, opens and serves
blobs authenticated to those sessions.

Strategies, the shared secret and the Redis address come from a TOML file.
INSTANTAUTH_SECRET overrides the secret from the file.`,
		Example: `  # Create a session and print its key pair
  instantauth -c instantauth.toml provision --ttl 1h

  # Issue a blob for that session and open it again
  instantauth -c instantauth.toml build <public-key> user=alice role=admin > blob
  instantauth -c instantauth.toml open < blob`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			opts.errOut = cmd.ErrOrStderr()
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "TOML configuration file")
	cmd.PersistentFlags().StringVar(&opts.redisAddr, "redis-addr", "", "redis address, overrides the config file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "logrus level, overrides the config file")

	cmd.AddCommand(
		newKeygenCommand(),
		newProvisionCommand(opts),
		newBuildCommand(opts),
		newOpenCommand(opts, false),
		newOpenCommand(opts, true),
		newServeCommand(opts),
	)
	return cmd
}

func newKeygenCommand() *cobra.Command {
	var (
		size       int
		fromStdin  bool
		salt       string
		memoryKB   uint32
		iterations uint32
	)
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Print a shared secret, random or stretched from a passphrase",
		Long: `keygen prints a random shared secret. With --passphrase-stdin it reads a
passphrase from stdin and stretches it with Argon2id, so every party holding
the passphrase and salt derives the same secret.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if size < 16 {
				return errors.New("invalid argument: --bytes must be at least 16")
			}

			if fromStdin {
				raw, err := io.ReadAll(io.LimitReader(cmd.InOrStdin(), 4096))
				if err != nil {
					return err
				}
				params := cryptor.DefaultPassphraseParams()
				params.KeyLength = uint32(size)
				if memoryKB > 0 {
					params.Memory = memoryKB
				}
				if iterations > 0 {
					params.Time = iterations
				}
				secret, err := cryptor.SecretFromPassphrase(strings.TrimRight(string(raw), "\r\n"), []byte(salt), params)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), secret)
				return err
			}

			buf := make([]byte, size)
			if _, err := rand.Read(buf); err != nil {
				return err
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), base64.RawURLEncoding.EncodeToString(buf))
			return err
		},
	}
	cmd.Flags().IntVar(&size, "bytes", 32, "secret length in bytes before encoding")
	cmd.Flags().BoolVar(&fromStdin, "passphrase-stdin", false, "derive the secret from a passphrase read on stdin")
	cmd.Flags().StringVar(&salt, "salt", "", "Argon2id salt, at least 16 bytes")
	cmd.Flags().Uint32Var(&memoryKB, "memory", 0, "Argon2id memory in KiB")
	cmd.Flags().Uint32Var(&iterations, "iterations", 0, "Argon2id passes")
	return cmd
}

func newProvisionCommand(opts *rootOptions) *cobra.Command {
	var (
		ttl   time.Duration
		label string
	)
	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Create a session and print its key pair",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context(), opts, false)
			if err != nil {
				return err
			}
			defer a.close()

			if ttl <= 0 {
				ttl = a.cfg.Redis.SessionTTL.Duration
			}
			rec, err := session.Provision(ttl, label)
			if err != nil {
				return err
			}
			if err := a.store.Save(cmd.Context(), rec, ttl); err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"public_key":  rec.PublicKey,
				"private_key": rec.PrivateKey,
				"expires_at":  rec.ExpiresAt,
			})
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "session lifetime, defaults to Redis.SessionTTL")
	cmd.Flags().StringVar(&label, "label", "", "free-form label stored with the session")
	return cmd
}

func newBuildCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "build <public-key> [key=value...]",
		Short: "Issue a blob for an existing session",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := parsePairs(args[1:])
			if err != nil {
				return err
			}

			a, err := openApp(cmd.Context(), opts, true)
			if err != nil {
				return err
			}
			defer a.close()

			sess, err := a.handler.SessionFromPublicKey(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("lookup session: %w", err)
			}
			blob, err := a.engine.BuildData(cmd.Context(), sess, data)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(blob))
			return err
		},
	}
}

// newOpenCommand builds "open" (authenticated flow) or "first" (bootstrap
// flow). The blob is read from the argument or, without one, from stdin.
func newOpenCommand(opts *rootOptions, bootstrap bool) *cobra.Command {
	use, short := "open [blob]", "Authenticate a blob and print its data"
	if bootstrap {
		use, short = "first [blob]", "Decode a bootstrap blob and print its data"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			blob, err := readBlob(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}

			a, err := openApp(cmd.Context(), opts, true)
			if err != nil {
				return err
			}
			defer a.close()

			var ac *instantauth.Context
			if bootstrap {
				ac, err = a.engine.GetFirstContext(cmd.Context(), blob)
			} else {
				ac, err = a.engine.GetContext(cmd.Context(), blob)
			}
			if err != nil {
				return err
			}

			out := map[string]any{
				"data":       ac.Data(),
				"attributes": ac.Attributes(),
			}
			if key, ok := ac.AuthKey(); ok {
				out["public_key"] = key
			}
			if rec, ok := ac.Session().(*session.Record); ok {
				out["public_key"] = rec.PublicKey
				out["label"] = rec.Label
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
}

func parsePairs(args []string) (map[string]string, error) {
	out := make(map[string]string, len(args))
	for _, arg := range args {
		k, v, ok := strings.Cut(arg, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid argument %q: want key=value", arg)
		}
		out[k] = v
	}
	return out, nil
}

func readBlob(stdin io.Reader, args []string) ([]byte, error) {
	if len(args) == 1 {
		return []byte(strings.TrimSpace(args[0])), nil
	}
	b, err := io.ReadAll(io.LimitReader(stdin, 1<<20))
	if err != nil {
		return nil, err
	}
	return []byte(strings.TrimSpace(string(b))), nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
