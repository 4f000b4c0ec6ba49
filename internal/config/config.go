// Package config loads server settings from flags, TODOS_* environment
// variables and an optional YAML file.
package config

import (
	"encoding/hex"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/hugo-r/server-challenge/internal/crypto"
	"github.com/hugo-r/server-challenge/internal/model"
)

const EnvPrefix = "todos"

const (
	ModeDev  = "dev"
	ModeProd = "prod"

	UsersStatic   = "static"
	UsersPostgres = "postgres"
)

// Config is the configuration to start the server.
type Config struct {
	// Mode is "dev" or "prod"; prod logs JSON and requires a secure cookie.
	Mode string
	// Addr is the HTTP listen address.
	Addr string
	// HealthAddr is the gRPC health listen address; empty disables it.
	HealthAddr string

	Cookie  Cookie
	Todos   Todos
	Cache   Cache
	Users   Users
	Limiter Limiter

	DatabaseDSN     string
	ShutdownTimeout time.Duration

	// GeneratedSecret is set when a dev-mode secret was generated at startup.
	GeneratedSecret bool
}

type Cookie struct {
	Name   string
	Secret string
	Secure bool
	TTL    time.Duration // 0: browser-session cookie, token without exp
}

type Todos struct {
	TTL time.Duration
}

type Cache struct {
	CleanupInterval time.Duration
	MaxEntries      int
}

type Users struct {
	Source string
	Static []model.User // empty: built-in demo users
}

type Limiter struct {
	Window   time.Duration
	MaxFails int // <= 0 disables limiting
	BlockFor time.Duration
}

// RegisterFlags declares every setting with its default on fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "path to a YAML config file")
	fs.String("mode", ModeDev, `"dev" or "prod"`)
	fs.String("addr", "localhost:3000", "HTTP listen address")
	fs.String("health.addr", "", "gRPC health listen address (empty disables)")

	fs.String("cookie.name", "todos-cookie", "session cookie name")
	fs.String("cookie.secret", "", "session signing secret, at least 32 bytes")
	fs.Bool("cookie.secure", false, "set the Secure flag on the session cookie")
	fs.Duration("cookie.ttl", 0, "session lifetime; 0 keeps it for the browser session")

	fs.Duration("todos.ttl", 365*24*time.Hour, "lifetime of a stored todo, reset on every write")
	fs.Duration("cache.cleanup-interval", time.Minute, "background expiry sweep period; 0 disables")
	fs.Int("cache.max-entries", 0, "LRU bound of the todo store; 0 is unbounded")

	fs.String("users.source", UsersStatic, `credential store: "static" or "postgres"`)
	fs.String("database.dsn", "", "Postgres DSN for users.source=postgres")

	fs.Duration("limiter.window", 15*time.Minute, "window over which failed logins are counted")
	fs.Int("limiter.max-fails", 5, "failed logins per window before lockout; 0 disables")
	fs.Duration("limiter.block-for", 15*time.Minute, "lockout duration")

	fs.Duration("shutdown-timeout", 10*time.Second, "graceful shutdown deadline")
}

// Bind wires fs and TODOS_* variables into v. cookie.secret reads TODOS_COOKIE_SECRET.
func Bind(v *viper.Viper, fs *pflag.FlagSet) error {
	if err := v.BindPFlags(fs); err != nil {
		return errors.Wrap(err, "bind flags")
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return nil
}

type staticUser struct {
	ID     int64  `mapstructure:"id"`
	Name   string `mapstructure:"name"`
	Secret string `mapstructure:"secret"`
}

// Load reads the config file named by "config", if any, then builds and validates a Config.
func Load(v *viper.Viper) (Config, error) {
	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, errors.Wrapf(err, "read config %s", path)
		}
	}

	var users []staticUser
	if err := v.UnmarshalKey("users.static", &users); err != nil {
		return Config{}, errors.Wrap(err, "users.static")
	}

	c := Config{
		Mode:       v.GetString("mode"),
		Addr:       v.GetString("addr"),
		HealthAddr: v.GetString("health.addr"),
		Cookie: Cookie{
			Name:   v.GetString("cookie.name"),
			Secret: v.GetString("cookie.secret"),
			Secure: v.GetBool("cookie.secure"),
			TTL:    v.GetDuration("cookie.ttl"),
		},
		Todos: Todos{TTL: v.GetDuration("todos.ttl")},
		Cache: Cache{
			CleanupInterval: v.GetDuration("cache.cleanup-interval"),
			MaxEntries:      v.GetInt("cache.max-entries"),
		},
		Users: Users{Source: v.GetString("users.source")},
		Limiter: Limiter{
			Window:   v.GetDuration("limiter.window"),
			MaxFails: v.GetInt("limiter.max-fails"),
			BlockFor: v.GetDuration("limiter.block-for"),
		},
		DatabaseDSN:     v.GetString("database.dsn"),
		ShutdownTimeout: v.GetDuration("shutdown-timeout"),
	}
	for _, u := range users {
		c.Users.Static = append(c.Users.Static, model.User{ID: u.ID, Name: u.Name, Secret: u.Secret})
	}

	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c *Config) IsDev() bool {
	return c.Mode != ModeProd
}

// Validate checks the config and fills a random secret in dev mode when none is set.
func (c *Config) Validate() error {
	if c.Mode != ModeDev && c.Mode != ModeProd {
		return errors.Errorf("mode: want %q or %q, got %q", ModeDev, ModeProd, c.Mode)
	}
	if c.Addr == "" {
		return errors.New("addr is required")
	}

	if c.Cookie.Secret == "" && c.IsDev() {
		b, err := crypto.RandBytes(crypto.MinSecretLen)
		if err != nil {
			return errors.Wrap(err, "generate cookie secret")
		}
		c.Cookie.Secret = hex.EncodeToString(b)
		c.GeneratedSecret = true
	}
	if len(c.Cookie.Secret) < crypto.MinSecretLen {
		return errors.Wrap(crypto.ErrShortSecret, "cookie.secret")
	}
	if c.Mode == ModeProd && !c.Cookie.Secure {
		return errors.New("cookie.secure must be set in prod mode")
	}
	if c.Cookie.Name == "" {
		return errors.New("cookie.name is required")
	}
	if c.Cookie.TTL < 0 || c.Todos.TTL < 0 || c.Cache.CleanupInterval < 0 {
		return errors.New("durations must not be negative")
	}

	switch c.Users.Source {
	case UsersStatic:
		if err := validateUsers(c.Users.Static); err != nil {
			return errors.Wrap(err, "users.static")
		}
	case UsersPostgres:
		if c.DatabaseDSN == "" {
			return errors.New("database.dsn is required for users.source=postgres")
		}
	default:
		return errors.Errorf("users.source: unknown %q", c.Users.Source)
	}

	if c.Limiter.MaxFails > 0 && (c.Limiter.Window <= 0 || c.Limiter.BlockFor <= 0) {
		return errors.New("limiter.window and limiter.block-for must be positive when limiting is enabled")
	}
	return nil
}

func validateUsers(users []model.User) error {
	ids := make(map[int64]bool, len(users))
	names := make(map[string]bool, len(users))
	for i, u := range users {
		switch {
		case u.ID <= 0:
			return errors.Errorf("[%d]: id must be positive", i)
		case u.Name == "" || u.Secret == "":
			return errors.Errorf("[%d]: name and secret are required", i)
		case ids[u.ID]:
			return errors.Errorf("[%d]: duplicate id %d", i, u.ID)
		case names[u.Name]:
			return errors.Errorf("[%d]: duplicate name %q", i, u.Name)
		}
		ids[u.ID], names[u.Name] = true, true
	}
	return nil
}
