package config

import (
	"cmp"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/azaliaz/bookverse/internal/domain/consts"
)

const (
	defaultAddr        = "localhost"
	defaultPort        = 8080
	defaultDBDsn       = "memory"
	defaultMigratePath = "migrations"
	defaultJWTSecret   = "your-secret-key-change-in-production"
	defaultRateLimit   = 5
	defaultRateBurst   = 10
	defaultCORSOrigins = "*"
)

type StorageKind string

const (
	StorageMemory   StorageKind = "memory"
	StoragePostgres StorageKind = "postgres"
	StorageMongo    StorageKind = "mongo"
)

type Config struct {
	Addr        string
	Debug       bool
	DBDsn       string
	DBName      string
	MigratePath string
	JWTSecret   string `json:"-"`
	RateLimit   int
	RateBurst   int
	CORSOrigins []string
}

// StorageKind picks the backend from the DSN scheme.
func (c Config) StorageKind() StorageKind {
	switch {
	case strings.HasPrefix(c.DBDsn, "postgres://"), strings.HasPrefix(c.DBDsn, "postgresql://"):
		return StoragePostgres
	case strings.HasPrefix(c.DBDsn, "mongodb://"), strings.HasPrefix(c.DBDsn, "mongodb+srv://"):
		return StorageMongo
	default:
		return StorageMemory
	}
}

func ReadConfig() (*Config, error) {
	_ = godotenv.Load()
	return parse(os.Args[1:])
}

func parse(args []string) (*Config, error) {
	var host, dbDsn, dbName, migratePath, secret, origins string
	var port, rateLimit, rateBurst int
	var debug bool

	fs := flag.NewFlagSet("bookverse", flag.ContinueOnError)
	fs.StringVar(&host, "addr", defaultAddr, "flag to set the server startup host")
	fs.IntVar(&port, "port", defaultPort, "flag to set the server startup port")
	fs.BoolVar(&debug, "debug", false, "flag to set Debug logger level")
	fs.StringVar(&dbDsn, "db", defaultDBDsn, "database connection address (postgres://, mongodb:// or memory)")
	fs.StringVar(&dbName, "dbname", consts.DefaultMongoDB, "mongo database name")
	fs.StringVar(&migratePath, "m", defaultMigratePath, "path to migrations")
	fs.StringVar(&secret, "secret", defaultJWTSecret, "jwt signing secret")
	fs.IntVar(&rateLimit, "rate", defaultRateLimit, "auth requests per second per client")
	fs.IntVar(&rateBurst, "burst", defaultRateBurst, "auth request burst per client")
	fs.StringVar(&origins, "cors", defaultCORSOrigins, "comma separated list of allowed origins")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	host = cmp.Or(os.Getenv("SERVER_HOST"), host)
	port, err := envInt("SERVER_PORT", port)
	if err != nil {
		return nil, err
	}
	rateLimit, err = envInt("RATE_LIMIT", rateLimit)
	if err != nil {
		return nil, err
	}
	rateBurst, err = envInt("RATE_BURST", rateBurst)
	if err != nil {
		return nil, err
	}
	dbDsn = cmp.Or(os.Getenv("DB_DSN"), dbDsn)
	dbName = cmp.Or(os.Getenv("DB_NAME"), dbName)
	migratePath = cmp.Or(os.Getenv("MIGRATE_PATH"), migratePath)
	secret = cmp.Or(os.Getenv("JWT_SECRET"), secret)
	origins = cmp.Or(os.Getenv("CORS_ORIGINS"), origins)

	return &Config{
		Addr:        fmt.Sprintf("%s:%d", host, port),
		Debug:       debug,
		DBDsn:       dbDsn,
		DBName:      dbName,
		MigratePath: migratePath,
		JWTSecret:   secret,
		RateLimit:   rateLimit,
		RateBurst:   rateBurst,
		CORSOrigins: splitList(origins),
	}, nil
}

func envInt(key string, def int) (int, error) {
	v := cmp.Or(os.Getenv(key), strconv.Itoa(def))
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
