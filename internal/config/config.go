package config // package config loads application configuration from environment variables

import (
    "log"     // log is used to report configuration errors and halt execution
    "os"      // os provides access to environment variables

    "github.com/joho/godotenv"

    "github.com/iliyamo/exam-seating/internal/database"
)

// Config holds the core runtime configuration.  Each field corresponds to
// an environment variable; the optional subsystems (cache, rate limit,
// lock, queue, tracing) have their own loaders.
type Config struct {
    Env          string           // application environment (e.g. "dev", "prod")
    Port         string           // HTTP port to listen on
    DBDriver     database.Dialect // mysql | postgres | sqlite
    DBUser       string           // database username
    DBPass       string           // database password (optional)
    DBHost       string           // database host address
    DBPort       string           // database port number
    DBName       string           // database name
    DBSSLMode    string           // postgres sslmode
    SQLitePath   string           // database file for the sqlite driver
    JWTSecret    string           // secret used to sign JWTs
    AccessTTLMin int              // access token time-to-live in minutes
    BcryptCost   int              // bcrypt cost for password hashing
}

// LoadDotEnv reads a .env file into the process environment unless
// APP_ENV is "prod".  Variables already set win over the file.
func LoadDotEnv(files ...string) {
    if os.Getenv("APP_ENV") == "prod" {
        return
    }
    if err := godotenv.Load(files...); err != nil && !os.IsNotExist(err) {
        log.Printf("config: .env not loaded: %v", err)
    }
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.  Connection
// settings are only required for the networked drivers.
func Load() Config {
    driver, err := database.ParseDialect(os.Getenv("DB_DRIVER"))
    if err != nil {
        log.Fatalf("invalid DB_DRIVER: %v", err)
    }
    cfg := Config{
        Env:          envStr("APP_ENV", "dev"),
        Port:         envStr("APP_PORT", "8080"),
        DBDriver:     driver,
        JWTSecret:    must("JWT_SECRET"),
        AccessTTLMin: envInt("ACCESS_TOKEN_TTL_MIN", 60),
        BcryptCost:   envInt("BCRYPT_COST", 12),
    }
    if driver == database.SQLite {
        cfg.SQLitePath = envStr("SQLITE_PATH", "exam_seating.db")
        return cfg
    }
    cfg.DBUser = must("DB_USER")
    cfg.DBPass = os.Getenv("DB_PASS") // empty allowed
    cfg.DBHost = must("DB_HOST")
    cfg.DBPort = must("DB_PORT")
    cfg.DBName = must("DB_NAME")
    cfg.DBSSLMode = envStr("DB_SSLMODE", "disable")
    return cfg
}

// DSN returns the data source name for the configured driver.
func (c Config) DSN() string {
    switch c.DBDriver {
    case database.Postgres:
        return database.PostgresDSN(c.DBUser, c.DBPass, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
    case database.SQLite:
        return database.SQLiteDSN(c.SQLitePath)
    }
    return database.MySQLDSN(c.DBUser, c.DBPass, c.DBHost, c.DBPort, c.DBName)
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        log.Fatalf("missing required env var: %s", key)
    }
    return v
}
