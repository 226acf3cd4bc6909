package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	AppName         string
	Env             string // DEV (local; default), TEST, QA, PROD
	Build           string
	Debug           bool
	TestMode        bool
	WorkDir         string
	SecretKey       string
	FrontendBaseURL string
	RollbarToken    string
	SendgridApiKey  string

	DefaultFromEmail          mail.Address
	PasswordResetTimeoutDelta time.Duration

	Server struct {
		Host                      string
		DebugHost                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		RateLimitPerMinute        int
	}

	Database struct {
		Engine        string // postgres | dummy
		Host          string
		Port          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		Name          string
		DisableTLS    bool
	}

	Redis struct {
		Address  string // empty: in-memory event broker
		Password string
		DB       int
		Channel  string
	}

	Mongo struct {
		URI      string // empty: library data lives in the main database
		Database string
	}

	Library struct {
		FinePerDay      float64
		IssuePeriodDays int
		MaxBooksPerUser int
	}
}

// DatabaseAddress returns the database host:port.
func (c Config) DatabaseAddress() string {
	return net.JoinHostPort(c.Database.Host, c.Database.Port)
}

// NewConfig loads the configuration of the current ENV from the environment and `config/.env.<env>`.
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("appName", "Campus")
	v.SetDefault("build", "develop")
	v.SetDefault("secretKey", "x9#k2v!e7w$q@u1c*a8m-p0s=s4z&n5b^r3t(y6g)h0j")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "Campus <noreply@localhost>")
	v.SetDefault("passwordResetTimeoutDelta", 3*24*time.Hour)
	v.SetDefault("rollbarToken", "")
	v.SetDefault("sendgridApiKey", "")

	v.SetDefault("serverHost", ":8000")
	v.SetDefault("serverDebugHost", ":4000")
	v.SetDefault("serverShutdownTimeout", 10*time.Second)
	v.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("jwtRefreshExpirationDelta", 4*time.Hour)
	v.SetDefault("rateLimitPerMinute", 20)

	v.SetDefault("databaseEngine", "postgres")
	v.SetDefault("databaseHost", "localhost")
	v.SetDefault("databasePort", "5432")
	v.SetDefault("databaseUser", "campus")
	v.SetDefault("databasePassword", "campus")
	v.SetDefault("databaseAdminUser", "postgres")
	v.SetDefault("databaseAdminPassword", "postgres")
	v.SetDefault("databaseName", "campus")
	v.SetDefault("databaseDisableTLS", true)

	v.SetDefault("redisAddress", "")
	v.SetDefault("redisPassword", "")
	v.SetDefault("redisDB", 0)
	v.SetDefault("redisChannel", "campus:events")

	v.SetDefault("mongoURI", "")
	v.SetDefault("mongoDatabase", "campus")

	v.SetDefault("libraryFinePerDay", 5.0)
	v.SetDefault("libraryIssuePeriodDays", 14)
	v.SetDefault("libraryMaxBooksPerUser", 3)

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)

	workDir := Getwd()

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(workDir, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	conf := &Config{
		AppName:                   v.GetString("appName"),
		Env:                       env,
		Build:                     v.GetString("build"),
		Debug:                     v.GetBool("debug"),
		TestMode:                  v.GetBool("testMode"),
		WorkDir:                   workDir,
		SecretKey:                 v.GetString("secretKey"),
		FrontendBaseURL:           strings.TrimRight(v.GetString("frontendBaseURL"), "/"),
		RollbarToken:              v.GetString("rollbarToken"),
		SendgridApiKey:            v.GetString("sendgridApiKey"),
		PasswordResetTimeoutDelta: v.GetDuration("passwordResetTimeoutDelta"),
	}

	from, err := mail.ParseAddress(v.GetString("defaultFromEmail"))
	if err != nil {
		log.Fatalf("config.defaultFromEmail: %v", err)
	}
	conf.DefaultFromEmail = *from

	conf.Server.Host = v.GetString("serverHost")
	conf.Server.DebugHost = v.GetString("serverDebugHost")
	conf.Server.ShutdownTimeout = v.GetDuration("serverShutdownTimeout")
	conf.Server.JWTExpirationDelta = v.GetDuration("jwtExpirationDelta")
	conf.Server.JWTRefreshExpirationDelta = v.GetDuration("jwtRefreshExpirationDelta")
	conf.Server.RateLimitPerMinute = v.GetInt("rateLimitPerMinute")

	conf.Database.Engine = v.GetString("databaseEngine")
	conf.Database.Host = v.GetString("databaseHost")
	conf.Database.Port = v.GetString("databasePort")
	conf.Database.User = v.GetString("databaseUser")
	conf.Database.Password = v.GetString("databasePassword")
	conf.Database.AdminUser = v.GetString("databaseAdminUser")
	conf.Database.AdminPassword = v.GetString("databaseAdminPassword")
	conf.Database.Name = v.GetString("databaseName")
	conf.Database.DisableTLS = v.GetBool("databaseDisableTLS")

	conf.Redis.Address = v.GetString("redisAddress")
	conf.Redis.Password = v.GetString("redisPassword")
	conf.Redis.DB = v.GetInt("redisDB")
	conf.Redis.Channel = v.GetString("redisChannel")

	conf.Mongo.URI = v.GetString("mongoURI")
	conf.Mongo.Database = v.GetString("mongoDatabase")

	conf.Library.FinePerDay = v.GetFloat64("libraryFinePerDay")
	conf.Library.IssuePeriodDays = v.GetInt("libraryIssuePeriodDays")
	conf.Library.MaxBooksPerUser = v.GetInt("libraryMaxBooksPerUser")

	return conf
}

// NewTestConfig returns the configuration used by tests: TEST env defaults, in-memory storage.
func NewTestConfig() *Config {
	conf := NewConfig()
	conf.Env = "TEST"
	conf.Debug = false
	conf.TestMode = true
	conf.SecretKey = "secret"
	conf.Database.Engine = "dummy"
	conf.Redis.Address = ""
	conf.Mongo.URI = ""
	conf.Server.RateLimitPerMinute = 1000
	return conf
}
