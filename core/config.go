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

type (
	Config struct {
		Env              string
		Build            string
		AppName          string
		Debug            bool
		TestMode         bool
		WorkDir          string
		SecretKey        string
		RollbarToken     string
		SendgridAPIKey   string
		NotifyRecipients []string
		Server           ServerConfig
		Database         DatabaseConfig
		Storage          StorageConfig
		Schedule         ScheduleConfig
		Audit            AuditConfig

		defaultFromEmail string
	}

	ServerConfig struct {
		Host               string
		Address            string
		DebugHost          string
		JWTExpirationDelta time.Duration
		ShutdownTimeout    time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	// StorageConfig selects the Storage backend: memory, file, badger or postgres.
	StorageConfig struct {
		Driver string
		Path   string
	}

	// ScheduleConfig describes the weekly grid the scheduler fills.
	ScheduleConfig struct {
		Days    int
		Periods []string
	}

	// AuditConfig holds the anomaly thresholds, in percent / score points.
	AuditConfig struct {
		MaxExcellenceRate float64
		MinPassRate       float64
		FluctuationDelta  float64
	}
)

func (dbc DatabaseConfig) Address() string {
	return net.JoinHostPort(dbc.Host, dbc.Port)
}

func (c *Config) DefaultFromEmail() mail.Address {
	addr, err := mail.ParseAddress(c.defaultFromEmail)
	if err != nil {
		return mail.Address{Name: c.AppName, Address: c.defaultFromEmail}
	}
	if addr.Name == "" {
		addr.Name = c.AppName
	}
	return *addr
}

func NewConfig() *Config {
	conf := viper.New()

	// defaults
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("debug", true)
	conf.SetDefault("build", "dev")
	conf.SetDefault("appName", "Scolarite")
	conf.SetDefault("secretKey", "k2l$-rq9)ubn#+13=tx&pwa7(s!e)#*d4(#qz8^$fhat0ok")
	conf.SetDefault("defaultFromEmail", "noreply@localhost")
	conf.SetDefault("notifyRecipients", []string{})
	conf.SetDefault("server.host", "localhost")
	conf.SetDefault("server.address", ":8000")
	conf.SetDefault("server.debugHost", ":4000")
	conf.SetDefault("server.jwtExpirationDelta", 2*time.Hour)
	conf.SetDefault("server.shutdownTimeout", 5*time.Second)
	conf.SetDefault("database.engine", "postgres")
	conf.SetDefault("database.host", "localhost")
	conf.SetDefault("database.port", "5432")
	conf.SetDefault("database.name", "scolarite")
	conf.SetDefault("database.user", "scolarite")
	conf.SetDefault("database.password", "")
	conf.SetDefault("database.adminUser", "postgres")
	conf.SetDefault("database.adminPassword", "")
	conf.SetDefault("database.disableTLS", true)
	conf.SetDefault("storage.driver", "file")
	conf.SetDefault("storage.path", "data")
	conf.SetDefault("schedule.days", 5)
	conf.SetDefault("schedule.periods", []string{"1-2", "3-4", "5-6", "7-8", "9-10"})
	conf.SetDefault("audit.maxExcellenceRate", 90.0)
	conf.SetDefault("audit.minPassRate", 60.0)
	conf.SetDefault("audit.fluctuationDelta", 20.0)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		conf.SetDefault("testMode", true)
		conf.SetDefault("storage.driver", "memory")
	}
	conf.SetEnvPrefix(env)
	conf.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	wd := Getwd()
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	conf.AutomaticEnv()

	return &Config{
		Env:              env,
		Build:            conf.GetString("build"),
		AppName:          conf.GetString("appName"),
		Debug:            conf.GetBool("debug"),
		TestMode:         conf.GetBool("testMode"),
		WorkDir:          wd,
		SecretKey:        conf.GetString("secretKey"),
		RollbarToken:     conf.GetString("rollbarToken"),
		SendgridAPIKey:   conf.GetString("sendgridApiKey"),
		NotifyRecipients: conf.GetStringSlice("notifyRecipients"),
		defaultFromEmail: conf.GetString("defaultFromEmail"),
		Server: ServerConfig{
			Host:               conf.GetString("server.host"),
			Address:            conf.GetString("server.address"),
			DebugHost:          conf.GetString("server.debugHost"),
			JWTExpirationDelta: conf.GetDuration("server.jwtExpirationDelta"),
			ShutdownTimeout:    conf.GetDuration("server.shutdownTimeout"),
		},
		Database: DatabaseConfig{
			Engine:        conf.GetString("database.engine"),
			Host:          conf.GetString("database.host"),
			Port:          conf.GetString("database.port"),
			Name:          conf.GetString("database.name"),
			User:          conf.GetString("database.user"),
			Password:      conf.GetString("database.password"),
			AdminUser:     conf.GetString("database.adminUser"),
			AdminPassword: conf.GetString("database.adminPassword"),
			DisableTLS:    conf.GetBool("database.disableTLS"),
		},
		Storage: StorageConfig{
			Driver: conf.GetString("storage.driver"),
			Path:   conf.GetString("storage.path"),
		},
		Schedule: ScheduleConfig{
			Days:    conf.GetInt("schedule.days"),
			Periods: conf.GetStringSlice("schedule.periods"),
		},
		Audit: AuditConfig{
			MaxExcellenceRate: conf.GetFloat64("audit.maxExcellenceRate"),
			MinPassRate:       conf.GetFloat64("audit.minPassRate"),
			FluctuationDelta:  conf.GetFloat64("audit.fluctuationDelta"),
		},
	}
}
