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
	ServerConfig struct {
		Host                      string
		DebugHost                 string
		AllowedOrigins            []string
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		ShutdownTimeout           time.Duration
		RateLimit                 float64 // requests per second per client on sensitive endpoints
		RateBurst                 int
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

	AIConfig struct {
		APIKey  string
		BaseURL string
		Model   string
	}

	StorageConfig struct {
		Driver             string // fs | oss
		Dir                string
		PublicBaseURL      string
		LegacyPrefix       string
		OSSEndpoint        string
		OSSAccessKeyID     string
		OSSAccessKeySecret string
		OSSBucket          string
	}

	ReaderConfig struct {
		BaseURL string
		APIKey  string
	}

	LiturgyConfig struct {
		USCCBBaseURL       string
		CalendarAPIBaseURL string
		SyncSchedule       string
	}

	ClubConfig struct {
		CurrentAcademicYear string
		DuesSweepSchedule   string
	}

	Config struct {
		AppName                   string
		Env                       string
		Build                     string
		Debug                     bool
		TestMode                  bool
		SecretKey                 string
		FrontendBaseURL           string
		DefaultFromEmail          mail.Address
		SendgridApiKey            string
		RollbarToken              string
		PasswordResetTimeoutDelta time.Duration

		Server   ServerConfig
		Database DatabaseConfig
		AI       AIConfig
		Storage  StorageConfig
		Reader   ReaderConfig
		Liturgy  LiturgyConfig
		Club     ClubConfig
	}
)

func (db DatabaseConfig) Address() string {
	return net.JoinHostPort(db.Host, db.Port)
}

// NewConfig reads the configuration from the environment (and an optional `config/.env.<env>` file).
func NewConfig() *Config {
	v := viper.New()

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	if env == "" {
		env = "DEV"
	}
	setDefaults(v, env)
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		AppName:         v.GetString("appName"),
		Env:             env,
		Build:           v.GetString("build"),
		Debug:           v.GetBool("debug"),
		TestMode:        v.GetBool("testMode"),
		SecretKey:       v.GetString("secretKey"),
		FrontendBaseURL: strings.TrimSuffix(v.GetString("frontendBaseURL"), "/"),
		DefaultFromEmail: mail.Address{
			Name:    v.GetString("appName"),
			Address: v.GetString("defaultFromEmail"),
		},
		SendgridApiKey:            v.GetString("sendgridApiKey"),
		RollbarToken:              v.GetString("rollbarToken"),
		PasswordResetTimeoutDelta: v.GetDuration("passwordResetTimeoutDelta"),
		Server: ServerConfig{
			Host:                      v.GetString("server.host"),
			DebugHost:                 v.GetString("server.debugHost"),
			AllowedOrigins:            v.GetStringSlice("server.allowedOrigins"),
			JWTExpirationDelta:        v.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("server.jwtRefreshExpirationDelta"),
			ShutdownTimeout:           v.GetDuration("server.shutdownTimeout"),
			RateLimit:                 v.GetFloat64("server.rateLimit"),
			RateBurst:                 v.GetInt("server.rateBurst"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetString("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
		},
		AI: AIConfig{
			APIKey:  v.GetString("ai.apiKey"),
			BaseURL: v.GetString("ai.baseURL"),
			Model:   v.GetString("ai.model"),
		},
		Storage: StorageConfig{
			Driver:             v.GetString("storage.driver"),
			Dir:                v.GetString("storage.dir"),
			PublicBaseURL:      strings.TrimSuffix(v.GetString("storage.publicBaseURL"), "/"),
			LegacyPrefix:       v.GetString("storage.legacyPrefix"),
			OSSEndpoint:        v.GetString("storage.ossEndpoint"),
			OSSAccessKeyID:     v.GetString("storage.ossAccessKeyID"),
			OSSAccessKeySecret: v.GetString("storage.ossAccessKeySecret"),
			OSSBucket:          v.GetString("storage.ossBucket"),
		},
		Reader: ReaderConfig{
			BaseURL: strings.TrimSuffix(v.GetString("reader.baseURL"), "/"),
			APIKey:  v.GetString("reader.apiKey"),
		},
		Liturgy: LiturgyConfig{
			USCCBBaseURL:       strings.TrimSuffix(v.GetString("liturgy.usccbBaseURL"), "/"),
			CalendarAPIBaseURL: strings.TrimSuffix(v.GetString("liturgy.calendarAPIBaseURL"), "/"),
			SyncSchedule:       v.GetString("liturgy.syncSchedule"),
		},
		Club: ClubConfig{
			CurrentAcademicYear: v.GetString("club.currentAcademicYear"),
			DuesSweepSchedule:   v.GetString("club.duesSweepSchedule"),
		},
	}
}

func setDefaults(v *viper.Viper, env string) {
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", env == "DEV")
	v.SetDefault("testMode", env == "TEST")
	v.SetDefault("appName", "GleeWorld")
	v.SetDefault("build", "develop")
	v.SetDefault("secretKey", "k3s9-ajx)glee$+12=vm&rad1o(x!w)#*p4(#zz8h^$ahm2usr")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("passwordResetTimeoutDelta", 3*24*time.Hour)

	v.SetDefault("server.host", ":8000")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.allowedOrigins", []string{"*"})
	v.SetDefault("server.jwtExpirationDelta", 15*time.Minute)
	v.SetDefault("server.jwtRefreshExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.rateLimit", 5.0)
	v.SetDefault("server.rateBurst", 10)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "gleeworld")
	v.SetDefault("database.user", "gleeworld")
	v.SetDefault("database.password", "gleeworld")
	v.SetDefault("database.disableTLS", true)

	v.SetDefault("ai.baseURL", "https://api.openai.com/v1")
	v.SetDefault("ai.model", "gpt-4o-mini")

	v.SetDefault("storage.driver", "fs")
	v.SetDefault("storage.dir", "media")
	v.SetDefault("storage.publicBaseURL", "http://localhost:8000/media")
	v.SetDefault("storage.legacyPrefix", "legacy")

	v.SetDefault("liturgy.usccbBaseURL", "https://bible.usccb.org/bible/readings")
	v.SetDefault("liturgy.calendarAPIBaseURL", "https://calapi.inadiutorium.cz/api/v0/en/calendars/general-en")
	v.SetDefault("liturgy.syncSchedule", "0 4 * * *")

	v.SetDefault("club.currentAcademicYear", "2026-2027")
	v.SetDefault("club.duesSweepSchedule", "30 4 * * *")
}
