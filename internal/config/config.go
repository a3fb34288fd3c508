package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration (env + Viper).
type Config struct {
	Env                 string
	Port                string
	SessionSecret       string
	DatabaseURL         string
	RedisURL            string
	RSVPBaseURL         string // base URL of the guest-facing RSVP frontend, embedded in QR links
	OperatorUsername    string // bootstrap operator credentials, seeded hashed at startup
	OperatorPassword    string
	FrontendURLEndsWith string
	DevPassword         string
	AllowCrossSiteDev   bool
}

// Load loads config from env and optional .env file.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	port := viper.GetString("PORT")
	if port == "" {
		port = "8080"
	}
	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	dbURL := viper.GetString("DATABASE_URL")
	if env == "test" && viper.GetString("DATABASE_URL_TEST") != "" {
		dbURL = viper.GetString("DATABASE_URL_TEST")
	}

	return &Config{
		Env:                 env,
		Port:                port,
		SessionSecret:       viper.GetString("SESSION_SECRET"),
		DatabaseURL:         dbURL,
		RedisURL:            viper.GetString("REDIS_URL"),
		RSVPBaseURL:         rsvpBaseURL(viper.GetString("RSVP_BASE_URL")),
		OperatorUsername:    viper.GetString("OPERATOR_USERNAME"),
		OperatorPassword:    viper.GetString("OPERATOR_PASSWORD"),
		FrontendURLEndsWith: viper.GetString("FRONTEND_URL_ENDS_WITH"),
		DevPassword:         viper.GetString("DEV_PASSWORD"),
		AllowCrossSiteDev:   strings.EqualFold(viper.GetString("ALLOW_CROSS_SITE_DEV"), "true"),
	}, nil
}

func rsvpBaseURL(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "https://rsvp.gatelist.app"
	}
	return s
}
