package core

import (
	"fmt"
	"log"
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
		Debug            bool
		TestMode         bool
		AppName          string
		Build            string
		WorkDir          string
		SecretKey        string
		FrontendBaseURL  string
		SendgridApiKey   string
		RollbarToken     string
		defaultFromEmail string

		JWTExpirationDelta time.Duration

		Server   ServerConfig
		Database DatabaseConfig
		Identity IdentityConfig
	}

	ServerConfig struct {
		Host            string
		Address         string
		DebugHost       string
		ShutdownTimeout time.Duration
		DisableReqLogs  bool
		UploadDir       string
		UploadURL       string
		MaxUploadSize   int64
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
		MaxOpenConns  int
		MaxIdleConns  int
	}

	IdentityConfig struct {
		GoogleClientID    string
		FacebookAppID     string
		FacebookAppSecret string
		FacebookGraphURL  string
	}
)

// Address returns the "host:port" of the database server.
func (c DatabaseConfig) Address() string {
	return c.Host + ":" + c.Port
}

// DefaultFromEmail parses the configured sender address, falling back to a bare address.
func (c *Config) DefaultFromEmail() mail.Address {
	addr, err := mail.ParseAddress(c.defaultFromEmail)
	if err != nil {
		return mail.Address{Name: c.AppName, Address: c.defaultFromEmail}
	}
	return *addr
}

// NewConfig loads the configuration of the current environment (ENV: DEV, TEST, QA, PROD).
// Values come from defaults, then `config/.env.<env>` (if any), then prefixed env vars (e.g. PROD_SECRETKEY).
func NewConfig() *Config {
	v := viper.New()
	v.SetTypeByDefaultValue(true)
	setDefaults(v)

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}
	if env == "TEST" {
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	wd := workDir()
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		Env:                env,
		Debug:              v.GetBool("debug"),
		TestMode:           v.GetBool("testMode"),
		AppName:            v.GetString("appName"),
		Build:              v.GetString("build"),
		WorkDir:            wd,
		SecretKey:          v.GetString("secretKey"),
		FrontendBaseURL:    v.GetString("frontendBaseURL"),
		SendgridApiKey:     v.GetString("sendgridApiKey"),
		RollbarToken:       v.GetString("rollbarToken"),
		defaultFromEmail:   v.GetString("defaultFromEmail"),
		JWTExpirationDelta: v.GetDuration("jwtExpirationDelta"),
		Server: ServerConfig{
			Host:            v.GetString("server.host"),
			Address:         v.GetString("server.address"),
			DebugHost:       v.GetString("server.debugHost"),
			ShutdownTimeout: v.GetDuration("server.shutdownTimeout"),
			DisableReqLogs:  v.GetBool("server.disableReqLogs"),
			UploadDir:       v.GetString("server.uploadDir"),
			UploadURL:       v.GetString("server.uploadURL"),
			MaxUploadSize:   v.GetInt64("server.maxUploadSize"),
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
			MaxOpenConns:  v.GetInt("database.maxOpenConns"),
			MaxIdleConns:  v.GetInt("database.maxIdleConns"),
		},
		Identity: IdentityConfig{
			GoogleClientID:    v.GetString("identity.googleClientID"),
			FacebookAppID:     v.GetString("identity.facebookAppID"),
			FacebookAppSecret: v.GetString("identity.facebookAppSecret"),
			FacebookGraphURL:  v.GetString("identity.facebookGraphURL"),
		},
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("appName", "InnovaLab Center")
	v.SetDefault("build", "develop")
	v.SetDefault("secretKey", "k9#v2q!x7m@innovalab$center&dev-only-secret")
	v.SetDefault("frontendBaseURL", "http://localhost:5173")
	v.SetDefault("defaultFromEmail", "InnovaLab Center <noreply@localhost>")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("jwtExpirationDelta", 24*time.Hour)

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.address", ":3000")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.disableReqLogs", false)
	v.SetDefault("server.uploadDir", "uploads")
	v.SetDefault("server.uploadURL", "/uploads")
	v.SetDefault("server.maxUploadSize", int64(50<<20))

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "innovalab")
	v.SetDefault("database.user", "innovalab")
	v.SetDefault("database.password", "innovalab")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "postgres")
	v.SetDefault("database.disableTLS", true)
	v.SetDefault("database.maxOpenConns", 10)
	v.SetDefault("database.maxIdleConns", 5)

	v.SetDefault("identity.googleClientID", "")
	v.SetDefault("identity.facebookAppID", "")
	v.SetDefault("identity.facebookAppSecret", "")
	v.SetDefault("identity.facebookGraphURL", "https://graph.facebook.com/v19.0")
}

// workDir finds the project root (the directory holding go.mod).
// go test runs with the package directory as working directory, so we walk up from there.
func workDir() string {
	wd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}
	currDir := wd
	for {
		if _, err := os.Stat(filepath.Join(currDir, "go.mod")); err == nil {
			return currDir
		}
		newDir := filepath.Dir(currDir)
		if newDir == currDir {
			// deployed binary without sources: stay where we were started
			return wd
		}
		currDir = newDir
	}
}

// String hides secrets; handy when logging the config at startup.
func (c *Config) String() string {
	return fmt.Sprintf("env=%s debug=%t build=%s db=%s/%s", c.Env, c.Debug, c.Build, c.Database.Address(), c.Database.Name)
}
