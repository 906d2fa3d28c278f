package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Registry holds how to reach and mirror the dn42-style registry.
type Registry struct {
	URL      string
	Path     string
	Ref      string
	Username string
	Token    string
}

// Config is autopeer's full runtime configuration, loaded from the
// environment (optionally seeded from a .env file).
type Config struct {
	Registry Registry

	JWTSecret     string
	MyASN         uint32
	BindAddress   string
	DataPending   string
	DataVerified  string
	CookieDomains []string

	ConsulAddr   string
	ConsulLockKey string
	AuditDBPath  string

	TLSCert  string
	TLSKey   string
	ClientCA string
}

// FromEnv loads Config from the process environment, matching key names
// case-insensitively. A .env file in the working directory is loaded first
// if present, without overriding variables already set.
func FromEnv() (Config, error) {
	loadDotEnv()

	jwtSecret := getenv("JWT_SECRET", "")
	if jwtSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET not set")
	}

	myASN := uint32(4242420257)
	if v := getenv("MY_ASN", ""); v != "" {
		if parsed, err := strconv.ParseUint(v, 10, 32); err == nil {
			myASN = uint32(parsed)
		}
	}

	username := getenv("DN42_GIT_USERNAME", "")
	token := getenv("DN42_GIT_TOKEN", "")

	cookieDomains := strings.Split(getenv("COOKIE_DOMAINS", "localhost"), ",")
	for i := range cookieDomains {
		cookieDomains[i] = strings.TrimSpace(cookieDomains[i])
	}

	return Config{
		Registry: Registry{
			URL:      getenv("DN42_REGISTRY_URL", "https://git.dn42.dev/dn42/registry"),
			Path:     getenv("DN42_REGISTRY_PATH", "./data/dn42-registry"),
			Ref:      getenv("REGISTRY_REF", "master"),
			Username: username,
			Token:    token,
		},
		JWTSecret:     jwtSecret,
		MyASN:         myASN,
		BindAddress:   getenv("BIND_ADDRESS", "127.0.0.1:3000"),
		DataPending:   getenv("DATA_PENDING_DIR", "./data/pending"),
		DataVerified:  getenv("DATA_VERIFIED_DIR", "./data/verified"),
		CookieDomains: cookieDomains,
		ConsulAddr:    getenv("CONSUL_HTTP_ADDR", ""),
		ConsulLockKey: getenv("CONSUL_LOCK_KEY", "autopeer/registry-refresh"),
		AuditDBPath:   getenv("AUDIT_DB_PATH", "./data/audit.db"),
		TLSCert:       getenv("TLS_CERT", ""),
		TLSKey:        getenv("TLS_KEY", ""),
		ClientCA:      getenv("TLS_CLIENT_CA", ""),
	}, nil
}

func loadDotEnv() {
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load(".env")
	}
}

// getenv looks up key case-insensitively, falling back to def.
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	if v := os.Getenv(strings.ToLower(key)); v != "" {
		return v
	}
	for _, e := range os.Environ() {
		k, v, ok := strings.Cut(e, "=")
		if ok && strings.EqualFold(k, key) && v != "" {
			return v
		}
	}
	return def
}
