package main

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Mode             string
	BaseURL          string
	SessionKey       string
	AuthProvidersRaw string
	DBPath           string
	DrainTimeout     time.Duration

	Domain           string
	Addr             string
	TLSCert          string
	TLSKey           string
	TLSSelfSigned    bool
	TLSSelfSignedDir string
	Storage          string
	StorageDSN       string
	StoragePath      string
	MongoDBName      string
	Plugins          []string
	DefaultAccounts  []Account
	CapsNode         string
	VersionName      string
	VersionString    string
	OMEMODeviceID    uint32
	Registration     registrationConfig
}

type Account struct {
	Username string
	Password string
}

func loadConfig() Config {
	cfg := Config{}
	cfg.Mode = strings.ToLower(getenv("WADDLE_MODE", "standalone"))
	cfg.BaseURL = getenv("WADDLE_BASE_URL", "https://example.com")
	cfg.SessionKey = os.Getenv("WADDLE_SESSION_KEY")
	cfg.AuthProvidersRaw = os.Getenv("WADDLE_AUTH_PROVIDERS_JSON")
	cfg.DBPath = getenv("WADDLE_DB_PATH", "/var/lib/waddle/data")
	cfg.DrainTimeout = getenvDuration("WADDLE_DRAIN_TIMEOUT_SECS", 30*time.Second)

	cfg.Domain = getenv("WADDLE_DOMAIN", "example.com")
	cfg.Addr = getenv("WADDLE_ADDR", ":5222")
	cfg.TLSCert = os.Getenv("WADDLE_TLS_CERT")
	cfg.TLSKey = os.Getenv("WADDLE_TLS_KEY")
	cfg.TLSSelfSigned = getenvBool("WADDLE_TLS_SELF_SIGNED", false)
	cfg.TLSSelfSignedDir = getenv("WADDLE_TLS_SELF_SIGNED_DIR", "/var/lib/waddle/tls")
	cfg.Storage = strings.ToLower(getenv("WADDLE_STORAGE", "memory"))
	cfg.StorageDSN = os.Getenv("WADDLE_STORAGE_DSN")
	cfg.StoragePath = getenv("WADDLE_STORAGE_PATH", cfg.DBPath)
	cfg.MongoDBName = getenv("WADDLE_MONGO_DB", "waddle")
	cfg.Plugins = parseCSV(getenv("WADDLE_PLUGINS", "disco,roster,presence,ping,vcard,time,version"))
	cfg.DefaultAccounts = parseAccounts(os.Getenv("WADDLE_DEFAULT_ACCOUNTS"))
	cfg.CapsNode = getenv("WADDLE_CAPS_NODE", "waddle")
	cfg.VersionName = getenv("WADDLE_VERSION_NAME", "waddle")
	cfg.VersionString = getenv("WADDLE_VERSION", "dev")
	cfg.OMEMODeviceID = uint32(getenvInt("WADDLE_OMEMO_DEVICE_ID", 1))
	cfg.Registration = registrationConfig{
		Policy:       registrationPolicy(strings.ToLower(getenv("WADDLE_REGISTRATION_POLICY", "open"))),
		Fields:       parseCSV(getenv("WADDLE_REGISTRATION_FIELDS", "username,password,email")),
		Invites:      parseTokenSet(os.Getenv("WADDLE_REGISTRATION_INVITES")),
		AdminTokens:  parseTokenSet(os.Getenv("WADDLE_REGISTRATION_ADMIN_TOKENS")),
		RateLimit:    getenvInt("WADDLE_REGISTRATION_RATE_LIMIT", 5),
		RateWindow:   getenvDuration("WADDLE_REGISTRATION_RATE_WINDOW", 1*time.Minute),
		Iterations:   getenvInt("WADDLE_REGISTRATION_SCRAM_ITERATIONS", 4096),
		DataForm:     getenvBool("WADDLE_REGISTRATION_DATAFORM", true),
		Instructions: getenv("WADDLE_REGISTRATION_INSTRUCTIONS", "Fill out the form to create an account."),
	}
	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return fallback
	}
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func parseCSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(strings.ToLower(p))
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

func parseAccounts(v string) []Account {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]Account, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		kv := strings.SplitN(p, ":", 2)
		if len(kv) != 2 {
			continue
		}
		user := strings.TrimSpace(kv[0])
		pass := strings.TrimSpace(kv[1])
		if user == "" || pass == "" {
			continue
		}
		out = append(out, Account{Username: user, Password: pass})
	}
	return out
}

func parseTokenSet(v string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, p := range parseCSV(v) {
		out[p] = struct{}{}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
