package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// StructuredJSONConfig mirrors [StructuredConfig] in the shape of the
// optional JSON configuration file. Secrets are accepted here as well so a
// deployment may keep them in a mounted file instead of the environment.
type StructuredJSONConfig struct {
	App struct {
		AccessTokenSecret    string     `json:"access_token_secret"`
		RefreshTokenSecret   string     `json:"refresh_token_secret"`
		TokenIssuer          string     `json:"token_issuer"`
		AccessTokenTTL       Duration   `json:"access_token_ttl"`
		RefreshTokenTTL      Duration   `json:"refresh_token_ttl"`
		RefreshRotation      bool       `json:"refresh_rotation"`
		LockoutThreshold     int        `json:"lockout_threshold"`
		LockoutDuration      Duration   `json:"lockout_duration"`
		LockoutCheckPolicy   FailPolicy `json:"lockout_check_policy"`
		SessionCheckPolicy   FailPolicy `json:"session_check_policy"`
		AuditWriteTimeout    Duration   `json:"audit_write_timeout"`
		RefreshCookieEnabled bool       `json:"refresh_cookie_enabled"`
		CookieDomain         string     `json:"cookie_domain"`
		Environment          string     `json:"environment"`
		SessionPurgeInterval Duration   `json:"session_purge_interval"`
		SessionRetention     Duration   `json:"session_retention"`
	} `json:"app,omitempty"`

	Storage struct {
		DB struct {
			DSN             string   `json:"dsn"`
			MaxConns        int32    `json:"max_conns"`
			MinConns        int32    `json:"min_conns"`
			MaxConnLifetime Duration `json:"max_conn_lifetime"`
		} `json:"db,omitempty"`
	} `json:"storage,omitempty"`

	Server struct {
		HTTPAddress     string   `json:"http_address"`
		RequestTimeout  Duration `json:"request_timeout"`
		ShutdownTimeout Duration `json:"shutdown_timeout"`
	} `json:"server,omitempty"`

	LogLevel string `json:"log_level"`
}

func parseJSON(jsonFilePath string) (*StructuredConfig, error) {
	jsonFile, err := os.Open(jsonFilePath)
	if err != nil {
		return nil, fmt.Errorf("error reading a json file: %w", err)
	}
	defer jsonFile.Close()

	var jsonCfg StructuredJSONConfig
	if err := json.NewDecoder(jsonFile).Decode(&jsonCfg); err != nil {
		return nil, fmt.Errorf("error decoding json configs: %w", err)
	}

	app := jsonCfg.App
	cfg := &StructuredConfig{
		App: App{
			AccessTokenSecret:    app.AccessTokenSecret,
			RefreshTokenSecret:   app.RefreshTokenSecret,
			TokenIssuer:          app.TokenIssuer,
			AccessTokenTTL:       time.Duration(app.AccessTokenTTL),
			RefreshTokenTTL:      time.Duration(app.RefreshTokenTTL),
			RefreshRotation:      app.RefreshRotation,
			LockoutThreshold:     app.LockoutThreshold,
			LockoutDuration:      time.Duration(app.LockoutDuration),
			LockoutCheckPolicy:   app.LockoutCheckPolicy,
			SessionCheckPolicy:   app.SessionCheckPolicy,
			AuditWriteTimeout:    time.Duration(app.AuditWriteTimeout),
			RefreshCookieEnabled: app.RefreshCookieEnabled,
			CookieDomain:         app.CookieDomain,
			Environment:          app.Environment,
			SessionPurgeInterval: time.Duration(app.SessionPurgeInterval),
			SessionRetention:     time.Duration(app.SessionRetention),
		},
		Storage: Storage{
			DB: DB{
				DSN:             jsonCfg.Storage.DB.DSN,
				MaxConns:        jsonCfg.Storage.DB.MaxConns,
				MinConns:        jsonCfg.Storage.DB.MinConns,
				MaxConnLifetime: time.Duration(jsonCfg.Storage.DB.MaxConnLifetime),
			},
		},
		Server: Server{
			HTTPAddress:     jsonCfg.Server.HTTPAddress,
			RequestTimeout:  time.Duration(jsonCfg.Server.RequestTimeout),
			ShutdownTimeout: time.Duration(jsonCfg.Server.ShutdownTimeout),
		},
		JSONFilePath: "",
		LogLevel:     jsonCfg.LogLevel,
	}

	return cfg, nil
}

// Duration is a wrapper around time.Duration that supports JSON unmarshaling
// from strings like "1h", "30s" or "7d", and from integer nanoseconds.
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value))
		return nil
	case string:
		tmp, err := parseDuration(value)
		if err != nil {
			return err
		}
		*d = Duration(tmp)
		return nil
	default:
		return json.Unmarshal(b, (*time.Duration)(d))
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}
