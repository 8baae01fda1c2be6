package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/docvault/internal/flagx"
	"github.com/dmitrijs2005/docvault/internal/timex"
)

// JsonConfig is the on-disk shape of the JSON config file. Durations are
// timex.Duration so "15m" and integer nanoseconds both work. Fields left
// out of the file keep their previous values.
type JsonConfig struct {
	DatabaseDSN *string `json:"database_dsn"`

	S3AccessKey     *string         `json:"s3_access_key"`
	S3SecretKey     *string         `json:"s3_secret_key"`
	S3Bucket        *string         `json:"s3_bucket"`
	S3Region        *string         `json:"s3_region"`
	S3BaseEndpoint  *string         `json:"s3_base_endpoint"`
	S3PublicBaseURL *string         `json:"s3_public_base_url"`
	SignedURLExpiry *timex.Duration `json:"signed_url_expiry"`

	OAuthClientID     *string  `json:"oauth_client_id"`
	OAuthClientSecret *string  `json:"oauth_client_secret"`
	OAuthAuthURL      *string  `json:"oauth_auth_url"`
	OAuthTokenURL     *string  `json:"oauth_token_url"`
	OAuthRedirectAddr *string  `json:"oauth_redirect_addr"`
	OAuthScopes       []string `json:"oauth_scopes"`

	SecureStorePath *string `json:"secure_store_path"`
	SecureStoreKey  *string `json:"secure_store_key"`

	PageSize      *int            `json:"page_size"`
	ToastDuration *timex.Duration `json:"toast_duration"`
	LogLevel      *string         `json:"log_level"`
}

// parseJson overlays cfg with the JSON file named by -c/-config.
// Without the flag nothing happens; an unreadable or invalid file panics.
func parseJson(cfg *Config, args []string) {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	setString(&cfg.DatabaseDSN, jc.DatabaseDSN)
	setString(&cfg.S3AccessKey, jc.S3AccessKey)
	setString(&cfg.S3SecretKey, jc.S3SecretKey)
	setString(&cfg.S3Bucket, jc.S3Bucket)
	setString(&cfg.S3Region, jc.S3Region)
	setString(&cfg.S3BaseEndpoint, jc.S3BaseEndpoint)
	setString(&cfg.S3PublicBaseURL, jc.S3PublicBaseURL)
	if jc.SignedURLExpiry != nil {
		cfg.SignedURLExpiry = jc.SignedURLExpiry.Duration
	}
	setString(&cfg.OAuthClientID, jc.OAuthClientID)
	setString(&cfg.OAuthClientSecret, jc.OAuthClientSecret)
	setString(&cfg.OAuthAuthURL, jc.OAuthAuthURL)
	setString(&cfg.OAuthTokenURL, jc.OAuthTokenURL)
	setString(&cfg.OAuthRedirectAddr, jc.OAuthRedirectAddr)
	if jc.OAuthScopes != nil {
		cfg.OAuthScopes = jc.OAuthScopes
	}
	setString(&cfg.SecureStorePath, jc.SecureStorePath)
	setString(&cfg.SecureStoreKey, jc.SecureStoreKey)
	if jc.PageSize != nil {
		cfg.PageSize = *jc.PageSize
	}
	if jc.ToastDuration != nil {
		cfg.ToastDuration = jc.ToastDuration.Duration
	}
	setString(&cfg.LogLevel, jc.LogLevel)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
