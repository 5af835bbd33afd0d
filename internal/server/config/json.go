package config

import (
	"encoding/json"
	"os"

	"github.com/bloomlabs/bloom/internal/flagx"
)

// jsonConfig is an intermediate DTO used only for reading JSON configuration
// files. After unmarshalling, non-zero fields are copied into the runtime
// Config.
type jsonConfig struct {
	HTTPAddr    *string `json:"http_addr"`
	BaseURL     *string `json:"base_url"`
	DatabaseDSN *string `json:"database_dsn"`
	MasterKey   *string `json:"master_key"`
	SelfHosted  *bool   `json:"self_hosted"`

	SMTPHost     *string `json:"smtp_host"`
	SMTPPort     *int    `json:"smtp_port"`
	SMTPUsername *string `json:"smtp_username"`
	SMTPPassword *string `json:"smtp_password"`
	SMTPFrom     *string `json:"smtp_from"`

	S3AccessKeyID     *string `json:"s3_access_key_id"`
	S3SecretAccessKey *string `json:"s3_secret_access_key"`
	S3Bucket          *string `json:"s3_bucket"`
	S3Region          *string `json:"s3_region"`
	S3BaseEndpoint    *string `json:"s3_base_endpoint"`
}

// parseJSON loads configuration values from the JSON file given via the
// -c / -config flags. If no file is given nothing is loaded. An unreadable
// or invalid file panics: starting with half a config is worse than not
// starting.
func parseJSON(config *Config) {
	jsonConfigFile := flagx.JSONConfigFlag()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &jsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setIfPresent(&config.HTTPAddr, c.HTTPAddr)
	setIfPresent(&config.BaseURL, c.BaseURL)
	setIfPresent(&config.DatabaseDSN, c.DatabaseDSN)
	setIfPresent(&config.MasterKey, c.MasterKey)
	setIfPresent(&config.SelfHosted, c.SelfHosted)
	setIfPresent(&config.SMTPHost, c.SMTPHost)
	setIfPresent(&config.SMTPPort, c.SMTPPort)
	setIfPresent(&config.SMTPUsername, c.SMTPUsername)
	setIfPresent(&config.SMTPPassword, c.SMTPPassword)
	setIfPresent(&config.SMTPFrom, c.SMTPFrom)
	setIfPresent(&config.S3AccessKeyID, c.S3AccessKeyID)
	setIfPresent(&config.S3SecretAccessKey, c.S3SecretAccessKey)
	setIfPresent(&config.S3Bucket, c.S3Bucket)
	setIfPresent(&config.S3Region, c.S3Region)
	setIfPresent(&config.S3BaseEndpoint, c.S3BaseEndpoint)
}

func setIfPresent[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
