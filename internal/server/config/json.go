package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/corkboard/internal/flagx"
	"github.com/dmitrijs2005/corkboard/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Durations can
// be spelled as strings like "12h" thanks to timex.Duration.
type JsonConfig struct {
	EndpointAddr          string         `json:"endpoint_addr"`
	DatabaseDSN           string         `json:"database_dsn"`
	SecretKey             string         `json:"secret_key"`
	TokenValidityDuration timex.Duration `json:"token_validity_duration"`
	RedisAddr             string         `json:"redis_addr"`
	InstanceID            string         `json:"instance_id"`
	S3RootUser            string         `json:"s3_root_user"`
	S3RootPassword        string         `json:"s3_root_password"`
	S3Bucket              string         `json:"s3_bucket"`
	S3Region              string         `json:"s3_region"`
	S3BaseEndpoint        string         `json:"s3_base_endpoint"`
}

// parseJson overlays cfg with values loaded from the JSON file named by the
// -c/-config flag. No file means no overlay. Read or unmarshal errors panic;
// the config stage has nothing sensible to fall back to.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	cfg.EndpointAddr = jc.EndpointAddr
	cfg.DatabaseDSN = jc.DatabaseDSN
	cfg.SecretKey = jc.SecretKey
	cfg.TokenValidityDuration = time.Duration(jc.TokenValidityDuration.Duration)
	cfg.RedisAddr = jc.RedisAddr
	cfg.InstanceID = jc.InstanceID
	cfg.S3RootUser = jc.S3RootUser
	cfg.S3RootPassword = jc.S3RootPassword
	cfg.S3Bucket = jc.S3Bucket
	cfg.S3Region = jc.S3Region
	cfg.S3BaseEndpoint = jc.S3BaseEndpoint
}
