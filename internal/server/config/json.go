package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/eventsignup/internal/flagx"
	"github.com/dmitrijs2005/eventsignup/internal/timex"
)

// JsonConfig is the on-disk shape of the optional JSON config file. It uses
// timex.Duration so session_lifetime accepts "1h" as well as nanoseconds.
// Pointer fields tell "absent" from "zero", so only keys present in the file
// override earlier layers.
type JsonConfig struct {
	HTTPAddr                *string         `json:"http_addr"`
	DatabaseDriver          *string         `json:"database_driver"`
	DatabaseDSN             *string         `json:"database_dsn"`
	SecretKey               *string         `json:"secret_key"`
	MaxParticipants         *int            `json:"max_participants"`
	SessionCookieName       *string         `json:"session_name"`
	SessionLifetime         *timex.Duration `json:"session_lifetime"`
	ResetConfirmationPhrase *string         `json:"reset_confirmation_phrase"`
	MailFrom                *string         `json:"mail_from"`
	MailFromName            *string         `json:"mail_from_name"`
	MailReplyTo             *string         `json:"mail_reply_to"`
	MailTransport           *string         `json:"mail_transport"`
	SMTPHost                *string         `json:"smtp_host"`
	SMTPPort                *int            `json:"smtp_port"`
	SMTPUser                *string         `json:"smtp_user"`
	SMTPPassword            *string         `json:"smtp_password"`
	TimeZone                *string         `json:"time_zone"`
	ExportFilePrefix        *string         `json:"export_file_prefix"`
	ExportSheetName         *string         `json:"export_sheet_name"`
	ArchiveDir              *string         `json:"archive_dir"`
	S3Bucket                *string         `json:"s3_bucket"`
	S3Region                *string         `json:"s3_region"`
	S3BaseEndpoint          *string         `json:"s3_base_endpoint"`
	S3RootUser              *string         `json:"s3_root_user"`
	S3RootPassword          *string         `json:"s3_root_password"`
	LogLevel                *string         `json:"log_level"`
}

// parseJson loads the file named by -c/-config, if any, over config.
func parseJson(config *Config) error {
	path := flagx.ConfigFileFlag(os.Args[1:])
	if path == "" {
		return nil
	}
	return loadJsonFile(config, path)
}

func loadJsonFile(config *Config, path string) error {
	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	c.apply(config)
	return nil
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.DatabaseDriver, c.DatabaseDriver)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	if c.MaxParticipants != nil {
		config.MaxParticipants = *c.MaxParticipants
	}
	setString(&config.SessionCookieName, c.SessionCookieName)
	if c.SessionLifetime != nil {
		config.SessionLifetime = c.SessionLifetime.Duration
	}
	setString(&config.ResetConfirmationPhrase, c.ResetConfirmationPhrase)
	setString(&config.MailFrom, c.MailFrom)
	setString(&config.MailFromName, c.MailFromName)
	setString(&config.MailReplyTo, c.MailReplyTo)
	setString(&config.MailTransport, c.MailTransport)
	setString(&config.SMTPHost, c.SMTPHost)
	if c.SMTPPort != nil {
		config.SMTPPort = *c.SMTPPort
	}
	setString(&config.SMTPUser, c.SMTPUser)
	setString(&config.SMTPPassword, c.SMTPPassword)
	setString(&config.TimeZone, c.TimeZone)
	setString(&config.ExportFilePrefix, c.ExportFilePrefix)
	setString(&config.ExportSheetName, c.ExportSheetName)
	setString(&config.ArchiveDir, c.ArchiveDir)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.LogLevel, c.LogLevel)
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
