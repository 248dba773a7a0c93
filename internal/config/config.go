package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

type Config struct {
	AWS           AWSConfig            `mapstructure:"aws"`
	Schedule      ScheduleConfig       `mapstructure:"schedule"`
	Report        ReportConfig         `mapstructure:"report"`
	Daemon        DaemonConfig         `mapstructure:"daemon"`
	Log           LogConfig            `mapstructure:"log"`
	Notifications []NotificationConfig `mapstructure:"notifications"`
}

type AWSConfig struct {
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

type ScheduleConfig struct {
	// TagKey is the tag carrying the shutdown schedule, on a machine or
	// on its resource group.
	TagKey string `mapstructure:"tag_key"`
	// GroupTagKey is the instance tag naming its owning resource group.
	GroupTagKey string `mapstructure:"group_tag_key"`
	// Timezone is the reference zone all schedule entries resolve in.
	Timezone string `mapstructure:"timezone"`
}

type ReportConfig struct {
	Type      string             `mapstructure:"type"`
	Local     *LocalReportConfig `mapstructure:"local"`
	S3        *S3ReportConfig    `mapstructure:"s3"`
	Retention RetentionConfig    `mapstructure:"retention"`
}

// RetentionConfig limits how many run reports the sink keeps. All
// zeroes means keep everything.
type RetentionConfig struct {
	KeepDaily   int `mapstructure:"keep_daily"`
	KeepWeekly  int `mapstructure:"keep_weekly"`
	KeepMonthly int `mapstructure:"keep_monthly"`
}

type LocalReportConfig struct {
	Path string `mapstructure:"path"`
}

type S3ReportConfig struct {
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	Prefix    string `mapstructure:"prefix"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

type DaemonConfig struct {
	// Cron is the trigger for daemon mode, standard 5-field syntax.
	Cron string `mapstructure:"cron"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type NotificationConfig struct {
	Type   string              `mapstructure:"type"`
	On     []string            `mapstructure:"on"`
	Config NotificationDetails `mapstructure:"config"`
}

type NotificationDetails struct {
	SMTPHost string            `mapstructure:"smtp_host"`
	SMTPPort int               `mapstructure:"smtp_port"`
	From     string            `mapstructure:"from"`
	To       string            `mapstructure:"to"`
	Username string            `mapstructure:"username"`
	Password string            `mapstructure:"password"`
	URL      string            `mapstructure:"url"`
	Headers  map[string]string `mapstructure:"headers"`
}

func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	v.SetDefault("schedule.tag_key", "offhours")
	v.SetDefault("schedule.group_tag_key", "resource-group")
	v.SetDefault("schedule.timezone", "UTC")
	v.SetDefault("daemon.cron", "*/15 * * * *")
	v.SetDefault("log.level", "info")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ModifyConfig(&cfg)

	return &cfg, nil
}

// ModifyConfig expands ${ENV} references so secrets can stay out of the
// file on disk.
func ModifyConfig(cfg *Config) {
	cfg.AWS.Region = os.ExpandEnv(cfg.AWS.Region)
	cfg.AWS.AccessKey = os.ExpandEnv(cfg.AWS.AccessKey)
	cfg.AWS.SecretKey = os.ExpandEnv(cfg.AWS.SecretKey)

	cfg.Schedule.TagKey = os.ExpandEnv(cfg.Schedule.TagKey)
	cfg.Schedule.GroupTagKey = os.ExpandEnv(cfg.Schedule.GroupTagKey)
	cfg.Schedule.Timezone = os.ExpandEnv(cfg.Schedule.Timezone)

	if cfg.Report.Local != nil {
		cfg.Report.Local.Path = os.ExpandEnv(cfg.Report.Local.Path)
	}
	if cfg.Report.S3 != nil {
		s3 := cfg.Report.S3
		s3.Bucket = os.ExpandEnv(s3.Bucket)
		s3.Region = os.ExpandEnv(s3.Region)
		s3.Prefix = os.ExpandEnv(s3.Prefix)
		s3.AccessKey = os.ExpandEnv(s3.AccessKey)
		s3.SecretKey = os.ExpandEnv(s3.SecretKey)
	}

	for i := range cfg.Notifications {
		nt := &cfg.Notifications[i]
		nt.Type = os.ExpandEnv(nt.Type)
		nt.Config.SMTPHost = os.ExpandEnv(nt.Config.SMTPHost)
		nt.Config.From = os.ExpandEnv(nt.Config.From)
		nt.Config.To = os.ExpandEnv(nt.Config.To)
		nt.Config.Username = os.ExpandEnv(nt.Config.Username)
		nt.Config.Password = os.ExpandEnv(nt.Config.Password)
		nt.Config.URL = os.ExpandEnv(nt.Config.URL)
		for k, v := range nt.Config.Headers {
			nt.Config.Headers[k] = os.ExpandEnv(v)
		}
	}
}
