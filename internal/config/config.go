package config

import (
	"log"

	"gopkg.in/yaml.v3"

	"choreplan/pkg/config"
)

type SchedulerConfig struct {
	HorizonDays             int `yaml:"horizon_days"`
	ThrottleSeconds         int `yaml:"throttle_seconds"`
	PassTimeoutSeconds      int `yaml:"pass_timeout_seconds"`
	GenerationTickMinutes   int `yaml:"generation_tick_minutes"`
	ReminderPollSeconds     int `yaml:"reminder_poll_seconds"`
	PauseBetweenTemplatesMS int `yaml:"pause_between_templates_ms"`
}

type Config struct {
	DB        config.DBConfig     `yaml:"db"`
	MQ        config.MQConfig     `yaml:"mq"`
	Redis     config.RedisConfig  `yaml:"redis"`
	JWT       config.JWTConfig    `yaml:"jwt"`
	Server    config.ServerConfig `yaml:"server"`
	Scheduler SchedulerConfig     `yaml:"scheduler"`
}

func Load() *Config {
	env := config.GetConfigEnv()
	configDir := config.GetEnv("CONFIG_DIR", "config")

	cfgMap, err := config.LoadConfig(env, configDir)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	var cfg Config
	cfgData, err := yaml.Marshal(cfgMap)
	if err != nil {
		log.Fatalf("failed to marshal config: %v", err)
	}
	if err := yaml.Unmarshal(cfgData, &cfg); err != nil {
		log.Fatalf("failed to unmarshal config: %v", err)
	}

	// Env vars win over files.
	config.OverrideDBFromEnv(&cfg.DB)
	config.OverrideMQFromEnv(&cfg.MQ)
	config.OverrideRedisFromEnv(&cfg.Redis)
	config.OverrideJWTFromEnv(&cfg.JWT)
	config.OverrideServerFromEnv(&cfg.Server)

	applySchedulerDefaults(&cfg.Scheduler)
	return &cfg
}

func applySchedulerDefaults(s *SchedulerConfig) {
	if s.HorizonDays <= 0 {
		s.HorizonDays = 30
	}
	if s.ThrottleSeconds <= 0 {
		s.ThrottleSeconds = 60
	}
	if s.PassTimeoutSeconds <= 0 {
		s.PassTimeoutSeconds = 300
	}
	if s.GenerationTickMinutes <= 0 {
		s.GenerationTickMinutes = 15
	}
	if s.ReminderPollSeconds <= 0 {
		s.ReminderPollSeconds = 60
	}
}
