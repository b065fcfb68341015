package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/Alnumo/therapy-engine/core/capacity"
	"github.com/Alnumo/therapy-engine/core/impact"
	"github.com/Alnumo/therapy-engine/core/metrics"
	"github.com/Alnumo/therapy-engine/core/monitor"
	"github.com/Alnumo/therapy-engine/core/workload"
	"github.com/Alnumo/therapy-engine/infra/notify"
)

type Config struct {
	Workload workload.Config `json:"workload"`
	Capacity capacity.Config `json:"capacity"`
	Impact   impact.Config   `json:"impact"`
	Monitor  monitor.Config  `json:"monitor"`
	Metrics  metrics.Config  `json:"metrics"`
	MQTT     notify.Config   `json:"mqtt"`
	Store    StoreConfig     `json:"store"`
	Logging  LoggingConfig   `json:"logging"`
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("TE_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "te_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.Workload.SetDefaults()
	cfg.Capacity.SetDefaults()
	cfg.Impact.SetDefaults()
	cfg.Monitor.SetDefaults()
	cfg.MQTT.SetDefaults()
	cfg.Store.SetDefaults()
	cfg.Logging.SetDefaults()
	if err := cfg.Store.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Logging.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
