/*
 * Copyright (c) 2024 Johan Stenstam, johani@johani.org
 */

package xfrcore

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EngineConfig carries the ambient tuning knobs for a long-running
// transfer-in process: where to log, how long to wait on the wire, and
// how many transfer sessions may run concurrently. It deliberately does
// not carry zone lists, upstream access control, or key material —
// those belong to a surrounding server, not to this package. Grounded
// on tdns/config.go's Config/ServiceConf split, narrowed to these few
// knobs; no function of this package other than LoadEngineConfig and
// String reads them.
type EngineConfig struct {
	Service   ServiceConf   `mapstructure:"service"`
	Transfer  TransferConf  `mapstructure:"transfer"`
	Log       LogConf       `mapstructure:"log"`
}

type ServiceConf struct {
	Name  string `mapstructure:"name" validate:"required"`
	Debug bool   `mapstructure:"debug"`
}

// TransferConf holds the transfer-session knobs: how long to wait when
// dialling an upstream, and how many AXFR/IXFR sessions may be driven
// concurrently against different zones. The query builders and the
// response parsers do not read it.
type TransferConf struct {
	DialTimeoutSeconds int `mapstructure:"dial_timeout_seconds" validate:"gte=1"`
	MaxConcurrent      int `mapstructure:"max_concurrent" validate:"gte=1"`
}

type LogConf struct {
	File string `mapstructure:"file" validate:"required"`
}

// DefaultEngineConfig returns the zero-configuration baseline: small
// concurrency, a generous dial timeout, logging to stderr (no file,
// interpreted by the caller as "leave log.SetOutput untouched").
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Transfer: TransferConf{DialTimeoutSeconds: 10, MaxConcurrent: 4},
	}
}

// LoadEngineConfig reads configuration from path (any format viper
// supports: yaml, toml, json, ...) and validates it, grounded on the
// viper+validator/v10 pairing tdns/config.go and tdns/cmd use to load
// and check ServiceConf/ApiserverConf.
func LoadEngineConfig(path string) (EngineConfig, error) {
	cfg := DefaultEngineConfig()

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return cfg, wrapErr(BadArgument, err, "reading config %s", path)
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, wrapErr(BadArgument, err, "parsing config %s", path)
	}

	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return cfg, wrapErr(BadArgument, err, "validating config %s", path)
	}
	return cfg, nil
}

func (c EngineConfig) String() string {
	return fmt.Sprintf("service=%s dial_timeout=%ds max_concurrent=%d log=%s",
		c.Service.Name, c.Transfer.DialTimeoutSeconds, c.Transfer.MaxConcurrent, c.Log.File)
}
