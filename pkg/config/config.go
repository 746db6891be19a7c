//Package config loads the typed configuration from config.yaml, BBA_* environment variables
//and command-line flags.
package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/chenBenjamin97/basketball-analyzer/pkg/logging"
	"github.com/chenBenjamin97/basketball-analyzer/pkg/pipeline"
	"github.com/chenBenjamin97/basketball-analyzer/pkg/utils"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const EnvPrefix = "BBA"

type Directory struct {
	Root   string `mapstructure:"root" validate:"required"`
	Source string `mapstructure:"source" validate:"required"`
	Ready  string `mapstructure:"ready" validate:"required"`
	Stubs  string `mapstructure:"stubs"`
	Temp   string `mapstructure:"temp"`
	//Tactical holds the JSON-lines tactical streams, one file per analyzed video
	Tactical string `mapstructure:"tactical"`
}

type Video struct {
	ProdFormat string `mapstructure:"prod_format" validate:"required"`
	BatchSize  int    `mapstructure:"batch_size" validate:"gte=1"`
	StartTime  string `mapstructure:"start_time"`
	EndTime    string `mapstructure:"end_time"`
	Render     bool   `mapstructure:"render"`
}

//Detector is the external detection process. Its command gets the video path appended
//and must print one JSON frame per line
type Detector struct {
	Command []string `mapstructure:"command"`
	Workdir string   `mapstructure:"workdir"`
}

//Input names what a single analyze invocation works on
type Input struct {
	Video      string `mapstructure:"video"`
	Detections string `mapstructure:"detections"`
	Output     string `mapstructure:"output"`
}

type HTTP struct {
	Port  string `mapstructure:"port" validate:"required"`
	Serve bool   `mapstructure:"serve"`
}

type Frontend struct {
	StaticFilesPath string `mapstructure:"static-files-path"`
}

type Store struct {
	Path string `mapstructure:"path" validate:"required"`
}

type Config struct {
	Directory Directory      `mapstructure:"directory"`
	Video     Video          `mapstructure:"video"`
	Detector  Detector       `mapstructure:"detector"`
	Input     Input          `mapstructure:"input"`
	HTTP      HTTP           `mapstructure:"http"`
	Frontend  Frontend       `mapstructure:"frontend"`
	Store     Store          `mapstructure:"store"`
	Log       logging.Config `mapstructure:"log"`

	pipeline.Config `mapstructure:",squash"`
}

func Default() Config {
	return Config{
		Directory: Directory{
			Root:     "data",
			Source:   "data/source",
			Ready:    "data/ready",
			Stubs:    "data/stubs",
			Temp:     "data/tmp",
			Tactical: "data/tactical",
		},
		Video:    Video{ProdFormat: "mp4", BatchSize: utils.DefaultBatchSize, Render: true},
		HTTP:     HTTP{Port: "8080"},
		Store:    Store{Path: "data/analyzer.db"},
		Log:      logging.DefaultConfig(),
		Config:   pipeline.DefaultConfig(),
		Detector: Detector{Command: []string{"python3", "detect.py"}},
	}
}

//Load reads configuration into a fresh Config. file overrides the default config.yaml lookup
//in the working directory, a missing default file leaves the built-in defaults in place
func Load(v *viper.Viper, file string) (Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("config.Load: Could not read config file, got '%v'", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config.Load: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

//Validate reports every field breaking its constraint
func Validate(cfg Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("config: Missing or invalid configuration: %w", err)
	}
	if cfg.Video.StartTime != "" {
		if _, err := utils.ParseTimestamp(cfg.Video.StartTime); err != nil {
			return fmt.Errorf("config: video.start_time: %w", err)
		}
	}
	if cfg.Video.EndTime != "" {
		if _, err := utils.ParseTimestamp(cfg.Video.EndTime); err != nil {
			return fmt.Errorf("config: video.end_time: %w", err)
		}
	}
	return nil
}

//SetDefaults registers every leaf of Default() so each one can also come from the environment
func SetDefaults(v *viper.Viper) {
	setDefaults(v, "", reflect.ValueOf(Default()))
}

func setDefaults(v *viper.Viper, prefix string, val reflect.Value) {
	t := val.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		tag := field.Tag.Get("mapstructure")
		if tag == ",squash" {
			setDefaults(v, prefix, val.Field(i))
			continue
		}
		if tag == "" {
			tag = strings.ToLower(field.Name)
		}

		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		if field.Type.Kind() == reflect.Struct {
			setDefaults(v, key, val.Field(i))
			continue
		}
		v.SetDefault(key, val.Field(i).Interface())
	}
}
