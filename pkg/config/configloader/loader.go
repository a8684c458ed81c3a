// Package configloader merges the yaml file, the .env file and the process environment into a typed config.
package configloader

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Validator interface {
	Validate() error
}

const (
	defaultConfigFile = "config.yaml"
	dotEnvFile        = ".env"
)

// Load reads the configuration for the named application.
// Sources in increasing priority: config.yaml (or the file named by <APP>_CONFIG_FILE), .env, system env vars.
// Env keys are prefixed with <APP>_ and use "_" as the path separator, e.g. CARTWISH_DATABASE_URL.
// Missing files are skipped; unreadable ones are logged and skipped.
func Load[T Validator](appName string) (T, error) {
	var cfg T
	k := koanf.New(".")
	keys := envKeys{prefix: strings.ToUpper(appName) + "_"}

	configFile := os.Getenv(keys.prefix + "CONFIG_FILE")
	if configFile == "" {
		configFile = defaultConfigFile
	}
	if err := k.Load(file.Provider(configFile), yaml.Parser()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("WARN: error loading YAML config file '%s': %v", configFile, err)
	}

	if err := loadDotEnv(k, keys); err != nil {
		log.Printf("WARN: error loading %s: %v", dotEnvFile, err)
	}

	if err := k.Load(env.Provider(keys.prefix, ".", keys.path), nil); err != nil {
		log.Printf("WARN: error loading system env vars: %v", err)
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, fmt.Errorf("error unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// loadDotEnv loads the prefixed entries of the .env file. Other entries are ignored.
func loadDotEnv(k *koanf.Koanf, keys envKeys) error {
	entries, err := godotenv.Read(dotEnvFile)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	values := make(map[string]any, len(entries))
	for key, value := range entries {
		if keys.owns(key) {
			values[keys.path(key)] = value
		}
	}
	return k.Load(confmap.Provider(values, "."), nil)
}

// envKeys maps APP_SECTION_KEY variables to section.key config paths.
type envKeys struct {
	prefix string
}

func (e envKeys) owns(key string) bool {
	return strings.HasPrefix(strings.ToUpper(key), e.prefix)
}

func (e envKeys) path(key string) string {
	key = strings.ToLower(key)
	key = strings.TrimPrefix(key, strings.ToLower(e.prefix))
	return strings.ReplaceAll(key, "_", ".")
}
