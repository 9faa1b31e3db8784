package cmd

import (
	"fmt"
	"reflect"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/demuxcache/internal/config"
	"github.com/jmylchreest/demuxcache/pkg/bytesize"
	"github.com/jmylchreest/demuxcache/pkg/duration"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management commands",
	Long:  `Commands for managing demuxcache configuration.`,
}

var configDumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Dump the default configuration",
	Long: `Dump the default configuration values in YAML format.

This shows all available configuration options with their default values.
You can redirect this output to a file to create a configuration template:

  demuxcache config dump > config.yaml

Configuration can be set via:
  - Config file (config.yaml, .demuxcache.yaml, /etc/demuxcache/config.yaml)
  - Environment variables (DEMUXCACHE_CACHE_MAX_BYTES, DEMUXCACHE_LOGGING_LEVEL, etc.)
  - Command-line flags (for some options)

Environment variables use the DEMUXCACHE_ prefix and underscores for nesting.
Example: cache.max_bytes -> DEMUXCACHE_CACHE_MAX_BYTES`,
	RunE: runConfigDump,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configDumpCmd)
}

// toMap converts a struct to a map, formatting durations and sizes for
// human readability.
func toMap(v any) map[string]any {
	result := make(map[string]any)
	val := reflect.ValueOf(v)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}
	typ := val.Type()

	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)

		key := fieldType.Tag.Get("mapstructure")
		if key == "" {
			key = fieldType.Name
		}

		switch fv := field.Interface().(type) {
		case time.Duration:
			result[key] = duration.Format(fv)
		case config.Duration:
			result[key] = fv.String()
		case config.ByteSize:
			result[key] = fv.String()
		case bytesize.Size:
			result[key] = fv.String()
		default:
			if field.Kind() == reflect.Struct {
				result[key] = toMap(field.Interface())
			} else {
				result[key] = field.Interface()
			}
		}
	}
	return result
}

func runConfigDump(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load("")
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	cfgMap := toMap(cfg)

	yamlData, err := yaml.Marshal(cfgMap)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	fmt.Println("# demuxcache Configuration File")
	fmt.Println("# =============================")
	fmt.Println("#")
	fmt.Println("# All values shown below are defaults.")
	fmt.Println("# Duration format: 30s, 5m, 1h, 30d")
	fmt.Println("# Size format: 5MB, 1GiB")
	fmt.Println("#")
	fmt.Println("# Environment variable overrides:")
	fmt.Println("#   DEMUXCACHE_CACHE_MIN_SECS, DEMUXCACHE_CACHE_MAX_BYTES")
	fmt.Println("#   DEMUXCACHE_CACHE_SEEKABLE_CACHE, DEMUXCACHE_CACHE_MAX_BYTES_BACKWARD")
	fmt.Println("#   DEMUXCACHE_LOGGING_LEVEL, DEMUXCACHE_LOGGING_FORMAT")
	fmt.Println("#   etc.")
	fmt.Println("#")
	fmt.Println("")
	fmt.Print(string(yamlData))

	return nil
}
