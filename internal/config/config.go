// Package config resolves application settings from defaults, the optional
// config file at ~/.config/gateguard/config.yaml and GATEGUARD_* environment
// variables, in rising precedence. Command-line flags bound onto the same
// viper instance override all three.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Keys used in the viper store. Flags, environment variables and the config
// file all resolve through these. The environment form replaces dots with
// underscores and carries the GATEGUARD_ prefix, so "mongo.uri" is read from
// GATEGUARD_MONGO_URI.
const (
	KeyMongoURI      = "mongo.uri"
	KeyMongoDatabase = "mongo.database"

	KeyKeywordsFile      = "analysis.keywords_file"
	KeyWeightsFile       = "analysis.weights_file"
	KeyDefaultConnection = "analysis.default_connection"
	KeyDefaultRangeDays  = "analysis.default_range_days"
	KeyMaxRangeDays      = "analysis.max_range_days"
	KeySampleSize        = "analysis.sample_size"

	KeyListenAddr = "server.listen"

	KeyArchiveBucket  = "archive.bucket"
	KeyArchiveRegion  = "archive.region"
	KeyArchiveLinkTTL = "archive.link_ttl"
)

// Settings is the resolved application configuration.
type Settings struct {
	Mongo    MongoSettings
	Analysis AnalysisSettings
	Server   ServerSettings
	Archive  ArchiveSettings
}

// MongoSettings locates the gateway's configuration store.
type MongoSettings struct {
	// URI is the MongoDB connection string.
	// Never committed to version control when it carries credentials.
	URI string

	// Database is the gateway database holding the api_proxy and
	// connection_config_elasticsearch collections.
	Database string
}

// AnalysisSettings tunes assessments.
type AnalysisSettings struct {
	// KeywordsFile is the sensitive-keyword list, one keyword per line or a
	// single comma-separated line. Unreadable or empty files fall back to the
	// built-in list.
	KeywordsFile string

	// WeightsFile is an optional YAML file overriding the scoring weights.
	// Empty means the built-in weights.
	WeightsFile string

	// DefaultConnection is the Elasticsearch connection queried when a
	// request does not name one.
	DefaultConnection string

	// DefaultRangeDays is the observation window applied when a request
	// carries no dates.
	DefaultRangeDays int

	// MaxRangeDays caps the observation window a client may request.
	MaxRangeDays int

	// SampleSize is the number of recent log records inspected for
	// sensitive data.
	SampleSize int
}

// ServerSettings configures the HTTP API.
type ServerSettings struct {
	// Listen is the address the HTTP server binds, e.g. ":8080".
	Listen string
}

// ArchiveSettings configures shared-report storage. An empty bucket disables
// the share endpoint.
type ArchiveSettings struct {
	// Bucket is the S3 bucket shared reports are uploaded to.
	Bucket string

	// Region overrides the AWS region from the environment or shared config.
	Region string

	// LinkTTL is how long a presigned share link stays valid.
	LinkTTL time.Duration
}

// SetDefaults registers the default value for every settings key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyMongoURI, "mongodb://localhost:27017")
	v.SetDefault(KeyMongoDatabase, "gateway")

	v.SetDefault(KeyKeywordsFile, "sensitive_keywords.txt")
	v.SetDefault(KeyWeightsFile, "")
	v.SetDefault(KeyDefaultConnection, "PROD-ES")
	v.SetDefault(KeyDefaultRangeDays, 7)
	v.SetDefault(KeyMaxRangeDays, 90)
	v.SetDefault(KeySampleSize, 1000)

	v.SetDefault(KeyListenAddr, ":8080")

	v.SetDefault(KeyArchiveBucket, "")
	v.SetDefault(KeyArchiveRegion, "")
	v.SetDefault(KeyArchiveLinkTTL, 24*time.Hour)
}

// BindEnvironment wires GATEGUARD_* environment variables into v.
func BindEnvironment(v *viper.Viper) {
	v.SetEnvPrefix("GATEGUARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
}

// DefaultPath returns the default config file location,
// ~/.config/gateguard/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", "gateguard", "config.yaml"), nil
}

// ReadFile merges the config file at path into v. An empty path means
// DefaultPath. A missing file is not an error; any other read or parse
// failure is.
func ReadFile(v *viper.Viper, path string) error {
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}
	return nil
}

// Load resolves Settings from v. Call SetDefaults first so that unset keys
// come back with their documented defaults.
func Load(v *viper.Viper) Settings {
	return Settings{
		Mongo: MongoSettings{
			URI:      v.GetString(KeyMongoURI),
			Database: v.GetString(KeyMongoDatabase),
		},
		Analysis: AnalysisSettings{
			KeywordsFile:      v.GetString(KeyKeywordsFile),
			WeightsFile:       v.GetString(KeyWeightsFile),
			DefaultConnection: v.GetString(KeyDefaultConnection),
			DefaultRangeDays:  v.GetInt(KeyDefaultRangeDays),
			MaxRangeDays:      v.GetInt(KeyMaxRangeDays),
			SampleSize:        v.GetInt(KeySampleSize),
		},
		Server: ServerSettings{
			Listen: v.GetString(KeyListenAddr),
		},
		Archive: ArchiveSettings{
			Bucket:  v.GetString(KeyArchiveBucket),
			Region:  v.GetString(KeyArchiveRegion),
			LinkTTL: v.GetDuration(KeyArchiveLinkTTL),
		},
	}
}
