package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"seqlib/lists"
)

type S3Config struct {
	Bucket   string `yaml:"bucket"`
	Region   string `yaml:"region"`
	Prefix   string `yaml:"prefix"`
	Endpoint string `yaml:"endpoint"`
}

type Config struct {
	AmqpUrl               string   `yaml:"AMQP_SERVER_URL"`
	QueueName             string   `yaml:"queueName"`
	LogFilePath           string   `yaml:"logFile"`
	LogLevel              string   `yaml:"logLevel"`
	ClientsInputPath      string   `yaml:"clientsInputPath"`
	ServerWaitTimeSeconds int64    `yaml:"serverWaitTimeSeconds"`
	DefaultKind           string   `yaml:"defaultKind"`
	TableCapacity         int      `yaml:"tableCapacity"`
	S3                    S3Config `yaml:"s3"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	// Substitute from environemental vars
	confContent := []byte(os.ExpandEnv(string(data)))

	config := &Config{}

	err = yaml.Unmarshal(confContent, config)
	if err != nil {
		return nil, err
	}

	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) applyDefaults() {
	if c.QueueName == "" {
		c.QueueName = "seqlib.operations"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.DefaultKind == "" {
		c.DefaultKind = lists.KindDouble.String()
	}
	if c.TableCapacity == 0 {
		c.TableCapacity = 64
	}
	if c.ServerWaitTimeSeconds == 0 {
		c.ServerWaitTimeSeconds = 10
	}
	if c.S3.Prefix == "" {
		c.S3.Prefix = "snapshots"
	}
}

func (c *Config) Validate() error {
	if c.AmqpUrl == "" {
		return fmt.Errorf("config: AMQP_SERVER_URL is required")
	}
	if _, err := lists.ParseKind(c.DefaultKind); err != nil {
		return fmt.Errorf("config: defaultKind: %w", err)
	}
	if c.TableCapacity < 1 {
		return fmt.Errorf("config: tableCapacity must be positive, got %d", c.TableCapacity)
	}
	if c.S3.Bucket != "" && c.S3.Region == "" {
		return fmt.Errorf("config: s3.region is required when s3.bucket is set")
	}
	return nil
}

// Kind returns the parsed default list kind. Validate has already accepted it.
func (c *Config) Kind() lists.Kind {
	kind, _ := lists.ParseKind(c.DefaultKind)
	return kind
}
