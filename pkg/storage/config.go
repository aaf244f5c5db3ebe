package storage

import (
	"fmt"

	"github.com/JaimeStill/docket/pkg/envvar"
	"github.com/JaimeStill/docket/pkg/formatting"
)

// Provider names a blob storage backend.
type Provider string

const (
	// ProviderAzure stores blobs in Azure Blob Storage.
	ProviderAzure Provider = "azure"
	// ProviderMinio stores blobs in an S3-compatible service through minio-go.
	ProviderMinio Provider = "minio"
)

// Config holds blob storage connection parameters for either provider.
// Azure authenticates with ConnectionString when set, otherwise with
// AccountURL and the default Azure credential chain.
type Config struct {
	Provider         Provider `toml:"provider"`
	ContainerName    string   `toml:"container_name"`
	ConnectionString string   `toml:"connection_string"`
	AccountURL       string   `toml:"account_url"`
	Endpoint         string   `toml:"endpoint"`
	AccessKey        string   `toml:"access_key"`
	SecretKey        string   `toml:"secret_key"`
	Region           string   `toml:"region"`
	UseSSL           bool     `toml:"use_ssl"`
	MaxUploadSize    string   `toml:"max_upload_size"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Provider         string
	ContainerName    string
	ConnectionString string
	AccountURL       string
	Endpoint         string
	AccessKey        string
	SecretKey        string
	Region           string
	UseSSL           string
	MaxUploadSize    string
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// MaxUploadBytes returns MaxUploadSize parsed as a byte count.
func (c *Config) MaxUploadBytes() int64 {
	n, _ := formatting.ParseBytes(c.MaxUploadSize)
	return n
}

// Merge overwrites non-zero fields from overlay. UseSSL always applies.
func (c *Config) Merge(overlay *Config) {
	if overlay.Provider != "" {
		c.Provider = overlay.Provider
	}
	if overlay.ContainerName != "" {
		c.ContainerName = overlay.ContainerName
	}
	if overlay.ConnectionString != "" {
		c.ConnectionString = overlay.ConnectionString
	}
	if overlay.AccountURL != "" {
		c.AccountURL = overlay.AccountURL
	}
	if overlay.Endpoint != "" {
		c.Endpoint = overlay.Endpoint
	}
	if overlay.AccessKey != "" {
		c.AccessKey = overlay.AccessKey
	}
	if overlay.SecretKey != "" {
		c.SecretKey = overlay.SecretKey
	}
	if overlay.Region != "" {
		c.Region = overlay.Region
	}
	if overlay.MaxUploadSize != "" {
		c.MaxUploadSize = overlay.MaxUploadSize
	}
	c.UseSSL = overlay.UseSSL
}

func (c *Config) loadDefaults() {
	if c.Provider == "" {
		c.Provider = ProviderAzure
	}
	if c.ContainerName == "" {
		c.ContainerName = "documents"
	}
	if c.MaxUploadSize == "" {
		c.MaxUploadSize = "50MB"
	}
}

func (c *Config) loadEnv(env *Env) {
	provider := string(c.Provider)
	envvar.String(&provider, env.Provider)
	c.Provider = Provider(provider)

	envvar.String(&c.ContainerName, env.ContainerName)
	envvar.String(&c.ConnectionString, env.ConnectionString)
	envvar.String(&c.AccountURL, env.AccountURL)
	envvar.String(&c.Endpoint, env.Endpoint)
	envvar.String(&c.AccessKey, env.AccessKey)
	envvar.String(&c.SecretKey, env.SecretKey)
	envvar.String(&c.Region, env.Region)
	envvar.Bool(&c.UseSSL, env.UseSSL)
	envvar.String(&c.MaxUploadSize, env.MaxUploadSize)
}

func (c *Config) validate() error {
	if c.ContainerName == "" {
		return fmt.Errorf("container_name required")
	}
	if _, err := formatting.ParseBytes(c.MaxUploadSize); err != nil {
		return fmt.Errorf("invalid max_upload_size: %w", err)
	}

	switch c.Provider {
	case ProviderAzure:
		if c.ConnectionString == "" && c.AccountURL == "" {
			return fmt.Errorf("azure storage requires connection_string or account_url")
		}
	case ProviderMinio:
		if c.Endpoint == "" {
			return fmt.Errorf("minio storage requires endpoint")
		}
		if c.AccessKey == "" || c.SecretKey == "" {
			return fmt.Errorf("minio storage requires access_key and secret_key")
		}
	default:
		return fmt.Errorf("unknown storage provider %q", c.Provider)
	}
	return nil
}
