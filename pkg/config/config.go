// Package config resolves and validates the demo's runtime configuration.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"k8s.io/apimachinery/pkg/api/resource"
)

// Defaults for everything that is not required on the command line.
const (
	DefaultNamespace   = "default"
	DefaultCPULimit    = "500m"
	DefaultMemoryLimit = "1Gi"
	DefaultWaitSeconds = 60
	DefaultLogLevel    = "info"

	// Default demo credentials. The quickstart Splunk deployments this tool
	// targets ship with them; override via WLM_DEMO_SPLUNK_USER and
	// WLM_DEMO_SPLUNK_PASSWORD for anything that is not a throwaway demo.
	DefaultSplunkUser     = "admin"
	DefaultSplunkPassword = "helloworld"

	envPrefix = "WLM_DEMO"
)

// Config carries one demo run's settings. Load populates it once; it is
// passed by value everywhere after that.
type Config struct {
	Pod       string
	Namespace string

	// CPULimit and MemoryLimit are accepted and validated for interface
	// compatibility with the original demo but are never applied to any
	// external call.
	CPULimit    string
	MemoryLimit string

	SplunkUser     string
	SplunkPassword string

	WaitSeconds      int
	LogLevel         string
	SkipClusterCheck bool
}

// Load resolves configuration with the usual precedence: built-in defaults,
// then an optional wlm-demo.yaml file, then WLM_DEMO_* environment
// variables, then command-line flags.
func Load(flags *pflag.FlagSet) (Config, error) {
	v := viper.New()

	v.SetDefault("namespace", DefaultNamespace)
	v.SetDefault("cpu-limit", DefaultCPULimit)
	v.SetDefault("memory-limit", DefaultMemoryLimit)
	v.SetDefault("splunk-user", DefaultSplunkUser)
	v.SetDefault("splunk-password", DefaultSplunkPassword)
	v.SetDefault("wait-seconds", DefaultWaitSeconds)
	v.SetDefault("log-level", DefaultLogLevel)
	v.SetDefault("skip-cluster-check", false)

	v.SetConfigName("wlm-demo")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.wlm-demo")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	// A config file is optional; anything else wrong with it is not.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if flags != nil {
		for _, key := range []string{"pod", "namespace", "cpu-limit", "memory-limit"} {
			if f := flags.Lookup(key); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, fmt.Errorf("failed to bind flag %s: %w", key, err)
				}
			}
		}
	}

	return Config{
		Pod:              v.GetString("pod"),
		Namespace:        v.GetString("namespace"),
		CPULimit:         v.GetString("cpu-limit"),
		MemoryLimit:      v.GetString("memory-limit"),
		SplunkUser:       v.GetString("splunk-user"),
		SplunkPassword:   v.GetString("splunk-password"),
		WaitSeconds:      v.GetInt("wait-seconds"),
		LogLevel:         v.GetString("log-level"),
		SkipClusterCheck: v.GetBool("skip-cluster-check"),
	}, nil
}

// Validate checks if the configuration is valid. The CPU and memory limits
// are parsed for early feedback even though the demo never applies them.
func (c Config) Validate() error {
	if c.Pod == "" {
		return fmt.Errorf("pod name is required (use --pod)")
	}
	if _, err := resource.ParseQuantity(c.CPULimit); err != nil {
		return fmt.Errorf("invalid cpu limit %q: %w", c.CPULimit, err)
	}
	if _, err := resource.ParseQuantity(c.MemoryLimit); err != nil {
		return fmt.Errorf("invalid memory limit %q: %w", c.MemoryLimit, err)
	}
	if c.WaitSeconds < 0 {
		return fmt.Errorf("wait seconds cannot be negative")
	}
	if c.SplunkUser == "" || c.SplunkPassword == "" {
		return fmt.Errorf("splunk credentials cannot be empty")
	}
	return nil
}

// Auth returns the user:password pair the splunk CLI expects.
func (c Config) Auth() string {
	return c.SplunkUser + ":" + c.SplunkPassword
}

// WaitDuration returns the fixed post-launch pause.
func (c Config) WaitDuration() time.Duration {
	return time.Duration(c.WaitSeconds) * time.Second
}
