package authz

import (
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// Config captures the inputs necessary to initialize the Casbin enforcer.
// Empty paths select the embedded defaults.
type Config struct {
	ModelPath  string
	PolicyPath string
	Logger     *logrus.Logger
}

func (c Config) validate() error {
	if c.ModelPath != "" && c.PolicyPath == "" {
		return configError("custom model %q requires a policy path", c.ModelPath)
	}
	return nil
}

func (c Config) normalized() Config {
	if c.ModelPath != "" {
		c.ModelPath = filepath.Clean(c.ModelPath)
	}
	if c.PolicyPath != "" {
		c.PolicyPath = filepath.Clean(c.PolicyPath)
	}
	return c
}
