package cfg

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Accounts map[string]Account `yaml:"accounts"`
}

// Account is one local mail store: who owns it and where it lives on disk.
type Account struct {
	Email     string `yaml:"email"`
	DataDir   string `yaml:"dataDir"`
	SchemaDir string `yaml:"schemaDir"`
}

// LoadFromFile loads the configuration from the file
func LoadFromFile(fileName string) (*Config, error) {
	file, err := os.Open(fileName)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return loadConfig(file)
}

func loadConfig(reader io.Reader) (*Config, error) {
	config := &Config{}
	decoder := yaml.NewDecoder(reader)
	err := decoder.Decode(config)
	if err != nil {
		return nil, fmt.Errorf("cannot parse configuration: %w", err)
	}
	return config, nil
}
