package configloader

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ParseIntoDefault decodes the yaml file over defaultValue, fields absent from the file keep their default.
// Unknown fields are an error, an empty file is not.
func ParseIntoDefault(configFilePath string, defaultValue interface{}) error {
	f, err := os.Open(configFilePath)
	if err != nil {
		return errors.Wrapf(err, "failed to open config file '%s'", configFilePath)
	}
	defer func() { _ = f.Close() }()

	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)
	err = decoder.Decode(defaultValue)
	if err != nil && err != io.EOF {
		return errors.Wrapf(err, "failed to parse config file '%s'", configFilePath)
	}
	return nil
}

func SaveToFile(configFilePath string, newConf interface{}) error {
	f, err := os.OpenFile(configFilePath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return errors.Wrapf(err, "failed to create config file '%s'", configFilePath)
	}
	defer func() { _ = f.Close() }()

	encoder := yaml.NewEncoder(f)
	encoder.SetIndent(2)
	if err = encoder.Encode(newConf); err != nil {
		return errors.Wrapf(err, "failed to write to config file '%s'", configFilePath)
	}
	return errors.Wrapf(encoder.Close(), "failed to flush config file '%s'", configFilePath)
}
