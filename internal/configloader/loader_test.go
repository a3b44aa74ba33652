package configloader

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/anthonyraymond/joal-udptracker/internal/testutils"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nested struct {
	Port int `yaml:"port" validate:"min=1"`
}

type sampleConfig struct {
	Name   string  `yaml:"name" validate:"required"`
	Nested *nested `yaml:"nested" validate:"required"`
}

func defaultSample() *sampleConfig {
	return &sampleConfig{Name: "default", Nested: &nested{Port: 6969}}
}

func writeFile(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestParseIntoDefault_ShouldKeepDefaultsForAbsentFields(t *testing.T) {
	conf := defaultSample()
	require.NoError(t, ParseIntoDefault(writeFile(t, "nested:\n  port: 1337\n"), conf))

	assert.Equal(t, "default", conf.Name)
	assert.Equal(t, 1337, conf.Nested.Port)
}

func TestParseIntoDefault_ShouldAcceptEmptyFile(t *testing.T) {
	conf := defaultSample()
	require.NoError(t, ParseIntoDefault(writeFile(t, ""), conf))

	assert.Equal(t, defaultSample(), conf)
}

func TestParseIntoDefault_ShouldRejectUnknownFields(t *testing.T) {
	err := ParseIntoDefault(writeFile(t, "unknown: true\n"), defaultSample())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestParseIntoDefault_ShouldFailOnMissingFile(t *testing.T) {
	err := ParseIntoDefault(filepath.Join(t.TempDir(), "nope.yml"), defaultSample())

	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestSaveToFile_ShouldWriteReloadableYaml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	saved := &sampleConfig{Name: "saved", Nested: &nested{Port: 42}}
	require.NoError(t, SaveToFile(path, saved))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "name: saved\nnested:\n  port: 42\n", string(content))

	loaded := defaultSample()
	require.NoError(t, ParseIntoDefault(path, loaded))
	assert.Equal(t, saved, loaded)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name             string
		conf             *sampleConfig
		wantErr          bool
		errorDescription testutils.ErrorDescription
	}{
		{name: "shouldAcceptDefault", conf: defaultSample(), wantErr: false},
		{name: "shouldReportYamlNameOfMissingField", conf: &sampleConfig{Nested: &nested{Port: 1}}, wantErr: true, errorDescription: testutils.ErrorDescription{ErrorFieldPath: "sampleConfig.name", ErrorTag: "required"}},
		{name: "shouldReportNestedField", conf: &sampleConfig{Name: "a", Nested: &nested{}}, wantErr: true, errorDescription: testutils.ErrorDescription{ErrorFieldPath: "sampleConfig.nested.port", ErrorTag: "min"}},
		{name: "shouldFailWithNilNested", conf: &sampleConfig{Name: "a"}, wantErr: true, errorDescription: testutils.ErrorDescription{ErrorFieldPath: "sampleConfig.nested", ErrorTag: "required"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.conf)
			if tt.wantErr {
				require.Error(t, err)
				testutils.AssertValidateError(t, err.(validator.ValidationErrors), tt.errorDescription)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTagNameFunction_ShouldMatchName(t *testing.T) {
	s := struct {
		JsonName  string `json:"naming"`
		YamlName  string `yaml:"naming"`
		YamlName2 string `yaml:"naming,omitempty"`
		Ignored   string `yaml:"-"`
		Empty     string
	}{}
	// JsonName2 lives in its own struct: a repeated json tag within one struct is flagged by go vet.
	s2 := struct {
		JsonName2 string `json:"naming,omitempty"`
	}{}

	typ := reflect.TypeOf(s)
	typ2 := reflect.TypeOf(s2)
	for _, name := range []string{"JsonName", "JsonName2", "YamlName", "YamlName2"} {
		field, ok := typ.FieldByName(name)
		if !ok {
			field, _ = typ2.FieldByName(name)
		}
		assert.Equal(t, "naming", TagNameFunction(field), name)
	}
	ignored, _ := typ.FieldByName("Ignored")
	assert.Equal(t, "", TagNameFunction(ignored))
	empty, _ := typ.FieldByName("Empty")
	assert.Equal(t, "", TagNameFunction(empty))
}
