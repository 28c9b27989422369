package config

import (
	stderrors "errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
)

// envField is a config field bound to an environment variable.
type envField struct {
	name  string
	value reflect.Value
}

// LoadFromEnv overrides cfg with the environment variables named by the
// `env` tags of its fields. Unset and empty variables are skipped. Every
// unparsable value is reported, not only the first.
func LoadFromEnv(cfg *Config) error {
	if cfg == nil {
		return nil
	}

	var errs []error
	for _, f := range envFields(reflect.ValueOf(cfg).Elem()) {
		raw, ok := os.LookupEnv(f.name)
		if !ok || raw == "" {
			continue
		}
		if err := setFromString(f.value, raw); err != nil {
			errs = append(errs, fmt.Errorf("%s=%q: %w", f.name, raw, err))
		}
	}
	return stderrors.Join(errs...)
}

// EnvVars lists the environment variables the configuration understands.
func EnvVars() []string {
	fields := envFields(reflect.ValueOf(DefaultConfig()).Elem())
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.name
	}
	return names
}

// envFields walks nested structs in field order.
func envFields(v reflect.Value) []envField {
	var out []envField
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		switch {
		case !field.CanSet():
		case field.Kind() == reflect.Struct:
			out = append(out, envFields(field)...)
		case t.Field(i).Tag.Get("env") != "":
			out = append(out, envField{name: t.Field(i).Tag.Get("env"), value: field})
		}
	}
	return out
}

func setFromString(field reflect.Value, raw string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)
	case reflect.Int, reflect.Int64:
		n, err := strconv.ParseInt(raw, 0, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetInt(n)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		field.SetBool(b)
	default:
		return fmt.Errorf("unsupported field kind %s", field.Kind())
	}
	return nil
}
