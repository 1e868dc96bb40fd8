package settings

import (
	"encoding"
	"encoding/json"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

var (
	textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()
	durationType        = reflect.TypeOf(time.Duration(0))
)

// populate walks the exported fields of s and assigns each one from its variable or its
// default. Fields tagged env:"-" are skipped.
func populate(s *Settings, prefix string, lookup LookupFunc) error {
	val := reflect.ValueOf(s).Elem()
	typ := val.Type()

	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		tag, ok := field.Tag.Lookup("env")
		if !ok || tag == "-" {
			continue
		}

		name, unprefixed := parseTag(tag)
		variable := VariableName(prefix, name)
		if unprefixed {
			variable = name
		}

		raw, present := lookup(variable)
		if !present {
			def, hasDefault := field.Tag.Lookup("default")
			if !hasDefault {
				continue
			}
			if err := assign(val.Field(i), def); err != nil {
				// defaults are compiled in, a failure here is a programming error
				panic(errors.Wrapf(err, "invalid default for %s", variable))
			}
			continue
		}

		if err := assign(val.Field(i), strings.TrimSpace(raw)); err != nil {
			return &ConfigError{Variable: variable, Value: raw, Err: err}
		}
	}
	return nil
}

func parseTag(tag string) (name string, unprefixed bool) {
	parts := strings.Split(tag, ",")
	for _, opt := range parts[1:] {
		if opt == "unprefixed" {
			unprefixed = true
		}
	}
	return parts[0], unprefixed
}

// assign parses raw according to the kind of target and stores the result.
func assign(target reflect.Value, raw string) error {
	if target.CanAddr() && target.Addr().Type().Implements(textUnmarshalerType) {
		return target.Addr().Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(raw))
	}

	if target.Type() == durationType {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return errors.Errorf("expected a duration such as 30s or 1m")
		}
		target.SetInt(int64(d))
		return nil
	}

	switch target.Kind() {
	case reflect.Ptr:
		ptr := reflect.New(target.Type().Elem())
		if err := assign(ptr.Elem(), raw); err != nil {
			return err
		}
		target.Set(ptr)
	case reflect.String:
		target.SetString(raw)
	case reflect.Bool:
		b, err := parseBool(raw)
		if err != nil {
			return err
		}
		target.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, target.Type().Bits())
		if err != nil {
			return errors.Errorf("expected an integer")
		}
		target.SetInt(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(raw, target.Type().Bits())
		if err != nil {
			return errors.Errorf("expected a number")
		}
		target.SetFloat(f)
	case reflect.Slice:
		if target.Type().Elem().Kind() != reflect.String {
			return errors.Errorf("unsupported slice type %s", target.Type())
		}
		items, err := parseList(raw)
		if err != nil {
			return err
		}
		target.Set(reflect.ValueOf(items))
	default:
		return errors.Errorf("unsupported field type %s", target.Type())
	}
	return nil
}

func parseBool(raw string) (bool, error) {
	switch strings.ToLower(raw) {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, errors.Errorf("expected a boolean")
	}
}

// parseList accepts either a JSON array of strings or a comma separated list.
// Blank entries of a comma separated list are dropped.
func parseList(raw string) ([]string, error) {
	if strings.HasPrefix(raw, "[") {
		var items []string
		if err := json.Unmarshal([]byte(raw), &items); err != nil {
			return nil, errors.Errorf("expected a JSON array of strings")
		}
		return items, nil
	}

	items := []string{}
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items, nil
}
