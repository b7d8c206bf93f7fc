package types

import (
	"fmt"
	"regexp"
	"strconv"
)

type OptionType string

const (
	String OptionType = "string"
	Bool   OptionType = "bool"
	Int    OptionType = "int"
)

type Option struct {
	Name        string
	Short       string
	Description string
	Default     string
	Required    bool
	Type        OptionType
	Value       string
	ValueFormat *regexp.Regexp
	ValueList   []string
	Sensitive   bool
}

// BoolValue interprets the option value as a bool. Unset or invalid values
// return false.
func (o *Option) BoolValue() bool {
	v, _ := strconv.ParseBool(o.Value)
	return v
}

// IntValue interprets the option value as an int, falling back to the
// declared default when the value is unset or invalid.
func (o *Option) IntValue() int {
	if v, err := strconv.Atoi(o.Value); err == nil {
		return v
	}
	v, _ := strconv.Atoi(o.Default)
	return v
}

func GetOptionByName(name string, options []*Option) *Option {
	for _, option := range options {
		if option.Name == name {
			return option
		}
	}

	return nil
}

// ValidateOptions checks that every required option has a value and that set
// values conform to the option's declared format or allowed list.
func ValidateOptions(options []*Option) error {
	for _, option := range options {
		if option.Required && option.Value == "" {
			return fmt.Errorf("required option %q is not set", option.Name)
		}

		if option.Value == "" {
			continue
		}

		if option.ValueFormat != nil && !option.ValueFormat.MatchString(option.Value) {
			return fmt.Errorf("option %q value %q does not match expected format", option.Name, option.Value)
		}

		if len(option.ValueList) > 0 {
			ok := false
			for _, allowed := range option.ValueList {
				if option.Value == allowed {
					ok = true
					break
				}
			}
			if !ok {
				return fmt.Errorf("option %q value %q is not one of %v", option.Name, option.Value, option.ValueList)
			}
		}
	}

	return nil
}
