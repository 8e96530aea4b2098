package utils

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"golang.org/x/term"

	"github.com/picogrid/evasion-sim/pkg/simulation"
)

// EnvPrefix prefixes every parameter override variable
const EnvPrefix = "EVASION_"

// EnvSkipPrompts disables interactive prompts when set to a true value
const EnvSkipPrompts = EnvPrefix + "SKIP_PROMPTS"

// Interactive reports whether parameters may be prompted for
func Interactive() bool {
	if skip, _ := strconv.ParseBool(os.Getenv(EnvSkipPrompts)); skip {
		return false
	}
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// EnvKey returns the override variable for a parameter name
func EnvKey(name string) string {
	return EnvPrefix + strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, name)
}

// PromptForParameters resolves parameters, prompting only on a terminal
func PromptForParameters(params []simulation.Parameter) (map[string]interface{}, error) {
	return ResolveParameters(params, Interactive())
}

// ResolveParameters collects a value for every parameter. Environment
// overrides win outright when not interactive and otherwise become the
// prompt default. Optional parameters with no value are left out.
func ResolveParameters(params []simulation.Parameter, interactive bool) (map[string]interface{}, error) {
	result := make(map[string]interface{}, len(params))

	for _, param := range params {
		if envValue := os.Getenv(EnvKey(param.Name)); envValue != "" {
			parsed, err := parseValue(envValue, param)
			if err != nil {
				return nil, fmt.Errorf("invalid %s: %w", EnvKey(param.Name), err)
			}
			param.Default = parsed
		}

		if !interactive {
			if param.Default == nil {
				if param.Required {
					return nil, fmt.Errorf("required parameter %s not provided and no default available", param.Name)
				}
				continue
			}
			value, err := normalize(param.Default, param)
			if err != nil {
				return nil, fmt.Errorf("parameter %s: %w", param.Name, err)
			}
			result[param.Name] = value
			continue
		}

		value, err := promptForParameter(param)
		if err != nil {
			return nil, fmt.Errorf("failed to get %s: %w", param.Name, err)
		}
		result[param.Name] = value
	}

	return result, nil
}

func promptForParameter(param simulation.Parameter) (interface{}, error) {
	switch param.Type {
	case "integer", "float", "duration":
		return promptNumber(param)
	case "string":
		return promptString(param)
	case "boolean":
		return promptBoolean(param)
	default:
		return nil, fmt.Errorf("unsupported parameter type: %s", param.Type)
	}
}

// parseValue converts text into the parameter's type and checks its range
func parseValue(value string, param simulation.Parameter) (interface{}, error) {
	var parsed interface{}
	var err error

	switch param.Type {
	case "integer":
		parsed, err = strconv.Atoi(value)
	case "float":
		parsed, err = strconv.ParseFloat(value, 64)
	case "string":
		parsed = value
	case "boolean":
		parsed, err = strconv.ParseBool(value)
	case "duration":
		parsed, err = time.ParseDuration(value)
	default:
		return nil, fmt.Errorf("unsupported parameter type: %s", param.Type)
	}
	if err != nil {
		return nil, err
	}
	return parsed, checkRange(parsed, param)
}

// normalize coerces a YAML default into the parameter's Go type
func normalize(v interface{}, param simulation.Parameter) (interface{}, error) {
	switch param.Type {
	case "integer":
		return toInt(v), checkRange(toInt(v), param)
	case "float":
		return toFloat64(v), checkRange(toFloat64(v), param)
	case "duration":
		if d, ok := v.(time.Duration); ok {
			return d, nil
		}
		return time.ParseDuration(fmt.Sprint(v))
	case "boolean":
		if b, ok := v.(bool); ok {
			return b, nil
		}
		return strconv.ParseBool(fmt.Sprint(v))
	default:
		return fmt.Sprint(v), checkRange(fmt.Sprint(v), param)
	}
}

func checkRange(v interface{}, param simulation.Parameter) error {
	var value float64
	switch x := v.(type) {
	case int:
		value = float64(x)
	case float64:
		value = x
	case string:
		if len(param.Options) == 0 {
			return nil
		}
		for _, opt := range param.Options {
			if opt == x {
				return nil
			}
		}
		return fmt.Errorf("value must be one of %s", strings.Join(param.Options, ", "))
	default:
		return nil
	}

	if param.Min != nil && value < toFloat64(param.Min) {
		return fmt.Errorf("value must be at least %v", param.Min)
	}
	if param.Max != nil && value > toFloat64(param.Max) {
		return fmt.Errorf("value must be at most %v", param.Max)
	}
	return nil
}

func defaultString(param simulation.Parameter) string {
	if param.Default == nil {
		return ""
	}
	return fmt.Sprintf("%v", param.Default)
}

func promptNumber(param simulation.Parameter) (interface{}, error) {
	message := param.Description
	if param.Type == "duration" {
		message += " (e.g., 5m, 1h30m, 30s)"
	}

	prompt := &survey.Input{
		Message: message,
		Default: defaultString(param),
	}

	var result string
	validate := func(val interface{}) error {
		_, err := parseValue(fmt.Sprint(val), param)
		return err
	}
	if err := survey.AskOne(prompt, &result, survey.WithValidator(survey.ComposeValidators(survey.Required, validate))); err != nil {
		return nil, err
	}
	return parseValue(result, param)
}

func promptString(param simulation.Parameter) (string, error) {
	if len(param.Options) > 0 {
		return Select(param.Description, param.Options, defaultString(param))
	}
	return AskString(param.Description, defaultString(param), param.Required)
}

func promptBoolean(param simulation.Parameter) (bool, error) {
	def := false
	switch v := param.Default.(type) {
	case bool:
		def = v
	case string:
		def = v == "true" || v == "yes" || v == "1"
	}
	return Confirm(param.Description, def)
}

// AskString prompts for free text
func AskString(message, def string, required bool) (string, error) {
	var validators []survey.Validator
	if required {
		validators = append(validators, survey.Required)
	}

	var result string
	prompt := &survey.Input{Message: message, Default: def}
	if err := survey.AskOne(prompt, &result, survey.WithValidator(survey.ComposeValidators(validators...))); err != nil {
		return "", err
	}
	return strings.TrimSpace(result), nil
}

// Select prompts for one of options
func Select(message string, options []string, def string) (string, error) {
	prompt := &survey.Select{Message: message, Options: options}
	if def != "" {
		prompt.Default = def
	}

	var result string
	if err := survey.AskOne(prompt, &result); err != nil {
		return "", err
	}
	return result, nil
}

// Confirm asks a yes/no question
func Confirm(message string, def bool) (bool, error) {
	var result bool
	if err := survey.AskOne(&survey.Confirm{Message: message, Default: def}, &result); err != nil {
		return false, err
	}
	return result, nil
}

// ParseFloatList parses comma or space separated numbers
func ParseFloatList(s string) ([]float64, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' })
	values := make([]float64, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", f, err)
		}
		values = append(values, v)
	}
	return values, nil
}

func toInt(v interface{}) int {
	switch val := v.(type) {
	case int:
		return val
	case int64:
		return int(val)
	case float64:
		return int(val)
	case string:
		i, _ := strconv.Atoi(val)
		return i
	default:
		return 0
	}
}

func toFloat64(v interface{}) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case int64:
		return float64(val)
	case string:
		f, _ := strconv.ParseFloat(val, 64)
		return f
	default:
		return 0
	}
}
