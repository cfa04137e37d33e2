package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

type PropertyType string

const (
	PropertyTypeInteger PropertyType = "IntegerField"
	PropertyTypeFloat   PropertyType = "FloatField"
	PropertyTypeBoolean PropertyType = "BooleanField"
	PropertyTypeText    PropertyType = "TextField"
	PropertyTypeDate    PropertyType = "DateField"
)

var SupportedPropertyTypes = []PropertyType{
	PropertyTypeInteger,
	PropertyTypeFloat,
	PropertyTypeBoolean,
	PropertyTypeText,
	PropertyTypeDate,
}

func ParsePropertyType(s string) (PropertyType, error) {
	for _, t := range SupportedPropertyTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedPropertyType, s)
}

// Serialize converts a typed value into its stored text form. nil clears the
// value and is stored as the empty string for every type.
func (t PropertyType) Serialize(v any) (string, error) {
	if v == nil {
		if _, err := ParsePropertyType(string(t)); err != nil {
			return "", err
		}
		return "", nil
	}

	switch t {
	case PropertyTypeInteger:
		n, err := toInt64(v)
		if err != nil {
			return "", invalidValue(t, v, err)
		}
		return strconv.FormatInt(n, 10), nil

	case PropertyTypeFloat:
		f, err := toFloat64(v)
		if err != nil {
			return "", invalidValue(t, v, err)
		}
		return strconv.FormatFloat(f, 'f', -1, 64), nil

	case PropertyTypeBoolean:
		switch b := v.(type) {
		case bool:
			return formatBool(b), nil
		case string:
			parsed, err := parseBool(b)
			if err != nil {
				return "", invalidValue(t, v, err)
			}
			return formatBool(parsed), nil
		}
		return "", invalidValue(t, v, nil)

	case PropertyTypeText:
		s, ok := v.(string)
		if !ok {
			return "", invalidValue(t, v, nil)
		}
		return s, nil

	case PropertyTypeDate:
		switch d := v.(type) {
		case Date:
			return d.String(), nil
		case time.Time:
			return d.Format(DateLayout), nil
		case string:
			parsed, err := ParseDate(d)
			if err != nil {
				return "", invalidValue(t, v, err)
			}
			return parsed.String(), nil
		}
		return "", invalidValue(t, v, nil)
	}

	return "", fmt.Errorf("%w: %q", ErrUnsupportedPropertyType, string(t))
}

// Deserialize converts stored text back into a typed value. An empty string
// means the value was never set and yields nil.
func (t PropertyType) Deserialize(s string) (any, error) {
	if s == "" {
		if _, err := ParsePropertyType(string(t)); err != nil {
			return nil, err
		}
		return nil, nil
	}

	switch t {
	case PropertyTypeInteger:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, invalidValue(t, s, err)
		}
		return n, nil
	case PropertyTypeFloat:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, invalidValue(t, s, err)
		}
		return f, nil
	case PropertyTypeBoolean:
		b, err := parseBool(s)
		if err != nil {
			return nil, invalidValue(t, s, err)
		}
		return b, nil
	case PropertyTypeText:
		return s, nil
	case PropertyTypeDate:
		d, err := ParseDate(s)
		if err != nil {
			return nil, invalidValue(t, s, err)
		}
		return d, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnsupportedPropertyType, string(t))
}

func invalidValue(t PropertyType, v any, cause error) error {
	if cause != nil {
		return fmt.Errorf("%w for %s: %v (%v)", ErrInvalidPropertyValue, t, v, cause)
	}
	return fmt.Errorf("%w for %s: %v", ErrInvalidPropertyValue, t, v)
}

func formatBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

func parseBool(s string) (bool, error) {
	switch s {
	case "True":
		return true, nil
	case "False":
		return false, nil
	}
	return strconv.ParseBool(strings.ToLower(s))
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) || math.IsNaN(n) {
			return 0, fmt.Errorf("not an integer")
		}
		return int64(n), nil
	case json.Number:
		return n.Int64()
	case string:
		return strconv.ParseInt(n, 10, 64)
	}
	return 0, fmt.Errorf("unexpected %T", v)
}

func toFloat64(v any) (float64, error) {
	switch n := v.(type) {
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case float64:
		return n, nil
	case json.Number:
		return n.Float64()
	case string:
		return strconv.ParseFloat(n, 64)
	}
	return 0, fmt.Errorf("unexpected %T", v)
}

// ItemCategoryProperty is a typed attribute defined on a category and
// inherited by every category below it.
type ItemCategoryProperty struct {
	ID           int64        `json:"id"`
	Name         string       `json:"name"`
	PropertyType PropertyType `json:"property_type"`
	CategoryID   int64        `json:"category_id"`
}

type ItemPropertyValue struct {
	ID       int64                `json:"id"`
	ItemID   int64                `json:"item_id"`
	Property ItemCategoryProperty `json:"property"`
	Value    string               `json:"value"`
}

// Typed returns the deserialized value.
func (v *ItemPropertyValue) Typed() (any, error) {
	return v.Property.PropertyType.Deserialize(v.Value)
}

// Set stores typed after serializing it with the property type.
func (v *ItemPropertyValue) Set(typed any) error {
	s, err := v.Property.PropertyType.Serialize(typed)
	if err != nil {
		return err
	}
	v.Value = s
	return nil
}
