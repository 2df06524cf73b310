package value

import (
	"strconv"
	"strings"
	"time"

	"github.com/joshuapare/xmlstore/pkg/types"
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02T15:04:05.000Z07:00"
)

var (
	dateLayouts = []string{
		"2006-01-02Z07:00",
		dateLayout,
	}
	dateTimeLayouts = []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05.999999999",
	}
)

// ParseType resolves a type name such as "integer" or "xs:dateTime".
func ParseType(name string) (Type, error) {
	switch strings.ToLower(strings.TrimPrefix(name, "xs:")) {
	case "string":
		return TypeString, nil
	case "datetime":
		return TypeDateTime, nil
	case "date":
		return TypeDate, nil
	case "integer", "int", "long":
		return TypeInteger, nil
	case "double":
		return TypeDouble, nil
	case "float":
		return TypeFloat, nil
	case "boolean", "bool":
		return TypeBoolean, nil
	default:
		return TypeInvalid, types.Unsupportedf("value: unknown type %q", name)
	}
}

// Parse builds a value of type t from its lexical form. Date-times without a
// zone are taken as UTC.
func Parse(t Type, lit string) (Value, error) {
	switch t {
	case TypeString:
		return String(lit), nil
	case TypeInteger:
		i, err := strconv.ParseInt(strings.TrimSpace(lit), 10, 64)
		if err != nil {
			return Value{}, types.Encodingf("value: integer %q: %w", lit, err)
		}
		return Integer(i), nil
	case TypeDouble:
		f, err := strconv.ParseFloat(strings.TrimSpace(lit), 64)
		if err != nil {
			return Value{}, types.Encodingf("value: double %q: %w", lit, err)
		}
		return Double(f), nil
	case TypeFloat:
		f, err := strconv.ParseFloat(strings.TrimSpace(lit), 32)
		if err != nil {
			return Value{}, types.Encodingf("value: float %q: %w", lit, err)
		}
		return Float(float32(f)), nil
	case TypeBoolean:
		switch strings.TrimSpace(lit) {
		case "true", "1":
			return Boolean(true), nil
		case "false", "0":
			return Boolean(false), nil
		}
		return Value{}, types.Encodingf("value: boolean %q", lit)
	case TypeDate:
		tm, err := parseTime(lit, dateLayouts)
		if err != nil {
			return Value{}, types.Encodingf("value: date %q: %w", lit, err)
		}
		return Date(tm), nil
	case TypeDateTime:
		tm, err := parseTime(lit, dateTimeLayouts)
		if err != nil {
			return Value{}, types.Encodingf("value: dateTime %q: %w", lit, err)
		}
		return DateTime(tm), nil
	default:
		return Value{}, types.Unsupportedf("value: type %s", t)
	}
}

func parseTime(lit string, layouts []string) (time.Time, error) {
	lit = strings.TrimSpace(lit)
	var firstErr error
	for _, layout := range layouts {
		tm, err := time.ParseInLocation(layout, lit, time.UTC)
		if err == nil {
			return tm, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}
