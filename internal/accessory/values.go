package accessory

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/nerrad567/gray-logic-hubsync/internal/device"
)

// Values arrive as decoded JSON (float64, bool, string, json.Number) or as
// raw MQTT payload text, so each conversion accepts both.

func toFloat(v any) (float64, error) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case json.Number:
		var err error
		if f, err = x.Float64(); err != nil {
			return 0, invalid(v)
		}
	case string:
		var err error
		if f, err = strconv.ParseFloat(strings.TrimSpace(x), 64); err != nil {
			return 0, invalid(v)
		}
	default:
		return 0, invalid(v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, invalid(v)
	}
	return f, nil
}

// toInt accepts whole numbers only; 50.5 percent is rejected rather than rounded.
func toInt(v any) (int, error) {
	f, err := toFloat(v)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, invalid(v)
	}
	return int(f), nil
}

func toBool(v any) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "true", "on", "1":
			return true, nil
		case "false", "off", "0":
			return false, nil
		}
	case float64:
		if x == 0 || x == 1 {
			return x == 1, nil
		}
	case int:
		if x == 0 || x == 1 {
			return x == 1, nil
		}
	}
	return false, invalid(v)
}

func toString(v any) (string, error) {
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", invalid(v)
	}
	return strings.TrimSpace(s), nil
}

func invalid(v any) error {
	return fmt.Errorf("%w: %v (%T)", device.ErrInvalidValue, v, v)
}
