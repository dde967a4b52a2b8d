package settings

import (
	"errors"
	"strconv"
	"time"

	"github.com/goccy/go-json"
)

var ErrNotFound = errors.New("setting not found")

type SystemSetting struct {
	ID          uint      `gorm:"column:id;primaryKey"          json:"id"`
	Key         string    `gorm:"column:key;uniqueIndex"        json:"key"`
	Value       string    `gorm:"column:value"                  json:"value"`
	DataType    string    `gorm:"column:data_type"              json:"data_type"`
	Description string    `gorm:"column:description"            json:"description,omitempty"`
	Editable    bool      `gorm:"column:editable;default:true"  json:"editable"`
	CreatedAt   time.Time `gorm:"column:created_at"             json:"created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at"             json:"updated_at"`
}

func (SystemSetting) TableName() string {
	return "system_settings"
}

const (
	TypeString  = "string"
	TypeInteger = "integer"
	TypeBoolean = "boolean"
	TypeFloat   = "float"
	TypeJSON    = "json"
)

const (
	KeySimulationMode    = "simulation_mode"
	KeyCallDelaySeconds  = "call_delay_seconds"
	KeyDefaultFromNumber = "default_from_number"
	KeyRatePerMinute     = "rate_per_minute"
	KeyMaxPhoneNumbers   = "max_phone_numbers"
	KeyDailyCallLimit    = "daily_call_limit"
)

// TypedValue decodes the stored string according to the declared type.
// Malformed values decode to the type's zero value rather than erroring;
// settings are operator-edited and must never break reads.
func (setting *SystemSetting) TypedValue() any {
	switch setting.DataType {
	case TypeInteger:
		value, _ := strconv.Atoi(setting.Value)
		return value
	case TypeBoolean:
		return setting.Value == "true"
	case TypeFloat:
		value, _ := strconv.ParseFloat(setting.Value, 64)
		return value
	case TypeJSON:
		var value map[string]any

		err := json.Unmarshal([]byte(setting.Value), &value)
		if err != nil {
			return map[string]any{}
		}

		return value
	default:
		return setting.Value
	}
}

// encode renders a Go value into the stored string plus its type tag.
func encode(value any) (string, string, error) {
	switch typed := value.(type) {
	case bool:
		return strconv.FormatBool(typed), TypeBoolean, nil
	case int:
		return strconv.Itoa(typed), TypeInteger, nil
	case int64:
		return strconv.FormatInt(typed, 10), TypeInteger, nil
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64), TypeFloat, nil
	case string:
		return typed, TypeString, nil
	default:
		raw, err := json.Marshal(typed)
		if err != nil {
			return "", "", err
		}

		return string(raw), TypeJSON, nil
	}
}
