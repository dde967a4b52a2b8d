package settings

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTypedValue(t *testing.T) {
	cases := []struct {
		dataType string
		value    string
		expected any
	}{
		{TypeString, "hello", "hello"},
		{TypeInteger, "42", 42},
		{TypeInteger, "garbage", 0},
		{TypeBoolean, "true", true},
		{TypeBoolean, "false", false},
		{TypeBoolean, "yes", false},
		{TypeFloat, "0.02", 0.02},
		{TypeFloat, "garbage", 0.0},
		{TypeJSON, `{"a":"b"}`, map[string]any{"a": "b"}},
		{TypeJSON, "not json", map[string]any{}},
		{"unknown", "raw", "raw"},
	}

	for _, tc := range cases {
		setting := &SystemSetting{DataType: tc.dataType, Value: tc.value}
		require.Equal(t, tc.expected, setting.TypedValue(),
			"type %s value %q", tc.dataType, tc.value)
	}
}

func TestEncode(t *testing.T) {
	cases := []struct {
		value        any
		expected     string
		expectedType string
	}{
		{true, "true", TypeBoolean},
		{false, "false", TypeBoolean},
		{42, "42", TypeInteger},
		{int64(42), "42", TypeInteger},
		{0.02, "0.02", TypeFloat},
		{"hello", "hello", TypeString},
	}

	for _, tc := range cases {
		encoded, dataType, err := encode(tc.value)
		require.NoError(t, err)
		require.Equal(t, tc.expected, encoded)
		require.Equal(t, tc.expectedType, dataType)
	}
}

func TestEncodeFallsBackToJSON(t *testing.T) {
	encoded, dataType, err := encode(map[string]string{"a": "b"})
	require.NoError(t, err)
	require.Equal(t, TypeJSON, dataType)
	require.JSONEq(t, `{"a":"b"}`, encoded)
}

func TestEncodeRoundTripsThroughTypedValue(t *testing.T) {
	for _, value := range []any{true, 42, 0.02, "hello"} {
		encoded, dataType, err := encode(value)
		require.NoError(t, err)

		setting := &SystemSetting{Value: encoded, DataType: dataType}
		require.Equal(t, value, setting.TypedValue())
	}
}
