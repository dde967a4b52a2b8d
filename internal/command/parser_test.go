package command

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseActions(t *testing.T) {
	cases := []struct {
		input    string
		expected string
	}{
		{"Start calling", ActionStartCalling},
		{"please start dialing now", ActionStartCalling},
		{"call all numbers", ActionStartCalling},
		{"Call 9876543210", ActionMakeCall},
		{"dial +91 9876543210", ActionMakeCall},
		{"phone 919876543210", ActionMakeCall},
		{"show today's logs", ActionShowTodayLogs},
		{"how many calls were made today", ActionShowTodayLogs},
		{"show logs", ActionShowLogs},
		{"display the call history", ActionShowLogs},
		{"statistics", ActionShowStatistics},
		{"give me a summary", ActionShowStatistics},
		{"stop calling", ActionStopCalling},
		{"pause dialing", ActionStopCalling},
		{"clear logs", ActionClearLogs},
		{"help", ActionHelp},
		{"what can you do", ActionHelp},
		{"make me a sandwich", ActionUnknown},
		{"", ActionUnknown},
	}

	for _, tc := range cases {
		action, _ := Parse(tc.input)
		require.Equal(t, tc.expected, action, "input %q", tc.input)
	}
}

func TestParseExtractsPhoneNumber(t *testing.T) {
	cases := []struct {
		input    string
		expected string
	}{
		{"call 9876543210", "9876543210"},
		{"Call +91 9876543210", "9876543210"},
		{"dial 919876543210", "9876543210"},
		{"phone 1800 1234567", "18001234567"},
	}

	for _, tc := range cases {
		action, parameters := Parse(tc.input)
		require.Equal(t, ActionMakeCall, action, "input %q", tc.input)
		require.Equal(t, tc.expected, parameters["phone_number"], "input %q", tc.input)
	}
}

func TestParseTodayBeatsGenericLogs(t *testing.T) {
	// Both pattern groups match; the more specific today variant wins.
	action, _ := Parse("show today's call logs")
	require.Equal(t, ActionShowTodayLogs, action)
}

func TestParseNonCallActionsHaveNoParameters(t *testing.T) {
	action, parameters := Parse("show logs")
	require.Equal(t, ActionShowLogs, action)
	require.Empty(t, parameters)
}
