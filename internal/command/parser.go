package command

import (
	"regexp"
	"strings"
)

const (
	ActionStartCalling   = "start_calling"
	ActionMakeCall       = "make_call"
	ActionShowTodayLogs  = "show_today_logs"
	ActionShowLogs       = "show_logs"
	ActionShowStatistics = "show_statistics"
	ActionStopCalling    = "stop_calling"
	ActionClearLogs      = "clear_logs"
	ActionHelp           = "help"
	ActionUnknown        = "unknown"
)

var makeCallPattern = regexp.MustCompile(
	`(?i)(?:call|dial|phone)\s+(\+?91)?[\s-]?(\d{10}|\d{4}[\s-]?\d{6,7})`,
)

var nonDigits = regexp.MustCompile(`\D`)

// actionPatterns are tried in order; the first match wins, so the more
// specific today-variant sits before the generic log patterns.
var actionPatterns = []struct {
	action   string
	patterns []*regexp.Regexp
}{
	{ActionStartCalling, compileAll(
		`start calling`,
		`begin calls`,
		`start dialing`,
		`call all numbers`,
		`start autodialer`,
	)},
	{ActionMakeCall, []*regexp.Regexp{makeCallPattern}},
	{ActionShowTodayLogs, compileAll(
		`today.*logs?`,
		`todays.*calls`,
		`calls.*today`,
		`today.*history`,
	)},
	{ActionShowLogs, compileAll(
		`show.*logs?`,
		`display.*logs?`,
		`call.*history`,
		`show.*calls`,
		`view.*logs?`,
	)},
	{ActionShowStatistics, compileAll(
		`statistics`,
		`stats`,
		`summary`,
		`report`,
		`analytics`,
	)},
	{ActionStopCalling, compileAll(
		`stop calling`,
		`halt calls`,
		`pause dialing`,
		`stop autodialer`,
	)},
	{ActionClearLogs, compileAll(
		`clear logs`,
		`delete logs`,
		`remove logs`,
		`clean logs`,
	)},
	{ActionHelp, compileAll(
		`help`,
		`commands`,
		`what can you do`,
		`instructions`,
	)},
}

func compileAll(patterns ...string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, pattern := range patterns {
		compiled = append(compiled, regexp.MustCompile(`(?i)`+pattern))
	}

	return compiled
}

// Parse maps free-form input to an action and its parameters. A dial
// request carries the bare digits of the requested number.
func Parse(input string) (string, map[string]string) {
	text := strings.TrimSpace(input)

	for _, candidate := range actionPatterns {
		for _, pattern := range candidate.patterns {
			match := pattern.FindStringSubmatch(text)
			if match == nil {
				continue
			}

			return candidate.action, extractParameters(candidate.action, match)
		}
	}

	return ActionUnknown, map[string]string{}
}

func extractParameters(action string, match []string) map[string]string {
	if action != ActionMakeCall {
		return map[string]string{}
	}

	number := match[len(match)-1]

	return map[string]string{
		"phone_number": nonDigits.ReplaceAllString(number, ""),
	}
}
