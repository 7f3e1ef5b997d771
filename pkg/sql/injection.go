// Package sql flags user-supplied filter text that looks like SQL injection.
// Queries are always parameterised; detection feeds the security audit log.
package sql

import (
	"sort"

	libinjection "github.com/corazawaf/libinjection-go"
)

// InjectionCheckResult contains the result of an injection check on a parameter value.
type InjectionCheckResult struct {
	ParamName   string
	ParamValue  string
	Fingerprint string // libinjection fingerprint of the detected pattern
}

// CheckParameterForInjection runs libinjection over value. Returns nil when
// the value is clean or empty.
//
// Example:
//
//	result := CheckParameterForInjection("search", "'; DROP TABLE users--")
//	// result.Fingerprint == "s&1c" (or similar)
func CheckParameterForInjection(paramName, value string) *InjectionCheckResult {
	if value == "" {
		return nil
	}

	isSQLi, fingerprint := libinjection.IsSQLi(value)
	if !isSQLi {
		return nil
	}

	return &InjectionCheckResult{
		ParamName:   paramName,
		ParamValue:  value,
		Fingerprint: string(fingerprint),
	}
}

// CheckAllParameters checks every value and returns the suspicious ones,
// ordered by parameter name.
func CheckAllParameters(params map[string]string) []*InjectionCheckResult {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	var results []*InjectionCheckResult
	for _, name := range names {
		if result := CheckParameterForInjection(name, params[name]); result != nil {
			results = append(results, result)
		}
	}
	return results
}
