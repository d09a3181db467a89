package config

import "regexp"

const DefaultFilterString = ".*"

// FilterChecks returns the checks whose names match the POSIX regular
// expression filter.
func FilterChecks(filter string, checks []CheckConfig) ([]CheckConfig, error) {
	if filter == "" || filter == DefaultFilterString {
		return checks, nil
	}
	re, err := regexp.CompilePOSIX(filter)
	if err != nil {
		return nil, err
	}
	var ret []CheckConfig
	for _, c := range checks {
		if re.MatchString(c.Name) {
			ret = append(ret, c)
		}
	}
	return ret, nil
}
