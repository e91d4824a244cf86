package exports

import (
	"fmt"
	"strings"
)

// ReportPath composes reports/<session>/<report id>/<file name>.
func ReportPath(session, reportID, fileName string) (string, error) {
	session, err := validateSegment("session", session)
	if err != nil {
		return "", err
	}
	reportID, err = validateSegment("reportID", reportID)
	if err != nil {
		return "", err
	}
	fileName, err = validateSegment("fileName", fileName)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("reports/%s/%s/%s", session, reportID, fileName), nil
}

func validateSegment(name, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("exports: %s is required", name)
	}
	if strings.ContainsAny(value, "/\\") {
		return "", fmt.Errorf("exports: %s contains invalid path characters", name)
	}
	if strings.Contains(value, "..") {
		return "", fmt.Errorf("exports: %s contains invalid traversal sequence", name)
	}
	return value, nil
}
