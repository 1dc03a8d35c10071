// Package notify sends SMS notifications to Indian mobile numbers.
package notify

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Sabith-07/WISE/internal/domain"
)

var indianMobile = regexp.MustCompile(`^(\+91|91)?[6-9]\d{9}$`)

// NormalizePhone validates an Indian mobile number and returns it in
// +91XXXXXXXXXX form. Spaces and dashes are ignored.
func NormalizePhone(raw string) (string, error) {
	phone := strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' {
			return -1
		}
		return r
	}, strings.TrimSpace(raw))

	if !indianMobile.MatchString(phone) {
		return "", fmt.Errorf("%w: invalid Indian mobile number format", domain.ErrProviderValidation)
	}

	digits := strings.TrimPrefix(phone, "+")
	// A bare ten digit number may itself start with 91.
	if len(digits) == 12 {
		digits = digits[2:]
	}
	return "+91" + digits, nil
}
