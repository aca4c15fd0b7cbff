package domain

const (
	minPasswordLength = 8
	maxPasswordLength = 20
)

const PasswordRuleMessage = "Password must be 8-20 characters, include at least one uppercase letter, one lowercase letter, one number, and can only contain letters and numbers."

// ValidPassword enforces the account password format: 8-20 ASCII letters and digits
// with at least one lowercase letter, one uppercase letter and one digit.
func ValidPassword(password string) bool {
	if len(password) < minPasswordLength || len(password) > maxPasswordLength {
		return false
	}

	var hasUpper, hasLower, hasDigit bool
	for i := 0; i < len(password); i++ {
		switch c := password[i]; {
		case c >= 'a' && c <= 'z':
			hasLower = true
		case c >= 'A' && c <= 'Z':
			hasUpper = true
		case c >= '0' && c <= '9':
			hasDigit = true
		default:
			return false
		}
	}
	return hasUpper && hasLower && hasDigit
}
