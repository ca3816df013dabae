package validator

import (
	"errors"
	"regexp"
)

var (
	ErrInvalidCurrency = errors.New("invalid currency code")
	ErrInvalidInterval = errors.New("invalid recurrence interval")
	ErrInvalidCode     = errors.New("invalid verification code")
)

var (
	currencyRegex = regexp.MustCompile(`^[A-Z]{3}$`)
	codeRegex     = regexp.MustCompile(`^[0-9]{6}$`)
)

func ValidateCurrency(code string) error {
	if !currencyRegex.MatchString(code) {
		return ErrInvalidCurrency
	}
	return nil
}

func ValidateVerificationCode(code string) error {
	if !codeRegex.MatchString(code) {
		return ErrInvalidCode
	}
	return nil
}

func ValidateIntervalDays(days int) error {
	if days < 1 || days > 365 {
		return ErrInvalidInterval
	}
	return nil
}
