// Package validation provides input validation for group requests.
// These checks reject malformed input shape before any state is read;
// state-dependent conflicts are the engine's concern.
package validation

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/pasacoin/pasanaku-server/internal/domain"
)

const (
	maxNameLength    = 80
	maxAddressLength = 128
)

// ValidateGroupName checks that a group name is non-empty and within bounds.
func ValidateGroupName(name string) error {
	if name == "" {
		return fmt.Errorf("name must not be empty")
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("name must be at most %d characters", maxNameLength)
	}
	return nil
}

// ValidateAddress checks the shape of a participant address. Addresses are
// opaque strings issued by the identity provider; only basic sanity is
// enforced here.
func ValidateAddress(address string) error {
	if address == "" {
		return fmt.Errorf("address must not be empty")
	}
	if len(address) > maxAddressLength {
		return fmt.Errorf("address must be at most %d characters", maxAddressLength)
	}
	for _, r := range address {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return fmt.Errorf("address can only contain letters and digits")
		}
	}
	return nil
}

// ValidateContributionAmount checks that the amount is strictly positive.
func ValidateContributionAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("contribution amount must be greater than 0")
	}
	return nil
}

// ValidateCapacity checks the target participant count.
func ValidateCapacity(capacity int) error {
	if capacity < 2 || capacity > 20 {
		return fmt.Errorf("capacity must be between 2 and 20")
	}
	return nil
}

// ValidateFrequency checks the contribution cadence.
func ValidateFrequency(f domain.Frequency) error {
	switch f {
	case domain.FrequencyWeekly, domain.FrequencyBiweekly, domain.FrequencyMonthly:
		return nil
	}
	return fmt.Errorf("frequency must be weekly, biweekly, or monthly")
}

// ValidatePayoutType checks the payout-order mode.
func ValidatePayoutType(p domain.PayoutType) error {
	switch p {
	case domain.PayoutFixed, domain.PayoutRandom:
		return nil
	}
	return fmt.Errorf("payout type must be fixed or random")
}
