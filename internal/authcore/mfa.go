package authcore

import (
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"github.com/litepg/litepg-core/internal/domain"
)

const (
	totpIssuer        = "litepg"
	challengeLifetime = 10 * time.Minute
	totpSkew          = 1 // allowed clock skew, in ±1 TOTP step
)

// generateTOTPSecret enrols a new TOTP factor, returning the provisioning
// secret to show the user once.
func generateTOTPSecret(accountName string) (*domain.MFAFactor, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      totpIssuer,
		AccountName: accountName,
	})
	if err != nil {
		return nil, domain.NewInternalError(err)
	}

	return &domain.MFAFactor{
		FactorType: domain.MFAFactorTOTP,
		Secret:     key.Secret(),
		Status:     domain.MFAFactorUnverified,
	}, nil
}

// verifyTOTPCode checks code against secret allowing a ±1 time-step skew.
func verifyTOTPCode(secret, code string) bool {
	valid, err := totp.ValidateCustom(code, secret, time.Now(), totp.ValidateOpts{
		Period: 30,
		Skew:   totpSkew,
		Digits: otp.DigitsSix,
	})
	return err == nil && valid
}

func newChallengeExpiry(now time.Time) time.Time {
	return now.Add(challengeLifetime)
}
