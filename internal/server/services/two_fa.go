package services

import (
	"context"
	"time"

	"github.com/bloomlabs/bloom/internal/common"
	"github.com/bloomlabs/bloom/internal/cryptox"
	"github.com/bloomlabs/bloom/internal/server/models"
	"github.com/pquerna/otp/totp"
	qrcode "github.com/skip2/go-qrcode"
)

const totpIssuer = "Bloom"

// SetupTwoFa generates a TOTP secret for the caller and returns the
// provisioning QR code as a PNG. The secret is AES-GCM encrypted at rest,
// bound to the user id, and 2FA stays disabled until CompleteTwoFaSetup
// proves the authenticator works.
func (s *UserService) SetupTwoFa(ctx context.Context, actor Actor) ([]byte, error) {
	user, err := actor.CurrentUser()
	if err != nil {
		return nil, err
	}
	if user.TwoFaEnabled {
		return nil, common.ErrTwoFaAlreadyEnabled
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      totpIssuer,
		AccountName: user.Email,
	})
	if err != nil {
		return nil, err
	}

	encryptedSecret, nonce, err := cryptox.Encrypt([]byte(key.Secret()), s.masterKey, user.ID[:])
	if err != nil {
		return nil, err
	}

	user.EncryptedTotpSecret = encryptedSecret
	user.TotpSecretNonce = nonce
	user.UpdatedAt = time.Now().UTC()
	if err := s.repos.Users(s.db).Update(ctx, user); err != nil {
		return nil, err
	}

	return qrcode.Encode(key.String(), qrcode.Medium, 256)
}

// CompleteTwoFaSetup verifies a first code from the authenticator and turns
// two-factor authentication on.
func (s *UserService) CompleteTwoFaSetup(ctx context.Context, actor Actor, code string) error {
	user, err := actor.CurrentUser()
	if err != nil {
		return err
	}
	if user.TwoFaEnabled {
		return common.ErrTwoFaAlreadyEnabled
	}
	if len(user.EncryptedTotpSecret) == 0 {
		return common.ErrPermissionDenied
	}

	ok, err := s.validateTotpCode(user, code)
	if err != nil {
		return err
	}
	if !ok {
		return common.ErrInvalidCode
	}

	method := models.TwoFaMethodTotp
	user.TwoFaEnabled = true
	user.TwoFaMethod = &method
	user.UpdatedAt = time.Now().UTC()
	return s.repos.Users(s.db).Update(ctx, user)
}

// DisableTwoFa turns two-factor authentication off after a final code check
// and wipes the stored secret.
func (s *UserService) DisableTwoFa(ctx context.Context, actor Actor, code string) error {
	user, err := actor.CurrentUser()
	if err != nil {
		return err
	}
	if !user.TwoFaEnabled {
		return common.ErrTwoFaNotEnabled
	}

	ok, err := s.validateTotpCode(user, code)
	if err != nil {
		return err
	}
	if !ok {
		return common.ErrInvalidCode
	}

	user.TwoFaEnabled = false
	user.TwoFaMethod = nil
	user.EncryptedTotpSecret = nil
	user.TotpSecretNonce = nil
	user.UpdatedAt = time.Now().UTC()
	return s.repos.Users(s.db).Update(ctx, user)
}

// validateTotpCode decrypts the stored secret and checks the code against
// the current time step.
func (s *UserService) validateTotpCode(user *models.User, code string) (bool, error) {
	secret, err := cryptox.Decrypt(user.EncryptedTotpSecret, user.TotpSecretNonce, s.masterKey, user.ID[:])
	if err != nil {
		return false, err
	}
	return totp.Validate(normalizeCode(code), string(secret)), nil
}
