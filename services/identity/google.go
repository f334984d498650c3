// Package identity verifies the tokens social providers issue to the frontend.
package identity

import (
	"context"

	"github.com/pkg/errors"
	"google.golang.org/api/idtoken"

	"github.com/innovalab/center/core/user"
)

var validateFunc = idtoken.Validate // mockable

type googleVerifier struct {
	clientID string
}

var _ user.IdentityVerifier = (*googleVerifier)(nil)

// NewGoogleVerifier checks Google ID tokens issued for clientID.
func NewGoogleVerifier(clientID string) *googleVerifier {
	return &googleVerifier{clientID: clientID}
}

// VerifyIdentity checks the token's signature, expiry and audience, and requires a verified email.
func (v googleVerifier) VerifyIdentity(ctx context.Context, token string) (user.Identity, error) {
	if v.clientID == "" {
		return user.Identity{}, errors.New("google client id not configured")
	}
	payload, err := validateFunc(ctx, token, v.clientID)
	if err != nil {
		return user.Identity{}, errors.Wrap(err, "validating google id token")
	}

	if verified, _ := payload.Claims["email_verified"].(bool); !verified {
		return user.Identity{}, errors.New("google email not verified")
	}
	return user.Identity{
		Provider: user.ProviderGoogle,
		Subject:  payload.Subject,
		Email:    claimString(payload.Claims, "email"),
		Names:    claimString(payload.Claims, "given_name"),
		Surnames: claimString(payload.Claims, "family_name"),
	}, nil
}

func claimString(claims map[string]interface{}, key string) string {
	s, _ := claims[key].(string)
	return s
}
