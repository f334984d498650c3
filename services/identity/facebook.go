package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"

	"github.com/innovalab/center/core/user"
)

type facebookVerifier struct {
	appID     string
	appSecret string
	graphURL  string
}

var _ user.IdentityVerifier = (*facebookVerifier)(nil)

// NewFacebookVerifier checks user access tokens issued to the Facebook app appID, through the Graph API at graphURL.
func NewFacebookVerifier(appID, appSecret, graphURL string) *facebookVerifier {
	return &facebookVerifier{appID: appID, appSecret: appSecret, graphURL: strings.TrimSuffix(graphURL, "/")}
}

type (
	fbDebugToken struct {
		Data struct {
			AppID   string `json:"app_id"`
			IsValid bool   `json:"is_valid"`
			UserID  string `json:"user_id"`
		} `json:"data"`
	}

	fbProfile struct {
		ID        string `json:"id"`
		Email     string `json:"email"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	}
)

// VerifyIdentity makes sure the token is valid and was issued to our app before reading the profile it grants.
func (v facebookVerifier) VerifyIdentity(ctx context.Context, token string) (user.Identity, error) {
	if v.appID == "" || v.appSecret == "" {
		return user.Identity{}, errors.New("facebook app not configured")
	}

	// app token: "{app-id}|{app-secret}"
	appClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: v.appID + "|" + v.appSecret}))
	var debug fbDebugToken
	q := url.Values{"input_token": {token}}
	if err := v.get(appClient, "/debug_token?"+q.Encode(), &debug); err != nil {
		return user.Identity{}, errors.Wrap(err, "debugging facebook token")
	}
	if !debug.Data.IsValid || debug.Data.AppID != v.appID {
		return user.Identity{}, errors.New("facebook token not valid for this app")
	}

	userClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
	var profile fbProfile
	q = url.Values{"fields": {"id,email,first_name,last_name"}}
	if err := v.get(userClient, "/me?"+q.Encode(), &profile); err != nil {
		return user.Identity{}, errors.Wrap(err, "fetching facebook profile")
	}
	if profile.ID != debug.Data.UserID {
		return user.Identity{}, errors.New("facebook token user mismatch")
	}

	return user.Identity{
		Provider: user.ProviderFacebook,
		Subject:  profile.ID,
		Email:    profile.Email,
		Names:    profile.FirstName,
		Surnames: profile.LastName,
	}, nil
}

func (v facebookVerifier) get(client *http.Client, path string, dest interface{}) error {
	res, err := client.Get(v.graphURL + path)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode != http.StatusOK {
		return errors.Errorf("graph api status %d", res.StatusCode)
	}
	return json.NewDecoder(res.Body).Decode(dest)
}
