package graphchan

import (
	"context"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/littlecapa/finbox/internal/sweep"
)

// delegatedScopes is the minimum Graph permission set for reading channel
// messages and resolving their file attachments in the device-code flow.
var delegatedScopes = []string{
	"Channel.ReadBasic.All",
	"ChannelMessage.Read.All",
	"Files.Read.All",
}

func (c *Client) authority() string {
	return "https://login.microsoftonline.com/" + c.cfg.TenantID
}

// acquireToken runs the configured OAuth grant and returns a bearer token.
// Device-code prints the verification URI and user code through the logger;
// the client-credential grant needs a client secret.
func (c *Client) acquireToken(ctx context.Context) (string, error) {
	authority := c.authority()

	if c.cfg.UseDeviceCode {
		conf := &oauth2.Config{
			ClientID: c.cfg.ClientID,
			Scopes:   delegatedScopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:       authority + "/oauth2/v2.0/authorize",
				TokenURL:      authority + "/oauth2/v2.0/token",
				DeviceAuthURL: authority + "/oauth2/v2.0/devicecode",
			},
		}
		da, err := conf.DeviceAuth(ctx)
		if err != nil {
			return "", sweep.WrapError(sweep.KindAuthFailed, err, "starting device code flow")
		}
		c.log.Infof("to authenticate, go to %s and enter code %s", da.VerificationURI, da.UserCode)
		tok, err := conf.DeviceAccessToken(ctx, da)
		if err != nil {
			return "", sweep.WrapError(sweep.KindAuthFailed, err, "device code flow did not complete")
		}
		return tok.AccessToken, nil
	}

	if c.cfg.ClientSecret == "" {
		return "", sweep.NewError(sweep.KindAuthUnavailable,
			"client secret required for the client-credentials flow")
	}
	conf := &clientcredentials.Config{
		ClientID:     c.cfg.ClientID,
		ClientSecret: c.cfg.ClientSecret,
		TokenURL:     authority + "/oauth2/v2.0/token",
		Scopes:       []string{"https://graph.microsoft.com/.default"},
	}
	tok, err := conf.Token(ctx)
	if err != nil {
		return "", sweep.WrapError(sweep.KindAuthFailed, err, "client-credentials grant")
	}
	return tok.AccessToken, nil
}

// staticTokenCredential adapts an already-acquired bearer token to the Azure
// credential interface the Graph SDK expects.
type staticTokenCredential struct {
	token string
}

func (c *staticTokenCredential) GetToken(ctx context.Context, options policy.TokenRequestOptions) (azcore.AccessToken, error) {
	return azcore.AccessToken{
		Token:     c.token,
		ExpiresOn: time.Now().Add(1 * time.Hour),
	}, nil
}
