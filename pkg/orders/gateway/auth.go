package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"shop/pkg/common/authmw"
)

// AuthClient delegates token verification to the credential service. Any
// failure, including an unreachable service, surfaces as an invalid token.
type AuthClient struct {
	baseURL string
	client  *http.Client
}

func NewAuthClient(baseURL string, timeout time.Duration) *AuthClient {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &AuthClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *AuthClient) Verify(ctx context.Context, token string) (*authmw.Claims, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/verify", nil)
	if err != nil {
		return nil, authmw.ErrInvalidToken
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		log.WithError(err).Error("auth verification failed")
		return nil, authmw.ErrInvalidToken
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, authmw.ErrInvalidToken
	}

	var claims authmw.Claims
	if err := json.NewDecoder(resp.Body).Decode(&claims); err != nil {
		log.WithError(err).Error("decode auth verification response")
		return nil, authmw.ErrInvalidToken
	}
	return &claims, nil
}
