package api

import (
	"context"
	"encoding/json"
	"net/http"

	"financeflow/internal/core"
	"financeflow/internal/log"
)

// Login exchanges credentials for an API token. A rejection without a usable
// envelope message falls back to a fixed bad-credentials message.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	payload := map[string]string{"username": username, "password": password}
	body, err := c.do(ctx, http.MethodPost, "/api-token-auth/", payload, "The credentials provided are incorrect.")
	if err != nil {
		return "", err
	}

	var out struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", shapeError(err)
	}
	c.logger.InfoContext(ctx, "login succeeded", log.FieldOperation, log.OpLogin)
	return out.Token, nil
}

// CurrentUser fetches the authenticated user's profile. The raw payload is
// cached so the profile survives backend outages.
func (c *Client) CurrentUser(ctx context.Context) (core.User, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/current_user/", nil, "Unable to load your profile")
	if err == nil && c.cache != nil && body != nil {
		if werr := c.cache.Write(ctx, CacheKeyCurrentUser, body); werr != nil {
			c.logger.WarnContext(ctx, "cache write failed",
				log.FieldCacheKey, CacheKeyCurrentUser,
				log.FieldError, werr)
		}
	}
	if err != nil {
		if c.readFallback == ReadFallbackCached && c.cache != nil {
			cached, ok, cerr := c.cache.Read(ctx, CacheKeyCurrentUser)
			if cerr == nil && ok {
				body = cached
			} else {
				return core.User{}, err
			}
		} else {
			return core.User{}, err
		}
	}

	var w wireUser
	if err := json.Unmarshal(body, &w); err != nil {
		return core.User{}, shapeError(err)
	}
	return w.toUser(), nil
}

// Permissions fetches the capability set for the current token. Results are
// memoized per token for a few minutes; any failure yields an empty set so
// unknown capabilities stay denied.
func (c *Client) Permissions(ctx context.Context) (core.Permissions, error) {
	token := ""
	if c.tokens != nil {
		token = c.tokens.Token()
	}
	if perms, ok := c.perms.Get(token); ok {
		return perms, nil
	}

	body, err := c.do(ctx, http.MethodGet, "/users/me/permissions/", nil, "Unable to load permissions")
	if err != nil || body == nil {
		if err != nil {
			c.logger.WarnContext(ctx, "permission fetch failed, denying all", log.FieldError, err)
		}
		return core.Permissions{}, nil
	}

	var raw map[string]bool
	if err := json.Unmarshal(body, &raw); err != nil {
		return core.Permissions{}, nil
	}
	perms := toPermissions(raw)
	c.perms.Set(token, perms)
	return perms, nil
}

// ChangePassword updates the password of the authenticated user.
func (c *Client) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	payload := map[string]string{
		"old_password": oldPassword,
		"new_password": newPassword,
	}
	_, err := c.do(ctx, http.MethodPost, "/change-password/", payload, "Unable to change the password")
	return err
}

// ForgotPassword requests a reset email for the given address.
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	payload := map[string]string{"email": email}
	_, err := c.do(ctx, http.MethodPost, "/api/forgot-password/", payload, "Unable to request a password reset")
	return err
}

// ResetPassword completes a password reset with the emailed token.
func (c *Client) ResetPassword(ctx context.Context, token, newPassword string) error {
	payload := map[string]string{"password": newPassword}
	_, err := c.do(ctx, http.MethodPost, "/api/reset-password/"+token+"/", payload, "Unable to reset the password")
	return err
}
