package api

import "context"

// Login authenticates the operator. A failed login is not an error at
// the transport level: the backend answers 200 with Success=false and a
// message, so callers branch on the result.
func (c *Client) Login(ctx context.Context, name, password string) (LoginResult, error) {
	var result LoginResult
	err := c.do(ctx, "POST", "/login", LoginRequest{Name: name, Password: password}, &result)
	return result, err
}

// Logout invalidates the server-side session. The stored credential is
// dropped by the caller regardless of the outcome.
func (c *Client) Logout(ctx context.Context) (bool, error) {
	var ok bool
	if err := c.do(ctx, "POST", "/logout", nil, &ok); err != nil {
		return false, err
	}
	return ok, nil
}
