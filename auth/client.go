// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

/*
Package auth provides password authentication against the remote
identity endpoint, plus bearer token middleware for the API router.
*/
package auth

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
)

// ErrInvalidCredentials is returned by SignIn for a wrong email or
// password.
var ErrInvalidCredentials = errors.New("Invalid login credentials")

// User is an authenticated account.
type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Metadata struct {
		FullName string `json:"full_name"`
	} `json:"user_metadata"`
}

// Session is the token set returned by a successful sign-in.
type Session struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	User         User   `json:"user"`
}

// Client talks to the identity endpoints under /auth/v1.
type Client struct {
	url        string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates an authentication client for the store at url,
// authorized with apiKey.
func NewClient(url string, apiKey string) *Client {
	return &Client{
		url:        url,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// SignIn exchanges email and password for a session. Wrong credentials
// yield ErrInvalidCredentials.
func (c *Client) SignIn(ctx context.Context, email, password string) (Session, error) {
	var session Session
	body := map[string]string{"email": email, "password": password}
	status, err := c.post(ctx, "/auth/v1/token?grant_type=password", "", body, &session)
	if err != nil {
		if status == http.StatusBadRequest || status == http.StatusUnauthorized {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, err
	}
	return session, nil
}

// SignUp registers a new account. The full name is stored as user
// metadata on the account.
func (c *Client) SignUp(ctx context.Context, email, password, fullName string) (User, error) {
	var user User
	body := map[string]interface{}{
		"email":    email,
		"password": password,
		"data":     map[string]string{"full_name": fullName},
	}
	_, err := c.post(ctx, "/auth/v1/signup", "", body, &user)
	return user, err
}

// SignOut revokes the session behind token.
func (c *Client) SignOut(ctx context.Context, token string) error {
	_, err := c.post(ctx, "/auth/v1/logout", token, nil, nil)
	return err
}

// ResetPassword requests a password recovery email.
func (c *Client) ResetPassword(ctx context.Context, email string) error {
	_, err := c.post(ctx, "/auth/v1/recover", "", map[string]string{"email": email}, nil)
	return err
}

// User fetches the account behind token.
func (c *Client) User(ctx context.Context, token string) (User, error) {
	var user User
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url+"/auth/v1/user", nil)
	if err != nil {
		return User{}, err
	}
	c.authorize(req, token)
	err = c.do(req, &user)
	return user, err
}

func (c *Client) post(ctx context.Context, path string, token string, body interface{}, result interface{}) (int, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+path, reader)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req, token)

	res, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer res.Body.Close()
	resBody, _ := io.ReadAll(res.Body)
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return res.StatusCode, errorFromBody(res.StatusCode, resBody)
	}
	if result != nil && len(resBody) > 0 {
		if err := json.Unmarshal(resBody, result); err != nil {
			return res.StatusCode, err
		}
	}
	return res.StatusCode, nil
}

func (c *Client) do(req *http.Request, result interface{}) error {
	res, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	resBody, _ := io.ReadAll(res.Body)
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return errorFromBody(res.StatusCode, resBody)
	}
	if result != nil && len(resBody) > 0 {
		return json.Unmarshal(resBody, result)
	}
	return nil
}

func (c *Client) authorize(req *http.Request, token string) {
	req.Header.Set("apikey", c.apiKey)
	if token == "" {
		token = c.apiKey
	}
	req.Header.Set("Authorization", "Bearer "+token)
}

// errorFromBody extracts the identity endpoint's error message. The
// endpoint uses several shapes for errors.
func errorFromBody(status int, body []byte) error {
	var reply struct {
		Message          string `json:"msg"`
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	if err := json.Unmarshal(body, &reply); err == nil {
		for _, message := range []string{reply.ErrorDescription, reply.Message, reply.Error} {
			if message != "" {
				return errors.New(message)
			}
		}
	}
	return fmt.Errorf("auth request failed with status %d", status)
}
