package authcheck

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

type options struct {
	baseURL string
	timeout time.Duration
	ci      bool
}

func NewRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{Use: "authcheck", Short: "Exercise the session lifecycle against a running API"}
	cmd.PersistentFlags().StringVar(&opts.baseURL, "base-url", "http://localhost:8080", "API base URL")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "overall check timeout")
	cmd.PersistentFlags().BoolVar(&opts.ci, "ci", false, "non-interactive machine-readable output")
	cmd.AddCommand(newRunCommand(opts))
	return cmd
}

func newRunCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Register, login, refresh and logout a throwaway user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			client := &Client{BaseURL: opts.baseURL, HTTP: &http.Client{Timeout: 10 * time.Second}}
			details, err := Run(ctx, client, "authcheck-"+uuid.NewString()[:8])
			if opts.ci {
				printCIResult(cmd.OutOrStdout(), err == nil, "authcheck run", details, err)
			} else {
				for _, line := range details {
					fmt.Fprintln(cmd.OutOrStdout(), line)
				}
			}
			if err != nil {
				if !opts.ci {
					fmt.Fprintln(cmd.ErrOrStderr(), "FAILED:", err)
				}
				os.Exit(4)
			}
			return nil
		},
	}
}

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type tokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Run walks one user through the whole session lifecycle and returns a line
// per completed step.
func Run(ctx context.Context, c *Client, username string) ([]string, error) {
	var details []string
	password := "authcheck-" + uuid.NewString()

	if _, err := c.expect(ctx, http.MethodGet, "/health/ready", "", nil, http.StatusOK); err != nil {
		return details, fmt.Errorf("readiness: %w", err)
	}
	details = append(details, "readiness: ok")

	register := map[string]string{"username": username, "email": username + "@example.com", "password": password}
	if _, err := c.expect(ctx, http.MethodPost, "/api/register", "", register, http.StatusOK); err != nil {
		return details, fmt.Errorf("register: %w", err)
	}
	details = append(details, "register "+username+": ok")

	var pair tokenPair
	data, err := c.expect(ctx, http.MethodPost, "/api/login", "", map[string]string{"username": username, "password": password}, http.StatusOK)
	if err != nil {
		return details, fmt.Errorf("login: %w", err)
	}
	if err := json.Unmarshal(data, &pair); err != nil || pair.AccessToken == "" || pair.RefreshToken == "" {
		return details, fmt.Errorf("login: unexpected token pair %s", data)
	}
	details = append(details, "login: ok")

	data, err = c.expect(ctx, http.MethodGet, "/api/me", pair.AccessToken, nil, http.StatusOK)
	if err != nil {
		return details, fmt.Errorf("me: %w", err)
	}
	var me struct {
		Username string `json:"username"`
	}
	if err := json.Unmarshal(data, &me); err != nil || me.Username != username {
		return details, fmt.Errorf("me: expected %s, got %s", username, data)
	}
	details = append(details, "access token accepted: ok")

	var rotated tokenPair
	data, err = c.expect(ctx, http.MethodPost, "/api/refresh", "", map[string]string{"refresh_token": pair.RefreshToken}, http.StatusOK)
	if err != nil {
		return details, fmt.Errorf("refresh: %w", err)
	}
	if err := json.Unmarshal(data, &rotated); err != nil || rotated.RefreshToken == pair.RefreshToken {
		return details, fmt.Errorf("refresh: token was not rotated %s", data)
	}
	details = append(details, "refresh rotation: ok")

	if _, err := c.expect(ctx, http.MethodPost, "/api/refresh", "", map[string]string{"refresh_token": pair.RefreshToken}, http.StatusNotFound); err != nil {
		return details, fmt.Errorf("replay old refresh token: %w", err)
	}
	details = append(details, "old refresh token rejected: ok")

	if _, err := c.expect(ctx, http.MethodPost, "/api/logout", "", map[string]string{"refresh_token": rotated.RefreshToken}, http.StatusOK); err != nil {
		return details, fmt.Errorf("logout: %w", err)
	}
	details = append(details, "logout: ok")

	if _, err := c.expect(ctx, http.MethodPost, "/api/refresh", "", map[string]string{"refresh_token": rotated.RefreshToken}, http.StatusForbidden); err != nil {
		return details, fmt.Errorf("refresh after logout: %w", err)
	}
	details = append(details, "refresh after logout rejected: ok")
	return details, nil
}

func (c *Client) expect(ctx context.Context, method, path, bearer string, body any, want int) (json.RawMessage, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(c.BaseURL, "/")+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != want {
		return nil, fmt.Errorf("%s %s: status %d want %d body=%s", method, path, resp.StatusCode, want, truncate(raw))
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%s %s: decode envelope: %w", method, path, err)
	}
	return env.Data, nil
}

func printCIResult(w io.Writer, ok bool, title string, details []string, err error) {
	out := map[string]any{"ok": ok, "title": title, "details": details}
	if err != nil {
		out["error"] = err.Error()
	}
	enc := json.NewEncoder(w)
	_ = enc.Encode(out)
}

func truncate(b []byte) string {
	const limit = 256
	if len(b) > limit {
		return string(b[:limit]) + "..."
	}
	return string(b)
}
