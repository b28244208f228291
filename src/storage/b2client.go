package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"feedserv/src/logger"

	"golang.org/x/sync/singleflight"
)

// Uploader puts one object into storage and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, data []byte, filename, contentType string) (string, error)
}

const (
	skipChecksum    = "do_not_verify"
	autoContentType = "b2/x-auto"
	maxErrorBody    = 64 << 10
)

type (
	B2Config struct {
		AccountID      string
		ApplicationKey string
		BucketID       string
		AuthURL        string
		CDNBaseURL     string
		UploadTimeout  time.Duration
		TokenTTL       time.Duration
	}

	// B2Client uploads through the native B2 API. The upload URL and its
	// token are cached for TokenTTL, which is kept below the provider's
	// 24h validity.
	B2Client struct {
		cfg   B2Config
		http  *http.Client
		cache CredentialCache
		group singleflight.Group
		now   func() time.Time
		log   *logger.Logger
	}

	authorizeResponse struct {
		APIURL             string `json:"apiUrl"`
		AuthorizationToken string `json:"authorizationToken"`
	}

	uploadURLResponse struct {
		UploadURL          string `json:"uploadUrl"`
		AuthorizationToken string `json:"authorizationToken"`
	}

	b2Error struct {
		Status  int    `json:"status"`
		Code    string `json:"code"`
		Message string `json:"message"`
	}
)

func NewB2Client(cfg B2Config, cache CredentialCache, httpClient *http.Client, log *logger.Logger) *B2Client {
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:    10,
				IdleConnTimeout: 90 * time.Second,
			},
		}
	}
	if cache == nil {
		cache = NewMemoryCache()
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 23 * time.Hour
	}
	if cfg.UploadTimeout <= 0 {
		cfg.UploadTimeout = 60 * time.Second
	}
	return &B2Client{
		cfg:   cfg,
		http:  httpClient,
		cache: cache,
		now:   time.Now,
		log:   log.WithFields(map[string]any{"component": "b2"}),
	}
}

// AcquireUploadTarget returns a cached credential while it is valid and
// runs the two-step authorization otherwise. Concurrent callers that all
// miss the cache share a single handshake. The handshake does not inherit
// the cancellation of the caller that started it; each caller stops
// waiting when its own ctx is done.
func (c *B2Client) AcquireUploadTarget(ctx context.Context) (Credential, error) {
	if cred, ok := c.cached(ctx); ok {
		return cred, nil
	}

	flightCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan("upload-target", func() (any, error) {
		ctx, cancel := context.WithTimeout(flightCtx, c.cfg.UploadTimeout)
		defer cancel()
		if cred, ok := c.cached(ctx); ok {
			return cred, nil
		}
		cred, err := c.authorize(ctx)
		if err != nil {
			return Credential{}, err
		}
		if err := c.cache.Store(ctx, cred); err != nil {
			c.log.Warn("could not cache upload credential", "error", err)
		}
		return cred, nil
	})

	select {
	case <-ctx.Done():
		return Credential{}, &AuthError{Step: "authorize_account", Err: ctx.Err()}
	case res := <-ch:
		if res.Err != nil {
			return Credential{}, res.Err
		}
		return res.Val.(Credential), nil
	}
}

// Upload sends data as filename and returns the CDN URL of the object.
// Nothing is retried; a rejected token is dropped from the cache so the
// next call authorizes again.
func (c *B2Client) Upload(ctx context.Context, data []byte, filename, contentType string) (string, error) {
	cred, err := c.AcquireUploadTarget(ctx)
	if err != nil {
		return "", err
	}
	if contentType == "" {
		contentType = autoContentType
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.UploadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cred.UploadURL, bytes.NewReader(data))
	if err != nil {
		return "", &UploadError{Filename: filename, Err: err}
	}
	req.Header.Set("Authorization", cred.AuthToken)
	req.Header.Set("X-Bz-File-Name", encodeFileName(filename))
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Bz-Content-Sha1", skipChecksum)
	req.Header.Set("X-Bz-Info-src_last_modified_millis", strconv.FormatInt(c.now().UnixMilli(), 10))
	req.ContentLength = int64(len(data))

	c.log.Debug("uploading", "filename", filename, "content_type", contentType, "size", len(data))
	resp, err := c.http.Do(req)
	if err != nil {
		return "", &UploadError{Filename: filename, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		c.log.Info("uploaded", "filename", filename, "size", len(data))
		return c.cdnURL(filename), nil
	}

	body := readErrorBody(resp.Body)
	if resp.StatusCode == http.StatusUnauthorized {
		if err := c.cache.Invalidate(ctx); err != nil {
			c.log.Warn("could not drop rejected credential", "error", err)
		}
		return "", &AuthError{Step: "upload_file", Status: resp.StatusCode, Message: providerMessage(body)}
	}
	return "", &UploadError{Filename: filename, Status: resp.StatusCode, Payload: body}
}

func (c *B2Client) cached(ctx context.Context) (Credential, bool) {
	cred, ok, err := c.cache.Load(ctx)
	if err != nil {
		c.log.Warn("credential cache unavailable", "error", err)
		return Credential{}, false
	}
	if !ok || !cred.Valid(c.now()) {
		return Credential{}, false
	}
	return cred, true
}

func (c *B2Client) authorize(ctx context.Context) (Credential, error) {
	authURL := strings.TrimRight(c.cfg.AuthURL, "/") + "/b2api/v2/b2_authorize_account"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, authURL, nil)
	if err != nil {
		return Credential{}, &AuthError{Step: "authorize_account", Err: err}
	}
	req.SetBasicAuth(c.cfg.AccountID, c.cfg.ApplicationKey)

	var account authorizeResponse
	if err := c.doJSON(req, "authorize_account", &account); err != nil {
		return Credential{}, err
	}

	payload, err := json.Marshal(map[string]string{"bucketId": c.cfg.BucketID})
	if err != nil {
		return Credential{}, &AuthError{Step: "get_upload_url", Err: err}
	}
	uploadURL := strings.TrimRight(account.APIURL, "/") + "/b2api/v2/b2_get_upload_url"
	req, err = http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, bytes.NewReader(payload))
	if err != nil {
		return Credential{}, &AuthError{Step: "get_upload_url", Err: err}
	}
	req.Header.Set("Authorization", account.AuthorizationToken)
	req.Header.Set("Content-Type", "application/json")

	var target uploadURLResponse
	if err := c.doJSON(req, "get_upload_url", &target); err != nil {
		return Credential{}, err
	}

	cred := Credential{
		UploadURL: target.UploadURL,
		AuthToken: target.AuthorizationToken,
		ExpiresAt: c.now().Add(c.cfg.TokenTTL),
	}
	c.log.Info("authorized upload target", "expires_at", cred.ExpiresAt)
	return cred, nil
}

func (c *B2Client) doJSON(req *http.Request, step string, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return &AuthError{Step: step, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &AuthError{Step: step, Status: resp.StatusCode, Message: providerMessage(readErrorBody(resp.Body))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &AuthError{Step: step, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func (c *B2Client) cdnURL(filename string) string {
	return strings.TrimRight(c.cfg.CDNBaseURL, "/") + "/" + escapeComponent(filename)
}

// escapeComponent percent-encodes everything except A-Z a-z 0-9 and
// -_.!~*'(), the set a URI component may carry unescaped.
func escapeComponent(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case 'a' <= ch && ch <= 'z', 'A' <= ch && ch <= 'Z', '0' <= ch && ch <= '9':
			b.WriteByte(ch)
		case strings.IndexByte("-_.!~*'()", ch) >= 0:
			b.WriteByte(ch)
		default:
			b.WriteByte('%')
			b.WriteByte(hex[ch>>4])
			b.WriteByte(hex[ch&0x0f])
		}
	}
	return b.String()
}

// encodeFileName percent-encodes a B2 file name, keeping "/" as the folder
// separator.
func encodeFileName(name string) string {
	return strings.ReplaceAll(url.PathEscape(name), "%2F", "/")
}

func readErrorBody(r io.Reader) string {
	raw, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	return strings.TrimSpace(string(raw))
}

func providerMessage(body string) string {
	var e b2Error
	if err := json.Unmarshal([]byte(body), &e); err == nil && e.Message != "" {
		if e.Code != "" {
			return e.Code + ": " + e.Message
		}
		return e.Message
	}
	return body
}
