package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/counciljobs/ingestion-service/repository"
)

// AuthError marks a sink rejecting the current credential. The publisher
// forces one token refresh before the next attempt.
type AuthError struct {
	Target string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("target %s rejected credentials", e.Target)
}

type transport interface {
	send(ctx context.Context, target Target, job repository.Job, token, baseURL string) error
}

func transportFor(kind Kind, client *http.Client) transport {
	switch kind {
	case KindLinkedIn:
		return &linkedInTransport{client: client}
	case KindFacebook:
		return &facebookTransport{client: client}
	default:
		return &partnerTransport{client: client}
	}
}

// partnerTransport delivers the full structured job to a partner board. The
// payload is JSON, or multipart when a logo asset is configured. Partners
// signal success with 200 only.
type partnerTransport struct {
	client *http.Client
}

type partnerPayload struct {
	Ref          string `json:"ref"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Deadline     string `json:"deadline,omitempty"`
	City         string `json:"city,omitempty"`
	Region       string `json:"region,omitempty"`
	Postcode     string `json:"postcode,omitempty"`
	ApplyMethod  string `json:"apply_method,omitempty"`
	ApplyValue   string `json:"apply_value,omitempty"`
	CanonicalURL string `json:"canonical_url"`
}

func partnerPayloadFor(job repository.Job, baseURL string) partnerPayload {
	p := partnerPayload{
		Ref:          job.ExternalRef,
		Title:        job.Title,
		Description:  job.Description,
		City:         job.LocationCity.String,
		Region:       job.LocationRegion.String,
		Postcode:     job.LocationPostcode.String,
		ApplyMethod:  job.ApplyMethod,
		ApplyValue:   job.ApplyValue,
		CanonicalURL: CanonicalURL(baseURL, job),
	}
	if job.Deadline.Valid {
		p.Deadline = job.Deadline.Time.Format("2006-01-02")
	}
	return p
}

func (t *partnerTransport) send(ctx context.Context, target Target, job repository.Job, _, baseURL string) error {
	payload := partnerPayloadFor(job, baseURL)

	var body io.Reader
	contentType := "application/json"
	if target.Credentials.LogoPath != "" {
		b, ct, err := multipartBody(payload, target.Credentials.LogoPath)
		if err != nil {
			return err
		}
		body, contentType = b, ct
	} else {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode partner payload: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.Endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to build partner request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	if target.Credentials.APIKey != "" {
		req.Header.Set("X-Api-Key", target.Credentials.APIKey)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("partner request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusUnauthorized:
		return &AuthError{Target: target.Name}
	default:
		return fmt.Errorf("partner %s returned %d", target.Name, resp.StatusCode)
	}
}

func multipartBody(payload partnerPayload, logoPath string) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode partner payload: %w", err)
	}
	if err := w.WriteField("job", string(encoded)); err != nil {
		return nil, "", fmt.Errorf("failed to write payload part: %w", err)
	}

	logo, err := os.ReadFile(logoPath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read logo asset: %w", err)
	}
	part, err := w.CreateFormFile("logo", filepath.Base(logoPath))
	if err != nil {
		return nil, "", fmt.Errorf("failed to create logo part: %w", err)
	}
	if _, err := part.Write(logo); err != nil {
		return nil, "", fmt.Errorf("failed to write logo part: %w", err)
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finalize multipart body: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

// linkedInTransport posts a plain-text share on behalf of the configured
// author organization.
type linkedInTransport struct {
	client *http.Client
}

func (t *linkedInTransport) send(ctx context.Context, target Target, job repository.Job, token, baseURL string) error {
	message := buildSocialMessage(job, target, baseURL)

	payload := map[string]any{
		"author":         target.Credentials.AuthorURN,
		"lifecycleState": "PUBLISHED",
		"specificContent": map[string]any{
			"com.linkedin.ugc.ShareContent": map[string]any{
				"shareCommentary":    map[string]any{"text": message},
				"shareMediaCategory": "NONE",
			},
		},
		"visibility": map[string]any{
			"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC",
		},
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode linkedin payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.Endpoint, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("failed to build linkedin request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Restli-Protocol-Version", "2.0.0")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("linkedin request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
		return nil
	case resp.StatusCode == http.StatusUnauthorized:
		return &AuthError{Target: target.Name}
	default:
		return fmt.Errorf("linkedin %s returned %d: %s", target.Name, resp.StatusCode, strings.TrimSpace(string(body)))
	}
}

// facebookTransport posts to the configured page feed. Facebook reports
// failures inside a 200-or-400 JSON envelope, so the body is always parsed.
type facebookTransport struct {
	client *http.Client
}

func (t *facebookTransport) send(ctx context.Context, target Target, job repository.Job, token, baseURL string) error {
	form := url.Values{}
	form.Set("message", buildSocialMessage(job, target, baseURL))
	form.Set("link", CanonicalURL(baseURL, job))
	form.Set("access_token", token)

	endpoint := strings.TrimRight(target.Endpoint, "/") + "/" + target.Credentials.PageID + "/feed"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build facebook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("facebook request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read facebook response: %w", err)
	}

	var parsed struct {
		ID    string `json:"id"`
		Error *struct {
			Message string `json:"message"`
			Code    int    `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return fmt.Errorf("failed to parse facebook response (%d): %w", resp.StatusCode, err)
	}

	if parsed.Error != nil {
		// Graph API code 190 is an invalidated access token.
		if resp.StatusCode == http.StatusUnauthorized || parsed.Error.Code == 190 {
			return &AuthError{Target: target.Name}
		}
		return fmt.Errorf("facebook %s error %d: %s", target.Name, parsed.Error.Code, parsed.Error.Message)
	}
	if parsed.ID == "" {
		return fmt.Errorf("facebook %s returned no post id", target.Name)
	}
	return nil
}
