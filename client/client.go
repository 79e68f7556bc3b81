// Package client is the mechanical HTTP plumbing around the identity core:
// the four AIRC operations (register, heartbeat, send, poll) plus the v0.2
// rotation and revocation calls. It holds no cryptographic logic of its own;
// signatures and proofs come from the identity package and are relayed
// verbatim.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/brightseth/airc-go/airc"
	"github.com/brightseth/airc-go/canonical"
	"github.com/brightseth/airc-go/identity"
)

// Client talks to one AIRC registry on behalf of one agent handle.
type Client struct {
	handle   string
	registry string
	signing  *identity.SigningIdentity
	recovery *identity.RecoveryIdentity

	signRequests bool
	httpClient   *http.Client
	logger       *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithRecovery attaches a recovery identity, enabling RotateKey and Revoke
// and including the recovery public key at registration.
func WithRecovery(r *identity.RecoveryIdentity) Option {
	return func(c *Client) { c.recovery = r }
}

// WithSignedRequests attaches signature headers to every outbound call.
func WithSignedRequests(on bool) Option {
	return func(c *Client) { c.signRequests = on }
}

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// WithLogger enables debug logging of outbound requests.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New constructs a client for handle against the registry base URL.
func New(handle, registry string, signing *identity.SigningIdentity, opts ...Option) *Client {
	c := &Client{
		handle:   handle,
		registry: strings.TrimRight(registry, "/"),
		signing:  signing,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RegistryError is a non-2xx response from the registry.
type RegistryError struct {
	Status int
	Body   string
}

func (e *RegistryError) Error() string {
	return fmt.Sprintf("registry: HTTP %d: %s", e.Status, e.Body)
}

// Message is one relayed message returned by Poll.
type Message struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Type      string `json:"type"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

// Register ensures the signing keypair (and the recovery keypair, when one
// is attached) exists, then registers the public key with the registry.
//
// POST /api/identity
func (c *Client) Register(ctx context.Context) (map[string]any, error) {
	if _, err := c.signing.EnsureKeypair(); err != nil {
		return nil, err
	}
	pub, err := c.signing.PublicKeyBase64()
	if err != nil {
		return nil, err
	}
	// The registry expects publicKey bare at registration; only keys in
	// v0.2 proof material (recoveryKey here, new_public_key in rotation)
	// carry the algorithm tag.
	payload := canonical.Map{
		"name":      canonical.String(c.handle),
		"publicKey": canonical.String(pub),
	}
	if c.recovery != nil {
		if _, err := c.recovery.EnsureKeypair(); err != nil {
			return nil, err
		}
		recoveryPub, err := c.recovery.TaggedPublicKey()
		if err != nil {
			return nil, err
		}
		payload["recoveryKey"] = canonical.String(recoveryPub)
	}
	return c.post(ctx, "/api/identity", payload)
}

// Heartbeat reports presence.
//
// POST /api/presence
func (c *Client) Heartbeat(ctx context.Context, status string) (map[string]any, error) {
	if status == "" {
		status = "available"
	}
	return c.post(ctx, "/api/presence", canonical.Map{
		"action":   canonical.String("heartbeat"),
		"username": canonical.String(c.handle),
		"status":   canonical.String(status),
	})
}

// Send relays a message to another agent. A leading "@" on the recipient is
// accepted and stripped.
//
// POST /api/messages
func (c *Client) Send(ctx context.Context, to, text, payloadType string) (map[string]any, error) {
	if payloadType == "" {
		payloadType = "text"
	}
	return c.post(ctx, "/api/messages", canonical.Map{
		"from": canonical.String(c.handle),
		"to":   canonical.String(strings.TrimPrefix(to, "@")),
		"type": canonical.String(payloadType),
		"text": canonical.String(text),
	})
}

// Poll fetches messages addressed to this handle. since filters to messages
// after the given unix timestamp; pass 0 for all.
//
// GET /api/messages?to={handle}
func (c *Client) Poll(ctx context.Context, since int64) ([]Message, error) {
	q := url.Values{"to": {c.handle}}
	if since > 0 {
		q.Set("since", strconv.FormatInt(since, 10))
	}
	var parsed struct {
		Messages []Message `json:"messages"`
	}
	if err := c.get(ctx, "/api/messages?"+q.Encode(), &parsed); err != nil {
		return nil, err
	}
	return parsed.Messages, nil
}

// RotateKey supersedes the current signing key: it generates a fresh
// keypair, has the recovery key sign a rotation proof over the new tagged
// public key, and submits the proof. After a successful call the client
// signs with the new key; the superseded key remains on disk as history
// only.
//
// POST /api/identity/rotate
func (c *Client) RotateKey(ctx context.Context) (map[string]any, error) {
	if c.recovery == nil {
		return nil, errors.New("client: rotation requires a recovery identity")
	}
	if _, err := c.recovery.EnsureKeypair(); err != nil {
		return nil, err
	}
	if _, err := c.signing.EnsureKeypair(); err != nil {
		return nil, err
	}
	if err := c.signing.Regenerate(); err != nil {
		return nil, err
	}
	newKey, err := c.signing.TaggedPublicKey()
	if err != nil {
		return nil, err
	}
	proof, err := c.recovery.GenerateRotationProof(newKey)
	if err != nil {
		return nil, err
	}
	return c.post(ctx, "/api/identity/rotate", canonical.Map{
		"handle": canonical.String(c.handle),
		"proof": canonical.Map{
			"new_public_key": canonical.String(proof.NewPublicKey),
			"timestamp":      canonical.Int(proof.Timestamp),
			"nonce":          canonical.String(proof.Nonce),
			"signature":      canonical.String(proof.Signature),
		},
	})
}

// Revoke permanently invalidates the identity with the registry. The
// revocation proof is the entire request body.
//
// POST /api/identity/revoke
func (c *Client) Revoke(ctx context.Context, reason string) (map[string]any, error) {
	if c.recovery == nil {
		return nil, errors.New("client: revocation requires a recovery identity")
	}
	if _, err := c.recovery.EnsureKeypair(); err != nil {
		return nil, err
	}
	proof, err := c.recovery.GenerateRevocationProof(c.handle, reason)
	if err != nil {
		return nil, err
	}
	return c.post(ctx, "/api/identity/revoke", canonical.Map{
		"v":         canonical.String(proof.Version),
		"handle":    canonical.String(proof.Handle),
		"action":    canonical.String(proof.Action),
		"reason":    canonical.String(proof.Reason),
		"timestamp": canonical.Int(proof.Timestamp),
		"nonce":     canonical.String(proof.Nonce),
		"proof":     canonical.String(proof.Proof),
	})
}

// post sends payload as its canonical encoding, so the bytes on the wire are
// exactly the bytes any attached signature covers.
func (c *Client) post(ctx context.Context, path string, payload canonical.Map) (map[string]any, error) {
	body, err := canonical.Encode(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.registry+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.signRequests {
		sig, err := c.signing.Sign(payload)
		if err != nil {
			return nil, err
		}
		req.Header.Set(airc.HeaderSignature, sig)
		req.Header.Set(airc.HeaderIdentity, c.handle)
	}

	var result map[string]any
	if err := c.do(req, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) get(ctx context.Context, pathAndQuery string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.registry+pathAndQuery, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	c.logger.Debug("registry request", "method", req.Method, "url", req.URL.String())
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("client: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("client: reading response: %w", err)
	}
	c.logger.Debug("registry response", "status", resp.StatusCode, "bytes", len(raw))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &RegistryError{Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("client: decoding response: %w", err)
	}
	return nil
}
