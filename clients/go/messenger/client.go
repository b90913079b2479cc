// Package messenger provides a client for the messenger relay node.
package messenger

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/mr-tron/base58"
)

// Client is a messenger API client.
type Client struct {
	BaseURL    string
	ConfigDir  string
	PublicKey  ed25519.PublicKey
	PrivateKey ed25519.PrivateKey
	HTTPClient *http.Client
}

// NewClient creates a new client and loads any saved identity.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	configDir := os.Getenv("MESSENGER_CONFIG")
	if configDir == "" {
		home, _ := os.UserHomeDir()
		configDir = filepath.Join(home, ".messenger")
	}

	c := &Client{
		BaseURL:    baseURL,
		ConfigDir:  configDir,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}

	_ = c.LoadConfig()
	return c
}

// LoadConfig loads the identity seed from disk.
func (c *Client) LoadConfig() error {
	keyData, err := os.ReadFile(filepath.Join(c.ConfigDir, "private.key"))
	if err != nil {
		return err
	}

	seed, err := base64.StdEncoding.DecodeString(string(bytes.TrimSpace(keyData)))
	if err != nil {
		return err
	}
	if len(seed) != ed25519.SeedSize {
		return fmt.Errorf("invalid seed length %d", len(seed))
	}

	c.SetKey(ed25519.NewKeyFromSeed(seed))
	return nil
}

// SaveConfig saves the identity seed to disk.
func (c *Client) SaveConfig() error {
	if c.PrivateKey == nil {
		return errors.New("no identity to save")
	}
	if err := os.MkdirAll(c.ConfigDir, 0700); err != nil {
		return err
	}
	keyData := base64.StdEncoding.EncodeToString(c.PrivateKey.Seed())
	return os.WriteFile(filepath.Join(c.ConfigDir, "private.key"), []byte(keyData), 0600)
}

// GenerateKeypair generates a new Ed25519 identity.
func (c *Client) GenerateKeypair() error {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return err
	}
	c.SetKey(priv)
	return nil
}

// SetKey sets the signing identity.
func (c *Client) SetKey(priv ed25519.PrivateKey) {
	c.PrivateKey = priv
	c.PublicKey = priv.Public().(ed25519.PublicKey)
}

// Identity returns the base58 identity of the loaded key.
func (c *Client) Identity() string {
	return base58.Encode(c.PublicKey)
}

// EncryptionKey returns the base58 X25519 key derived from the identity.
func (c *Client) EncryptionKey() (string, error) {
	key, err := EncryptionKey(c.PublicKey)
	if err != nil {
		return "", err
	}
	return base58.Encode(key), nil
}

// signRequest creates authentication headers for a request.
func (c *Client) signRequest(method, path string, body []byte) http.Header {
	hash := sha256.Sum256(body)
	hashHex := hex.EncodeToString(hash[:])

	nonceBytes := make([]byte, 12) // 24 hex chars for adequate entropy
	rand.Read(nonceBytes)
	nonce := hex.EncodeToString(nonceBytes)

	timestamp := strconv.FormatInt(time.Now().UnixMilli(), 10)

	payload := fmt.Sprintf("%s|%s|%s|%s|%s", method, path, hashHex, nonce, timestamp)
	sig := ed25519.Sign(c.PrivateKey, []byte(payload))

	headers := http.Header{}
	headers.Set("Content-Type", "application/json")
	headers.Set("X-Messenger-Signer", c.Identity())
	headers.Set("X-Messenger-Nonce", nonce)
	headers.Set("X-Messenger-Timestamp", timestamp)
	headers.Set("X-Messenger-Signature", base64.StdEncoding.EncodeToString(sig))
	return headers
}

// APIError is a non-2xx response. Code and Name are set when the node
// rejected a ledger request.
type APIError struct {
	Status  int
	Code    int    `json:"code"`
	Name    string `json:"name"`
	Message string `json:"error"`
}

func (e *APIError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("messenger error %d: %s (%s)", e.Status, e.Message, e.Name)
	}
	return fmt.Sprintf("messenger error %d: %s", e.Status, e.Message)
}

// IsRejection reports whether err is a ledger rejection with the given name,
// e.g. "InsufficientFunds".
func IsRejection(err error, name string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Name == name
}

// doRequest performs an HTTP request and decodes the response into out.
func (c *Client) doRequest(ctx context.Context, method, path string, in interface{}, signed bool, out interface{}) error {
	var body []byte
	if in != nil {
		var err error
		if body, err = json.Marshal(in); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}

	if signed {
		if c.PrivateKey == nil {
			return errors.New("no identity loaded")
		}
		req.Header = c.signRequest(method, path, body)
	} else if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode}
		json.Unmarshal(respBody, apiErr)
		return apiErr
	}

	if out == nil {
		return nil
	}
	return json.Unmarshal(respBody, out)
}

// PlatformConfig is the deployment-wide fee configuration.
type PlatformConfig struct {
	Authority   string `json:"authority"`
	FeeVault    string `json:"fee_vault"`
	ProtocolFee uint64 `json:"protocol_fee"`
	UpdatedAt   int64  `json:"updated_at"`
}

// Registry is an identity's advertised encryption key and inbound fee.
type Registry struct {
	Owner         string `json:"owner"`
	EncryptionKey string `json:"encryption_key"`
	MinFee        uint64 `json:"min_fee"`
	CreatedAt     int64  `json:"created_at"`
	UpdatedAt     int64  `json:"updated_at"`
}

// Event is a relayed MessageSent notification.
type Event struct {
	Sender     string `json:"sender"`
	Recipient  string `json:"recipient"`
	Ciphertext []byte `json:"ciphertext"`
	Nonce      []byte `json:"nonce"`
	Timestamp  int64  `json:"timestamp"`
}

// Receipt describes a committed request.
type Receipt struct {
	TxID       string  `json:"tx_id"`
	Operation  string  `json:"operation"`
	Signer     string  `json:"signer"`
	ExecutedAt string  `json:"executed_at"`
	Events     []Event `json:"events"`
}

// ConfigResponse is the platform config with the receipt that changed it.
type ConfigResponse struct {
	Config  *PlatformConfig `json:"config"`
	Receipt *Receipt        `json:"receipt"`
}

// RegistryResponse is a registry with its derived address.
type RegistryResponse struct {
	Address  string    `json:"address"`
	Registry *Registry `json:"registry"`
	Receipt  *Receipt  `json:"receipt"`
}

// Account is a ledger slot balance.
type Account struct {
	Address  string `json:"address"`
	Lamports uint64 `json:"lamports"`
	DataLen  int    `json:"data_len"`
}

// SendMessageRequest is the raw relay request.
type SendMessageRequest struct {
	Recipient         string  `json:"recipient"`
	Ciphertext        []byte  `json:"ciphertext"`
	Nonce             []byte  `json:"nonce"`
	FeeVault          string  `json:"fee_vault"`
	RecipientRegistry *string `json:"recipient_registry,omitempty"`
	RecipientWallet   *string `json:"recipient_wallet,omitempty"`
}

// HealthResponse is the response from the health endpoint.
type HealthResponse struct {
	Status    string                 `json:"status"`
	Version   string                 `json:"version"`
	Region    string                 `json:"region,omitempty"`
	Checks    map[string]interface{} `json:"checks"`
	Timestamp string                 `json:"timestamp"`
}

// Health checks server health.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.doRequest(ctx, http.MethodGet, "/health", nil, false, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Config fetches the platform config.
func (c *Client) Config(ctx context.Context) (*PlatformConfig, error) {
	var resp ConfigResponse
	if err := c.doRequest(ctx, http.MethodGet, "/config", nil, false, &resp); err != nil {
		return nil, err
	}
	return resp.Config, nil
}

// InitializeConfig makes this identity the platform authority.
func (c *Client) InitializeConfig(ctx context.Context, feeVault string, protocolFee uint64) (*ConfigResponse, error) {
	req := map[string]interface{}{"fee_vault": feeVault, "protocol_fee": protocolFee}
	var resp ConfigResponse
	if err := c.doRequest(ctx, http.MethodPost, "/config", req, true, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UpdateConfig changes the fee vault and/or protocol fee. Nil arguments are
// left unchanged.
func (c *Client) UpdateConfig(ctx context.Context, feeVault *string, protocolFee *uint64) (*ConfigResponse, error) {
	req := map[string]interface{}{}
	if feeVault != nil {
		req["fee_vault"] = *feeVault
	}
	if protocolFee != nil {
		req["protocol_fee"] = *protocolFee
	}
	var resp ConfigResponse
	if err := c.doRequest(ctx, http.MethodPatch, "/config", req, true, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Register publishes this identity's derived encryption key.
func (c *Client) Register(ctx context.Context) (*RegistryResponse, error) {
	key, err := c.EncryptionKey()
	if err != nil {
		return nil, err
	}
	var resp RegistryResponse
	if err := c.doRequest(ctx, http.MethodPost, "/registry", map[string]string{"encryption_key": key}, true, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Registry looks up an identity's registry. Returns nil, nil when the
// identity has none.
func (c *Client) Registry(ctx context.Context, identity string) (*RegistryResponse, error) {
	var resp RegistryResponse
	err := c.doRequest(ctx, http.MethodGet, "/registry/"+identity, nil, false, &resp)
	if IsRejection(err, "NotFound") {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// UpdateEncryptionKey replaces this identity's advertised key.
func (c *Client) UpdateEncryptionKey(ctx context.Context, key string) (*RegistryResponse, error) {
	var resp RegistryResponse
	path := "/registry/" + c.Identity() + "/key"
	if err := c.doRequest(ctx, http.MethodPut, path, map[string]string{"encryption_key": key}, true, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SetMinFee sets the fee charged to senders of inbound messages.
func (c *Client) SetMinFee(ctx context.Context, minFee uint64) (*RegistryResponse, error) {
	var resp RegistryResponse
	path := "/registry/" + c.Identity() + "/min-fee"
	if err := c.doRequest(ctx, http.MethodPut, path, map[string]uint64{"min_fee": minFee}, true, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Deregister removes this identity's registry and reclaims its deposit.
func (c *Client) Deregister(ctx context.Context) (*Receipt, error) {
	var resp Receipt
	if err := c.doRequest(ctx, http.MethodDelete, "/registry/"+c.Identity(), nil, true, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Account fetches a slot balance.
func (c *Client) Account(ctx context.Context, address string) (*Account, error) {
	var resp Account
	if err := c.doRequest(ctx, http.MethodGet, "/accounts/"+address, nil, false, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Airdrop requests development funds for address.
func (c *Client) Airdrop(ctx context.Context, address string, lamports uint64) (*Account, error) {
	req := map[string]interface{}{"address": address, "lamports": lamports}
	var resp Account
	if err := c.doRequest(ctx, http.MethodPost, "/airdrop", req, false, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SendMessage submits a raw relay request.
func (c *Client) SendMessage(ctx context.Context, req SendMessageRequest) (*Receipt, error) {
	var resp Receipt
	if err := c.doRequest(ctx, http.MethodPost, "/messages", req, true, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ErrNoEncryptionKey is returned by Send when the recipient has no registry.
var ErrNoEncryptionKey = errors.New("recipient has not registered an encryption key")

// Send seals plaintext to recipient's registered key and relays it, paying
// the protocol fee and the recipient's minimum fee.
func (c *Client) Send(ctx context.Context, recipient string, plaintext []byte) (*Receipt, error) {
	cfg, err := c.Config(ctx)
	if err != nil {
		return nil, err
	}
	reg, err := c.Registry(ctx, recipient)
	if err != nil {
		return nil, err
	}
	if reg == nil {
		return nil, ErrNoEncryptionKey
	}

	key, err := base58.Decode(reg.Registry.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("decode encryption key: %w", err)
	}
	ciphertext, nonce, err := Seal(plaintext, key)
	if err != nil {
		return nil, err
	}

	wallet := reg.Registry.Owner
	return c.SendMessage(ctx, SendMessageRequest{
		Recipient:         recipient,
		Ciphertext:        ciphertext,
		Nonce:             nonce[:],
		FeeVault:          cfg.FeeVault,
		RecipientRegistry: &reg.Address,
		RecipientWallet:   &wallet,
	})
}

// Decrypt opens an event addressed to this identity.
func (c *Client) Decrypt(ev Event) ([]byte, error) {
	if len(ev.Nonce) != NonceSize {
		return nil, &CryptoError{Message: fmt.Sprintf("invalid nonce length %d", len(ev.Nonce))}
	}
	var nonce [NonceSize]byte
	copy(nonce[:], ev.Nonce)
	return Open(ev.Ciphertext, nonce, c.PrivateKey)
}
