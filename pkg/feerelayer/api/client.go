package api

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/p2p-wallet/fee-relayer-go/pkg/retry"
	"github.com/p2p-wallet/fee-relayer-go/pkg/retry/backoff"
	"github.com/p2p-wallet/fee-relayer-go/pkg/solana"
)

// Client talks to the fee relayer HTTP API.
type Client interface {
	// GetFeePayerPubkey returns the account the relayer signs transactions
	// with as fee payer.
	GetFeePayerPubkey(ctx context.Context) (ed25519.PublicKey, error)

	// GetFreeFeeLimits returns the free transaction allowance of the
	// provided authority.
	GetFreeFeeLimits(ctx context.Context, authority ed25519.PublicKey) (*FreeFeeLimitsResponse, error)

	// TopUpWithSwap asks the relayer to execute a sponsored top up
	// transaction and returns the submitted signatures.
	TopUpWithSwap(ctx context.Context, params *TopUpWithSwapParams) ([]string, error)

	// RelayTransaction asks the relayer to co-sign and submit a prepared
	// transaction and returns the submitted signatures.
	RelayTransaction(ctx context.Context, params *RelayTransactionParams) ([]string, error)

	// RelayTransferSOL asks the relayer to execute a sponsored SOL transfer
	// and returns the submitted signatures.
	RelayTransferSOL(ctx context.Context, params *TransferSOLParams) ([]string, error)
}

type client struct {
	log        *logrus.Entry
	baseURL    string
	httpClient *http.Client
	retrier    retry.Retrier
}

// NewClient returns a relayer client for the provided configuration.
func NewClient(config *Config) Client {
	return &client{
		log:     logrus.StandardLogger().WithField("type", "feerelayer/api/client"),
		baseURL: strings.TrimSuffix(config.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		retrier: retry.NewRetrier(
			retry.NonRetriableErrors(context.Canceled),
			retry.Limit(3),
			retry.Backoff(backoff.BinaryExponential(time.Second), 10*time.Second),
		),
	}
}

func (c *client) GetFeePayerPubkey(ctx context.Context) (ed25519.PublicKey, error) {
	body, err := c.submitRequest(ctx, http.MethodGet, "/fee_payer/pubkey", nil)
	if err != nil {
		return nil, err
	}

	value := strings.Trim(strings.TrimSpace(string(body)), `"`)
	return solana.PublicKeyFromBase58(value)
}

func (c *client) GetFreeFeeLimits(ctx context.Context, authority ed25519.PublicKey) (*FreeFeeLimitsResponse, error) {
	body, err := c.submitRequest(ctx, http.MethodGet, "/free_fee_limits/"+encodeKey(authority), nil)
	if err != nil {
		return nil, err
	}

	var resp FreeFeeLimitsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.Wrap(err, "failed to decode free fee limits response")
	}

	return &resp, nil
}

func (c *client) TopUpWithSwap(ctx context.Context, params *TopUpWithSwapParams) ([]string, error) {
	return c.submitRelayRequest(ctx, "/relay_top_up_with_swap", params)
}

func (c *client) RelayTransaction(ctx context.Context, params *RelayTransactionParams) ([]string, error) {
	return c.submitRelayRequest(ctx, "/relay_transaction", params)
}

func (c *client) RelayTransferSOL(ctx context.Context, params *TransferSOLParams) ([]string, error) {
	return c.submitRelayRequest(ctx, "/relay_transfer_sol", params)
}

func (c *client) submitRelayRequest(ctx context.Context, path string, params interface{}) ([]string, error) {
	encoded, err := json.Marshal(params)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode request body")
	}

	body, err := c.submitRequest(ctx, http.MethodPost, path, encoded)
	if err != nil {
		return nil, err
	}

	var signatures []string
	if err := json.Unmarshal(body, &signatures); err != nil {
		return nil, errors.Wrap(err, "failed to decode relay response")
	}

	return signatures, nil
}

func (c *client) submitRequest(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var httpResp *http.Response
	_, err := c.retrier.Retry(func() error {
		var reqBody io.Reader = http.NoBody
		if body != nil {
			reqBody = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
		if err != nil {
			return errors.Wrap(err, "failed to create request")
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		// Retry only occurs if err != nil, in which case the body does not
		// need to be closed. The body itself is closed below.
		httpResp, err = c.httpClient.Do(req) //nolint:bodyclose
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to make request")
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response body")
	}

	if httpResp.StatusCode != http.StatusOK {
		var relayerErr Error
		if err := json.Unmarshal(respBody, &relayerErr); err == nil && relayerErr.Message != "" {
			c.log.WithField("path", path).WithField("code", relayerErr.Code).Warn(relayerErr.Message)
			return nil, &relayerErr
		}

		return nil, errors.Errorf("received non-200 status code: %d", httpResp.StatusCode)
	}

	return respBody, nil
}
