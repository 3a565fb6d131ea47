package doorlock

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/equipcare/stockroom-backend/pkg/config"
	pkgerrors "github.com/equipcare/stockroom-backend/pkg/errors"
	"github.com/sethvargo/go-retry"
)

// Client drives the stockroom cabinet lock over its HTTP device API. Lock
// calls are sequenced around ledger writes, never inside them, so a dead
// device can block the door but cannot roll back stock.
type Client interface {
	Open(ctx context.Context, cabinetID string) error
	Close(ctx context.Context, cabinetID string) error
}

type client struct {
	http       *http.Client
	baseURL    string
	token      string
	maxRetries uint64
	retryBase  time.Duration
}

// Disabled reports whether the door lock integration is configured. Deploys
// without a device run with lock calls skipped.
func Disabled(cfg config.DoorLockConfig) bool {
	return strings.TrimSpace(cfg.BaseURL) == ""
}

func NewClient(cfg config.DoorLockConfig) (Client, error) {
	if Disabled(cfg) {
		return nil, fmt.Errorf("door lock base URL required")
	}
	return &client{
		http:       &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.AccessToken,
		maxRetries: cfg.MaxRetries,
		retryBase:  cfg.RetryBase,
	}, nil
}

func (c *client) Open(ctx context.Context, cabinetID string) error {
	return c.command(ctx, "open", cabinetID)
}

func (c *client) Close(ctx context.Context, cabinetID string) error {
	return c.command(ctx, "close", cabinetID)
}

type commandRequest struct {
	CabinetID string `json:"cabinet_id"`
}

func (c *client) command(ctx context.Context, action, cabinetID string) error {
	if strings.TrimSpace(cabinetID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "cabinet id is required")
	}

	body, err := json.Marshal(commandRequest{CabinetID: cabinetID})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode lock command")
	}

	backoff := retry.WithMaxRetries(c.maxRetries, retry.NewExponential(c.retryBase))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/locks/"+action, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}

		res, err := c.http.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer func() {
			io.Copy(io.Discard, res.Body)
			res.Body.Close()
		}()

		switch {
		case res.StatusCode < 300:
			return nil
		case res.StatusCode >= 500:
			return retry.RetryableError(fmt.Errorf("lock device returned %d", res.StatusCode))
		default:
			return fmt.Errorf("lock device rejected %s: status %d", action, res.StatusCode)
		}
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "door lock "+action+" failed")
	}
	return nil
}
