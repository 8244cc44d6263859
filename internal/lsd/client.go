// Package lsd speaks the License Status Document protocol: it issues
// templated checkout requests against a license's checkout endpoint and
// polls/interprets the status documents describing individual loans.
package lsd

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/Astemirdum/odl-service/config"
	"github.com/Astemirdum/odl-service/internal/errs"
	"github.com/Astemirdum/odl-service/internal/model"
	"github.com/Astemirdum/odl-service/pkg/circuit_breaker"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type CheckoutParams struct {
	// NotificationURL is the callback the remote can hit when this loan's
	// status changes out of band.
	NotificationURL string
	// Expires is the requested end of the loan (now + default loan period).
	Expires time.Time
}

type Client interface {
	// Checkout requests a loan against the given license and returns the
	// resulting status document.
	Checkout(ctx context.Context, lic model.License, p CheckoutParams) (StatusDocument, error)
	// FetchStatus retrieves the status document at url.
	FetchStatus(ctx context.Context, url string) (StatusDocument, error)
	// Return follows the document's return link. A document without one is
	// not an error: return happens through the DRM channel instead, and
	// Return is a no-op then.
	Return(ctx context.Context, doc StatusDocument) error
}

type client struct {
	log    *zap.Logger
	http   *http.Client
	cb     circuit_breaker.CircuitBreaker
	bearer string
}

func NewClient(log *zap.Logger, cfg config.StatusClient) Client {
	return &client{
		log:    log.Named("lsd"),
		http:   &http.Client{Timeout: cfg.Timeout},
		cb:     circuit_breaker.New(20, 30*time.Second, 0.5, 5),
		bearer: cfg.BearerToken,
	}
}

func (c *client) Checkout(ctx context.Context, lic model.License, p CheckoutParams) (StatusDocument, error) {
	// A fresh pseudonym per request: the real patron id never crosses the
	// privacy boundary to the distributor.
	url, err := expandTemplate(lic.CheckoutURL, map[string]string{
		"id":               lic.LicenseUid,
		"checkout_id":      uuid.NewString(),
		"patron_id":        uuid.NewString(),
		"expires":          p.Expires.UTC().Format(time.RFC3339),
		"notification_url": p.NotificationURL,
	})
	if err != nil {
		return StatusDocument{}, errors.Wrap(err, "checkout url template")
	}
	return c.fetch(ctx, url)
}

func (c *client) FetchStatus(ctx context.Context, url string) (StatusDocument, error) {
	return c.fetch(ctx, url)
}

func (c *client) Return(ctx context.Context, doc StatusDocument) error {
	url, ok := doc.Link(RelReturn)
	if !ok {
		c.log.Debug("no return link, leaving return to the DRM channel")
		return nil
	}
	_, err := c.fetch(ctx, url)
	return err
}

func (c *client) fetch(ctx context.Context, url string) (StatusDocument, error) {
	var doc StatusDocument
	err := c.cb.Call(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
		if err != nil {
			return err
		}
		if c.bearer != "" {
			req.Header.Set("Authorization", "Bearer "+c.bearer)
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
			return errors.Wrapf(errs.ErrBadResponse, "status document GET %s: %s", url, resp.Status)
		}
		if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
			return errors.Wrapf(errs.ErrBadResponse, "decode status document: %v", err)
		}
		return nil
	})
	if err != nil {
		return StatusDocument{}, errors.Wrap(err, "lsd fetch")
	}
	if !doc.Status.Valid() {
		return StatusDocument{}, errors.Wrapf(errs.ErrBadResponse, "unknown status %q", doc.Status)
	}
	return doc, nil
}
