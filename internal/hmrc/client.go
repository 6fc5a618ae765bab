// Package hmrc is the typed HTTP client for the HMRC Making Tax Digital
// VAT API: obligations, liabilities, payments, return retrieval and
// submission, and the sandbox fraud-header self-test.
package hmrc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/vatbridge-dev/vatbridge/internal/auth"
	"github.com/vatbridge-dev/vatbridge/internal/fraud"
	"github.com/vatbridge-dev/vatbridge/internal/model"
)

const (
	acceptHeader = "application/vnd.hmrc.1.0+json"
	dateFormat   = "2006-01-02"
)

// Endpoints are the OAuth and resource API bases for one HMRC environment.
type Endpoints struct {
	OAuthBase string
	APIBase   string
}

// ProfileEndpoints maps a configured profile name to its endpoint bases.
func ProfileEndpoints(profile string) (Endpoints, error) {
	switch profile {
	case "prod":
		return Endpoints{
			OAuthBase: "https://www.tax.service.gov.uk",
			APIBase:   "https://api.service.hmrc.gov.uk",
		}, nil
	case "test":
		return Endpoints{
			OAuthBase: "https://test-www.tax.service.gov.uk",
			APIBase:   "https://test-api.service.hmrc.gov.uk",
		}, nil
	case "local":
		return Endpoints{
			OAuthBase: "http://localhost:8080",
			APIBase:   "http://localhost:8080",
		}, nil
	}
	return Endpoints{}, fmt.Errorf("profile %q is not known", profile)
}

// Client issues authenticated calls against one taxpayer's VAT resources.
type Client struct {
	base   string
	vrn    string
	http   *http.Client
	tokens *auth.Manager
	fraud  *fraud.Builder
	log    *slog.Logger
}

// NewClient builds a Client for the VAT registration number vrn.
func NewClient(apiBase, vrn string, tokens *auth.Manager, fraudHeaders *fraud.Builder, httpClient *http.Client, log *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		base:   apiBase,
		vrn:    vrn,
		http:   httpClient,
		tokens: tokens,
		fraud:  fraudHeaders,
		log:    log,
	}
}

// do issues one authenticated request: valid token, fresh fraud headers,
// bearer auth. A 401 forces a single token refresh and one resend; all
// other failures propagate. The resend is safe for submissions too, because
// an unauthorized request was rejected before processing.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body []byte, wantStatus int) ([]byte, error) {
	token, err := c.tokens.EnsureValid(ctx)
	if err != nil {
		return nil, err
	}

	respBody, err := c.send(ctx, method, path, query, body, token, wantStatus)
	if IsAuthorization(err) {
		c.log.Debug("token rejected mid-call, refreshing", "path", path)
		token, err = c.tokens.ForceRefresh(ctx)
		if err != nil {
			return nil, err
		}
		respBody, err = c.send(ctx, method, path, query, body, token, wantStatus)
	}
	if err != nil {
		c.log.Debug("request failed", "method", method, "path", path, "error", err)
		return nil, err
	}
	return respBody, nil
}

func (c *Client) send(ctx context.Context, method, path string, query url.Values, body []byte, token string, wantStatus int) ([]byte, error) {
	u := c.base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return nil, err
	}
	for k, v := range c.fraud.Build() {
		req.Header.Set(k, v)
	}
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response for %s: %w", path, err)
	}

	if resp.StatusCode != wantStatus {
		apiErr := &APIError{Status: resp.StatusCode, Body: string(respBody)}
		var msg struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if json.Unmarshal(respBody, &msg) == nil {
			apiErr.Code = msg.Code
			apiErr.Message = msg.Message
		}
		return nil, apiErr
	}
	return respBody, nil
}

func rangeQuery(from, to time.Time) url.Values {
	q := url.Values{}
	q.Set("from", from.Format(dateFormat))
	q.Set("to", to.Format(dateFormat))
	return q
}

// Obligations fetches filing periods in [from, to].
func (c *Client) Obligations(ctx context.Context, from, to time.Time) ([]model.Obligation, error) {
	return c.obligations(ctx, rangeQuery(from, to))
}

// OpenObligations fetches periods still awaiting a return.
func (c *Client) OpenObligations(ctx context.Context) ([]model.Obligation, error) {
	q := url.Values{}
	q.Set("status", string(model.ObligationOpen))
	return c.obligations(ctx, q)
}

func (c *Client) obligations(ctx context.Context, q url.Values) ([]model.Obligation, error) {
	body, err := c.do(ctx, http.MethodGet, "/organisations/vat/"+c.vrn+"/obligations", q, nil, http.StatusOK)
	if err != nil {
		return nil, err
	}

	var wire struct {
		Obligations []obligationJSON `json:"obligations"`
	}
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("parsing obligations: %w", err)
	}

	out := make([]model.Obligation, 0, len(wire.Obligations))
	for _, o := range wire.Obligations {
		ob, err := o.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, ob)
	}
	return out, nil
}

// Liabilities fetches amounts HMRC records as owed for periods in [from, to].
func (c *Client) Liabilities(ctx context.Context, from, to time.Time) ([]model.Liability, error) {
	body, err := c.do(ctx, http.MethodGet, "/organisations/vat/"+c.vrn+"/liabilities",
		rangeQuery(from, to), nil, http.StatusOK)
	if err != nil {
		return nil, err
	}

	var wire struct {
		Liabilities []liabilityJSON `json:"liabilities"`
	}
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("parsing liabilities: %w", err)
	}

	out := make([]model.Liability, 0, len(wire.Liabilities))
	for _, l := range wire.Liabilities {
		lb, err := l.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, lb)
	}
	return out, nil
}

// Payments fetches amounts HMRC records as received in [from, to].
func (c *Client) Payments(ctx context.Context, from, to time.Time) ([]model.Payment, error) {
	body, err := c.do(ctx, http.MethodGet, "/organisations/vat/"+c.vrn+"/payments",
		rangeQuery(from, to), nil, http.StatusOK)
	if err != nil {
		return nil, err
	}

	var wire struct {
		Payments []paymentJSON `json:"payments"`
	}
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("parsing payments: %w", err)
	}

	out := make([]model.Payment, 0, len(wire.Payments))
	for _, p := range wire.Payments {
		pm, err := p.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, pm)
	}
	return out, nil
}

// GetReturn fetches a previously submitted return by period key.
func (c *Client) GetReturn(ctx context.Context, periodKey string) (model.Return, error) {
	body, err := c.do(ctx, http.MethodGet,
		"/organisations/vat/"+c.vrn+"/returns/"+url.PathEscape(periodKey), nil, nil, http.StatusOK)
	if err != nil {
		return model.Return{}, err
	}

	var rtn model.Return
	if err := json.Unmarshal(body, &rtn); err != nil {
		return model.Return{}, fmt.Errorf("parsing return: %w", err)
	}
	return rtn, nil
}

// SubmitReturn files a finalised return. Submission is terminal: an accepted
// return cannot be recalled, so any non-authorization failure propagates
// without resend.
func (c *Client) SubmitReturn(ctx context.Context, rtn model.Return) (model.SubmissionAck, error) {
	payload, err := json.Marshal(rtn)
	if err != nil {
		return model.SubmissionAck{}, fmt.Errorf("encoding return: %w", err)
	}

	body, err := c.do(ctx, http.MethodPost, "/organisations/vat/"+c.vrn+"/returns",
		nil, payload, http.StatusCreated)
	if err != nil {
		return model.SubmissionAck{}, fmt.Errorf("submitting return due %s: %w",
			rtn.DueDate.Format(dateFormat), err)
	}

	var wire ackJSON
	if err := json.Unmarshal(body, &wire); err != nil {
		return model.SubmissionAck{}, fmt.Errorf("parsing submission acknowledgement: %w", err)
	}
	ack := wire.toModel()
	c.log.Info("return submitted",
		"due", rtn.DueDate.Format(dateFormat),
		"formBundle", ack.FormBundleNumber)
	return ack, nil
}

// TestFraudHeaders asks the sandbox to validate the fraud header set. Only
// available outside production. The raw validation feedback is returned for
// display.
func (c *Client) TestFraudHeaders(ctx context.Context) (json.RawMessage, error) {
	body, err := c.do(ctx, http.MethodGet, "/test/fraud-prevention-headers/validate",
		nil, nil, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(body), nil
}
