package redash

// conn.go holds the HTTP plumbing shared by every call to the Redash REST API.

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/manu156/redash-go/errors"
	"github.com/manu156/redash-go/internal/response"
)

const (
	authorizationHeader = "Authorization"
	requestIDHeader     = "X-Request-ID"
)

// maxErrorBody bounds how much of a failed response is kept in an error.
const maxErrorBody = 64 << 10

func (c *Client) headers() http.Header {
	header := http.Header{}
	header.Add(authorizationHeader, "Key "+c.cfg.APIKey)
	header.Add("Accept", "application/json")
	header.Add("Accept-Encoding", "gzip, deflate")
	header.Add("User-Agent", c.userAgent)
	header.Add(requestIDHeader, uuid.New().String())
	return header
}

// endpoint returns the API URL for the path elements, which are escaped.
func (c *Client) endpoint(elem ...string) *url.URL {
	escaped := make([]string, len(elem))
	for i, e := range elem {
		escaped[i] = url.PathEscape(e)
	}
	return c.base.JoinPath(escaped...)
}

// doRequest sends in, if not nil, as the JSON body of a request and decodes the JSON response into out,
// if not nil. Numbers in the response are decoded as json.Number.
func (c *Client) doRequest(ctx context.Context, op errors.Op, method string, u *url.URL, in, out interface{}) error {
	headers := c.headers()
	logger := zerolog.Ctx(ctx).With().
		Str("function", "doRequest").
		Str("op", op.String()).
		Str("method", method).
		Str("url", u.String()).
		Str("requestID", headers.Get(requestIDHeader)).
		Logger()

	target := fmt.Sprintf("%s %s", method, u.Path)

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			logger.Error().Err(err).Msg("could not JSON marshal the request")
			return errors.E(op, errors.KInternal, fmt.Errorf("could not JSON marshal the request for %s: %w", target, err))
		}
		body = bytes.NewReader(b)
		headers.Set("Content-Type", "application/json; charset=utf-8")
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return errors.E(op, errors.KInternal, fmt.Errorf("could not create request for %s: %w", target, err))
	}
	for k, v := range headers {
		req.Header[k] = v
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		logger.Error().Err(err).Dur("elapsed", time.Since(start)).Msg("error sending request")
		return requestError(ctx, op, target, err)
	}

	rc, err := response.TranslateBody(resp, op, logger)
	if err != nil {
		return err
	}
	defer rc.Close()

	logger.Debug().Int("status", resp.StatusCode).Dur("elapsed", time.Since(start)).Msg("got response")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, err := io.ReadAll(io.LimitReader(rc, maxErrorBody))
		if err != nil {
			return requestError(ctx, op, target, err)
		}
		logger.Error().Int("status", resp.StatusCode).Msg("response status code not OK")
		return errors.HTTP(op, resp.Status, resp.StatusCode, b, fmt.Sprintf("%s returned %d", target, resp.StatusCode))
	}

	if out == nil {
		_, err := io.Copy(io.Discard, rc)
		if err != nil {
			return requestError(ctx, op, target, err)
		}
		return nil
	}

	dec := json.NewDecoder(rc)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		if ctx.Err() != nil {
			return requestError(ctx, op, target, err)
		}
		logger.Error().Err(err).Msg("could not decode response")
		return errors.E(op, errors.KInternal, fmt.Errorf("malformed response from %s: %w", target, err))
	}
	return nil
}

// requestError classifies a failure to send a request or read its response.
func requestError(ctx context.Context, op errors.Op, target string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return errors.E(op, errors.KCanceled, fmt.Errorf("%s: %w", target, ctxErr))
	}
	if ue, ok := err.(*url.Error); ok {
		err = ue.Err
	}
	return errors.E(op, errors.KTransport, fmt.Errorf("%s: %w", target, err))
}
