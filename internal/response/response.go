// Package response decodes the bodies of HTTP responses sent by a Redash server.
package response

import (
	"bufio"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/manu156/redash-go/errors"
)

// originalCloser closes the decoder and then the body it reads from.
type originalCloser struct {
	original io.ReadCloser
	wrapper  io.Reader
}

func (o *originalCloser) Read(p []byte) (n int, err error) {
	return o.wrapper.Read(p)
}

func (o *originalCloser) Close() error {
	if c, ok := o.wrapper.(io.Closer); ok {
		if err := c.Close(); err != nil {
			o.original.Close()
			return err
		}
	}
	return o.original.Close()
}

// TranslateBody returns a reader over the decoded body of resp. Redash is sent "Accept-Encoding: gzip, deflate",
// which turns off the transparent decompression of net/http, so both encodings are handled here.
// Closing the returned reader closes resp.Body.
func TranslateBody(resp *http.Response, op errors.Op, logger zerolog.Logger) (io.ReadCloser, error) {
	body := resp.Body
	var wrapper io.Reader

	switch enc := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))); enc {
	case "", "identity":
		return body, nil
	case "gzip":
		logger.Trace().Msg("gzip content encoding")
		gz, err := gzip.NewReader(body)
		if err != nil {
			body.Close()
			logger.Error().Err(err).Msg("gzip reader error")
			return nil, errors.E(op, errors.KInternal, fmt.Errorf("gzip reader error: %w", err))
		}
		wrapper = gz
	case "deflate":
		logger.Trace().Msg("deflate content encoding")
		r, err := deflateReader(body)
		if err != nil {
			body.Close()
			logger.Error().Err(err).Msg("deflate reader error")
			return nil, errors.E(op, errors.KInternal, fmt.Errorf("deflate reader error: %w", err))
		}
		wrapper = r
	default:
		body.Close()
		logger.Error().Msgf("Content-Encoding was unrecognized: %s", enc)
		return nil, errors.ES(op, errors.KInternal, "Content-Encoding was unrecognized: %s", enc)
	}
	return &originalCloser{
		original: body,
		wrapper:  wrapper,
	}, nil
}

// deflateReader reads an HTTP "deflate" body. The encoding is meant to be zlib framed, but some servers
// send a raw deflate stream, so the zlib header is sniffed first.
func deflateReader(body io.Reader) (io.Reader, error) {
	br := bufio.NewReader(body)
	head, err := br.Peek(2)
	if err != nil && err != io.EOF {
		return nil, err
	}
	if len(head) == 2 && head[0]&0x0f == 8 && (uint16(head[0])<<8|uint16(head[1]))%31 == 0 {
		return zlib.NewReader(br)
	}
	return flate.NewReader(br), nil
}
