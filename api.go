package redash

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/manu156/redash-go/errors"
)

// queriesPageSize is the page size requested when listing saved queries.
const queriesPageSize = 100

// ListDataSources returns the data sources configured on the server, in the order the server lists them.
func (c *Client) ListDataSources(ctx context.Context) ([]DataSource, error) {
	var sources []DataSource
	if err := c.doRequest(ctx, errors.OpListDataSources, http.MethodGet, c.endpoint("data_sources"), nil, &sources); err != nil {
		return nil, err
	}
	return sources, nil
}

// ListQueries returns the saved queries visible to the API key. Pages are followed until the
// server's count is reached.
func (c *Client) ListQueries(ctx context.Context) ([]NamedQuery, error) {
	logger := zerolog.Ctx(ctx).With().Str("function", "ListQueries").Logger()

	var all []NamedQuery
	for page := 1; ; page++ {
		u := c.endpoint("queries")
		q := u.Query()
		q.Set("page", strconv.Itoa(page))
		q.Set("page_size", strconv.Itoa(queriesPageSize))
		u.RawQuery = q.Encode()

		var list queryList
		if err := c.doRequest(ctx, errors.OpListQueries, http.MethodGet, u, nil, &list); err != nil {
			return nil, err
		}
		all = append(all, list.Results...)

		logger.Debug().Int("page", page).Int("count", list.Count).Int("received", len(all)).Msg("listed queries")

		if len(list.Results) == 0 || list.Count <= len(all) {
			return all, nil
		}
	}
}

// GetQuery returns the saved query id with its text and data source.
func (c *Client) GetQuery(ctx context.Context, id ID) (NamedQuery, error) {
	if id == "" {
		return NamedQuery{}, errors.ES(errors.OpGetQuery, errors.KNotFound, "a query id is required")
	}

	var q NamedQuery
	if err := c.doRequest(ctx, errors.OpGetQuery, http.MethodGet, c.endpoint("queries", string(id)), nil, &q); err != nil {
		if e, ok := err.(*errors.Error); ok && e.StatusCode == http.StatusNotFound {
			return NamedQuery{}, errors.HTTP(errors.OpGetQuery, http.StatusText(e.StatusCode), e.StatusCode, e.Body, "query "+id.String()+" does not exist")
		}
		return NamedQuery{}, err
	}
	if q.DataSourceID == "" {
		return NamedQuery{}, errors.ES(errors.OpGetQuery, errors.KInternal, "query %s has no data source", id)
	}
	return q, nil
}

// CreateNamedQuery saves a new query on the server and returns its id.
func (c *Client) CreateNamedQuery(ctx context.Context, name, description string, dataSourceID ID, text string) (ID, error) {
	req := createQueryRequest{
		Name:         name,
		Description:  description,
		DataSourceID: dataSourceID,
		Query:        text,
	}

	var created NamedQuery
	if err := c.doRequest(ctx, errors.OpCreateQuery, http.MethodPost, c.endpoint("queries"), req, &created); err != nil {
		return "", err
	}
	if created.ID == "" {
		return "", errors.ES(errors.OpCreateQuery, errors.KInternal, "server did not return an id for query %q", name)
	}

	zerolog.Ctx(ctx).Debug().Str("function", "CreateNamedQuery").Str("query", created.ID.String()).Str("name", name).Msg("created query")
	return created.ID, nil
}

// TestConnection checks that the server is reachable and accepts the API key by listing the data
// sources. The check is bounded by timeout if it is positive.
func (c *Client) TestConnection(ctx context.Context, timeout time.Duration) error {
	parent := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var body interface{}
	err := c.doRequest(ctx, errors.OpTestConnection, http.MethodGet, c.endpoint("data_sources"), nil, &body)
	if err != nil {
		e, ok := err.(*errors.Error)
		switch {
		case !ok:
			return err
		case e.Kind == errors.KAuthentication:
			auth := errors.ES(errors.OpTestConnection, errors.KAuthentication, "authentication failed - please check your API key")
			auth.StatusCode, auth.Body = e.StatusCode, e.Body
			return auth
		case e.Kind == errors.KRemote:
			remote := errors.HTTP(errors.OpTestConnection, http.StatusText(e.StatusCode), e.StatusCode, e.Body,
				"connection failed with status code "+strconv.Itoa(e.StatusCode))
			return remote
		case e.Kind == errors.KCanceled && parent.Err() == nil:
			return errors.ES(errors.OpTestConnection, errors.KTransport, "connection timed out after %s", timeout)
		case e.Kind == errors.KInternal:
			return errors.ES(errors.OpTestConnection, errors.KInternal, "invalid response format from server")
		}
		return err
	}

	if _, ok := body.([]interface{}); !ok {
		return errors.ES(errors.OpTestConnection, errors.KInternal, "invalid response format from server")
	}
	return nil
}
