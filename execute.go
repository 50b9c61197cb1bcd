package redash

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/manu156/redash-go/errors"
	"github.com/manu156/redash-go/query"
)

// ExecuteByID runs the saved query id with params and returns its result. The query text and its
// data source are looked up first, then the text is submitted for execution.
func (c *Client) ExecuteByID(ctx context.Context, id ID, params map[string]interface{}) (*query.Result, error) {
	logger := zerolog.Ctx(ctx).With().Str("function", "ExecuteByID").Str("query", id.String()).Logger()
	start := time.Now()

	q, err := c.GetQuery(ctx, id)
	if err != nil {
		return nil, err
	}
	logger.Debug().Str("dataSource", q.DataSourceID.String()).Int("length", len(q.Query)).Msg("retrieved query text")

	res, err := c.submit(logger.WithContext(ctx), q.DataSourceID, q.Query, params)
	if err != nil {
		return nil, err
	}

	logger.Debug().Dur("elapsed", time.Since(start)).Int("rows", res.Len()).Msg("query executed")
	return res, nil
}

// ExecuteAdHoc saves text as a new query on dataSourceID and runs it with params.
// The saved query is left on the server.
func (c *Client) ExecuteAdHoc(ctx context.Context, dataSourceID ID, text string, params map[string]interface{}) (*query.Result, error) {
	id, err := c.CreateNamedQuery(ctx, generatedName("Go Query"), "Query created by redash-go", dataSourceID, text)
	if err != nil {
		return nil, err
	}
	return c.ExecuteByID(ctx, id, params)
}

// generatedName returns a query name made unique by a millisecond timestamp.
func generatedName(prefix string) string {
	return fmt.Sprintf("%s %d", prefix, time.Now().UnixMilli())
}

// submit posts text for execution. Redash answers with a result right away when it has one, and
// with a job to wait for otherwise.
func (c *Client) submit(ctx context.Context, dataSourceID ID, text string, params map[string]interface{}) (*query.Result, error) {
	logger := zerolog.Ctx(ctx).With().Str("function", "submit").Logger()
	if len(params) > 0 {
		logger.Debug().Fields(params).Msg("with parameters")
	}

	req := executeRequest{
		DataSourceID: dataSourceID,
		Query:        text,
		Parameters:   params,
	}

	var env resultEnvelope
	if err := c.doRequest(ctx, errors.OpExecute, http.MethodPost, c.endpoint("query_results"), req, &env); err != nil {
		return nil, err
	}

	switch {
	case env.Job != nil:
		logger.Debug().Str("job", env.Job.ID.String()).Msg("query executing asynchronously")
		resultID, err := c.waitForJob(ctx, env.Job.ID)
		if err != nil {
			return nil, err
		}
		return c.fetchResult(ctx, resultID)
	case env.QueryResult != nil:
		return env.QueryResult.materialize(errors.OpExecute)
	}
	return nil, errors.ES(errors.OpExecute, errors.KInternal, "response had neither a query_result nor a job")
}

// fetchResult downloads a finished query result.
func (c *Client) fetchResult(ctx context.Context, id ID) (*query.Result, error) {
	var env resultEnvelope
	if err := c.doRequest(ctx, errors.OpFetchResult, http.MethodGet, c.endpoint("query_results", string(id)), nil, &env); err != nil {
		return nil, err
	}
	if env.QueryResult == nil {
		return nil, errors.ES(errors.OpFetchResult, errors.KInternal, "no query result found in response for result %s", id)
	}
	return env.QueryResult.materialize(errors.OpFetchResult)
}
