package redash

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/manu156/redash-go/command"
	"github.com/manu156/redash-go/errors"
	"github.com/manu156/redash-go/query"
)

// Column names of the listing results. They match what SQL clients expect from SHOW statements.
const (
	DatabaseColumn = "Database"
	TablesColumn   = "Tables_in_redash"
)

// Query classifies text, runs it and returns a Cursor over the result. params are sent to Redash as
// query parameters when the text runs a query.
func (c *Client) Query(ctx context.Context, text string, params map[string]interface{}) (*query.Cursor, error) {
	cmd, err := command.Classify(text, params)
	if err != nil {
		return nil, err
	}
	res, err := c.Run(ctx, cmd)
	if err != nil {
		return nil, err
	}
	return query.NewCursor(res), nil
}

// Run executes a classified command.
func (c *Client) Run(ctx context.Context, cmd command.Command) (*query.Result, error) {
	logger := zerolog.Ctx(ctx).With().Str("function", "Run").Str("command", cmd.Kind.String()).Logger()
	logger.Debug().Msg("running command")
	ctx = logger.WithContext(ctx)

	switch cmd.Kind {
	case command.ListDataSources:
		sources, err := c.ListDataSources(ctx)
		if err != nil {
			return nil, err
		}
		if len(sources) == 0 {
			return nil, errors.ES(errors.OpListDataSources, errors.KNotFound, "no data sources available in Redash")
		}
		return query.NewStringResult(DatabaseColumn, lo.Map(sources, func(d DataSource, _ int) string { return d.Name })), nil

	case command.ListQueries:
		queries, err := c.ListQueries(ctx)
		if err != nil {
			return nil, err
		}
		if len(queries) == 0 {
			return nil, errors.ES(errors.OpListQueries, errors.KNotFound, "no queries available in Redash")
		}
		return query.NewStringResult(TablesColumn, lo.Map(queries, func(q NamedQuery, _ int) string { return q.Name })), nil

	case command.Explain:
		ds, err := c.dataSource(ctx)
		if err != nil {
			return nil, err
		}
		id, err := c.CreateNamedQuery(ctx, generatedName("EXPLAIN Query"), "Query created by redash-go EXPLAIN", ds, "EXPLAIN "+cmd.Text)
		if err != nil {
			return nil, err
		}
		return c.ExecuteByID(ctx, id, nil)

	case command.ExecuteByID:
		return c.ExecuteByID(ctx, ID(cmd.QueryID), cmd.Params)

	case command.ExecuteAdHoc:
		ds, err := c.dataSource(ctx)
		if err != nil {
			return nil, err
		}
		return c.ExecuteAdHoc(ctx, ds, cmd.Text, cmd.Params)
	}

	return nil, errors.ES(errors.OpExecute, errors.KInternal, "unknown command kind %s", cmd.Kind)
}

// dataSource returns the data source for ad-hoc and EXPLAIN queries: the configured one, or else
// the first one the server lists.
func (c *Client) dataSource(ctx context.Context) (ID, error) {
	if c.dataSourceID != "" {
		return ID(c.dataSourceID), nil
	}
	sources, err := c.ListDataSources(ctx)
	if err != nil {
		return "", err
	}
	if len(sources) == 0 {
		return "", errors.ES(errors.OpListDataSources, errors.KNotFound, "no data sources available in Redash")
	}
	return sources[0].ID, nil
}
