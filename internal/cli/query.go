package cli

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newQueryCmd(s *settings) *cobra.Command {
	var (
		params []string
		args   []string
	)

	cmd := &cobra.Command{
		Use:   "query TEXT",
		Short: "Run a query and print the result",
		Long: `Run a query and print the result.

TEXT may be SHOW DATABASES, SHOW TABLES, EXPLAIN <query>, a SELECT over a
saved query (SELECT * FROM query_42) or any other SELECT, which is sent as an
ad-hoc query on the selected data source.`,
		Example: `  redash query "show databases"
  redash query "select * from query_42" --param region=eu
  redash query -o json "select count(*) from events"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, positional []string) error {
			queryArgs, err := queryArguments(params, args)
			if err != nil {
				return err
			}

			db, err := s.openDB(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			rows, err := db.QueryContext(cmd.Context(), positional[0], queryArgs...)
			if err != nil {
				return err
			}
			defer rows.Close()

			return renderRows(cmd.OutOrStdout(), rows, s.output)
		},
	}

	cmd.Flags().StringArrayVar(&params, "param", nil, "Named query parameter as key=value (repeatable)")
	cmd.Flags().StringArrayVar(&args, "arg", nil, "Positional query parameter, sent as p1, p2, ... (repeatable)")
	return cmd
}

// queryArguments turns --param and --arg values into database/sql arguments.
func queryArguments(params, args []string) ([]interface{}, error) {
	out := make([]interface{}, 0, len(params)+len(args))
	for _, a := range args {
		out = append(out, a)
	}
	for _, p := range params {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --param %q: expected key=value", p)
		}
		out = append(out, sql.Named(k, v))
	}
	return out, nil
}
