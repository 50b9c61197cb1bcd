/*
Package redash is a client and database/sql driver for the Redash query service.

Redash runs queries asynchronously: a query is submitted, the resulting job is polled until it
finishes, and the result is then fetched. Client hides that protocol behind a small set of read-only
commands that are sniffed from SQL-like text:

	SHOW DATABASES                   one row per data source, in a "Database" column
	SHOW TABLES                      one row per saved query, in a "Tables_in_redash" column
	EXPLAIN <text>                   runs EXPLAIN <text> on the selected data source
	SELECT ... FROM query_<id> ...   runs saved query <id>
	SELECT ...                       runs the text as a new ad-hoc query

Create a Client from a Config, either built by hand or parsed from a connection string:

	cfg, err := redash.ParseDSN("redash://redash.example.com?apiKey=KEY&scheme=https")
	if err != nil {
		// Do something
	}

	client, err := redash.New(cfg)
	if err != nil {
		// Do something
	}
	defer client.Close()

	cur, err := client.Query(ctx, "SELECT * FROM query_42", nil)
	if err != nil {
		// Do something
	}
	defer cur.Close()

	for cur.Next() {
		name, err := cur.String("name")
		...
	}

The same operations are available through database/sql. The driver is never registered globally;
build a Connector and hand it to sql.OpenDB:

	connector, err := redash.NewConnector(cfg)
	if err != nil {
		// Do something
	}
	db := sql.OpenDB(connector)

The driver is read-only: Exec, transactions and the other mutating calls fail with errors.KUnsupported.

Ad-hoc and EXPLAIN queries are saved on the server as new named queries before they run, and they are
not deleted afterwards.

Calls block until the job finishes. A job is polled every 5 seconds for at most 60 attempts before the
call fails with errors.KTimeout. Canceling the context stops the wait with errors.KCanceled.

Logging uses the zerolog.Logger attached to the context, if any:

	ctx = zerolog.New(os.Stderr).WithContext(ctx)
*/
package redash
