package redash

// wire.go holds the JSON shapes exchanged with the Redash REST API.

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/samber/lo"

	"github.com/manu156/redash-go/errors"
	"github.com/manu156/redash-go/query"
	"github.com/manu156/redash-go/types"
)

// ID identifies a Redash object. Redash sends ids as JSON numbers, but some endpoints and proxies
// send them as strings, so both are accepted. An ID made only of digits is sent back as a number.
type ID string

// UnmarshalJSON implements json.Unmarshaler.
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || string(b) == "null":
		*id = ""
		return nil
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id must be a number or a string, was %s", b)
	}
	*id = ID(n.String())
	return nil
}

// MarshalJSON implements json.Marshaler.
func (id ID) MarshalJSON() ([]byte, error) {
	if id.numeric() {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id ID) numeric() bool {
	if id == "" || len(id) > 18 || (len(id) > 1 && id[0] == '0') {
		return false
	}
	_, err := strconv.ParseUint(string(id), 10, 64)
	return err == nil
}

func (id ID) String() string {
	return string(id)
}

// DataSource is a database or service that Redash can run queries on.
type DataSource struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// NamedQuery is a query saved on the Redash server.
type NamedQuery struct {
	ID           ID     `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	DataSourceID ID     `json:"data_source_id"`
	Query        string `json:"query"`
}

type queryList struct {
	Count    int          `json:"count"`
	Page     int          `json:"page"`
	PageSize int          `json:"page_size"`
	Results  []NamedQuery `json:"results"`
}

type createQueryRequest struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	DataSourceID ID     `json:"data_source_id"`
	Query        string `json:"query"`
}

type executeRequest struct {
	DataSourceID ID                     `json:"data_source_id"`
	Query        string                 `json:"query"`
	Parameters   map[string]interface{} `json:"parameters,omitempty"`
}

// JobStatus is the state of an asynchronous Redash job.
type JobStatus uint8

const (
	// JobPending is any status that is not known to be terminal.
	JobPending JobStatus = iota
	// JobQueued means the job is waiting for a worker.
	JobQueued
	// JobStarted means a worker is running the job.
	JobStarted
	// JobFinished means the result is ready.
	JobFinished
	// JobFailed means the job failed or was cancelled.
	JobFailed
)

func (s JobStatus) String() string {
	switch s {
	case JobQueued:
		return "queued"
	case JobStarted:
		return "started"
	case JobFinished:
		return "finished"
	case JobFailed:
		return "failed"
	}
	return "pending"
}

// Done reports whether the job will not change state again.
func (s JobStatus) Done() bool {
	return s == JobFinished || s == JobFailed
}

// UnmarshalJSON accepts both the status names and the numeric codes Redash uses:
// 1 queued, 2 started, 3 finished, 4 failed and 5 cancelled.
func (s *JobStatus) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var name string
		if err := json.Unmarshal(b, &name); err != nil {
			return err
		}
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "queued":
			*s = JobQueued
		case "started":
			*s = JobStarted
		case "finished":
			*s = JobFinished
		case "failed", "cancelled", "canceled":
			*s = JobFailed
		default:
			*s = JobPending
		}
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		*s = JobPending
		return nil
	}
	switch n.String() {
	case "1":
		*s = JobQueued
	case "2":
		*s = JobStarted
	case "3":
		*s = JobFinished
	case "4", "5":
		*s = JobFailed
	default:
		*s = JobPending
	}
	return nil
}

// Job is an asynchronous query execution on the Redash server.
type Job struct {
	ID     ID        `json:"id"`
	Status JobStatus `json:"status"`
	// QueryResultID is set once the job has finished.
	QueryResultID ID `json:"query_result_id"`
	// Error is set once the job has failed.
	Error string `json:"error"`
}

type jobEnvelope struct {
	Job *Job `json:"job"`
}

type resultColumn struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type resultData struct {
	Columns []resultColumn           `json:"columns"`
	Rows    []map[string]interface{} `json:"rows"`
}

type queryResult struct {
	ID   ID          `json:"id"`
	Data *resultData `json:"data"`
}

// resultEnvelope is returned by POST /query_results, which answers with a result when one is
// cached and a job otherwise, and by GET /query_results/{id}.
type resultEnvelope struct {
	QueryResult *queryResult `json:"query_result"`
	Job         *Job         `json:"job"`
}

// materialize turns the payload into a query.Result. Cells are kept raw.
func (r *queryResult) materialize(op errors.Op) (*query.Result, error) {
	if r == nil || r.Data == nil {
		return nil, errors.ES(op, errors.KInternal, "no data found in query result")
	}
	if r.Data.Columns == nil || r.Data.Rows == nil {
		return nil, errors.ES(op, errors.KInternal, "invalid query result format: columns and rows are required")
	}

	columns := lo.Map(r.Data.Columns, func(c resultColumn, i int) query.Column {
		return query.NewColumn(i, c.Name, types.Parse(c.Type))
	})
	rows := lo.Map(r.Data.Rows, func(row map[string]interface{}, _ int) query.Row {
		return query.Row(row)
	})
	return query.NewResult(columns, rows), nil
}
