package redash

import (
	"context"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/manu156/redash-go/errors"
)

// errJobPending is returned by a poll attempt that saw a non terminal status. It is the only error
// that is retried.
var errJobPending = errors.ES(errors.OpPollJob, errors.KTimeout, "job is still pending")

// waitForJob polls job id until it finishes and returns the id of its result.
//
// The first poll is immediate and the rest are c.pollInterval apart, for at most c.maxPollAttempts polls.
// A failed job, a transport failure or a non-2xx answer ends the wait at once.
func (c *Client) waitForJob(ctx context.Context, id ID) (ID, error) {
	logger := zerolog.Ctx(ctx).With().Str("function", "waitForJob").Str("job", id.String()).Logger()
	start := time.Now()
	attempt := 0

	poll := func() (ID, error) {
		attempt++

		var env jobEnvelope
		if err := c.doRequest(ctx, errors.OpPollJob, http.MethodGet, c.endpoint("jobs", string(id)), nil, &env); err != nil {
			return "", backoff.Permanent(err)
		}
		if env.Job == nil {
			return "", backoff.Permanent(errors.ES(errors.OpPollJob, errors.KInternal, "job %s: response had no job", id))
		}

		job := env.Job
		logger.Debug().Int("attempt", attempt).Str("status", job.Status.String()).Msg("job status check")

		switch job.Status {
		case JobFinished:
			if job.QueryResultID == "" {
				return "", backoff.Permanent(errors.ES(errors.OpPollJob, errors.KInternal, "job %s finished without a query_result_id", id))
			}
			return job.QueryResultID, nil
		case JobFailed:
			if job.Error == "" {
				return "", backoff.Permanent(errors.ES(errors.OpPollJob, errors.KRemote, "job %s failed", id))
			}
			// The message is the service's text, unchanged.
			return "", backoff.Permanent(errors.ES(errors.OpPollJob, errors.KRemote, "%s", job.Error))
		}
		return "", errJobPending
	}

	var b backoff.BackOff = backoff.NewConstantBackOff(c.pollInterval)
	b = backoff.WithMaxRetries(b, uint64(max(c.maxPollAttempts, 1)-1))
	b = backoff.WithContext(b, ctx)

	resultID, err := backoff.RetryWithData(poll, b)
	switch {
	case err == nil:
		logger.Debug().Int("attempts", attempt).Dur("elapsed", time.Since(start)).Msg("job finished")
		return resultID, nil
	case err == errJobPending:
		logger.Error().Int("attempts", attempt).Msg("job did not finish")
		return "", errors.ES(errors.OpPollJob, errors.KTimeout, "job %s did not finish after %d attempts", id, attempt)
	case err == ctx.Err():
		return "", errors.E(errors.OpPollJob, errors.KCanceled, err)
	}
	return "", err
}
