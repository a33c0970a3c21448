package engine

import (
	"context"
	"fmt"

	"github.com/ledgerflow/importd/internal/jobs"
)

// Handler returns the queue handler that runs import jobs on this engine.
// Each job gets its own progress recorder keyed by session id; fatal errors
// publish a failed snapshot before propagating to the queue's retry logic.
func (e *Engine) Handler(progress jobs.ProgressStore) jobs.JobHandler {
	return func(ctx context.Context, job jobs.Job) error {
		imp, ok := job.(*jobs.ImportJob)
		if !ok {
			return fmt.Errorf("unexpected job type %T", job)
		}

		log := e.log.With().
			Str("job_id", imp.JobID).
			Str("session_id", imp.SessionID).
			Str("kind", string(imp.Kind)).
			Logger()

		switch imp.Kind {
		case jobs.JobKindProcess:
			recorder := jobs.NewProgressRecorder(progress, imp.SessionID, len(imp.Parsed))
			state := &ProcessState{
				Account:  imp.Account,
				Parsed:   imp.Parsed,
				Raw:      imp.Raw,
				FileName: imp.FileName,
				Recorder: recorder,
			}
			if err := e.RunProcess(ctx, state); err != nil {
				log.Error().Err(err).Msg("processing job failed")
				recorder.Fail(err)
				return err
			}
			log.Info().Int("total", state.Result.Total()).Msg("processing job completed")
			return nil

		case jobs.JobKindExecute:
			recorder := jobs.NewProgressRecorder(progress, imp.SessionID, len(imp.Confirmed))
			if err := e.RunExecute(ctx, imp.Confirmed, recorder); err != nil {
				log.Error().Err(err).Msg("execute job failed")
				recorder.Fail(err)
				return err
			}
			log.Info().Int("count", len(imp.Confirmed)).Msg("execute job completed")
			return nil

		default:
			return fmt.Errorf("unknown job kind %q", imp.Kind)
		}
	}
}
