package utils

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/vgarvardt/gue/v5"
)

// jobs on simple queues are dropped after this many failed attempts
const maxSimpleJobAttempts = 3

// CreateHandler wraps a typed handler func into a gue work func.
// Unlike the pipeline job handler it has no failure routing: after
// maxSimpleJobAttempts the job is logged and dropped.
func CreateHandler[TM any, SD any](data *SD, hf func(context.Context, *TM, *SD) error) gue.WorkFunc {
	return func(ctx context.Context, j *gue.Job) error {
		var m TM
		if err := json.Unmarshal(j.Args, &m); err != nil {
			return fmt.Errorf("could not unmarshal message: %w", err)
		}
		goapp.Log.Info().Str("queue", j.Queue).Str("type", j.Type).Int32("errCount", j.ErrorCount).Msg("got msg")
		if j.ErrorCount >= maxSimpleJobAttempts {
			goapp.Log.Error().Int32("attempts", j.ErrorCount).Str("lastError", j.LastError.String).
				Msg("msg failed, dropping")
			return nil
		}
		return hf(ctx, &m, data)
	}
}
