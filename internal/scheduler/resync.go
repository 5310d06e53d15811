package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

const (
	resyncJobName = "profile_resync"
	resyncTimeout = 30 * time.Second
)

// Refresher is the part of the settings form the resync job drives.
type Refresher interface {
	Refresh(ctx context.Context) (bool, error)
}

// RegisterResyncJob reloads form from the profile on cronExpr so changes
// made on other devices show up without a page reload.
func RegisterResyncJob(s *Service, form Refresher, cronExpr string) error {
	if form == nil {
		return fmt.Errorf("resync job requires a form")
	}
	if _, err := s.AddJob(resyncJobName, cronExpr, resyncTask(form, s.logger.With().Str("job_name", resyncJobName).Logger())); err != nil {
		return fmt.Errorf("add profile resync job: %w", err)
	}
	return nil
}

func resyncTask(form Refresher, logger zerolog.Logger) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), resyncTimeout)
		defer cancel()
		ctx = logger.WithContext(ctx)

		reloaded, err := form.Refresh(ctx)
		switch {
		case err != nil:
			logger.Warn().Err(err).Msg("Profile resync finished with errors")
		case !reloaded:
			logger.Debug().Msg("Profile resync skipped: unsaved edits or save in progress")
		default:
			logger.Debug().Msg("Profile resync complete")
		}
	}
}
