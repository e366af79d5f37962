package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gongmoalim/gongmo-backend/services"
	"github.com/gongmoalim/gongmo-backend/shared"
)

// DailyCollectionJob runs one collection cycle and logs what changed. The
// pipeline keeps the cycle's state for the handlers; this job only drives it
// and surfaces the new-offering and tomorrow-subscription signals.
type DailyCollectionJob struct {
	Pipeline *services.CollectionPipeline
}

func NewDailyCollectionJob(pipeline *services.CollectionPipeline) *DailyCollectionJob {
	return &DailyCollectionJob{Pipeline: pipeline}
}

func (j *DailyCollectionJob) Run() {
	logrus.Info("Starting Daily Collection Job")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
	defer cancel()

	result, err := j.Pipeline.Run(ctx)
	if err != nil {
		var serviceErr *shared.ServiceError
		if errors.As(err, &serviceErr) {
			serviceErr.LogError()
		} else {
			logrus.Errorf("Failed to run Daily Collection Job: %v", err)
		}
		return
	}

	if len(result.NewNames) > 0 {
		logrus.WithFields(logrus.Fields{
			"new_offerings": result.NewNames,
		}).Infof("Detected %d new offerings on the schedule", len(result.NewNames))
	}

	tomorrow := j.Pipeline.TomorrowSubscriptions()
	for _, analysis := range tomorrow {
		logrus.WithFields(logrus.Fields{
			"offering": analysis.Offering.Name,
			"grade":    analysis.Grade,
			"window":   analysis.Offering.SubscriptionDate,
		}).Info("Subscription opens tomorrow")
	}

	logrus.WithFields(logrus.Fields{
		"offerings":            len(result.Offerings),
		"new_offerings":        len(result.NewNames),
		"subscribing_tomorrow": len(tomorrow),
		"used_fallback":        result.UsedFallback,
	}).Info("Daily Collection Job completed")
}
