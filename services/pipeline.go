package services

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/gongmoalim/gongmo-backend/models"
	"github.com/gongmoalim/gongmo-backend/shared"
)

// KST is the market timezone. Subscription windows and "tomorrow" filters
// are evaluated in it regardless of where the service runs.
var KST = time.FixedZone("KST", 9*60*60)

const dartSourceLabel = "DART"

// CollectionPipeline runs one full collection cycle: fetch the schedule,
// canonicalize it, enrich each offering with detail and disclosures, grade
// it, and push the derived milestones to the calendar sink.
//
// Stages degrade independently. A failed primary schedule fetch falls back to
// the filing-based source; a failed detail, disclosure or oracle call leaves
// that enrichment empty and the offering proceeds with what it has. Only a
// cycle with no schedule rows at all returns an error.
//
// All upstream calls pass through one shared token-bucket limiter so a cycle
// never hammers the sources, however many offerings the schedule carries.
type CollectionPipeline struct {
	schedule    ScheduleSource
	fallback    ScheduleSource
	detail      DetailSource
	disclosures DisclosureSource
	oracle      GradingOracle // nil when no oracle is configured
	sink        CalendarSink  // nil when no calendar is configured

	deduplicator *ScheduleDeduplicator
	gradeModel   *GradeModel
	planner      *MilestonePlanner
	limiter      *rate.Limiter
	metrics      *shared.SourceMetrics
	now          func() time.Time

	mu            sync.RWMutex
	previousNames map[string]struct{}
	lastResult    *models.CollectionResult
	lastAnalyses  []models.OfferingAnalysis
}

// PipelineDependencies bundles the pipeline's collaborators. fallback,
// oracle and sink are optional; everything else is required.
type PipelineDependencies struct {
	Schedule          ScheduleSource
	Fallback          ScheduleSource
	Detail            DetailSource
	Disclosures       DisclosureSource
	Oracle            GradingOracle
	Sink              CalendarSink
	Deduplicator      *ScheduleDeduplicator
	GradeModel        *GradeModel
	Planner           *MilestonePlanner
	RequestsPerSecond float64
}

func NewCollectionPipeline(deps PipelineDependencies) *CollectionPipeline {
	rps := deps.RequestsPerSecond
	if rps <= 0 {
		rps = 1.0
	}
	return &CollectionPipeline{
		schedule:      deps.Schedule,
		fallback:      deps.Fallback,
		detail:        deps.Detail,
		disclosures:   deps.Disclosures,
		oracle:        deps.Oracle,
		sink:          deps.Sink,
		deduplicator:  deps.Deduplicator,
		gradeModel:    deps.GradeModel,
		planner:       deps.Planner,
		limiter:       rate.NewLimiter(rate.Limit(rps), 1),
		metrics:       shared.NewSourceMetrics(),
		now:           time.Now,
		previousNames: make(map[string]struct{}),
	}
}

// Run executes one collection cycle and returns its result. Safe to call
// from both the daily job and the admin trigger; cycles serialize on the
// shared limiter rather than on a lock, so a slow manual run delays but
// never breaks the scheduled one.
func (p *CollectionPipeline) Run(ctx context.Context) (*models.CollectionResult, error) {
	logger := logrus.WithField("component", "CollectionPipeline")
	started := p.now()

	offerings, usedFallback, err := p.collectOfferings(ctx)
	if err != nil {
		return nil, err
	}

	newNames := p.detectNewNames(offerings)

	analyses := make([]models.OfferingAnalysis, 0, len(offerings))
	for _, offering := range offerings {
		analysis := p.analyzeOffering(ctx, offering)
		analyses = append(analyses, analysis)
		p.deliverMilestones(ctx, analysis)
	}

	result := &models.CollectionResult{
		Offerings:    offerings,
		NewNames:     newNames,
		CollectedAt:  started,
		UsedFallback: usedFallback,
	}

	p.mu.Lock()
	p.previousNames = nameSet(offerings)
	p.lastResult = result
	p.lastAnalyses = analyses
	p.mu.Unlock()

	logger.WithFields(logrus.Fields{
		"offerings":     len(offerings),
		"new_offerings": len(newNames),
		"used_fallback": usedFallback,
		"duration":      time.Since(started),
	}).Info("Collection cycle completed")
	return result, nil
}

// collectOfferings fetches and canonicalizes the schedule, falling back to
// the secondary source when the primary fails or yields nothing usable.
func (p *CollectionPipeline) collectOfferings(ctx context.Context) ([]models.Offering, bool, error) {
	logger := logrus.WithField("component", "CollectionPipeline")

	if err := p.limiter.Wait(ctx); err != nil {
		return nil, false, err
	}
	fetchStart := p.now()
	rows, err := p.schedule.Fetch(ctx)
	p.metrics.RecordCall("schedule", err, time.Since(fetchStart))
	if err == nil {
		if offerings := p.deduplicator.Canonicalize(rows); len(offerings) > 0 {
			return offerings, false, nil
		}
		logger.Warn("Primary schedule fetch yielded no usable rows")
	} else {
		logger.WithError(err).Warn("Primary schedule fetch failed")
	}

	if p.fallback == nil {
		return nil, false, err
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return nil, false, err
	}
	fetchStart = p.now()
	rows, fallbackErr := p.fallback.Fetch(ctx)
	p.metrics.RecordCall("schedule_fallback", fallbackErr, time.Since(fetchStart))
	if fallbackErr != nil {
		logger.WithError(fallbackErr).Error("Fallback schedule fetch failed")
		if err != nil {
			return nil, false, err
		}
		return nil, false, fallbackErr
	}

	offerings := p.deduplicator.Canonicalize(rows)
	for i := range offerings {
		offerings[i].Source = dartSourceLabel
	}
	return offerings, true, nil
}

// analyzeOffering enriches and grades one offering. Every enrichment is
// best-effort; a missing oracle payload routes through the fallback grade.
func (p *CollectionPipeline) analyzeOffering(ctx context.Context, offering models.Offering) models.OfferingAnalysis {
	logger := logrus.WithFields(logrus.Fields{
		"component": "CollectionPipeline",
		"offering":  offering.Name,
	})

	var detail *models.OfferingDetail
	if err := p.limiter.Wait(ctx); err == nil {
		callStart := p.now()
		d, err := p.detail.FetchDetail(ctx, offering.Name)
		p.metrics.RecordCall("detail", err, time.Since(callStart))
		if err != nil {
			logger.WithError(err).Warn("Detail fetch failed, continuing without detail")
		} else {
			detail = d
		}
	}

	var disclosures *models.CompanyDisclosures
	if p.disclosures != nil {
		if err := p.limiter.Wait(ctx); err == nil {
			callStart := p.now()
			d, err := p.disclosures.FetchDisclosures(ctx, offering.Name)
			p.metrics.RecordCall("disclosure", err, time.Since(callStart))
			if err != nil {
				logger.WithError(err).Warn("Disclosure fetch failed, continuing without disclosures")
			} else {
				disclosures = d
			}
		}
	}

	var payload *OraclePayload
	if p.oracle != nil {
		if err := p.limiter.Wait(ctx); err == nil {
			callStart := p.now()
			result, err := p.oracle.Evaluate(ctx, offering, detail, disclosures)
			p.metrics.RecordCall("oracle", err, time.Since(callStart))
			if err != nil {
				logger.WithError(err).Warn("Oracle evaluation failed, using fallback grade")
			} else {
				payload = result
			}
		}
	}

	return p.gradeModel.Analyze(offering, detail, payload)
}

// deliverMilestones plans and posts the calendar events for one analysis.
// Sink failures are logged per event; a rejected refund event does not stop
// the listing event.
func (p *CollectionPipeline) deliverMilestones(ctx context.Context, analysis models.OfferingAnalysis) {
	if p.sink == nil {
		return
	}
	for _, milestone := range p.planner.Plan(analysis) {
		if err := p.sink.CreateEvent(ctx, milestone); err != nil {
			logrus.WithFields(logrus.Fields{
				"component": "CollectionPipeline",
				"offering":  analysis.Offering.Name,
				"milestone": milestone.Kind,
				"error":     err,
			}).Warn("Calendar event delivery failed")
		}
	}
}

// detectNewNames returns the offerings absent from the previous cycle, in
// this cycle's order. The first cycle reports nothing as new: there is no
// baseline to compare against, and alerting on the entire schedule at boot
// would be noise.
func (p *CollectionPipeline) detectNewNames(offerings []models.Offering) []string {
	p.mu.RLock()
	previous := p.previousNames
	hasBaseline := p.lastResult != nil
	p.mu.RUnlock()

	if !hasBaseline {
		return nil
	}

	var newNames []string
	for _, o := range offerings {
		if _, seen := previous[o.Name]; !seen {
			newNames = append(newNames, o.Name)
		}
	}
	return newNames
}

// SourceMetrics returns the per-source call counters accumulated across
// cycles.
func (p *CollectionPipeline) SourceMetrics() []shared.SourceMetricsSnapshot {
	return p.metrics.Snapshot()
}

// LatestResult returns the most recent cycle outcome, or nil before the
// first cycle completes.
func (p *CollectionPipeline) LatestResult() *models.CollectionResult {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastResult
}

// LatestAnalyses returns a copy of the most recent cycle's analyses.
func (p *CollectionPipeline) LatestAnalyses() []models.OfferingAnalysis {
	p.mu.RLock()
	defer p.mu.RUnlock()
	analyses := make([]models.OfferingAnalysis, len(p.lastAnalyses))
	copy(analyses, p.lastAnalyses)
	return analyses
}

// TomorrowSubscriptions filters the latest analyses down to offerings whose
// subscription window opens tomorrow in market time.
func (p *CollectionPipeline) TomorrowSubscriptions() []models.OfferingAnalysis {
	today := p.now().In(KST)
	var matches []models.OfferingAnalysis
	for _, analysis := range p.LatestAnalyses() {
		if p.planner.IsSubscribableTomorrow(analysis.Offering, today) {
			matches = append(matches, analysis)
		}
	}
	return matches
}

func nameSet(offerings []models.Offering) map[string]struct{} {
	set := make(map[string]struct{}, len(offerings))
	for _, o := range offerings {
		set[o.Name] = struct{}{}
	}
	return set
}
