package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gongmoalim/gongmo-backend/models"
)

type fakeScheduleSource struct {
	rows []models.ScheduleRow
	err  error
}

func (f *fakeScheduleSource) Fetch(ctx context.Context) ([]models.ScheduleRow, error) {
	return f.rows, f.err
}

type fakeDetailSource struct {
	details map[string]*models.OfferingDetail
}

func (f *fakeDetailSource) FetchDetail(ctx context.Context, name string) (*models.OfferingDetail, error) {
	return f.details[name], nil
}

type fakeDisclosureSource struct{}

func (f *fakeDisclosureSource) FetchDisclosures(ctx context.Context, companyName string) (*models.CompanyDisclosures, error) {
	return nil, nil
}

type fakeOracle struct {
	payload *OraclePayload
	err     error
}

func (f *fakeOracle) Evaluate(ctx context.Context, offering models.Offering, detail *models.OfferingDetail, disclosures *models.CompanyDisclosures) (*OraclePayload, error) {
	return f.payload, f.err
}

type recordingSink struct {
	mu     sync.Mutex
	events []models.Milestone
	err    error
}

func (s *recordingSink) CreateEvent(ctx context.Context, milestone models.Milestone) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, milestone)
	return s.err
}

func scheduleRows(names ...string) []models.ScheduleRow {
	var rows []models.ScheduleRow
	for _, name := range names {
		rows = append(rows, models.ScheduleRow{
			Name:  name,
			Cells: []string{name, "업종", "21,000", "19,000~21,000", "2026.02.19~02.20", "2026.03.05"},
		})
	}
	return rows
}

func newTestPipeline(deps PipelineDependencies) *CollectionPipeline {
	if deps.Deduplicator == nil {
		deps.Deduplicator = NewScheduleDeduplicator()
	}
	if deps.GradeModel == nil {
		deps.GradeModel = NewGradeModel()
	}
	if deps.Planner == nil {
		deps.Planner = NewMilestonePlanner(NewDateNormalizerWithClock(fixedClock(2026, time.January, 10)))
	}
	if deps.RequestsPerSecond == 0 {
		deps.RequestsPerSecond = 1000 // tests never throttle
	}
	return NewCollectionPipeline(deps)
}

func TestPipelineRunHappyPath(t *testing.T) {
	sink := &recordingSink{}
	pipeline := newTestPipeline(PipelineDependencies{
		Schedule: &fakeScheduleSource{rows: scheduleRows("한빛반도체", "서울바이오")},
		Detail: &fakeDetailSource{details: map[string]*models.OfferingDetail{
			"한빛반도체": {Name: "한빛반도체", InstitutionalCompetition: "1523.4:1"},
		}},
		Disclosures: &fakeDisclosureSource{},
		Sink:        sink,
	})

	result, err := pipeline.Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, result.Offerings, 2)
	assert.False(t, result.UsedFallback)
	assert.Empty(t, result.NewNames) // first cycle has no baseline

	analyses := pipeline.LatestAnalyses()
	require.Len(t, analyses, 2)
	assert.Equal(t, models.GradeAPlus, analyses[0].Grade) // 1523.4:1 fallback
	assert.True(t, analyses[0].FallbackUsed)              // no oracle configured
	assert.Equal(t, models.GradeB, analyses[1].Grade)     // no detail at all

	// Each offering has subscription, refund and listing events delivered.
	assert.Len(t, sink.events, 6)
}

func TestPipelineFallsBackToSecondarySource(t *testing.T) {
	fallbackRows := []models.ScheduleRow{scheduleRowFromFiling("한빛반도체", "20260220")}

	pipeline := newTestPipeline(PipelineDependencies{
		Schedule: &fakeScheduleSource{err: errors.New("schedule site down")},
		Fallback: &fakeScheduleSource{rows: fallbackRows},
		Detail:   &fakeDetailSource{},
	})

	result, err := pipeline.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, result.UsedFallback)
	require.Len(t, result.Offerings, 1)
	assert.Equal(t, "DART", result.Offerings[0].Source)
	assert.Equal(t, "확인 필요", result.Offerings[0].OfferPrice)
}

func TestPipelineFallsBackOnEmptySchedule(t *testing.T) {
	pipeline := newTestPipeline(PipelineDependencies{
		Schedule: &fakeScheduleSource{rows: nil}, // fetch ok but nothing usable
		Fallback: &fakeScheduleSource{rows: scheduleRows("한빛반도체")},
		Detail:   &fakeDetailSource{},
	})

	result, err := pipeline.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, result.UsedFallback)
	assert.Len(t, result.Offerings, 1)
}

func TestPipelineErrorsWhenAllSourcesFail(t *testing.T) {
	pipeline := newTestPipeline(PipelineDependencies{
		Schedule: &fakeScheduleSource{err: errors.New("schedule site down")},
		Fallback: &fakeScheduleSource{err: errors.New("DART down")},
		Detail:   &fakeDetailSource{},
	})

	_, err := pipeline.Run(context.Background())
	assert.Error(t, err)
	assert.Nil(t, pipeline.LatestResult())
}

func TestPipelineDetectsNewOfferings(t *testing.T) {
	schedule := &fakeScheduleSource{rows: scheduleRows("한빛반도체")}
	pipeline := newTestPipeline(PipelineDependencies{
		Schedule: schedule,
		Detail:   &fakeDetailSource{},
	})

	_, err := pipeline.Run(context.Background())
	require.NoError(t, err)

	schedule.rows = scheduleRows("한빛반도체", "서울바이오")
	result, err := pipeline.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"서울바이오"}, result.NewNames)

	// A third run with the same schedule reports nothing new.
	result, err = pipeline.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, result.NewNames)
}

func TestPipelineUsesOraclePayload(t *testing.T) {
	pipeline := newTestPipeline(PipelineDependencies{
		Schedule: &fakeScheduleSource{rows: scheduleRows("한빛반도체")},
		Detail:   &fakeDetailSource{},
		Oracle:   &fakeOracle{payload: validPayload()},
	})

	_, err := pipeline.Run(context.Background())
	require.NoError(t, err)

	analyses := pipeline.LatestAnalyses()
	require.Len(t, analyses, 1)
	assert.False(t, analyses[0].FallbackUsed)
	assert.Equal(t, models.GradeA, analyses[0].Grade)
}

func TestPipelineSurvivesOracleFailure(t *testing.T) {
	pipeline := newTestPipeline(PipelineDependencies{
		Schedule: &fakeScheduleSource{rows: scheduleRows("한빛반도체")},
		Detail:   &fakeDetailSource{},
		Oracle:   &fakeOracle{err: errors.New("model quota exceeded")},
	})

	_, err := pipeline.Run(context.Background())
	require.NoError(t, err)

	analyses := pipeline.LatestAnalyses()
	require.Len(t, analyses, 1)
	assert.True(t, analyses[0].FallbackUsed)
}

func TestPipelineSurvivesSinkFailure(t *testing.T) {
	sink := &recordingSink{err: errors.New("calendar rejected event")}
	pipeline := newTestPipeline(PipelineDependencies{
		Schedule: &fakeScheduleSource{rows: scheduleRows("한빛반도체")},
		Detail:   &fakeDetailSource{},
		Sink:     sink,
	})

	result, err := pipeline.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, result.Offerings, 1)
	assert.NotEmpty(t, sink.events) // delivery was attempted for every milestone
}

func TestTomorrowSubscriptions(t *testing.T) {
	rows := []models.ScheduleRow{
		{Name: "내일청약", Cells: []string{"내일청약", "업종", "10,000", "", "2026.01.11~01.12", ""}},
		{Name: "다음주청약", Cells: []string{"다음주청약", "업종", "10,000", "", "2026.01.19~01.20", ""}},
	}

	pipeline := newTestPipeline(PipelineDependencies{
		Schedule: &fakeScheduleSource{rows: rows},
		Detail:   &fakeDetailSource{},
	})
	pipeline.now = func() time.Time {
		return time.Date(2026, time.January, 10, 9, 0, 0, 0, KST)
	}

	_, err := pipeline.Run(context.Background())
	require.NoError(t, err)

	tomorrow := pipeline.TomorrowSubscriptions()
	require.Len(t, tomorrow, 1)
	assert.Equal(t, "내일청약", tomorrow[0].Offering.Name)
}
