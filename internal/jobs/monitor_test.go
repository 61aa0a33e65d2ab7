package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/docsmith/internal/interfaces"
	"github.com/ternarybob/docsmith/internal/models"
	"github.com/ternarybob/docsmith/internal/notify"
	"github.com/ternarybob/docsmith/internal/services/events"
)

// MockJobsAPI is a mock implementation of JobsAPI
type MockJobsAPI struct {
	mock.Mock
}

func (m *MockJobsAPI) ListJobs(ctx context.Context) ([]models.Job, error) {
	args := m.Called(ctx)
	if jobs, ok := args.Get(0).([]models.Job); ok {
		return jobs, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockJobsAPI) GetJob(ctx context.Context, id string) (*models.Job, error) {
	args := m.Called(ctx, id)
	if job, ok := args.Get(0).(*models.Job); ok {
		return job, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockJobsAPI) CancelJob(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockJobsAPI) DeleteJob(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockJobsAPI) ClearJobs(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func job(id string, status models.JobStatus) models.Job {
	return models.Job{ID: id, Status: status}
}

func TestDiff(t *testing.T) {
	previous := map[string]models.Job{
		"a": job("a", models.JobStatusRunning),
		"b": job("b", models.JobStatusRunning),
		"c": job("c", models.JobStatusDone),
	}
	next := map[string]models.Job{
		"a": job("a", models.JobStatusRunning),
		"b": job("b", models.JobStatusCancelled),
		"d": job("d", models.JobStatusRunning),
	}

	changes := Diff(previous, next)
	require.Len(t, changes, 3)

	assert.Equal(t, interfaces.EventJobCreated, changes[0].Type)
	assert.Equal(t, "d", changes[0].Job.ID)

	assert.Equal(t, interfaces.EventJobStatusChanged, changes[1].Type)
	assert.Equal(t, "b", changes[1].Job.ID)
	assert.Equal(t, models.JobStatusRunning, changes[1].Previous)

	assert.Equal(t, interfaces.EventJobRemoved, changes[2].Type)
	assert.Equal(t, "c", changes[2].Job.ID)

	assert.Empty(t, Diff(next, next))
}

func TestClampInterval(t *testing.T) {
	assert.Equal(t, DefaultInterval, ClampInterval(0))
	assert.Equal(t, MinInterval, ClampInterval(time.Second))
	assert.Equal(t, MaxInterval, ClampInterval(time.Minute))
	assert.Equal(t, 4*time.Second, ClampInterval(4*time.Second))
}

func TestRefresh_FirstPollIsBaseline(t *testing.T) {
	api := &MockJobsAPI{}
	api.On("ListJobs", mock.Anything).Return([]models.Job{job("a", models.JobStatusRunning)}, nil).Once()
	api.On("ListJobs", mock.Anything).Return([]models.Job{job("a", models.JobStatusDone)}, nil).Once()

	recorder := &notify.Recorder{}
	monitor := NewMonitor(api, nil, recorder, arbor.NewNoOpLogger(), 0)

	changes, err := monitor.Refresh(context.Background())
	require.NoError(t, err)
	assert.Empty(t, changes)

	changes, err = monitor.Refresh(context.Background())
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, interfaces.EventJobStatusChanged, changes[0].Type)
	assert.Equal(t, []string{"Job a finished"}, recorder.Messages())

	got, ok := monitor.Job("a")
	require.True(t, ok)
	assert.Equal(t, models.JobStatusDone, got.Status)
	api.AssertExpectations(t)
}

func TestRefresh_ErrorKeepsSnapshot(t *testing.T) {
	api := &MockJobsAPI{}
	api.On("ListJobs", mock.Anything).Return([]models.Job{job("a", models.JobStatusRunning)}, nil).Once()
	api.On("ListJobs", mock.Anything).Return(nil, errors.New("503 Service Unavailable")).Once()

	monitor := NewMonitor(api, nil, nil, nil, 0)

	_, err := monitor.Refresh(context.Background())
	require.NoError(t, err)
	_, err = monitor.Refresh(context.Background())
	require.Error(t, err)

	assert.Error(t, monitor.LastError())
	assert.Len(t, monitor.Jobs(), 1)
}

func TestCancel_RequestsThenRefreshes(t *testing.T) {
	api := &MockJobsAPI{}
	ctx := context.Background()

	mock.InOrder(
		api.On("ListJobs", mock.Anything).Return([]models.Job{job("a", models.JobStatusRunning)}, nil).Once(),
		api.On("CancelJob", mock.Anything, "a").Return(nil).Once(),
		api.On("ListJobs", mock.Anything).Return([]models.Job{job("a", models.JobStatusCancelled)}, nil).Once(),
	)

	service := events.NewService(arbor.NewNoOpLogger())
	var mu sync.Mutex
	var published []Change
	_, err := service.Subscribe(interfaces.EventJobStatusChanged, func(ctx context.Context, event interfaces.Event) error {
		mu.Lock()
		defer mu.Unlock()
		published = append(published, event.Payload.(Change))
		return nil
	})
	require.NoError(t, err)

	monitor := NewMonitor(api, service, nil, arbor.NewNoOpLogger(), 0)
	_, err = monitor.Refresh(ctx)
	require.NoError(t, err)

	require.NoError(t, monitor.Cancel(ctx, "a"))

	got, _ := monitor.Job("a")
	assert.Equal(t, models.JobStatusCancelled, got.Status)
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(published) == 1 && published[0].Previous == models.JobStatusRunning
	}, 2*time.Second, 10*time.Millisecond)
	api.AssertExpectations(t)
}

func TestCancel_FailureDoesNotRefresh(t *testing.T) {
	api := &MockJobsAPI{}
	api.On("CancelJob", mock.Anything, "a").Return(errors.New("404 Not Found")).Once()

	recorder := &notify.Recorder{}
	monitor := NewMonitor(api, nil, recorder, nil, 0)

	err := monitor.Cancel(context.Background(), "a")
	require.Error(t, err)
	assert.Equal(t, []string{"Cancel failed: 404 Not Found"}, recorder.Messages())
	api.AssertNotCalled(t, "ListJobs", mock.Anything)
}

func TestDelete_RemovesAfterRefresh(t *testing.T) {
	api := &MockJobsAPI{}
	api.On("ListJobs", mock.Anything).Return([]models.Job{job("a", models.JobStatusDone)}, nil).Once()
	api.On("DeleteJob", mock.Anything, "a").Return(nil).Once()
	api.On("ListJobs", mock.Anything).Return([]models.Job{}, nil).Once()

	monitor := NewMonitor(api, nil, nil, nil, 0)
	_, err := monitor.Refresh(context.Background())
	require.NoError(t, err)

	require.NoError(t, monitor.Delete(context.Background(), "a"))
	_, ok := monitor.Job("a")
	assert.False(t, ok)
}

func TestJobs_NewestFirst(t *testing.T) {
	now := time.Now()
	older := models.Job{ID: "old", CreatedAt: now.Add(-time.Hour)}
	newer := models.Job{ID: "new", CreatedAt: now}

	api := &MockJobsAPI{}
	api.On("ListJobs", mock.Anything).Return([]models.Job{older, newer}, nil)

	monitor := NewMonitor(api, nil, nil, nil, 0)
	_, err := monitor.Refresh(context.Background())
	require.NoError(t, err)

	list := monitor.Jobs()
	require.Len(t, list, 2)
	assert.Equal(t, "new", list[0].ID)
}

func TestStartStop(t *testing.T) {
	polled := make(chan struct{}, 1)
	api := &MockJobsAPI{}
	api.On("ListJobs", mock.Anything).Return([]models.Job{}, nil).Run(func(args mock.Arguments) {
		select {
		case polled <- struct{}{}:
		default:
		}
	})

	monitor := NewMonitor(api, nil, nil, nil, MinInterval)
	monitor.Start(context.Background())
	monitor.Start(context.Background())

	select {
	case <-polled:
	case <-time.After(2 * time.Second):
		t.Fatal("monitor did not poll")
	}

	monitor.Stop()
	monitor.Stop()
}

func TestWaitForJob(t *testing.T) {
	api := &MockJobsAPI{}
	running := &models.Job{ID: "a", Status: models.JobStatusRunning}
	withStep := &models.Job{ID: "a", Status: models.JobStatusRunning, Steps: []models.JobStep{{Name: "render", Status: "ok"}}}
	done := &models.Job{ID: "a", Status: models.JobStatusDone, File: "out.docx"}

	api.On("GetJob", mock.Anything, "a").Return(running, nil).Once()
	api.On("GetJob", mock.Anything, "a").Return(running, nil).Once()
	api.On("GetJob", mock.Anything, "a").Return(withStep, nil).Once()
	api.On("GetJob", mock.Anything, "a").Return(done, nil).Once()

	var updates []models.JobStatus
	final, err := WaitForJob(context.Background(), api, "a", time.Millisecond, func(j *models.Job) {
		updates = append(updates, j.Status)
	})

	require.NoError(t, err)
	assert.Equal(t, "out.docx", final.File)
	assert.Equal(t, []models.JobStatus{models.JobStatusRunning, models.JobStatusRunning, models.JobStatusDone}, updates)
	api.AssertExpectations(t)
}

func TestWaitForJob_ContextCancelled(t *testing.T) {
	api := &MockJobsAPI{}
	api.On("GetJob", mock.Anything, "a").Return(&models.Job{ID: "a", Status: models.JobStatusRunning}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	last, err := WaitForJob(ctx, api, "a", 5*time.Millisecond, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	require.NotNil(t, last)
	assert.Equal(t, models.JobStatusRunning, last.Status)
}
