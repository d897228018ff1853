package cron

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingJob struct {
	name string
	runs int
	err  error
}

func (j *recordingJob) Name() string { return j.name }

func (j *recordingJob) Run(ctx context.Context) error {
	j.runs++
	return j.err
}

type fakeLock struct {
	acquired bool
	releases int
}

func (l *fakeLock) Acquire(ctx context.Context) (bool, error) { return l.acquired, nil }

func (l *fakeLock) Release(ctx context.Context) error {
	l.releases++
	return nil
}

func TestRegistryKeepsOrderAndSkipsNil(t *testing.T) {
	first := &recordingJob{name: "first"}
	second := &recordingJob{name: "second"}

	registry := NewRegistry(first, nil, second)
	registry.Register(nil)

	jobs := registry.Jobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, "first", jobs[0].Name())
	assert.Equal(t, "second", jobs[1].Name())
}

func TestRunCycleRunsEveryJob(t *testing.T) {
	first := &recordingJob{name: "first"}
	second := &recordingJob{name: "second"}
	lock := &fakeLock{acquired: true}

	svc, err := NewService(ServiceParams{
		Logger:   testLogger(),
		Registry: NewRegistry(first, second),
		Lock:     lock,
	})
	require.NoError(t, err)

	require.NoError(t, svc.runCycle(context.Background()))
	assert.Equal(t, 1, first.runs)
	assert.Equal(t, 1, second.runs)
	assert.Equal(t, 1, lock.releases)
}

func TestRunCycleSkipsWhenLockHeld(t *testing.T) {
	job := &recordingJob{name: "sweep"}
	lock := &fakeLock{acquired: false}

	svc, err := NewService(ServiceParams{
		Logger:   testLogger(),
		Registry: NewRegistry(job),
		Lock:     lock,
	})
	require.NoError(t, err)

	require.NoError(t, svc.runCycle(context.Background()))
	assert.Zero(t, job.runs)
	assert.Zero(t, lock.releases)
}

func TestRunCycleContinuesPastFailedJob(t *testing.T) {
	failing := &recordingJob{name: "broken", err: assert.AnError}
	healthy := &recordingJob{name: "healthy"}

	svc, err := NewService(ServiceParams{
		Logger:   testLogger(),
		Registry: NewRegistry(failing, healthy),
		Lock:     &fakeLock{acquired: true},
	})
	require.NoError(t, err)

	require.NoError(t, svc.runCycle(context.Background()))
	assert.Equal(t, 1, failing.runs)
	assert.Equal(t, 1, healthy.runs)
}
