package run_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/slok/runx/internal/app/run"
	"github.com/slok/runx/internal/model"
	"github.com/slok/runx/internal/storage/storagemock"
)

type mockRunner struct {
	mock.Mock
}

func (m *mockRunner) Run(ctx context.Context, command model.Command, opts model.RunOptions) (model.RunResult, error) {
	args := m.Called(ctx, command, opts)
	return args.Get(0).(model.RunResult), args.Error(1)
}

func TestNewService(t *testing.T) {
	tests := map[string]struct {
		config func() run.ServiceConfig
		expErr bool
	}{
		"A config without a runner should fail": {
			config: func() run.ServiceConfig {
				return run.ServiceConfig{}
			},
			expErr: true,
		},

		"A config with just a runner should be valid": {
			config: func() run.ServiceConfig {
				return run.ServiceConfig{Runner: &mockRunner{}}
			},
		},

		"A repository should be optional": {
			config: func() run.ServiceConfig {
				return run.ServiceConfig{Runner: &mockRunner{}, Repository: &storagemock.MockRepository{}}
			},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := run.NewService(test.config())

			if test.expErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestServiceRun(t *testing.T) {
	t0 := time.Now().UTC()

	tests := map[string]struct {
		request   run.Request
		mocks     func(r *mockRunner, repo *storagemock.MockRepository)
		noRepo    bool
		expResult model.RunResult
		expErr    bool
	}{
		"A successful run should be recorded in history": {
			request: run.Request{Command: model.Command{Args: []string{"echo", "hi"}}},
			mocks: func(r *mockRunner, repo *storagemock.MockRepository) {
				r.On("Run", mock.Anything, mock.Anything, mock.Anything).Once().Return(
					model.RunResult{ExitCode: 0, Output: "hi\n", Duration: 42 * time.Millisecond}, nil)
				repo.On("SaveExecution", mock.Anything, mock.MatchedBy(func(e model.Execution) bool {
					return e.ID != "" &&
						e.Command == "echo hi" &&
						e.ExitCode == 0 &&
						!e.TimedOut &&
						!e.Interrupted &&
						e.Duration == 42*time.Millisecond &&
						!e.CreatedAt.Before(t0)
				})).Once().Return(nil)
			},
			expResult: model.RunResult{ExitCode: 0, Output: "hi\n", Duration: 42 * time.Millisecond},
		},

		"A timed out run should be recorded as timed out": {
			request: run.Request{Command: model.Command{Line: "sleep 60"}, Options: model.RunOptions{Shell: true}},
			mocks: func(r *mockRunner, repo *storagemock.MockRepository) {
				r.On("Run", mock.Anything, mock.Anything, mock.Anything).Once().Return(
					model.RunResult{ExitCode: model.ExitCodeTimeout, Duration: time.Second}, nil)
				repo.On("SaveExecution", mock.Anything, mock.MatchedBy(func(e model.Execution) bool {
					return e.TimedOut && !e.Interrupted && e.Shell && e.ExitCode == model.ExitCodeTimeout
				})).Once().Return(nil)
			},
			expResult: model.RunResult{ExitCode: model.ExitCodeTimeout, Duration: time.Second},
		},

		"A failing history save should not fail the run": {
			request: run.Request{Command: model.Command{Args: []string{"true"}}},
			mocks: func(r *mockRunner, repo *storagemock.MockRepository) {
				r.On("Run", mock.Anything, mock.Anything, mock.Anything).Once().Return(
					model.RunResult{ExitCode: 0}, nil)
				repo.On("SaveExecution", mock.Anything, mock.Anything).Once().Return(fmt.Errorf("something"))
			},
			expResult: model.RunResult{ExitCode: 0},
		},

		"SkipHistory should leave the run out of the repository": {
			request: run.Request{Command: model.Command{Args: []string{"true"}}, SkipHistory: true},
			mocks: func(r *mockRunner, repo *storagemock.MockRepository) {
				r.On("Run", mock.Anything, mock.Anything, mock.Anything).Once().Return(
					model.RunResult{ExitCode: 0}, nil)
			},
			expResult: model.RunResult{ExitCode: 0},
		},

		"A missing repository should not break execution": {
			request: run.Request{Command: model.Command{Args: []string{"true"}}},
			noRepo:  true,
			mocks: func(r *mockRunner, repo *storagemock.MockRepository) {
				r.On("Run", mock.Anything, mock.Anything, mock.Anything).Once().Return(
					model.RunResult{ExitCode: 0}, nil)
			},
			expResult: model.RunResult{ExitCode: 0},
		},

		"A runner error should be propagated": {
			request: run.Request{Command: model.Command{Args: []string{"true"}}},
			mocks: func(r *mockRunner, repo *storagemock.MockRepository) {
				r.On("Run", mock.Anything, mock.Anything, mock.Anything).Once().Return(
					model.RunResult{}, fmt.Errorf("something"))
			},
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			runner := &mockRunner{}
			repo := &storagemock.MockRepository{}
			test.mocks(runner, repo)

			cfg := run.ServiceConfig{Runner: runner}
			if !test.noRepo {
				cfg.Repository = repo
			}
			svc, err := run.NewService(cfg)
			require.NoError(t, err)

			result, err := svc.Run(context.TODO(), test.request)

			if test.expErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, test.expResult, *result)
			}
			runner.AssertExpectations(t)
			repo.AssertExpectations(t)
		})
	}
}
