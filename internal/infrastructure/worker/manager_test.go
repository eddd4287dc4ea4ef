package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockWorker struct {
	name     string
	startErr error
	stopErr  error
	log      *[]string
}

func (m *mockWorker) Start(ctx context.Context) error {
	if m.startErr != nil {
		return m.startErr
	}
	*m.log = append(*m.log, "start "+m.name)
	return nil
}

func (m *mockWorker) Stop() error {
	*m.log = append(*m.log, "stop "+m.name)
	return m.stopErr
}

func (m *mockWorker) Name() string { return m.name }

func TestManager_Lifecycle(t *testing.T) {
	var log []string
	m := NewManager(zap.NewNop())
	m.Register(&mockWorker{name: "a", log: &log})
	m.Register(&mockWorker{name: "broken", startErr: errors.New("boom"), log: &log})
	m.Register(&mockWorker{name: "b", log: &log})

	require.NoError(t, m.StartAll(context.Background()))
	assert.True(t, m.IsRunning())
	assert.Error(t, m.StartAll(context.Background()))

	require.NoError(t, m.StopAll())
	assert.False(t, m.IsRunning())
	assert.Equal(t, []string{"start a", "start b", "stop b", "stop a"}, log)
	assert.Equal(t, []string{"a", "broken", "b"}, m.Names())

	require.NoError(t, m.StopAll())
}

func TestManager_StopErrorsAreJoined(t *testing.T) {
	var log []string
	m := NewManager(zap.NewNop())
	stopErr := errors.New("stuck")
	m.Register(&mockWorker{name: "a", stopErr: stopErr, log: &log})

	require.NoError(t, m.StartAll(context.Background()))
	err := m.StopAll()
	assert.ErrorIs(t, err, stopErr)
}
