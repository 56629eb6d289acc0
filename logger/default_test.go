package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestSetLogger(t *testing.T) {
	prev := GetLogger()
	t.Cleanup(func() { SetLogger(prev) })

	assert.NotNil(t, prev)

	m := NewMockLogger()
	SetLogger(m)
	assert.Same(t, m, GetLogger())

	SetLogger(nil)
	assert.Same(t, m, GetLogger(), "nil must not replace the default")
}

func TestMockLogger_Messages(t *testing.T) {
	m := NewMockLogger()
	m.On("With", mock.Anything).Return()
	m.On("Debug", mock.Anything, mock.Anything).Return()
	m.On("Warn", mock.Anything, mock.Anything).Return()

	child := m.With("node", 0)
	assert.Same(t, m, child)

	child.Debug("first")
	m.Warn("careful", "object", 50)
	child.Debug("second")

	assert.Equal(t, []string{"first", "second"}, m.Messages("Debug"))
	assert.Equal(t, []string{"careful"}, m.Messages("Warn"))
	assert.Empty(t, m.Messages("Info"))
	m.AssertCalled(t, "With", []any{"node", 0})
}
