package logger

import (
	"github.com/stretchr/testify/mock"
)

// MockLogger is a testify mock of Logger. Log calls are recorded with the
// message and the key-value pairs as a single []any argument.
//
// With does not create a child: it records the call and returns the mock
// itself, so messages logged through derived loggers land on the same mock.
type MockLogger struct {
	mock.Mock
}

var _ Logger = (*MockLogger)(nil)

func NewMockLogger() *MockLogger {
	return &MockLogger{}
}

func (m *MockLogger) Debug(msg string, keysAndValues ...any) {
	m.Called(msg, keysAndValues)
}

func (m *MockLogger) Info(msg string, keysAndValues ...any) {
	m.Called(msg, keysAndValues)
}

func (m *MockLogger) Warn(msg string, keysAndValues ...any) {
	m.Called(msg, keysAndValues)
}

func (m *MockLogger) Error(msg string, keysAndValues ...any) {
	m.Called(msg, keysAndValues)
}

func (m *MockLogger) Fatal(msg string, keysAndValues ...any) {
	m.Called(msg, keysAndValues)
}

func (m *MockLogger) SetLevel(level Level) {
	m.Called(level)
}

func (m *MockLogger) Level() Level {
	args := m.Called()
	return args.Get(0).(Level)
}

func (m *MockLogger) With(keyValues ...any) Logger {
	m.Called(keyValues)
	return m
}

// Messages returns the messages logged through method ("Debug", "Info", ...)
// in call order. Call it once the code under test has stopped logging.
func (m *MockLogger) Messages(method string) []string {
	var msgs []string
	for _, c := range m.Calls {
		if c.Method != method || len(c.Arguments) == 0 {
			continue
		}
		if msg, ok := c.Arguments[0].(string); ok {
			msgs = append(msgs, msg)
		}
	}

	return msgs
}
