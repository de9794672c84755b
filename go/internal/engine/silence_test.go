package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func collectEvents(m *speechMonitor, samples []bool) map[int]speechEvent {
	events := make(map[int]speechEvent)
	for i, hasSpeech := range samples {
		if ev := m.Tick(hasSpeech); ev != speechNone {
			events[i] = ev
		}
	}
	return events
}

func repeat(v bool, n int) []bool {
	s := make([]bool, n)
	for i := range s {
		s[i] = v
	}
	return s
}

func TestSpeechMonitorWarnsThenAutoFinalizes(t *testing.T) {
	m := newSpeechMonitor(10 * time.Second) // window of 100 ticks

	events := collectEvents(m, repeat(false, 100))

	// Warn after the 8s warning window, auto-finalize when the full
	// silence window has elapsed without speech.
	require.Equal(t, speechWarn, events[79])
	require.Equal(t, speechAutoFinalize, events[99])
	require.Len(t, events, 2)
}

func TestSpeechMonitorClearsWarningWithHysteresis(t *testing.T) {
	m := newSpeechMonitor(10 * time.Second)

	events := collectEvents(m, repeat(false, 80))
	require.Equal(t, speechWarn, events[79])

	// Speech has to reach the higher clear ratio before the warning lifts:
	// 20 speaking ticks out of the last 80 is exactly 25%.
	events = collectEvents(m, repeat(true, 20))
	require.Equal(t, speechWarnClear, events[19])
	require.Len(t, events, 1)
}

func TestSpeechMonitorStaysQuietDuringNormalSpeech(t *testing.T) {
	m := newSpeechMonitor(10 * time.Second)

	events := collectEvents(m, repeat(true, 200))
	require.Empty(t, events)
}

func TestSpeechMonitorWindowNeverSmallerThanWarnWindow(t *testing.T) {
	m := newSpeechMonitor(2 * time.Second) // 20 ticks, below the warn window

	require.Equal(t, m.warnAt, m.windowSz)

	// Auto-finalize wins over the warning when both trip on the same tick.
	events := collectEvents(m, repeat(false, 80))
	require.Equal(t, speechAutoFinalize, events[79])
	require.Len(t, events, 1)
}
