package engine

import "time"

// Voice-activity ticks arrive from the client at a fixed cadence; the
// monitor keeps a ring of the last autoFinalize window and computes speech
// ratios over it.
const (
	vadTickInterval  = 100 * time.Millisecond
	speechWarnEvery  = 8 * time.Second
	speechMinRatio   = 0.10
	speechClearRatio = 0.25 // higher threshold to clear warning (hysteresis)
)

type speechEvent int

const (
	speechNone         speechEvent = iota
	speechWarn                     // no voice detected
	speechWarnClear                // speech resumed after warning
	speechAutoFinalize             // quiet for the whole silence window
)

type speechMonitor struct {
	warnAt   int
	windowSz int

	ticks       int
	window      []bool
	speechCount int
	warned      bool
}

func newSpeechMonitor(autoFinalizeAfter time.Duration) *speechMonitor {
	warnAt := int(speechWarnEvery / vadTickInterval)
	windowSz := int(autoFinalizeAfter / vadTickInterval)
	if windowSz < warnAt {
		windowSz = warnAt
	}
	return &speechMonitor{
		warnAt:   warnAt,
		windowSz: windowSz,
		window:   make([]bool, windowSz),
	}
}

func (m *speechMonitor) ratio(n int) float64 {
	if m.ticks < n {
		n = m.ticks
	}
	if n == 0 {
		return 1.0
	}
	count := 0
	for i := 0; i < n; i++ {
		if m.window[(m.ticks-1-i+m.windowSz)%m.windowSz] {
			count++
		}
	}
	return float64(count) / float64(n)
}

// Tick records one voice-activity sample and reports any state change.
func (m *speechMonitor) Tick(hasSpeech bool) speechEvent {
	idx := m.ticks % m.windowSz
	if m.ticks >= m.windowSz && m.window[idx] {
		m.speechCount--
	}
	m.window[idx] = hasSpeech
	if hasSpeech {
		m.speechCount++
	}
	m.ticks++

	r := m.ratio(m.warnAt)

	// Auto-finalize: the full window below threshold (checked before warn
	// so a fully quiet answer finalizes even if the warning was cleared).
	if m.ticks >= m.windowSz && float64(m.speechCount)/float64(m.windowSz) < speechMinRatio {
		return speechAutoFinalize
	}

	if m.ticks >= m.warnAt && r < speechMinRatio && !m.warned {
		m.warned = true
		return speechWarn
	}
	if m.warned && r >= speechClearRatio {
		m.warned = false
		return speechWarnClear
	}

	return speechNone
}
