package app

import (
	"github.com/ayusman/joythm/internal/device"
)

// attach returns the sample handler of d. It runs on the session's reader
// goroutine: classify, record the state, then emit per the policy.
//
// A press is not paired with a release here. The key stays down until a
// later sample classifies to a releasing state, or until no live controller
// remains (see releaseIfIdle).
func (a *App) attach(d *device.Device) device.SampleFunc {
	return func(s device.Sample) {
		if !a.accepting.Load() {
			return
		}
		next := a.classifier.Classify(s.AccelX, s.GyroY, d.Hand())
		prev := d.SetState(next)
		if a.policy.ShouldEmit(prev, next) {
			a.emitter.Emit(next)
		}
	}
}
