// Package capture implements push-to-talk microphone capture.
//
// A Controller turns noisy UI input (pointer, touch, focus and visibility
// events) into one press/release pair per gesture and drives a Device through
// a CaptureSession:
//
//	Idle → Armed → Recording → Idle      (captured)
//	Idle → Armed → Idle                  (device error, or released while arming)
//
// Raw event names are normalized by ParseSignal. Every stop source converges
// on Controller.Stop, which is idempotent: a stop while Idle is a no-op.
//
// Recordings shorter than the configured minimum are discarded with
// ErrTooShort. The device handle is closed on every path out of Recording.
package capture
