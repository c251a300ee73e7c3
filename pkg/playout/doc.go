// ABOUTME: Playout package for callback-driven PCM playback sessions
// ABOUTME: Engine state machine, frame buffer and the command Controller
// Package playout plays a raw 16-bit PCM file through an output backend.
//
// An Engine owns one PCM source, one FrameBuffer sized to a 10 ms quantum and
// one output.Backend. The backend pulls audio from the Engine on its own
// real-time thread; lifecycle calls (Configure, Start, Stop) come from the
// control goroutine and are serialized by the Engine.
//
// The Controller is the command surface. It owns at most one session at a
// time and maps every returned error onto a ResultCode.
//
// Example:
//
//	ctrl := playout.NewController(playout.Config{})
//	if _, err := ctrl.Configure("tone.pcm", output.KindMalgo, 48000, 2); err != nil {
//		log.Fatal(err)
//	}
//	if err := ctrl.Start(); err != nil {
//		log.Fatal(err)
//	}
//	defer ctrl.Stop()
package playout
