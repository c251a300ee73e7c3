// ABOUTME: Audio output package for callback-driven playout backends
// ABOUTME: Provides the Backend capability and malgo, oto, PortAudio and headless adapters
// Package output provides interchangeable audio output backends.
//
// Every backend pulls audio through a Fill callback registered at Open and
// reports asynchronous failures through an Error callback. The caller drives
// the stream lifecycle with RequestStart, RequestStop and Close, and reads the
// resulting state back with State because device transitions may complete
// asynchronously.
//
// Supported backends:
//   - malgo: miniaudio playback device (default)
//   - oto: ebitengine/oto player pulling from an io.Reader
//   - portaudio: PortAudio callback stream (build with -tags portaudio)
//   - headless: ticker-paced renderer with an optional io.Writer sink
//
// Example:
//
//	out, err := output.New(output.KindMalgo)
//	err = out.Open(output.Config{SampleRate: 48000, Channels: 2, FramesPerCallback: 480}, callbacks)
//	err = out.RequestStart()
package output
