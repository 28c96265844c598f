// Package simhost is an in-process host for running the façade without a
// real DAW.
//
// Run turns the calling goroutine into the host's main thread: it locks it to
// its OS thread, serves Call requests and polls control surfaces at a fixed
// interval. A second goroutine plays the audio thread and calls every audio
// hook twice per block. Callbacks cross the same raw delegates a native host
// would use.
package simhost
