// Package speech turns calculation text into audio files.
//
// A Synthesizer produces encoded audio for a piece of text. Two backends
// are provided: GoogleTranslate, which speaks to the public translate TTS
// endpoint and returns MP3, and Gemini, which uses the Gemini speech
// models and returns WAV.
//
// Cache owns the directory the web UI plays audio from. It names files
// with random hex identifiers, writes them atomically and evicts the
// oldest files once the directory grows past its threshold.
package speech
