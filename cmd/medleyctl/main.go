// Command medleyctl is a demo host for the medley playout engine: it
// queues the file paths given on the command line and plays them back
// through a PortAudio device (or discards output with --null-sink),
// logging deck lifecycle, main-deck and audio-device events to stdout as
// they happen.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	medley "medley-sub000"
	"medley-sub000/internal/listener"
	"medley-sub000/internal/sink"
)

func main() {
	var (
		device     = pflag.IntP("device", "d", -1, "Output device index, -1 for default.")
		nullSink   = pflag.Bool("null-sink", false, "Discard audio instead of opening a device (headless runs).")
		configPath = pflag.StringP("config", "c", medley.DefaultConfigPath(), "Path to the engine's YAML config file.")
		sampleRate = pflag.Float64P("rate", "r", 44100, "Output sample rate.")
		blockSize  = pflag.IntP("block-size", "b", 1024, "Frames per processed block.")
	)

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "medleyctl - automatic DJ playout engine demo host.\n\n")
		fmt.Fprintf(os.Stderr, "Usage: medleyctl [options] track1 [track2 ...]\n\n")
		pflag.PrintDefaults()
	}
	pflag.Parse()

	tracks := pflag.Args()
	if len(tracks) == 0 {
		pflag.Usage()
		os.Exit(1)
	}

	cfg := medley.LoadConfig(*configPath)

	var snk sink.Sink
	if *nullSink {
		snk = sink.NewNull()
	} else {
		snk = sink.NewPortAudio(*device)
	}

	eng := medley.New(medley.Options{
		Config:     cfg,
		Sink:       snk,
		SampleRate: *sampleRate,
		BlockSize:  *blockSize,
		Channels:   2,
	})

	h := eng.RegisterListener(&logListener{})
	defer eng.UnregisterListener(h)

	if err := eng.Prepare(); err != nil {
		fmt.Fprintf(os.Stderr, "medleyctl: %v\n", err)
		os.Exit(1)
	}

	for _, path := range tracks {
		eng.Enqueue(&medley.Track{Path: path})
	}

	eng.Start()
	eng.Play()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	if err := eng.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "medleyctl: close: %v\n", err)
		os.Exit(1)
	}
}

// logListener prints deck lifecycle, main-deck and audio-device events to
// stdout, bracket-tagged in the style the rest of the engine logs with,
// and answers every PreQueueNext with done(false).
type logListener struct {
	medley.BaseListener
}

func (l *logListener) DeckStarted(d listener.Deck, t listener.Track) {
	fmt.Printf("[medleyctl] %s started %s\n", d.ID(), t.ID())
}

func (l *logListener) DeckFinished(d listener.Deck, t listener.Track) {
	fmt.Printf("[medleyctl] %s finished %s\n", d.ID(), t.ID())
}

func (l *logListener) DeckLoaded(d listener.Deck, t listener.Track) {
	fmt.Printf("[medleyctl] %s loaded %s\n", d.ID(), t.ID())
}

func (l *logListener) DeckUnloaded(d listener.Deck, t listener.Track) {
	fmt.Printf("[medleyctl] %s unloaded %s\n", d.ID(), t.ID())
}

func (l *logListener) MainDeckChanged(d listener.Deck, t listener.Track) {
	fmt.Printf("[medleyctl] main deck changed: %s now plays %s\n", d.ID(), t.ID())
}

func (l *logListener) AudioDeviceChanged() {
	fmt.Println("[medleyctl] audio device changed")
}

func (l *logListener) PreQueueNext(done func(ok bool)) {
	done(false)
}
