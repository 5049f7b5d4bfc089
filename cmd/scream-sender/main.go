// ABOUTME: Entry point for the Scream test sender
// ABOUTME: Streams a test tone or audio file as Scream multicast packets
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/screamsink/screamsink/internal/discovery"
	"github.com/screamsink/screamsink/internal/sender"
	"github.com/screamsink/screamsink/internal/version"
	"github.com/screamsink/screamsink/pkg/scream"
)

var (
	group     = flag.String("group", scream.DefaultGroup, "Multicast group to send to")
	port      = flag.Int("port", scream.DefaultPort, "Destination UDP port")
	iface     = flag.String("iface", "", "Outgoing interface name (default: system choice)")
	ttl       = flag.Int("ttl", 1, "Multicast TTL")
	bitDepth  = flag.Int("bit-depth", 16, "Encoded bit depth: 16, 24 or 32")
	audioFile = flag.String("audio", "", "Audio file to stream (MP3, FLAC). If not specified, plays test tone")
	toneFreq  = flag.Float64("tone", 440, "Test tone frequency in Hz")
	toneRate  = flag.Int("rate", 48000, "Test tone sample rate")
	toneCh    = flag.Int("channels", 2, "Test tone channel count")
	resample  = flag.Int("resample", 0, "Resample the source to this rate (default: source rate, or 48000 if unencodable)")
	duration  = flag.Duration("duration", 0, "Stop after this long (default: run until interrupted)")
	listSinks = flag.Bool("list-sinks", false, "Browse for receivers via mDNS and exit")
	browseFor = flag.Duration("browse-timeout", 3*time.Second, "How long -list-sinks waits for answers")
	logFile   = flag.String("log-file", "", "Also write logs to this file")
)

func main() {
	flag.Parse()

	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			log.Fatalf("error opening log file: %v", err)
		}
		defer f.Close()
		log.SetOutput(io.MultiWriter(os.Stdout, f))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *listSinks {
		if err := printSinks(ctx); err != nil {
			log.Fatalf("Browse failed: %v", err)
		}
		return
	}

	source, err := sender.NewSource(*audioFile, sender.ToneConfig{
		Frequency:  *toneFreq,
		SampleRate: *toneRate,
		Channels:   *toneCh,
	})
	if err != nil {
		log.Fatalf("Failed to open audio source: %v", err)
	}
	defer source.Close()

	s, err := sender.Dial(sender.Config{
		Group:      *group,
		Port:       *port,
		Interface:  *iface,
		TTL:        *ttl,
		BitDepth:   *bitDepth,
		SampleRate: *resample,
		Source:     source,
	})
	if err != nil {
		log.Fatalf("Failed to start sender: %v", err)
	}

	log.Printf("Starting %s sender, press Ctrl-C to stop", version.String())

	if *duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}

	if err := s.Run(ctx); err != nil {
		log.Fatalf("Sender error: %v", err)
	}

	stats := s.Stats()
	log.Printf("Sender stopped: %d packets, %d frames, %d bytes", stats.Packets, stats.Frames, stats.Bytes)
}

func printSinks(ctx context.Context) error {
	sinks, err := discovery.Browse(ctx, *browseFor)
	if err != nil {
		return err
	}
	if len(sinks) == 0 {
		fmt.Println("No Scream receivers found")
		return nil
	}
	for _, sink := range sinks {
		fmt.Printf("%s\t%s\tgroup %s:%d\tid %s\n", sink.Name, sink.Host, sink.Group, sink.Port, sink.ID)
	}
	return nil
}
