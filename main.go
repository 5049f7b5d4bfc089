// ABOUTME: Entry point for the Scream multicast audio receiver
// ABOUTME: Parses CLI flags and wires the receiver, output device, TUI and status surfaces
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
	"github.com/screamsink/screamsink/internal/monitor"
	"github.com/screamsink/screamsink/internal/receiver"
	"github.com/screamsink/screamsink/internal/ui"
	"github.com/screamsink/screamsink/internal/version"
	"github.com/screamsink/screamsink/pkg/audio/output"
	"github.com/screamsink/screamsink/pkg/playback"
	"github.com/screamsink/screamsink/pkg/scream"
	"golang.org/x/sync/errgroup"
)

var (
	group        = flag.String("group", scream.DefaultGroup, "Multicast group to join")
	port         = flag.Int("port", scream.DefaultPort, "UDP port to listen on")
	iface        = flag.String("iface", "", "Interface name or address to join the group on (default: any)")
	timeout      = flag.Duration("timeout", receiver.DefaultReadTimeout, "Silence interval after which audio stops")
	channels     = flag.Int("channels", scream.DefaultChannels, "Channel count of the incoming stream")
	targetFrames = flag.Int("target-frames", playback.DefaultTargetFrames, "Buffered frames to aim for")
	capacity     = flag.Int("capacity", 0, "Jitter buffer capacity in frames (default: 10x target)")
	slower       = flag.Float64("slower", playback.DefaultThresholds().Slower, "Stretch playback below this buffer ratio")
	faster       = flag.Float64("faster", playback.DefaultThresholds().Faster, "Compress playback above this buffer ratio")
	normal       = flag.Float64("normal", playback.DefaultThresholds().Normal, "Return to normal playback within this buffer ratio")
	backend      = flag.String("backend", "malgo", "Audio backend: malgo, oto, portaudio or null")
	device       = flag.String("device", "", "Output device name (malgo only, default: system default)")
	format       = flag.String("format", "f32", "Device sample format (malgo only): f32, s16, s24, s32, u8")
	periodFrames = flag.Int("period-frames", 0, "Preferred device callback size in frames (default: backend choice)")
	listDevices  = flag.Bool("list-devices", false, "List output devices and exit")
	name         = flag.String("name", "", "Sink friendly name (default: hostname-screamsink)")
	noMDNS       = flag.Bool("no-mdns", false, "Disable mDNS advertisement")
	monitorAddr  = flag.String("monitor-addr", "", "Serve /status and /ws on this address (e.g. :8090)")
	logFile      = flag.String("log-file", "screamsink.log", "Log file path")
	noTUI        = flag.Bool("no-tui", false, "Disable TUI, use streaming logs instead")
	streamLogs   = flag.Bool("stream-logs", false, "Alias for -no-tui")
)

func main() {
	flag.Parse()

	if *listDevices {
		if err := printDevices(); err != nil {
			log.Fatalf("Failed to list devices: %v", err)
		}
		return
	}

	// Determine if we should use TUI or streaming logs
	useTUI := !(*noTUI || *streamLogs)

	// Set up logging
	f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer func() { _ = f.Close() }()

	if useTUI {
		// TUI mode: log only to file
		log.SetOutput(f)
	} else {
		// Streaming logs mode: log to both stdout and file
		log.SetOutput(io.MultiWriter(os.Stdout, f))
	}

	sinkName := *name
	if sinkName == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		sinkName = fmt.Sprintf("%s-screamsink", hostname)
	}

	log.Printf("Starting %s: %s", version.String(), sinkName)

	thresholds := playback.Thresholds{Slower: *slower, Faster: *faster, Normal: *normal}
	if err := thresholds.Validate(); err != nil {
		log.Fatalf("Invalid thresholds: %v", err)
	}

	out, err := newOutput()
	if err != nil {
		log.Fatalf("Failed to set up audio output: %v", err)
	}
	defer func() {
		if err := out.Close(); err != nil {
			log.Printf("Error closing audio output: %v", err)
		}
	}()

	sessionConfig := playback.Config{
		Thresholds:   thresholds,
		TargetFrames: *targetFrames,
		Capacity:     *capacity,
		PeriodFrames: *periodFrames,
	}.WithDefaults()

	// Observers are attached after the surfaces exist
	var tui *ui.TUI
	var mon *monitor.Server
	onEvent := func(ev playback.Event) {
		if tui != nil {
			tui.Event(ev)
		}
		if mon != nil {
			mon.Publish(ev)
		}
	}

	recv, err := receiver.Listen(receiver.Config{
		Group:       *group,
		Port:        *port,
		Interface:   *iface,
		ReadTimeout: *timeout,
		Channels:    *channels,
		Session:     sessionConfig,
		Output:      out,
		OnEvent:     onEvent,
	})
	if err != nil {
		log.Fatalf("Failed to start receiver: %v", err)
	}

	if *monitorAddr != "" {
		mon = monitor.New(monitor.Config{Addr: *monitorAddr, Stats: recv.Stats})
	}

	if useTUI {
		tui = ui.New(ui.Info{
			Name:         sinkName,
			Group:        *group,
			Port:         *port,
			Backend:      out.Name(),
			TargetFrames: sessionConfig.TargetFrames,
		})
	}

	if !*noMDNS {
		disc := discovery.NewManager(discovery.Config{
			InstanceName: sinkName,
			Group:        *group,
			Port:         *port,
		})
		if err := disc.Advertise(); err != nil {
			log.Printf("mDNS advertisement failed: %v", err)
		}
		defer disc.Stop()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return recv.Run(ctx)
	})

	if mon != nil {
		g.Go(func() error {
			return mon.Run(ctx)
		})
	}

	if tui != nil {
		g.Go(func() error {
			statsUpdateLoop(ctx, recv, tui)
			return nil
		})

		go func() {
			if err := tui.Start(); err != nil {
				log.Printf("TUI error: %v", err)
			}
			stop()
		}()

		go func() {
			select {
			case <-tui.QuitChan():
				log.Printf("Received quit signal from TUI")
				stop()
			case <-ctx.Done():
				tui.Stop()
			}
		}()
	}

	if err := g.Wait(); err != nil {
		log.Printf("Receiver error: %v", err)
	}

	log.Printf("Receiver stopped")
}

// newOutput builds the selected audio backend
func newOutput() (output.Output, error) {
	switch *backend {
	case "malgo":
		sampleFormat, err := output.ParseSampleFormat(*format)
		if err != nil {
			return nil, err
		}
		return output.NewMalgo(output.MalgoConfig{
			DeviceName:   *device,
			Format:       sampleFormat,
			PeriodFrames: *periodFrames,
		}), nil
	case "oto":
		return output.NewOto(), nil
	case "portaudio":
		return output.NewPortAudio(), nil
	case "null":
		return output.NewNull(), nil
	default:
		return nil, fmt.Errorf("unknown backend: %s (supported: malgo, oto, portaudio, null)", *backend)
	}
}

func printDevices() error {
	names, err := output.ListMalgoDevices()
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Println("No playback devices found")
		return nil
	}
	fmt.Println("Playback devices:")
	for _, n := range names {
		fmt.Printf("  %s\n", n)
	}
	return nil
}

// statsUpdateLoop periodically updates the TUI with receiver statistics
func statsUpdateLoop(ctx context.Context, recv *receiver.Receiver, tui *ui.TUI) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			tui.UpdateStats(recv.Stats())
		case <-ctx.Done():
			return
		}
	}
}
