// Command servo-idle drives hobby servos from targets or analog sensors,
// powers them down when idle, and publishes motion events to MQTT.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweeney/servo-idle/internal/adc"
	"github.com/sweeney/servo-idle/internal/clock"
	"github.com/sweeney/servo-idle/internal/config"
	"github.com/sweeney/servo-idle/internal/gpio"
	"github.com/sweeney/servo-idle/internal/mqtt"
	"github.com/sweeney/servo-idle/internal/pwm"
	"github.com/sweeney/servo-idle/internal/servo"
	"github.com/sweeney/servo-idle/internal/status"
	"github.com/sweeney/servo-idle/internal/web"
)

func main() {
	poll := flag.Duration("poll", 20*time.Millisecond, "Servo update interval")
	broker := flag.String("broker", "tcp://192.168.1.200:1883", "MQTT broker address")
	heartbeat := flag.Duration("heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	configPath := flag.String("config", "/etc/servo-idle.yaml", "Channel configuration file")
	printState := flag.Bool("print-state", false, "Print sensor readings and exit")
	httpAddr := flag.String("http", ":80", "HTTP status address (empty to disable)")
	wsBroker := flag.String("ws-broker", "=broker", `MQTT websocket URL for live UI ("=broker" derives from --broker, "off" disables)`)

	flag.Parse()

	ws := resolveWSBroker(*wsBroker, *broker)
	if err := run(*poll, *broker, *heartbeat, *configPath, *printState, *httpAddr, ws); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

// binding is a configured channel plus how the loop drives it.
type binding struct {
	ch          *servo.Channel
	track       bool
	trackPeriod time.Duration
}

func run(poll time.Duration, broker string, heartbeat time.Duration, configPath string, printState bool, httpAddr, wsBroker string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Initialize hardware
	pins, err := gpio.NewRealPinMode(cfg.Hardware.GPIOChip, cfg.Hardware.GPIOMem, cfg.PinFunctions())
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer pins.Close()

	actuator, err := pwm.NewSysfsActuator(cfg.Hardware.PWMChip, cfg.PWMChannels())
	if err != nil {
		return fmt.Errorf("init pwm: %w", err)
	}
	defer actuator.Close()

	hw := servo.Hardware{
		Clock:    clock.NewMonotonic(),
		Pins:     pins,
		Actuator: actuator,
	}
	if cfg.Hardware.IIODevice != "" {
		sampler, err := adc.NewIIOSampler(cfg.Hardware.IIODevice, cfg.Hardware.ADCFullScale)
		if err != nil {
			return fmt.Errorf("init adc: %w", err)
		}
		defer sampler.Close()
		hw.Sampler = sampler
	}

	// Print state mode
	if printState {
		return printInputs(os.Stdout, cfg, hw)
	}

	bindings := buildChannels(cfg, hw)

	// Initialize MQTT
	publisher, err := mqtt.NewRealPublisher(broker)
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		PollMs:      poll.Milliseconds(),
		HeartbeatMs: heartbeat.Milliseconds(),
		Broker:      broker,
		HTTPAddr:    httpAddr,
		WSBroker:    wsBroker,
		ConfigPath:  configPath,
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}
	tracker.Update(channelStates(bindings), false, servo.EventCounts{})

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	} else {
		log.Printf("published startup event")
	}

	// Start HTTP status server
	if httpAddr != "" {
		srv := web.New(httpAddr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", httpAddr)
	}

	log.Printf("started: poll=%v broker=%s heartbeat=%v channels=%d config=%s", poll, broker, heartbeat, len(bindings), configPath)

	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(bindings, publisher, publisher, tracker, heartbeat, time.Now, ticker.C, sigCh)
}

// buildChannels creates, configures and homes every configured channel.
func buildChannels(cfg config.Config, hw servo.Hardware) []binding {
	out := make([]binding, 0, len(cfg.Channels))
	for _, cc := range cfg.Channels {
		input := servo.NoInput
		if cc.HasInput() {
			input = *cc.InputChannel
		}
		ch := servo.NewChannel(cc.Name, cc.ServoPin, input, hw)
		if cc.Debug {
			ch.SetDebug()
		}
		if !cc.IdleEnabled() {
			ch.ClearIdleEnabled()
		}
		ch.SetIdleWait(*cc.IdleWait)
		ch.Configure(cc.Frequency, cc.Lower, cc.Upper)
		if cc.Home != nil {
			ch.Write(*cc.Home, cc.HomePeriod)
		}

		track := cc.Track && ch.HasInput()
		if cc.Track && !track {
			log.Printf("channel %s: tracking disabled, no sensor available", cc.Name)
		}
		out = append(out, binding{ch: ch, track: track, trackPeriod: cc.TrackPeriod})
		log.Printf("channel %s: pin=%d input=%d limits=[%v,%v] idle=%v wait=%v track=%v",
			cc.Name, cc.ServoPin, input, cc.Lower, cc.Upper, cc.IdleEnabled(), *cc.IdleWait, track)
	}
	return out
}

// printInputs writes each channel's raw sensor reading.
func printInputs(w io.Writer, cfg config.Config, hw servo.Hardware) error {
	for _, cc := range cfg.Channels {
		if !cc.HasInput() || hw.Sampler == nil {
			fmt.Fprintf(w, "%s: no input\n", cc.Name)
			continue
		}
		if err := hw.Sampler.Arm(*cc.InputChannel); err != nil {
			return fmt.Errorf("arm %s: %w", cc.Name, err)
		}
		raw, err := hw.Sampler.Read(*cc.InputChannel)
		if err != nil {
			return fmt.Errorf("read %s: %w", cc.Name, err)
		}
		fmt.Fprintf(w, "%s: %d/%d\n", cc.Name, raw, hw.Sampler.FullScale())
	}
	return nil
}

func channelStates(bindings []binding) []servo.ChannelState {
	out := make([]servo.ChannelState, len(bindings))
	for i, b := range bindings {
		out[i] = b.ch.State()
	}
	return out
}

func runLoop(bindings []binding, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, heartbeat time.Duration, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	startTime := now()
	monitor := servo.NewMonitor(startTime)
	states := make([]servo.ChannelState, len(bindings))

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			event := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if tracker != nil {
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
				snap := tracker.Snapshot()
				event.RawPayload = status.FormatStatusEvent(snap, "SHUTDOWN", signalName)
			}
			if err := publisher.PublishSystem(event); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			} else {
				log.Printf("published shutdown event")
			}
			return nil

		case <-tick:
			t := now()
			for i, b := range bindings {
				if b.track {
					b.ch.Track(b.trackPeriod)
				}
				settled := b.ch.Update(false)
				states[i] = b.ch.State()

				for _, event := range monitor.Process(states[i], settled, t) {
					log.Printf("event: %s (channel=%s position=%d target=%v)", event.Type, event.Channel, event.Position, event.Target)
					if err := publisher.Publish(event); err != nil {
						log.Printf("publish error: %v", err)
						// Don't crash on publish failure
					}
				}
			}

			// Check for heartbeat
			if hbData := monitor.CheckHeartbeat(t, heartbeat); hbData != nil {
				log.Printf("heartbeat: uptime=%v moving=%d settled=%d idle=%d active=%d",
					hbData.Uptime, hbData.Counts.Moving, hbData.Counts.Settled, hbData.Counts.Idle, hbData.Counts.Active)

				hbEvent := mqtt.SystemEvent{
					Timestamp: hbData.Timestamp,
					Event:     "HEARTBEAT",
				}
				if tracker != nil {
					if mqttStatus != nil {
						tracker.SetMQTTConnected(mqttStatus.IsConnected())
					}
					// Refresh network info for heartbeat
					if net := readNetworkInfo(); net != nil {
						tracker.SetNetwork(net)
					}
					tracker.Update(states, monitor.IsBaselined(), monitor.EventCountsSnapshot())
					snap := tracker.Snapshot()
					hbEvent.RawPayload = status.FormatStatusEvent(snap, "HEARTBEAT", "")
				}
				if err := publisher.PublishSystem(hbEvent); err != nil {
					log.Printf("heartbeat publish error: %v", err)
				}
			}

			// Update status tracker for HTTP consumers
			if tracker != nil {
				tracker.Update(states, monitor.IsBaselined(), monitor.EventCountsSnapshot())
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
			}
		}
	}
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}

// resolveWSBroker converts the --ws-broker flag value into a concrete URL.
// "=broker" derives ws://host:9001 from the TCP broker address; "off" disables.
func resolveWSBroker(ws, broker string) string {
	if ws == "off" {
		return ""
	}
	if ws != "=broker" {
		return ws
	}
	u, err := url.Parse(broker)
	if err != nil {
		log.Printf("ws-broker: cannot parse --broker %q: %v", broker, err)
		return ""
	}
	u.Scheme = "ws"
	u.Host = u.Hostname() + ":9001"
	return u.String()
}
