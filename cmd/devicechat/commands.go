package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/muurk/devicechat/internal/device"
	"github.com/muurk/devicechat/internal/discovery"
	"github.com/muurk/devicechat/internal/server"
	"github.com/muurk/devicechat/internal/ui"
	"github.com/muurk/devicechat/internal/urls"
	"github.com/muurk/devicechat/internal/wizard"
	"github.com/muurk/devicechat/internal/wizard/tui"
)

// Command flags
var (
	serveHost     string
	servePort     int
	serveAnnounce bool

	scanDelay    time.Duration
	scanTypes    []string
	outputFormat string

	askDevices []string

	peersTimeout time.Duration
)

func init() {
	rootCmd.AddCommand(wizardCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(peersCmd)
}

// wizardCmd launches the interactive TUI wizard
var wizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Launch the interactive chat room wizard",
	Long: `Launch the interactive terminal wizard.

The wizard walks through four screens:
- Welcome
- Device scanner: scan, connect and disconnect devices
- Confirmation: setup progress for the connected devices
- Chat room: talk to all connected devices at once

When logging is enabled, log lines go to log.file (or devicechat.log in the
config directory) so they do not draw over the wizard.`,
	Example: `  # Launch wizard
  devicechat wizard
  # Or simply (wizard is default):
  devicechat`,
	RunE: runWizard,
}

func runWizard(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	env, err := prepare(ctx, true, true)
	if err != nil {
		return err
	}
	defer env.Close()

	ctrl := env.newController()
	defer ctrl.Close()

	p := tea.NewProgram(tui.NewAppModel(ctx, ctrl), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("wizard failed: %w", err)
	}
	return nil
}

// serveCmd runs the browser UI
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the wizard in a browser",
	Long: `Start an HTTP server with a browser version of the wizard.

Every browser tab gets its own wizard. With --announce the server is
advertised on the local network via mDNS, where 'devicechat peers' can find it.

Set server.cert_file and server.key_file in the config file to serve HTTPS.`,
	Example: `  # Serve on the configured address (default 127.0.0.1:8080)
  devicechat serve

  # Listen on all interfaces and advertise via mDNS
  devicechat serve --host 0.0.0.0 --announce --log-level info`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Listen address (overrides server.host)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Listen port (overrides server.port)")
	serveCmd.Flags().BoolVar(&serveAnnounce, "announce", false, "Advertise via mDNS (overrides server.announce)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	env, err := prepare(ctx, true, false)
	if err != nil {
		return err
	}
	defer env.Close()

	cfg := env.cfg.Server
	if cmd.Flags().Changed("host") {
		cfg.Host = serveHost
	}
	if cmd.Flags().Changed("port") {
		cfg.Port = servePort
	}
	if cmd.Flags().Changed("announce") {
		cfg.Announce = serveAnnounce
	}

	srv, err := server.New(cfg, env.newController,
		server.WithHealthCheck("chat_breaker", func() string { return env.client.BreakerState().String() }),
	)
	if err != nil {
		return err
	}

	scheme := "http"
	if cfg.TLSEnabled() {
		scheme = "https"
	}
	fmt.Printf("Serving Device Chat Room on %s://%s/ (Ctrl+C to stop)\n", scheme, cfg.Addr())

	return srv.Start(ctx)
}

// scanCmd runs one simulated scan
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for devices",
	Long: `Run one simulated Bluetooth scan and list the devices found.

Device IDs from this list are what 'devicechat ask --device' accepts.`,
	Example: `  # Scan with the configured delay
  devicechat scan

  # Instant scan, JSON output for scripting
  devicechat scan --delay 0 --format json

  # Only phones and watches
  devicechat scan --type phone --type watch`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().DurationVar(&scanDelay, "delay", 0, "Scan duration (default: discovery.scan_delay)")
	scanCmd.Flags().StringSliceVar(&scanTypes, "type", nil, "Only list devices of this type (repeatable: headset, phone, watch, lightbulb, speaker)")
	scanCmd.Flags().StringVar(&outputFormat, "format", "detailed", "Output format (detailed, json)")
}

func runScan(cmd *cobra.Command, args []string) error {
	categories, err := parseCategories(scanTypes)
	if err != nil {
		return err
	}

	env, err := prepare(cmd.Context(), false, false)
	if err != nil {
		return err
	}
	defer env.Close()

	delay := env.cfg.Discovery.ScanDelay
	if cmd.Flags().Changed("delay") {
		delay = scanDelay
	}

	printer := ui.NewPrinter(nil)
	detailed := outputFormat != "json"
	if detailed {
		printer.PrintHeader("Device Scan", "devicechat scan", ui.Param{Key: "Duration", Value: delay.String()})
		printer.PrintPleaseWait("Searching for devices in your area", "about "+delay.String())
	}

	devices, err := discovery.ScanForDevices(cmd.Context(), delay)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}
	devices = filterByCategory(devices, categories)

	if !detailed {
		data, err := json.MarshalIndent(devices, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	printer.Newline()
	if len(devices) == 0 {
		printer.PrintWarning("No devices found. Try scanning again.")
		return nil
	}
	for i, d := range devices {
		printer.PrintItem(i+1, d.Label(), d.ID)
	}
	printer.Newline()
	printer.PrintSuccess(fmt.Sprintf("Found %d device(s)", len(devices)),
		ui.Param{Key: "Next", Value: "devicechat ask --device <id> \"hello\""},
	)
	return nil
}

// parseCategories validates --type values
func parseCategories(types []string) ([]device.Category, error) {
	out := make([]device.Category, 0, len(types))
	for _, t := range types {
		c, err := device.ParseCategory(t)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// filterByCategory keeps devices of the given categories, or all of them
// when none are given
func filterByCategory(devices []device.Device, categories []device.Category) []device.Device {
	if len(categories) == 0 {
		return devices
	}
	var out []device.Device
	for _, d := range devices {
		for _, c := range categories {
			if d.Category == c {
				out = append(out, d)
				break
			}
		}
	}
	return out
}

// askCmd runs the whole wizard without a UI
var askCmd = &cobra.Command{
	Use:   "ask [flags] <message>",
	Short: "Ask your devices one question",
	Long: `Run the whole wizard non-interactively: scan, connect the chosen devices,
finalize setup, open the chat room and send one message. The chat transcript
is printed at the end.

Without --device every discovered device is connected.`,
	Example: `  # Ask every device
  devicechat ask "how is everyone doing?"

  # Ask two specific devices
  devicechat ask --device pixel-8-pro --device galaxy-watch-6 "battery status?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringSliceVar(&askDevices, "device", nil, "Device ID to connect (repeatable; see 'devicechat scan')")
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	text := strings.TrimSpace(strings.Join(args, " "))
	if text == "" {
		return fmt.Errorf("message must not be blank")
	}
	if err := checkDeviceIDs(askDevices); err != nil {
		return err
	}

	env, err := prepare(ctx, true, false)
	if err != nil {
		return err
	}
	defer env.Close()

	ctrl := env.newController()
	defer ctrl.Close()

	selection := "all discovered"
	if len(askDevices) > 0 {
		selection = strings.Join(askDevices, ", ")
	}

	runner := ui.NewRunner(ui.RunnerConfig{
		Title:   "Ask Your Devices",
		Command: "devicechat ask",
		Params: []ui.Param{
			{Key: "Devices", Value: selection},
			{Key: "Model", Value: env.cfg.Chat.Model},
		},
		StepNames: []string{"Scan", "Connect", "Configure", "Chat"},
		Troubleshooting: []string{
			"Run 'devicechat scan' to list valid device IDs",
			"Check that GEMINI_API_KEY is valid; create one at " + urls.GeminiAPIKey,
			"Check chat.model against " + urls.GeminiAPIDocs,
			"Re-run with --log-level debug for details",
		},
	})

	var transcript wizard.Snapshot
	err = runner.Run(ctx, func(ctx context.Context, onStep ui.StepCallback) ([]ui.Param, error) {
		snap, err := askFlow(ctx, ctrl, askDevices, text, onStep)
		transcript = snap
		if err != nil {
			return nil, err
		}
		last := snap.Messages[len(snap.Messages)-1]
		return []ui.Param{
			{Key: "Devices", Value: snap.ConnectedNames()},
			{Key: "Messages", Value: fmt.Sprintf("%d", len(snap.Messages))},
			{Key: "Last reply", Value: last.Text},
		}, nil
	})
	if len(transcript.Messages) > 0 {
		fmt.Println()
		ui.NewPrinter(nil).PrintTranscript(transcript.Messages)
	}
	return err
}

// checkDeviceIDs rejects ids outside the catalog before any scan starts
func checkDeviceIDs(ids []string) error {
	var unknown []string
	for _, id := range ids {
		if _, ok := device.Lookup(id); !ok {
			unknown = append(unknown, id)
		}
	}
	if len(unknown) > 0 {
		return fmt.Errorf("unknown device id(s): %s (run 'devicechat scan' to list them)", strings.Join(unknown, ", "))
	}
	return nil
}

// askFlow drives ctrl from Welcome to a reply in the chat room
func askFlow(ctx context.Context, ctrl *wizard.Controller, ids []string, text string, onStep ui.StepCallback) (wizard.Snapshot, error) {
	onStep(1, ui.StepRunning, "")
	ctrl.BeginSetup()
	snap, err := ctrl.WaitFor(ctx, func(s wizard.Snapshot) bool {
		return s.Screen == wizard.ScreenDeviceScanner && !s.Scanning
	})
	if err != nil {
		onStep(1, ui.StepFailed, "")
		return snap, fmt.Errorf("scan interrupted: %w", err)
	}
	onStep(1, ui.StepComplete, fmt.Sprintf("%d devices", len(snap.Discovered)))

	onStep(2, ui.StepRunning, "")
	if len(ids) == 0 {
		for _, d := range snap.Discovered {
			ids = append(ids, d.ID)
		}
	}
	for _, id := range ids {
		if _, ok := device.Find(snap.Discovered, id); !ok {
			onStep(2, ui.StepFailed, "")
			return snap, fmt.Errorf("device %q not found", id)
		}
		ctrl.Connect(id)
	}
	snap = ctrl.Snapshot()
	if !snap.CanFinalize {
		onStep(2, ui.StepFailed, "")
		return snap, fmt.Errorf("no devices connected")
	}
	onStep(2, ui.StepComplete, snap.ConnectedNames())

	onStep(3, ui.StepRunning, "")
	ctrl.Finalize()
	snap, err = ctrl.WaitFor(ctx, func(s wizard.Snapshot) bool { return s.CanConfirm })
	if err != nil {
		onStep(3, ui.StepFailed, "")
		return snap, fmt.Errorf("setup interrupted: %w", err)
	}
	onStep(3, ui.StepComplete, fmt.Sprintf("%d%%", snap.Progress.Percent()))

	onStep(4, ui.StepRunning, "")
	if !ctrl.Confirm(ctx) {
		onStep(4, ui.StepFailed, "")
		return ctrl.Snapshot(), fmt.Errorf("chat room did not open")
	}
	if !ctrl.Send(ctx, text) {
		onStep(4, ui.StepFailed, "")
		return ctrl.Snapshot(), fmt.Errorf("message was not sent")
	}
	snap = ctrl.Snapshot()
	if err := ctx.Err(); err != nil {
		onStep(4, ui.StepFailed, "")
		return snap, fmt.Errorf("chat interrupted: %w", err)
	}
	onStep(4, ui.StepComplete, "")
	return snap, nil
}

// peersCmd browses for other browser UIs
var peersCmd = &cobra.Command{
	Use:   "peers",
	Short: "Find devicechat servers on the local network",
	Long: `Browse mDNS for browser UIs started with 'devicechat serve --announce'.`,
	Example: `  # Browse for 3 seconds (default)
  devicechat peers

  # Longer browse for slow networks
  devicechat peers --timeout 10s`,
	RunE: runPeers,
}

func init() {
	peersCmd.Flags().DurationVar(&peersTimeout, "timeout", 3*time.Second, "Browse timeout")
}

func runPeers(cmd *cobra.Command, args []string) error {
	env, err := prepare(cmd.Context(), false, false)
	if err != nil {
		return err
	}
	defer env.Close()

	printer := ui.NewPrinter(nil)
	printer.PrintHeader("Peer Discovery", "devicechat peers", ui.Param{Key: "Timeout", Value: peersTimeout.String()})
	printer.PrintPleaseWait("Browsing the local network", "up to "+peersTimeout.String())

	peers, err := discovery.FindPeers(cmd.Context(), peersTimeout)
	if err != nil {
		printer.PrintError("Peer discovery failed", err, []string{
			"Check that multicast traffic is allowed on this network",
			"Try increasing --timeout",
		})
		return err
	}

	printer.Newline()
	if len(peers) == 0 {
		printer.PrintWarning("No devicechat servers found",
			ui.Param{Key: "Hint", Value: "start one with 'devicechat serve --host 0.0.0.0 --announce'"},
		)
		return nil
	}

	for i, p := range peers {
		note := p.URL()
		if v := p.Metadata["version"]; v != "" {
			note += "  (" + v + ")"
		}
		printer.PrintItem(i+1, p.Instance, note)
	}
	printer.Newline()
	printer.PrintSuccess(fmt.Sprintf("Found %d server(s)", len(peers)))
	return nil
}
