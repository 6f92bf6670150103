// ammbench_run drives one sampling campaign against the emulated ammeters.
//
// It polls the selected devices on a drift-free deadline grid, summarizes
// the collected currents per device, ranks device accuracy when several
// devices are compared, and archives the finalized runs.
//
// Exit codes: 0 success, 1 connection failure, 2 protocol/parse failure
// exceeding the retry budget, 3 invalid sampling configuration.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/blagojts/viper"
	"github.com/spf13/pflag"

	"github.com/gridsense/ammbench/internal/utils"
	"github.com/gridsense/ammbench/pkg/archive"
	"github.com/gridsense/ammbench/pkg/client"
	"github.com/gridsense/ammbench/pkg/device"
	"github.com/gridsense/ammbench/pkg/sampler"
	"github.com/gridsense/ammbench/pkg/stats"
)

const (
	exitOK = iota
	exitConnectionFailure
	exitProtocolFailure
	exitConfigError
)

// Program option vars:
var (
	devicesArg       string
	samples          uint64
	duration         time.Duration
	frequency        float64
	maxConsecutive   uint
	archiveURI       string
	endpointsFile    string
	hdrLatenciesFile string
	requestTimeout   time.Duration
	requestRetries   int
)

// Parse args:
func init() {
	pflag.String("devices", "all", "Comma-separated device kinds to sample (greenlee, entes, circutor), or 'all'")
	pflag.Uint64("samples", 0, "Number of samples to collect per device (two of samples/duration/frequency suffice)")
	pflag.Duration("duration", 0, "Wall-time bound for the campaign")
	pflag.Float64("frequency", 0, "Sampling frequency in Hz")
	pflag.Uint("max-consecutive-failures", 3, "Abort a device's run after this many failed samples in a row")
	pflag.String("archive", "results", "Archive URI: file://<dir>, postgres://..., or a bare directory ('' disables archiving)")
	pflag.String("endpoints-file", "", "YAML file overriding per-device hosts/ports")
	pflag.String("hdr-latencies", "", "Write the HDR histogram of request latencies to this file")
	pflag.Duration("request-timeout", client.DefaultTimeout, "Per-request reply timeout")
	pflag.Int("request-retries", client.DefaultRetries, "Transient-failure retries per sample")

	pflag.Parse()

	err := utils.SetupConfigFile()
	if err != nil {
		panic(fmt.Errorf("fatal error config file: %s", err))
	}

	devicesArg = viper.GetString("devices")
	samples = viper.GetUint64("samples")
	duration = viper.GetDuration("duration")
	frequency = viper.GetFloat64("frequency")
	maxConsecutive = viper.GetUint("max-consecutive-failures")
	archiveURI = viper.GetString("archive")
	endpointsFile = viper.GetString("endpoints-file")
	hdrLatenciesFile = viper.GetString("hdr-latencies")
	requestTimeout = viper.GetDuration("request-timeout")
	requestRetries = viper.GetInt("request-retries")
}

func main() {
	os.Exit(run())
}

func run() int {
	kinds, err := device.KindsFromString(devicesArg)
	if err != nil {
		log.Print(err)
		return exitConfigError
	}
	var overrides []device.Endpoint
	if endpointsFile != "" {
		if overrides, err = device.LoadEndpointsFile(endpointsFile); err != nil {
			log.Print(err)
			return exitConfigError
		}
	}
	endpoints := device.EndpointsFor(kinds, overrides)

	cfg := sampler.Config{
		Samples:                samples,
		Duration:               duration,
		FrequencyHz:            frequency,
		MaxConsecutiveFailures: maxConsecutive,
	}
	if cfg, err = cfg.Resolve(); err != nil {
		log.Print(err)
		return exitConfigError
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		log.Print("interrupt received, finalizing runs")
		cancel()
	}()

	scheduler := sampler.NewScheduler(func() sampler.Measurer {
		return client.New(client.Config{Timeout: requestTimeout, Retries: requestRetries})
	})
	runs, err := scheduler.RunAll(ctx, endpoints, cfg)
	if err != nil {
		log.Print(err)
		if sampler.IsConfigError(err) {
			return exitConfigError
		}
		return exitConnectionFailure
	}

	report(runs, scheduler)
	if hdrLatenciesFile != "" {
		if err := writeHdrLatencies(scheduler, hdrLatenciesFile); err != nil {
			log.Print(err)
		}
	}
	if archiveURI != "" {
		if err := storeRuns(archiveURI, runs); err != nil {
			// archiving failed; the computed stats above remain valid
			log.Print(err)
		}
	}
	return exitCode(runs)
}

// report prints per-run outcomes, the accuracy ranking across devices, and
// the request-latency summaries.
func report(runs []*sampler.TestRun, scheduler *sampler.Scheduler) {
	snapshots := make(map[device.Kind]stats.Snapshot)
	for _, run := range runs {
		fmt.Printf("run %s: device %s, status %s, %d samples (%d valid)\n",
			run.ID, run.Kind, run.Status, len(run.Samples), run.Stats.Count)
		if run.Stats.Count > 0 {
			s := run.Stats
			fmt.Printf("  current: min %.6fA, med %.6fA, mean %.6fA, max %.6fA, stdev %.6fA\n",
				s.Min, s.Median, s.Mean, s.Max, s.StdDev)
			snapshots[run.Kind] = *s
		}
	}
	if len(snapshots) > 1 {
		ranking := stats.Rank(snapshots)
		fmt.Printf("accuracy vs reference %.6fA (median of device medians):\n", ranking.Reference)
		for i, d := range ranking.Devices {
			fmt.Printf("  %d. %-9s deviation %.6fA, stdev %.6fA\n", i+1, d.Kind, d.Deviation, d.StdDev)
		}
	}

	latencies := make(map[string]*stats.LatencyGroup)
	for kind, lg := range scheduler.Latencies() {
		latencies[string(kind)] = lg
	}
	fmt.Println("request latencies:")
	if err := stats.WriteLatencyGroupMap(os.Stdout, latencies); err != nil {
		log.Print(err)
	}
}

func writeHdrLatencies(scheduler *sampler.Scheduler, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	defer w.Flush()
	for kind, lg := range scheduler.Latencies() {
		if _, err := fmt.Fprintf(w, "%s:\n", kind); err != nil {
			return err
		}
		if err := lg.WritePercentiles(w); err != nil {
			return err
		}
	}
	fmt.Printf("Saving HDR histogram of request latencies to %s\n", filename)
	return nil
}

func storeRuns(uri string, runs []*sampler.TestRun) error {
	a, err := archive.New(uri)
	if err != nil {
		return err
	}
	defer a.Close()
	for _, run := range runs {
		if err := a.Store(run); err != nil {
			return err
		}
		fmt.Printf("archived run %s\n", run.ID)
	}
	return nil
}

// exitCode maps run outcomes to the process exit code. Connection-level
// failures mask protocol-level ones when both occurred.
func exitCode(runs []*sampler.TestRun) int {
	code := exitOK
	for _, run := range runs {
		if run.Status != sampler.StatusAborted {
			continue
		}
		switch client.FailureKind(run.LastFailureKind()) {
		case client.FailureConnection, client.FailureTimeout:
			return exitConnectionFailure
		case client.FailureProtocol, client.FailureParse:
			code = exitProtocolFailure
		}
	}
	return code
}
