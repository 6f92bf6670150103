// ammbench_emulate runs the ammeter emulator fleet.
//
// Each selected device kind gets its own TCP service on its own port
// (greenlee 5000, entes 5001, circutor 5002 by default) answering its exact
// measurement command with a synthetic current value. The services run until
// the process receives SIGINT or SIGTERM.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/blagojts/viper"
	"github.com/spf13/pflag"

	"github.com/gridsense/ammbench/internal/utils"
	"github.com/gridsense/ammbench/pkg/device"
	"github.com/gridsense/ammbench/pkg/emulator"
)

// Program option vars:
var (
	devicesArg    string
	host          string
	seed          int64
	maxReplyRate  float64
	endpointsFile string
)

// Parse args:
func init() {
	pflag.String("devices", "all", "Comma-separated device kinds to emulate (greenlee, entes, circutor), or 'all'")
	pflag.String("host", "localhost", "Host/interface the emulators bind to")
	pflag.Int64("seed", 0, "Seed for the emulators' randomness sources (0 = seed from the clock)")
	pflag.Float64("max-reply-rate", 0, "Throttle replies per second per device to emulate a slow instrument (0 = no throttle)")
	pflag.String("endpoints-file", "", "YAML file overriding per-device hosts/ports")

	pflag.Parse()

	err := utils.SetupConfigFile()
	if err != nil {
		panic(fmt.Errorf("fatal error config file: %s", err))
	}

	devicesArg = viper.GetString("devices")
	host = viper.GetString("host")
	seed = viper.GetInt64("seed")
	maxReplyRate = viper.GetFloat64("max-reply-rate")
	endpointsFile = viper.GetString("endpoints-file")
}

func main() {
	kinds, err := device.KindsFromString(devicesArg)
	if err != nil {
		log.Fatal(err)
	}
	var overrides []device.Endpoint
	if endpointsFile != "" {
		overrides, err = device.LoadEndpointsFile(endpointsFile)
		if err != nil {
			log.Fatal(err)
		}
	}

	var cfgs []emulator.Config
	for i, ep := range device.EndpointsFor(kinds, overrides) {
		if endpointsFile == "" {
			ep.Host = host
		}
		instanceSeed := seed
		if instanceSeed != 0 {
			// distinct streams per device while keeping the fleet reproducible
			instanceSeed += int64(i)
		}
		cfgs = append(cfgs, emulator.Config{
			Endpoint:     ep,
			Seed:         instanceSeed,
			MaxReplyRate: maxReplyRate,
		})
	}
	fleet, err := emulator.NewFleet(cfgs)
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		cancel()
	}()

	if err := fleet.Run(ctx); err != nil {
		log.Fatal(err)
	}
}
