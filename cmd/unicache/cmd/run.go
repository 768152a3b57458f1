package cmd

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/unicache/config"
	"github.com/sarchlab/unicache/mem/acceptancetests/memaccessagent"
	"github.com/sarchlab/unicache/mem/cache/unified"
	"github.com/sarchlab/unicache/mem/idealmemcontroller"
	"github.com/sarchlab/unicache/sim"
	"github.com/sarchlab/unicache/simulation"
	"github.com/sarchlab/unicache/tracing"
)

type runOptions struct {
	seed         int64
	numPorts     int
	numReads     int
	numWrites    int
	maxAddress   uint64
	nonCacheable float64
	instFetch    bool
	policy       string
	memLatency   int
	freqGHz      float64
	flush        bool

	record      bool
	output      string
	monitor     bool
	monitorPort int
	browser     bool
	logPackets  bool
	logEvents   bool
}

var runOpts runOptions

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Drive the cache with random traffic and check every response",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.SilenceUsage = true

		cfg, err := loadConfig(cmd)
		if err != nil {
			log.Fatalf("Error: %v", err)
		}

		if runOpts.freqGHz <= 0 {
			log.Fatalf("Error: frequency must be positive, got %g", runOpts.freqGHz)
		}

		exitCode := runTraffic(cfg, runOpts, cmd.OutOrStdout())
		atexit.Exit(exitCode)
	},
}

func init() {
	f := runCmd.Flags()
	f.Int64Var(&runOpts.seed, "seed", 1, "random seed of the traffic")
	f.IntVar(&runOpts.numPorts, "ports", 0,
		"number of ports to drive, 0 drives every port")
	f.IntVar(&runOpts.numReads, "reads", 10000, "number of reads to issue")
	f.IntVar(&runOpts.numWrites, "writes", 10000, "number of writes to issue")
	f.Uint64Var(&runOpts.maxAddress, "max-address", 1<<20,
		"upper bound of the generated addresses")
	f.Float64Var(&runOpts.nonCacheable, "non-cacheable", 0,
		"probability that a request is non-cacheable")
	f.BoolVar(&runOpts.instFetch, "inst-fetch", false,
		"issue instruction fetches from port 0")
	f.StringVar(&runOpts.policy, "policy", "lru",
		"replacement policy, lru, fifo or srrip")
	f.IntVar(&runOpts.memLatency, "mem-latency", 100,
		"latency of the backing memory in cycles")
	f.Float64Var(&runOpts.freqGHz, "freq", 1,
		"clock frequency in GHz used to report the simulated time")
	f.BoolVar(&runOpts.flush, "flush", true,
		"flush the cache after the traffic finishes")
	f.BoolVar(&runOpts.record, "record", false,
		"record the transaction traces into a sqlite database")
	f.StringVar(&runOpts.output, "output", "",
		"name of the trace database, without the .sqlite3 extension")
	f.BoolVar(&runOpts.monitor, "monitor", false,
		"serve the monitoring page while the simulation runs")
	f.IntVar(&runOpts.monitorPort, "monitor-port", 0,
		"port of the monitoring server, 0 picks a free port")
	f.BoolVar(&runOpts.browser, "browser", false,
		"open the monitoring page in a browser")
	f.BoolVar(&runOpts.logPackets, "log-packets", false,
		"log every cache transaction to stderr")
	f.BoolVar(&runOpts.logEvents, "log-events", false,
		"log every engine event to stderr")

	rootCmd.AddCommand(runCmd)
}

func buildSimulation(opts runOptions) *simulation.Simulation {
	b := simulation.MakeBuilder()

	if opts.monitor {
		b = b.WithMonitorPort(opts.monitorPort)
		if opts.browser {
			b = b.WithBrowser()
		}
	} else {
		b = b.WithoutMonitoring()
	}

	if opts.record {
		b = b.WithOutputFileName(opts.output)
	} else {
		b = b.WithoutRecording()
	}

	return b.Build()
}

func runTraffic(cfg config.Config, opts runOptions, out io.Writer) int {
	s := buildSimulation(opts)
	engine := s.GetEngine()

	if opts.logEvents {
		engine.AcceptHook(sim.NewEventLogger(log.New(os.Stderr, "", 0)))
	}

	memCtrl := idealmemcontroller.MakeBuilder().
		WithEngine(engine).
		WithLatency(opts.memLatency).
		WithNewStorage(opts.maxAddress + cfg.BlockSize()).
		Build("Mem")

	cache := unified.MakeBuilder().
		WithEngine(engine).
		WithConfig(cfg).
		WithLowModule(memCtrl).
		WithReplacementPolicy(opts.policy).
		Build("Cache")

	ab := memaccessagent.MakeBuilder().
		WithEngine(engine).
		WithCache(cache).
		WithMaxAddress(opts.maxAddress).
		WithReadLeft(opts.numReads).
		WithWriteLeft(opts.numWrites).
		WithSeed(opts.seed).
		WithNonCacheableChance(opts.nonCacheable)
	if opts.numPorts > 0 {
		ab = ab.WithNumPorts(opts.numPorts)
	}
	if opts.instFetch {
		ab = ab.WithInstructionFetch()
	}
	agent := ab.Build("Agent")

	cache.SetUpperNotifier(agent)
	memCtrl.SetUpperNotifier(cache)

	s.RegisterComponent(agent)
	s.RegisterComponent(cache)
	s.RegisterComponent(memCtrl)
	s.TraceComponent(cache)

	if opts.logPackets {
		cache.AcceptHook(tracing.NewPacketLogger(log.New(os.Stderr, "", 0)))
	}

	var progress *progressTracker
	if m := s.GetMonitor(); m != nil {
		progress = newProgressTracker(m, agent, opts.numReads+opts.numWrites)
		engine.AcceptHook(progress)
	}

	agent.TickLater()
	if err := engine.Run(); err != nil {
		log.Printf("Error: %v", err)
		return 1
	}

	if opts.flush {
		cache.Flush()
		if err := engine.Run(); err != nil {
			log.Printf("Error: %v", err)
			return 1
		}
	}

	if progress != nil {
		progress.complete()
	}

	printReport(out, engine.CurrentTime(), sim.Freq(opts.freqGHz)*sim.GHz,
		cache.Stats(), agent)
	s.Terminate()

	if len(agent.Mismatches) > 0 {
		return 1
	}

	return 0
}

func printReport(
	out io.Writer,
	now sim.Cycle,
	freq sim.Freq,
	stats unified.Stats,
	agent *memaccessagent.MemAccessAgent,
) {
	fmt.Fprintf(out, "cycles:          %d\n", now)
	fmt.Fprintf(out, "simulated time:  %.3e s\n", freq.Seconds(now))
	fmt.Fprintf(out, "accepted:        %d\n", stats.Accepted)
	fmt.Fprintf(out, "hits:            %d\n", stats.Hits)
	fmt.Fprintf(out, "misses:          %d\n", stats.Misses)
	fmt.Fprintf(out, "merges:          %d\n", stats.Merges)
	fmt.Fprintf(out, "hit rate:        %.4f\n", stats.HitRate())
	fmt.Fprintf(out, "evictions:       %d\n", stats.Evictions)
	fmt.Fprintf(out, "writebacks:      %d\n", stats.Writebacks)
	fmt.Fprintf(out, "write-arounds:   %d\n", stats.WriteArounds)
	fmt.Fprintf(out, "bank conflicts:  %d\n", stats.BankConflicts)
	fmt.Fprintf(out, "stalls:          mshr %d, wb %d, rq %d, victim %d\n",
		stats.StallMSHRFull, stats.StallWriteBufferFull,
		stats.StallReturnQueueFull, stats.StallNoVictim)
	fmt.Fprintf(out, "checked:         %d\n", agent.NumChecked)
	fmt.Fprintf(out, "mismatches:      %d\n", len(agent.Mismatches))

	for i, m := range agent.Mismatches {
		if i == 10 {
			fmt.Fprintf(out, "  ... %d more\n", len(agent.Mismatches)-i)
			break
		}

		fmt.Fprintf(out, "  %s\n", m)
	}
}
