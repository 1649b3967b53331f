/*
Package supervisor drives the watchdog's single cooperative tick loop.

One long-lived process, one loop, a fixed period (default 15s). Each
tick runs the modules to completion in dependency order:

 1. Gateway health: wake and network gating first, so no later module
    acts on signals the host just invalidated by sleeping or losing
    connectivity. At most one restart per tick comes out of here.
 2. Agent heartbeat: self rate-limited staleness probe.
 3. Config safeguard: observes the freshest health signals, which is
    why it runs after the monitor but re-samples rather than reusing
    the monitor's view.
 4. Backup archiver and, every N ticks, the gateway log trim.

There is no parallelism between modules: ordering guarantees matter
more than throughput at this cadence, and bounded-timeout probes keep
any single tick from wedging.

Each module runs under a panic guard; a module failure is logged and
the loop continues. The supervisor's job is to outlive everything it
watches.

# Lifecycle

Run acquires the pid file (stale owners are replaced, live owners
refuse the start), starts the event broker with a structured-log sink,
attaches the backup watcher, and ticks until the context is cancelled;
cmd/watchdog wires that to SIGTERM/SIGINT. On the way out the pid
file is released. In-flight probes finish within their own timeouts;
nothing is killed.

# Usage

	cfg, err := config.Load(configFile)
	...
	sup := supervisor.New(cfg, probe.NewSystem())
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	err = sup.Run(ctx)
*/
package supervisor
