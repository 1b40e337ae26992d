// Package reactor implements the event-loop bridge described by §4.2:
// a single-threaded, cooperative reactor that converts completion
// callbacks (I/O readiness, timers, DNS, signals, child-process exit,
// worker-pool results) into resumes of the coroutine that requested
// them. It owns the reactor tick; the coroutine package drives the
// scheduler coroutine that calls it.
//
// # Architecture
//
// The reactor is built around a [Loop] core that manages task
// scheduling, timer processing, and I/O readiness notification.
// Per-resource adapters ([Loop.ScheduleTimer], [Loop.RegisterFD], the
// DNS resolver in dns.go, the SIGCHLD-backed child-process waiter in
// childwait.go, and the worker-pool dispatcher in work.go) all follow
// the same pattern described in §4.2: allocate a small context
// embedding reactor state and the waiting coroutine, register with the
// reactor, and resume the coroutine from the completion callback.
//
// Every in-flight operation is represented by an opHandle (§3
// "Event-loop handles"), tracked by a weak-pointer, ring-buffer
// registry so finished or abandoned handles don't pin memory; see
// registry.go.
//
// # Platform Support
//
// I/O polling is implemented using platform-native mechanisms:
//   - macOS: kqueue
//   - Linux: epoll
//   - Windows: IOCP (I/O Completion Ports)
//
// File descriptor operations ([Loop.RegisterFD], [Loop.UnregisterFD],
// [Loop.ModifyFD]) provide cross-platform I/O readiness notification.
//
// # Thread Safety
//
// The loop is designed for concurrent access:
//   - [Loop.Submit] and [Loop.SubmitInternal] are safe to call from any goroutine
//   - [Loop.ScheduleMicrotask] is lock-free (MPSC ring buffer)
//   - Timer and FD registration methods are thread-safe
//   - op-handle resumption must occur on the loop goroutine (enforced automatically)
//
// # Execution Model
//
// The loop supports a dual-path execution model:
//   - Fast path (~50ns/task): channel-based scheduling for low-latency scenarios
//   - I/O path (~8-15µs): poll-based scheduling when I/O FDs are registered
//
// Task priority ordering within each tick:
//  1. Timer callbacks (earliest deadline first)
//  2. Internal queue tasks ([Loop.SubmitInternal])
//  3. External queue tasks ([Loop.Submit])
//  4. Microtasks (drained after each macrotask when strict ordering is enabled)
//
// # Usage
//
//	loop, err := reactor.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer loop.Close()
//
//	loop.Submit(reactor.Task{Runnable: func() {
//	    loop.ScheduleTimer(100*time.Millisecond, func() {
//	        fmt.Println("Hello after 100ms")
//	        loop.Shutdown(context.Background())
//	    })
//	}})
//
//	if err := loop.Run(context.Background()); err != nil {
//	    log.Fatal(err)
//	}
//
// # Error Types
//
//   - [AggregateError]: when more than one reactor op fails together
//   - [TypeError], [RangeError]: for argument validation
//   - [TimeoutError]: for adapter timeouts (§4.2 timeout policy)
//   - [PanicError]: wraps recovered panics from task execution
//
// All error types implement the standard [error] interface and
// [errors.Unwrap].
package reactor
