// Package rendezvous synchronises the start of the worker processes of a
// distributed-algorithm testbed with a central coordinator.
//
// A worker first reads the peer table with `ParseHosts`: one
// `<id> <address-or-hostname> <port>` record per line, IDs covering
// exactly 1..N with N >= 2. Then it builds a `Coordinator` and:
//
//   - waits on the barrier, `Coordinator.WaitOnBarrier`, until the
//     coordinator releases every worker at once;
//   - notifies the coordinator it is done with its initial broadcast,
//     `Coordinator.FinishedBroadcasting`.
//
// ## Wire protocol
//
// Both channels are plain TCP over IPv4. Right after connecting, the
// worker sends its process ID as an 8 bytes big-endian unsigned integer.
//
// On the barrier channel, the coordinator eventually sends at least one
// byte, the *release pulse*, whose content is ignored. The worker then
// closes the connection.
//
// On the signal channel, nothing is ever sent back. The connection is
// opened eagerly and the worker closing it *is* the signal.
//
// Everything blocks the calling goroutine. By default there is no
// deadline: pass a `context.Context` with one, or use `WithDialTimeout`,
// if you can't afford to wait forever on a stuck coordinator.
//
// The coordinator side lives in `pkg/coordinator`.
package rendezvous
