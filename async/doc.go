// Package async tracks the loading, error and data lifecycle of an
// asynchronous producer.
//
// A [Tracker] runs its handler once when it is created and again whenever
// one of its dependency stores changes. Each run moves through:
//
//	pending   Error=nil, Loading=true, handler started on a goroutine
//	resolved  Data=&result, then Loading=false
//	rejected  Error=err (Data keeps its previous value), then Loading=false
//
// A newer run supersedes older ones: their contexts are cancelled and their
// results are dropped. [WithLastWriteWins] keeps every result instead, so a
// slow stale run can overwrite a newer one.
//
// Settlement reaches the stores through a state.Scheduler. Pass a
// state.Queue or state.Loop to keep every store update on one goroutine:
//
//	loop := state.NewLoop()
//	go loop.Run(ctx)
//
//	user := async.New1(userID, fetchUser, async.WithScheduler(loop))
//	user.Data.Subscribe(func(u *User) { ... })
package async
