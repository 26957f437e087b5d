// Package resilience groups the fault tolerance helpers used around the push
// provider and the delivery log database.
//
//   - circuitbreaker: gobreaker wrappers for the push channel and the database
//   - retry: exponential backoff with jitter for transient failures
//
// Usage Example:
//
//	cb := circuitbreaker.New(circuitbreaker.PushChannelConfig("onesignal"))
//	_, err := cb.Execute(func() (interface{}, error) {
//	    return nil, channel.Send(ctx, n)
//	})
//
//	err = retry.WithBackoff(ctx, retry.DBConfig(), func() error {
//	    return repo.MarkSent(ctx, n.ID, n.Attempts)
//	})
package resilience
