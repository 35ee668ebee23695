/*
Package resilience provides the circuit breaker that guards outbound calls to
the identity provider, the key store and the completion vendor.

A breaker never retries. It only fails fast while an upstream is known to be
down, so a dead vendor turns into an immediate error instead of a pile of
hanging requests.

# Usage

	breaker := resilience.New("openai", resilience.Settings{
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsFailure: func(err error) bool {
			return err != nil && !errors.Is(err, errRejected)
		},
	})

	err := breaker.Execute(ctx, func(ctx context.Context) error {
		return call(ctx)
	})

# States

	Closed --[failures]-> Open --[timeout]-> Half-Open --[successes]-> Closed
	                                           |
	                                       [failure]
	                                           v
	                                         Open
*/
package resilience
