// Package retry wraps a single remote call with bounded exponential backoff.
//
// Errors are split in two by a Classifier. A call is made at most
// Policy.MaxRetries times; between attempts Do sleeps InitialBackoff, 2*InitialBackoff, 4*InitialBackoff
// and so on, each plus a random jitter below InitialBackoff/2. Any other error stops
// the loop at once.
//
//	caption, err := retry.Do(ctx, retry.DefaultPolicy(), retry.RateLimited,
//	    func(ctx context.Context) (string, error) {
//	        return captioners.Next().Caption(ctx, url)
//	    })
//	if errors.Is(err, retry.ErrExhaustedRetries) {
//	    // still throttled on every attempt
//	}
package retry
