package stage

import "context"

// Run feeds an initialized stage from batches and inputs on the calling
// goroutine, so Process sees batches in the order they were received. It
// finalizes the stage and returns when ctx is done or batches is closed.
// Buffering and drop policy for batches belong to the producer.
func Run(ctx context.Context, s Stage, batches <-chan []float64, inputs <-chan string) error {
	defer s.Finalize()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case b, ok := <-batches:
			if !ok {
				return nil
			}
			s.Process(b)
		case text, ok := <-inputs:
			if !ok {
				inputs = nil
				continue
			}
			s.Input(text)
		}
	}
}
