package cache

import (
	"fmt"
	"time"
)

// StartSweeper removes expired entries every interval until Stop is called.
// A non-positive interval disables sweeping.
func (c *ResolutionCache) StartSweeper(interval time.Duration) {
	if interval <= 0 || c.stop != nil {
		return
	}
	c.stop = make(chan struct{})
	c.done = make(chan struct{})

	go func() {
		defer close(c.done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-c.stop:
				return
			case <-ticker.C:
				if n := c.Sweep(); n > 0 {
					c.logger.Debug("swept expired resolutions", "removed", n)
				}
			}
		}
	}()

	c.logger.Info("cache sweeper started", "interval", interval)
}

// Stop halts the sweeper, waiting up to timeout for it to exit.
func (c *ResolutionCache) Stop(timeout time.Duration) error {
	if c.stop == nil {
		return nil
	}
	c.stopOnce.Do(func() { close(c.stop) })

	select {
	case <-c.done:
		c.logger.Info("cache sweeper stopped")
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("cache sweeper did not stop within %v", timeout)
	}
}
