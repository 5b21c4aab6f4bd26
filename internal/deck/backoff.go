package deck

import "time"

// readAheadBackoff is how long the read-ahead task waits before retrying
// a write into a full ring buffer.
const readAheadBackoff = 5 * time.Millisecond

func sleepBackoff() { time.Sleep(readAheadBackoff) }
