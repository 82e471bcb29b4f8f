package services

import "time"

// Clock - источник текущего времени. В тестах подменяется фиксированным.
type Clock func() time.Time

func orSystemClock(c Clock) Clock {
	if c == nil {
		return func() time.Time { return time.Now().UTC() }
	}
	return c
}
