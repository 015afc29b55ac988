// Package resilience groups the fault tolerance building blocks of the weather service.
//
// The circuitbreaker subpackage guards calls to the upstream weather API: after a run of
// consecutive failures the circuit opens and calls fail fast with ErrCircuitOpen until the
// open timeout elapses, then trial calls decide whether the circuit closes again.
//
// Usage Example:
//
//	cb, err := circuitbreaker.New(circuitbreaker.WeatherAPIConfig())
//	if err != nil {
//	    return err
//	}
//	conditions, err := circuitbreaker.Do(cb, func() (weather.Conditions, error) {
//	    return client.CurrentConditions(ctx, location)
//	})
package resilience
