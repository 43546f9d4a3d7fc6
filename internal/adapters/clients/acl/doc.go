// Package acl holds the adapters that talk to the author clock's downstream
// services and translate their payloads into domain types.
//
//   - [DatasetClient] loads the quote dataset from an http(s) URL or a file.
//   - [TimeClient] reads the current time from a WorldTimeAPI or timeapi.io
//     shaped endpoint.
//   - [WeatherClient] reads current conditions from Open-Meteo.
//   - [Quote0Client] pushes frames to a Quote/0 e-ink device.
//
// External DTOs stay unexported in the adapter files. Failures reach callers
// as domain errors: transport and status failures go through [FromClientError]
// and [FromResponse],
// and each adapter wraps them in its own domain error (DatasetLoadError,
// WeatherFetchError) where the display cycle needs to tell them apart.
//
// Every adapter also implements ports.HealthChecker. Checks report the
// circuit breaker instead of calling the downstream, so readiness probes
// never add load to a rate limited API.
package acl
