// Package services defines the [Service] interface for music metadata providers and implements it
// against an HTTP metadata proxy.
//
// # Proxy Implementation
//
// [ProxyService] is a thin mapping over [APIService], which performs JSON GET requests:
//   - GET /api/resolve?url=&type=&cache= : track metadata
//   - GET /api/related?url= : related tracks for auto-continue
//   - GET /api/playable?url= : stream URL and content length
//   - GET /api/playlist?url= : playlist expansion, unreadable items as null
//
// When an API key is configured, requests carry it as a bearer token using an oauth2 static token source.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrNetwork] : transport failure or undecodable body
//   - [shared.ErrUnresolvableSource] : the proxy does not know the source (404/422) or returned no metadata
//   - [shared.ErrRelatedTrackNotFound] : no related track was suggested
//
// Other non-2xx responses surface as [*APIError].
package services
