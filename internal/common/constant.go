package common

// AuthHeaderName is the HTTP header carrying the bearer token on requests
// to the durable-store API and on the relay upgrade request.
const AuthHeaderName = "Authorization"

// TempIDPrefix marks client-generated note ids that have not yet been
// confirmed by the durable store. Durable ids are UUIDs and can never
// collide with this namespace.
const TempIDPrefix = "tmp-"
