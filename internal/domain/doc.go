// Package domain models BirdWeather station data held in the local cache.
//
// # Data Source
//
// Records originate from the BirdWeather GraphQL API at
// https://app.birdweather.com/graphql. A PUC station continuously classifies
// bird vocalizations (species, confidence, certainty) and samples its
// environment sensors (temperature, humidity, barometric pressure). The API
// exposes both as cursor-paginated connections plus two slow-moving reference
// tables: per-species metadata and per-week seasonal detection probabilities.
//
// # Identity and Deduplication
//
// Fact records are immutable and identified by a natural key rather than a
// server-assigned id, so overlapping fetches can be merged safely:
//
//	Detection:          (timestamp, speciesID, stationID)
//	EnvironmentReading: (timestamp, stationID)
//
// Repeated sync runs may fetch the same record twice (the API is idempotent
// at the record level, not the page level); the cache drops duplicates by
// identity key. See [Detection.Key] and [EnvironmentReading.Key].
//
// # Watermarks
//
// Each fact dataset carries a watermark: the latest timestamp up to which the
// local copy is known complete. A sync requests only records newer than the
// watermark and advances it only after those records are durably persisted,
// giving at-least-once delivery with dedupe absorbing the overlap.
//
// # Certainty Levels
//
// The API classifies each detection into one of four certainty buckets based
// on its confidence score: almost_certain, very_likely, uncertain, unlikely.
// Aggregations report a per-bucket breakdown alongside raw counts.
package domain
