// Package ir provides the model and profile types shared by every stage of
// the scheduler, plus canonical JSON and content hashes over them.
//
// ir imports nothing internal; every other internal package may import it.
//
// Key design constraints:
//   - NO float types anywhere: rates and token counts are integers, ratios
//     live in package fraction
//   - All JSON and YAML tags use snake_case
//   - Canonical JSON is the only serialization used for hashing
package ir
